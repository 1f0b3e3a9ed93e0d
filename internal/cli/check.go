package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [packs...]",
		Short: "Parse trigger packs and report problems",
		Long: `Parse trigger packs without connecting and list every rule.

With no arguments every pack in the trigger directory is checked. The
command fails if a pack cannot be loaded or any rule is quarantined.

Example:
  mudbot check
  mudbot check --triggers-dir ./packs combat status`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}
}

func runCheck(opts *RootOptions, names []string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	lib := trigger.NewLibrary(cfg.Triggers.Dir)
	if len(names) == 0 {
		names, err = lib.Names()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return fmt.Errorf("no trigger packs in %s", lib.Dir())
		}
	}

	out := cmd.OutOrStdout()
	failed, quarantined := 0, 0
	for _, name := range names {
		set, err := lib.Load(name)
		if err != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", name, err)
			continue
		}
		reactive, command, invalid := set.Counts()
		quarantined += invalid
		mark := "✓"
		if invalid > 0 {
			mark = "!"
		}
		fmt.Fprintf(out, "%s %s (%s): %d reactive, %d command, %d quarantined\n",
			mark, name, set.Source, reactive, command, invalid)
		for i, r := range set.Rules {
			fmt.Fprintf(out, "    [%d] %s\n", i, r.Summary())
		}
	}

	if failed > 0 || quarantined > 0 {
		return fmt.Errorf("%d pack(s) failed to load, %d rule(s) quarantined", failed, quarantined)
	}
	return nil
}
