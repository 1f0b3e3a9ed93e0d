// Package cli implements the mudbot command line.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/mudbot/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath  string
	TriggersDir string
	Verbose     bool
}

// NewRootCommand creates the root command for the mudbot CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mudbot",
		Short: "mudbot - trigger engine for MUD telnet sessions",
		Long: `mudbot connects to a MUD over telnet and answers server output with
rules loaded from trigger packs: pattern matches, state conditions,
cooldowns, delayed output and user-invoked commands.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "mudbot.yaml", "path to YAML config (optional)")
	cmd.PersistentFlags().StringVar(&opts.TriggersDir, "triggers-dir", "", "trigger pack directory (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// loadConfig reads the config file and applies the global overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.TriggersDir != "" {
		cfg.Triggers.Dir = o.TriggersDir
	}
	return cfg, nil
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
