package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/mudbot/internal/engine"
	"github.com/gyaneshwarpardhi/mudbot/internal/session"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Step time.Duration
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <transcript> [packs...]",
		Short: "Feed a recorded transcript through the trigger engine",
		Long: `Replay a transcript of server output against trigger packs, offline.

Each transcript line is treated as a line from the server, except lines
starting with @, which are handled as console commands (@load, @hp, ...).
A virtual clock advances by --step after every line, so cooldowns and
delayed output behave deterministically. Output the engine would send is
printed prefixed with "> ".

Example:
  mudbot replay session.log combat
  mudbot replay --step 1s session.log combat status`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Step, "step", 100*time.Millisecond, "virtual time between transcript lines")

	return cmd
}

// printSink writes engine output to the terminal instead of a server.
type printSink struct {
	w    io.Writer
	sent int
}

func (p *printSink) Send(msg string) error {
	p.sent++
	for _, seg := range strings.Split(msg, ";") {
		fmt.Fprintf(p.w, "> %s\n", seg)
	}
	return nil
}

func (p *printSink) SendRaw(line string) error {
	fmt.Fprintf(p.w, ">> %s\n", line)
	return nil
}

type virtualClock struct{ t time.Time }

func (c *virtualClock) Now() time.Time { return c.t }

func runReplay(opts *ReplayOptions, transcript string, packs []string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	orMode, err := engine.ParseOrMode(cfg.Engine.OrMode)
	if err != nil {
		return err
	}
	f, err := os.Open(transcript)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	sink := &printSink{w: out}
	clock := &virtualClock{t: time.Now()}
	eng := engine.New(sink,
		engine.WithClock(clock.Now),
		engine.WithDebounce(time.Duration(cfg.Engine.DebounceMs)*time.Millisecond),
		engine.WithOrMode(orMode),
		engine.WithLogger(slog.Default()),
	)
	con := session.NewConsole(eng, trigger.NewLibrary(cfg.Triggers.Dir), sink, out, slog.Default())
	if len(packs) > 0 {
		con.Handle("@load " + strings.Join(packs, " "))
	}

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		lines++
		if strings.HasPrefix(line, "@") {
			if con.Handle(line) {
				break
			}
		} else {
			fmt.Fprintln(out, line)
			eng.HandleLine(line)
		}
		clock.t = clock.t.Add(opts.Step)
		eng.Tick()
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	// Release whatever is still pending.
	for _, t := range eng.Pending() {
		if t.FireAt.After(clock.t) {
			clock.t = t.FireAt
		}
		eng.Tick()
	}

	slog.Info("replay finished", "lines", lines, "messages", sink.sent)
	return nil
}
