package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/mudbot/internal/api"
	"github.com/gyaneshwarpardhi/mudbot/internal/config"
	"github.com/gyaneshwarpardhi/mudbot/internal/engine"
	"github.com/gyaneshwarpardhi/mudbot/internal/session"
	"github.com/gyaneshwarpardhi/mudbot/internal/telnet"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Host        string
	Port        int
	Encoding    string
	MetricsAddr string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [packs...]",
		Short: "Connect to a MUD and run trigger packs",
		Long: `Connect to a MUD server and run the trigger engine.

Server output is printed to stdout and matched against the loaded packs.
Lines typed on stdin are sent to the server; lines starting with @ are
console commands:

  @load <name>...    load trigger packs
  @unload <name>...  unload trigger packs
  @unloadall         unload every pack
  @list              list loaded packs and rules
  @states            show the state store
  @<command>         fire command rules named <command>
  @exit              disconnect and quit

Packs named as arguments are loaded at start, after triggers.autoload.

Example:
  mudbot run combat status
  mudbot run --host mud.example.org --port 4000 --encoding utf-8 basic`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "MUD host (overrides config)")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "MUD port (overrides config)")
	cmd.Flags().StringVar(&opts.Encoding, "encoding", "", "server charset, e.g. gbk or utf-8 (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "HTTP API and metrics listen address (overrides config)")

	return cmd
}

// resolveConfig loads the config file, applies flag overrides and
// validates the result.
func (o *RunOptions) resolveConfig() (*config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if o.Host != "" {
		cfg.Server.Host = o.Host
	}
	if o.Port != 0 {
		cfg.Server.Port = o.Port
	}
	if o.Encoding != "" {
		cfg.Server.Encoding = o.Encoding
	}
	if o.MetricsAddr != "" {
		cfg.Metrics.Addr = o.MetricsAddr
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSession(opts *RunOptions, packs []string, cmd *cobra.Command) error {
	cfg, err := opts.resolveConfig()
	if err != nil {
		return err
	}
	orMode, err := engine.ParseOrMode(cfg.Engine.OrMode)
	if err != nil {
		return err
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Connect
	addr := cfg.Server.Address()
	slog.Info("connecting", "addr", addr, "encoding", cfg.Server.Encoding)
	conn, err := telnet.Dial(ctx, addr, telnet.Options{
		Encoding:    cfg.Server.Encoding,
		DialTimeout: time.Duration(cfg.Server.DialTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer conn.Close()
	slog.Info("connected", "addr", addr)

	// Engine and session
	eng := engine.New(conn,
		engine.WithDebounce(time.Duration(cfg.Engine.DebounceMs)*time.Millisecond),
		engine.WithOrMode(orMode),
		engine.WithLogger(slog.Default()),
	)
	sess := session.New(eng, conn, trigger.NewLibrary(cfg.Triggers.Dir), session.Options{
		ReadTimeout: time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		Heartbeat:   cfg.Engine.IdleHeartbeat,
		Watch:       cfg.Triggers.WatchEnabled(),
		Console:     cmd.OutOrStdout(),
		Logger:      slog.Default(),
	})

	autoload := append(append([]string{}, cfg.Triggers.Autoload...), packs...)
	if len(autoload) > 0 {
		sess.Submit("@load " + strings.Join(autoload, " "))
	}

	// Console input
	go func() {
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			if err := sess.Enter(ctx, sc.Text()); err != nil {
				return
			}
		}
	}()

	// HTTP API
	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:         cfg.Metrics.Addr,
			Handler:      api.New(sess),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			slog.Info("http server starting", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "err", err)
			}
		}()
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	err = sess.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		slog.Info("goodbye")
		return nil
	case errors.Is(err, session.ErrConnectionLost):
		return fmt.Errorf("disconnected from %s: %w", addr, err)
	}
	return err
}
