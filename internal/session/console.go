package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gyaneshwarpardhi/mudbot/internal/engine"
	"github.com/gyaneshwarpardhi/mudbot/internal/metrics"
	"github.com/gyaneshwarpardhi/mudbot/internal/state"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

// commandPrefix marks user lines the session interprets instead of sending.
const commandPrefix = "@"

// RawSender writes a user line to the remote unchanged.
type RawSender interface {
	SendRaw(line string) error
}

// Console interprets user input lines against an engine: built-in @
// commands, command rules, and plain lines for the remote.
type Console struct {
	eng    *engine.Engine
	lib    *trigger.Library
	remote RawSender
	out    io.Writer
	log    *slog.Logger
}

// NewConsole creates a Console. lib may be nil, in which case @load fails.
func NewConsole(eng *engine.Engine, lib *trigger.Library, remote RawSender, out io.Writer, logger *slog.Logger) *Console {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{eng: eng, lib: lib, remote: remote, out: out, log: logger}
}

// Handle processes one user line and reports whether it was @exit.
func (c *Console) Handle(line string) (exit bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		metrics.UserLines.WithLabelValues("empty").Inc()
		return false
	}
	if !strings.HasPrefix(line, commandPrefix) {
		metrics.UserLines.WithLabelValues("raw").Inc()
		if err := c.remote.SendRaw(line); err != nil {
			c.log.Warn("send failed", "err", err)
		}
		return false
	}

	fields := strings.Fields(strings.TrimPrefix(line, commandPrefix))
	if len(fields) == 0 {
		metrics.UserLines.WithLabelValues("empty").Inc()
		return false
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "load":
		metrics.UserLines.WithLabelValues("builtin").Inc()
		if len(args) == 0 {
			c.sysf("usage: @load <name>...")
		}
		for _, name := range args {
			c.load(name)
		}
	case "unload":
		metrics.UserLines.WithLabelValues("builtin").Inc()
		if len(args) == 0 {
			c.sysf("usage: @unload <name>...")
		}
		for _, name := range args {
			if c.eng.Unload(name) {
				c.log.Info("pack unloaded", "pack", name)
			} else {
				c.sysf("pack [%s] is not loaded", name)
			}
		}
	case "unloadall":
		metrics.UserLines.WithLabelValues("builtin").Inc()
		n := c.eng.UnloadAll()
		c.log.Info("all packs unloaded", "count", n)
	case "list":
		metrics.UserLines.WithLabelValues("builtin").Inc()
		c.list()
	case "states":
		metrics.UserLines.WithLabelValues("builtin").Inc()
		c.states()
	case "exit":
		metrics.UserLines.WithLabelValues("builtin").Inc()
		return true
	default:
		metrics.UserLines.WithLabelValues("command").Inc()
		c.eng.Dispatch(verb)
	}
	return false
}

// load reads the named pack and activates it. Failures are reported and
// leave the engine unchanged.
func (c *Console) load(name string) {
	if c.lib == nil {
		c.sysf("no trigger directory configured")
		return
	}
	set, err := c.lib.Load(name)
	if err != nil {
		metrics.PackLoads.WithLabelValues("error").Inc()
		if errors.Is(err, trigger.ErrNotFound) {
			c.log.Warn("pack not found", "pack", name, "dir", c.lib.Dir())
		} else {
			c.log.Warn("pack load failed", "pack", name, "err", err)
		}
		c.sysf("cannot load [%s]: %v", name, err)
		return
	}

	problems := set.Problems()
	for _, p := range problems {
		c.log.Warn("rule quarantined", "pack", name, "err", p)
	}
	metrics.RulesQuarantined.Add(float64(len(problems)))

	c.eng.Load(set)
	metrics.PackLoads.WithLabelValues("ok").Inc()
	reactive, command, invalid := set.Counts()
	c.log.Info("pack loaded", "pack", name, "source", set.Source,
		"reactive", reactive, "command", command, "quarantined", invalid)
}

func (c *Console) list() {
	sets := c.eng.Sets()
	if len(sets) == 0 {
		c.sysf("no packs loaded")
		return
	}
	for _, set := range sets {
		reactive, command, invalid := set.Counts()
		c.sysf("%s (%s): %d reactive, %d command, %d quarantined",
			set.Name, set.Source, reactive, command, invalid)
		for i, r := range set.Rules {
			fmt.Fprintf(c.out, "  [%d] %s\n", i, r.Summary())
		}
	}
}

func (c *Console) states() {
	st := c.eng.States()
	if st.Len() == 0 {
		c.sysf("no states")
		return
	}
	for _, name := range st.Names() {
		v, _ := st.Get(name)
		fmt.Fprintf(c.out, "  %s = %s\n", name, describe(v))
	}
}

// describe renders a state value so that absent, empty and typed values
// are distinguishable on the console.
func describe(v interface{}) string {
	switch v.(type) {
	case nil:
		return "<absent>"
	case string:
		return fmt.Sprintf("%q", v)
	}
	return state.Format(v)
}

func (c *Console) sysf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "[sys] "+format+"\n", args...)
}
