// Package engine evaluates trigger sets against remote lines and user
// commands.
//
// An Engine owns every piece of mutable trigger state: the active sets, the
// state store, the delayed-output scheduler and the last-message register.
// It is not safe for concurrent use; the session loop is its only caller.
package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/mudbot/internal/metrics"
	"github.com/gyaneshwarpardhi/mudbot/internal/scheduler"
	"github.com/gyaneshwarpardhi/mudbot/internal/state"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

// Sink receives rendered messages bound for the remote session.
type Sink interface {
	Send(msg string) error
}

// Emission sources, used as a metrics label and in logs.
const (
	SourceTrigger   = "trigger"
	SourceCommand   = "command"
	SourceScheduler = "scheduler"
)

// OrMode selects which list the "or" check of a rule evaluates.
type OrMode string

const (
	// OrLegacy evaluates the rule's "and" list for the "or" check. A rule
	// with an "or" list and no "and" list never fires.
	OrLegacy OrMode = "legacy"
	// OrAny evaluates the rule's own "or" list.
	OrAny OrMode = "any"
)

// ParseOrMode validates an or-mode name.
func ParseOrMode(s string) (OrMode, error) {
	switch m := OrMode(strings.ToLower(s)); m {
	case OrLegacy, OrAny:
		return m, nil
	case "":
		return OrLegacy, nil
	}
	return "", fmt.Errorf("unknown or mode %q (want legacy or any)", s)
}

// Engine processes lines and commands against the loaded trigger sets.
type Engine struct {
	sets    []*trigger.Set
	store   *state.Store
	sched   *scheduler.Scheduler
	sink    Sink
	last    string
	hasLast bool

	now      func() time.Time
	debounce time.Duration
	orMode   OrMode
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDebounce sets the scheduler's coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithOrMode sets how "or" condition lists are evaluated.
func WithOrMode(m OrMode) Option {
	return func(e *Engine) { e.orMode = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an Engine writing to sink.
func New(sink Sink, opts ...Option) *Engine {
	e := &Engine{
		store:    state.NewStore(),
		sink:     sink,
		now:      time.Now,
		debounce: scheduler.DefaultDebounce,
		orMode:   OrLegacy,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sched = scheduler.New(e.debounce)
	return e
}

// Load activates set. A set with the same name is replaced in place, keeping
// its position in the evaluation order; its pending delayed output is
// dropped.
func (e *Engine) Load(set *trigger.Set) {
	defer func() { metrics.SetsActive.Set(float64(len(e.sets))) }()
	for i, s := range e.sets {
		if s.Name == set.Name {
			e.sched.CancelFunc(ownedBy(set.Name))
			e.sets[i] = set
			return
		}
	}
	e.sets = append(e.sets, set)
}

// Unload removes the named set, its pending delayed output and its cooldown
// stamps. It reports whether the set was loaded.
func (e *Engine) Unload(name string) bool {
	for i, s := range e.sets {
		if s.Name == name {
			e.sets = append(e.sets[:i], e.sets[i+1:]...)
			e.forget(name)
			metrics.SetsActive.Set(float64(len(e.sets)))
			return true
		}
	}
	return false
}

// UnloadAll removes every set and returns how many there were.
func (e *Engine) UnloadAll() int {
	n := len(e.sets)
	for _, s := range e.sets {
		e.forget(s.Name)
	}
	e.sets = nil
	metrics.SetsActive.Set(0)
	return n
}

func (e *Engine) forget(name string) {
	e.sched.CancelFunc(ownedBy(name))
	e.store.DeleteFunc(ownedBy(name))
}

func ownedBy(set string) func(string) bool {
	return func(key string) bool { return state.OwnedBy(key, set) }
}

// Sets returns the active sets in evaluation order.
func (e *Engine) Sets() []*trigger.Set {
	out := make([]*trigger.Set, len(e.sets))
	copy(out, e.sets)
	return out
}

// Set returns the named active set.
func (e *Engine) Set(name string) (*trigger.Set, bool) {
	for _, s := range e.sets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// States returns the engine's state store.
func (e *Engine) States() *state.Store {
	return e.store
}

// Pending returns the scheduled delayed messages in release order.
func (e *Engine) Pending() []scheduler.Task {
	return e.sched.Pending()
}

// Last returns the most recently emitted message.
func (e *Engine) Last() (string, bool) {
	return e.last, e.hasLast
}

// HandleLine matches line against every active reactive rule and executes
// the ones that fire, in load order. It returns the number of rules fired.
func (e *Engine) HandleLine(line string) int {
	start := time.Now()
	firing := e.FindFiring(line)
	for _, f := range firing {
		metrics.RulesFired.WithLabelValues(f.ID.Set).Inc()
		e.Execute(f)
	}
	metrics.LineProcessingDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	return len(firing)
}

// Tick releases every delayed message that is due and returns how many were
// sent.
func (e *Engine) Tick() int {
	due := e.sched.Poll(e.now())
	for _, t := range due {
		e.emit(t.Message, SourceScheduler, t.Key)
	}
	metrics.TasksPending.Set(float64(e.sched.Len()))
	return len(due)
}

// emit sends msg to the remote and records it as the last message.
func (e *Engine) emit(msg, source, origin string) {
	e.last = msg
	e.hasLast = true
	e.log.Info("emit", "msg", msg, "source", source, "origin", origin)
	metrics.MessagesEmitted.WithLabelValues(source).Inc()
	if err := e.sink.Send(msg); err != nil {
		e.log.Warn("send failed", "origin", origin, "err", err)
	}
}

// nowMillis returns the clock as fractional Unix milliseconds, the unit of
// cooldown stamps in the state store.
func (e *Engine) nowMillis() float64 {
	t := e.now()
	frac := float64(t.Nanosecond()%int(time.Millisecond)) / float64(time.Millisecond)
	return float64(t.UnixMilli()) + frac
}
