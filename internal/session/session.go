// Package session runs the processing loop that connects a remote MUD
// stream, the user console and the trigger engine.
//
// Every engine call happens on the goroutine executing Run. Remote lines,
// user input, closures from other goroutines and the scheduler tick are
// merged there with a single select.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/mudbot/internal/engine"
	"github.com/gyaneshwarpardhi/mudbot/internal/metrics"
	"github.com/gyaneshwarpardhi/mudbot/internal/telnet"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

var (
	// ErrConnectionLost ends Run when the remote stream closes. It wraps the
	// remote's own error.
	ErrConnectionLost = errors.New("session: connection lost")
	// ErrNotRunning is returned by Do and Enter when the loop is not running.
	ErrNotRunning = errors.New("session: not running")
)

const (
	defaultReadTimeout = time.Second
	inputQueueDepth    = 256
)

// Remote is the MUD side of a session. *telnet.Conn implements it.
type Remote interface {
	// ReadLine returns telnet.ErrIdle when nothing arrived before timeout.
	ReadLine(timeout time.Duration) (string, error)
	Send(msg string) error
	SendRaw(line string) error
	Close() error
}

// Options configures a Session.
type Options struct {
	// ReadTimeout bounds each remote read and sets the tick interval.
	ReadTimeout time.Duration
	// Heartbeat evaluates an empty line on every tick without remote input.
	Heartbeat bool
	// Watch reloads loaded packs when their files change.
	Watch bool
	// Console receives remote text and command output. Nil discards it.
	Console io.Writer
	Logger  *slog.Logger
}

// request is either a user line or a closure to run on the loop.
type request struct {
	line string
	job  func(*engine.Engine)
}

// Session owns an Engine for the lifetime of one remote connection.
type Session struct {
	id      string
	eng     *engine.Engine
	remote  Remote
	lib     *trigger.Library
	opts    Options
	console io.Writer
	con     *Console
	log     *slog.Logger

	requests  chan request
	running   atomic.Bool
	connected atomic.Bool
	stopped   chan struct{}
}

// New creates a Session. The engine's sink is normally remote itself.
func New(eng *engine.Engine, remote Remote, lib *trigger.Library, opts Options) *Session {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	console := opts.Console
	if console == nil {
		console = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	logger = logger.With("session", id)
	return &Session{
		id:       id,
		eng:      eng,
		remote:   remote,
		lib:      lib,
		opts:     opts,
		console:  console,
		con:      NewConsole(eng, lib, remote, console, logger),
		log:      logger,
		requests: make(chan request, inputQueueDepth),
		stopped:  make(chan struct{}),
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Connected reports whether Run is active with a live remote.
func (s *Session) Connected() bool { return s.connected.Load() }

// Submit queues a user input line. It returns false if the queue is full.
// Lines submitted before Run starts are processed before any remote line.
func (s *Session) Submit(line string) bool {
	select {
	case s.requests <- request{line: line}:
		return true
	default:
		return false
	}
}

// Enter queues a user input line, waiting for room in the queue. It returns
// ErrNotRunning once Run has returned.
func (s *Session) Enter(ctx context.Context, line string) error {
	if s.isStopped() {
		return ErrNotRunning
	}
	select {
	case s.requests <- request{line: line}:
		return nil
	case <-s.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// Do runs fn on the processing loop and waits for it to finish. Requests
// are handled in order, so fn observes the effect of every line submitted
// before it.
func (s *Session) Do(ctx context.Context, fn func(*engine.Engine)) error {
	if !s.running.Load() || s.isStopped() {
		return ErrNotRunning
	}
	done := make(chan struct{})
	job := func(e *engine.Engine) {
		defer close(done)
		fn(e)
	}
	select {
	case s.requests <- request{job: job}:
	case <-s.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes remote lines, user input and scheduler ticks until the
// remote closes (ErrConnectionLost), the user enters @exit (nil) or ctx is
// cancelled (ctx.Err()). Run may be called once.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session: already running")
	}
	s.connected.Store(true)
	defer func() {
		s.connected.Store(false)
		close(s.stopped)
	}()
	s.log.Info("session started")

	for queued := true; queued; {
		select {
		case req := <-s.requests:
			if s.handle(req) {
				return nil
			}
		default:
			queued = false
		}
	}

	lines := make(chan string, 64)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.read(lines, readErr, done)

	if s.opts.Watch && s.lib != nil {
		stop, err := s.lib.Watch(s.packChanged)
		if err != nil {
			s.log.Warn("pack watcher unavailable (hot-reload disabled)", "err", err)
		} else {
			defer stop()
		}
	}

	ticker := time.NewTicker(s.opts.ReadTimeout)
	defer ticker.Stop()
	idle := true

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line := <-lines:
			idle = false
			s.handleRemote(line)

		case req := <-s.requests:
			if s.handle(req) {
				return nil
			}

		case <-ticker.C:
			if idle && s.opts.Heartbeat {
				s.eng.HandleLine("")
			}
			idle = true
			s.eng.Tick()

		case err := <-readErr:
			// The reader sent every line before its error.
			for drained := false; !drained; {
				select {
				case line := <-lines:
					s.handleRemote(line)
				default:
					drained = true
				}
			}
			s.log.Warn("remote closed", "err", err)
			return fmt.Errorf("%w: %w", ErrConnectionLost, err)
		}
	}
}

// read forwards remote lines until the remote fails or done is closed.
func (s *Session) read(lines chan<- string, errc chan<- error, done <-chan struct{}) {
	for {
		line, err := s.remote.ReadLine(s.opts.ReadTimeout)
		if errors.Is(err, telnet.ErrIdle) {
			select {
			case <-done:
				return
			default:
				continue
			}
		}
		if err != nil {
			errc <- err
			return
		}
		select {
		case lines <- line:
		case <-done:
			return
		}
	}
}

func (s *Session) handle(req request) (exit bool) {
	if req.job != nil {
		req.job(s.eng)
		return false
	}
	if s.con.Handle(req.line) {
		s.log.Info("session ended by user")
		return true
	}
	return false
}

func (s *Session) handleRemote(line string) {
	metrics.LinesReceived.Inc()
	fmt.Fprintln(s.console, line)
	s.eng.HandleLine(line)
}

// packChanged runs on the watcher goroutine.
func (s *Session) packChanged(name string) {
	job := func(e *engine.Engine) {
		if _, ok := e.Set(name); !ok {
			return
		}
		s.log.Info("pack changed on disk, reloading", "pack", name)
		s.con.load(name)
	}
	select {
	case s.requests <- request{job: job}:
	case <-s.stopped:
	}
}
