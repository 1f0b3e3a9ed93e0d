// Package scheduler holds delayed trigger output until it is due.
//
// Tasks are keyed by a deduplication key. Scheduling a key that already has
// a pending task scheduled less than the debounce window ago is dropped;
// older pending tasks are overwritten in place.
package scheduler

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultDebounce is the coalescing window for repeated schedule requests.
const DefaultDebounce = 5 * time.Second

// Outcome describes what Schedule did with a request.
type Outcome string

const (
	Inserted  Outcome = "inserted"
	Replaced  Outcome = "replaced"
	Coalesced Outcome = "coalesced"
)

// Task is a pending delayed message.
type Task struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	ScheduledAt time.Time `json:"scheduled_at"`
	FireAt      time.Time `json:"fire_at"`
	Message     string    `json:"message"`
}

// Scheduler is not safe for concurrent use.
type Scheduler struct {
	debounce time.Duration
	tasks    map[string]*Task
}

// New creates a Scheduler. A non-positive debounce uses DefaultDebounce.
func New(debounce time.Duration) *Scheduler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Scheduler{
		debounce: debounce,
		tasks:    make(map[string]*Task),
	}
}

// Debounce returns the coalescing window.
func (s *Scheduler) Debounce() time.Duration {
	return s.debounce
}

// Schedule registers message under key to be released at fireAt.
func (s *Scheduler) Schedule(key string, now, fireAt time.Time, message string) Outcome {
	if t, ok := s.tasks[key]; ok {
		if now.Sub(t.ScheduledAt) < s.debounce {
			return Coalesced
		}
		t.ScheduledAt = now
		t.FireAt = fireAt
		t.Message = message
		return Replaced
	}
	s.tasks[key] = &Task{
		ID:          uuid.New().String(),
		Key:         key,
		ScheduledAt: now,
		FireAt:      fireAt,
		Message:     message,
	}
	return Inserted
}

// Poll removes and returns every task whose fire time is not after now,
// ordered by fire time then key.
func (s *Scheduler) Poll(now time.Time) []Task {
	var due []Task
	for k, t := range s.tasks {
		if !t.FireAt.After(now) {
			due = append(due, *t)
			delete(s.tasks, k)
		}
	}
	sortTasks(due)
	return due
}

// Pending returns a copy of all pending tasks in release order.
func (s *Scheduler) Pending() []Task {
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	sortTasks(out)
	return out
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// CancelFunc drops every pending task whose key matches and returns how many
// were dropped.
func (s *Scheduler) CancelFunc(match func(key string) bool) int {
	n := 0
	for k := range s.tasks {
		if match(k) {
			delete(s.tasks, k)
			n++
		}
	}
	return n
}

func sortTasks(ts []Task) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].FireAt.Equal(ts[j].FireAt) {
			return ts[i].FireAt.Before(ts[j].FireAt)
		}
		return ts[i].Key < ts[j].Key
	})
}
