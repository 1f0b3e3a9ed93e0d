package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/mudbot/internal/engine"
	"github.com/gyaneshwarpardhi/mudbot/internal/scheduler"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

const snapshotTimeout = 2 * time.Second

// Session is the part of *session.Session the API needs.
type Session interface {
	ID() string
	Connected() bool
	Submit(line string) bool
	Do(ctx context.Context, fn func(*engine.Engine)) error
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	sess Session
	mux  *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(sess Session) http.Handler {
	h := &Handler{sess: sess, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /v1/triggers", h.listTriggers)
	h.mux.HandleFunc("GET /v1/states", h.listStates)
	h.mux.HandleFunc("GET /v1/tasks", h.listTasks)
	h.mux.HandleFunc("POST /v1/commands", h.submitCommand)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

type ruleView struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

type setView struct {
	Name     string     `json:"name"`
	Source   string     `json:"source"`
	LoadedAt time.Time  `json:"loaded_at"`
	Rules    []ruleView `json:"rules"`
}

func viewOf(set *trigger.Set) setView {
	v := setView{Name: set.Name, Source: set.Source, LoadedAt: set.LoadedAt, Rules: make([]ruleView, 0, len(set.Rules))}
	for i, r := range set.Rules {
		rv := ruleView{ID: set.ID(i).String(), Kind: string(r.Kind), Summary: r.Summary()}
		if r.Err != nil {
			rv.Error = r.Err.Error()
		}
		v.Rules = append(v.Rules, rv)
	}
	return v
}

// snapshot runs fn on the session loop, bounded by the request context.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request, fn func(*engine.Engine)) bool {
	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()
	if err := h.sess.Do(ctx, fn); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return false
	}
	return true
}

// GET /v1/triggers: active sets in evaluation order.
func (h *Handler) listTriggers(w http.ResponseWriter, r *http.Request) {
	var sets []setView
	ok := h.snapshot(w, r, func(e *engine.Engine) {
		for _, s := range e.Sets() {
			sets = append(sets, viewOf(s))
		}
	})
	if !ok {
		return
	}
	if sets == nil {
		sets = []setView{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sets": sets})
}

// GET /v1/states: the state store, cooldown stamps included.
func (h *Handler) listStates(w http.ResponseWriter, r *http.Request) {
	var states map[string]interface{}
	if !h.snapshot(w, r, func(e *engine.Engine) { states = e.States().Snapshot() }) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"states": states})
}

// GET /v1/tasks: pending delayed output in release order.
func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []scheduler.Task
	if !h.snapshot(w, r, func(e *engine.Engine) { tasks = e.Pending() }) {
		return
	}
	if tasks == nil {
		tasks = []scheduler.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

type commandRequest struct {
	Line string `json:"line"`
}

// POST /v1/commands: queue a line as if typed at the console.
func (h *Handler) submitCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Line == "" {
		h.writeError(w, http.StatusBadRequest, "line is required")
		return
	}
	if !h.sess.Submit(req.Line) {
		h.writeQueueFull(w)
		return
	}
	writeJSON(w, http.StatusAccepted, commandResponse{Queued: true, Line: req.Line, Session: h.sess.ID()})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 while the remote is not connected.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if !h.sess.Connected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "disconnected",
			"session": h.sess.ID(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ready",
		"session": h.sess.ID(),
	})
}
