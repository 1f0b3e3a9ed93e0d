package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/mudbot/internal/engine"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

type nopSink struct{}

func (nopSink) Send(string) error { return nil }

// stubSession runs closures inline instead of on a session loop.
type stubSession struct {
	eng       *engine.Engine
	connected bool
	full      bool
	doErr     error
	lines     []string
}

func (s *stubSession) ID() string      { return "test-session" }
func (s *stubSession) Connected() bool { return s.connected }

func (s *stubSession) Submit(line string) bool {
	if s.full {
		return false
	}
	s.lines = append(s.lines, line)
	return true
}

func (s *stubSession) Do(_ context.Context, fn func(*engine.Engine)) error {
	if s.doErr != nil {
		return s.doErr
	}
	fn(s.eng)
	return nil
}

func newStub(t *testing.T) *stubSession {
	t.Helper()
	eng := engine.New(nopSink{}, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	set, err := trigger.Parse("combat", []byte(`[
		{"match": "^(\\w+) attacks you", "out": "kill $1", "set": [{"name": "enemy", "value": "$1"}]},
		{"match": "^You are hungry", "delay": 60000, "out": "eat bread"},
		{"match": "([", "out": "never"},
		{"cmd": "hp", "out": "hp"}
	]`), trigger.FormatJSON)
	require.NoError(t, err)
	eng.Load(set)
	return &stubSession{eng: eng, connected: true}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthAndReadiness(t *testing.T) {
	stub := newStub(t)
	h := New(stub)

	rec, body := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test-session", body["session"])

	stub.connected = false
	rec, body = do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "disconnected", body["status"])
}

func TestListTriggers(t *testing.T) {
	h := New(newStub(t))
	rec, body := do(t, h, http.MethodGet, "/v1/triggers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	sets := body["sets"].([]interface{})
	require.Len(t, sets, 1)
	set := sets[0].(map[string]interface{})
	assert.Equal(t, "combat", set["name"])

	rules := set["rules"].([]interface{})
	require.Len(t, rules, 4)
	first := rules[0].(map[string]interface{})
	assert.Equal(t, "combat@@0", first["id"])
	assert.Equal(t, "reactive", first["kind"])
	assert.NotContains(t, first, "error")

	bad := rules[2].(map[string]interface{})
	assert.Contains(t, bad["error"], "invalid pattern")
	assert.Equal(t, "command", rules[3].(map[string]interface{})["kind"])
}

func TestListStatesAndTasks(t *testing.T) {
	stub := newStub(t)
	stub.eng.HandleLine("Orc attacks you!")
	stub.eng.HandleLine("You are hungry.")
	h := New(stub)

	rec, body := do(t, h, http.MethodGet, "/v1/states", "")
	require.Equal(t, http.StatusOK, rec.Code)
	states := body["states"].(map[string]interface{})
	assert.Equal(t, "Orc", states["enemy"])
	assert.Contains(t, states, "combat@@0@@cd")

	rec, body = do(t, h, http.MethodGet, "/v1/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := body["tasks"].([]interface{})
	require.Len(t, tasks, 1)
	task := tasks[0].(map[string]interface{})
	assert.Equal(t, "combat@@1@@delay", task["key"])
	assert.Equal(t, "eat bread", task["message"])
	assert.NotEmpty(t, task["id"])
}

func TestEmptyCollectionsAreArrays(t *testing.T) {
	stub := newStub(t)
	stub.eng.UnloadAll()
	h := New(stub)

	rec, _ := do(t, h, http.MethodGet, "/v1/triggers", "")
	assert.JSONEq(t, `{"sets": []}`, rec.Body.String())
	rec, _ = do(t, h, http.MethodGet, "/v1/tasks", "")
	assert.JSONEq(t, `{"tasks": []}`, rec.Body.String())
}

func TestSnapshotUnavailable(t *testing.T) {
	stub := newStub(t)
	stub.doErr = errors.New("session: not running")
	h := New(stub)

	for _, path := range []string{"/v1/triggers", "/v1/states", "/v1/tasks"} {
		rec, body := do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Equal(t, "session: not running", body["error"], path)
	}
}

func TestSubmitCommand(t *testing.T) {
	stub := newStub(t)
	h := New(stub)

	tests := []struct {
		name     string
		body     string
		full     bool
		wantCode int
	}{
		{"accepted", `{"line": "@hp"}`, false, http.StatusAccepted},
		{"raw line", `{"line": "look"}`, false, http.StatusAccepted},
		{"missing line", `{}`, false, http.StatusBadRequest},
		{"bad json", `{"line":`, false, http.StatusBadRequest},
		{"queue full", `{"line": "look"}`, true, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub.full = tt.full
			rec, _ := do(t, h, http.MethodPost, "/v1/commands", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
	assert.Equal(t, []string{"@hp", "look"}, stub.lines)
}

func TestSubmitCommand_Envelopes(t *testing.T) {
	stub := newStub(t)
	h := New(stub)

	rec, body := do(t, h, http.MethodPost, "/v1/commands", `{"line": "look"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["queued"])
	assert.Equal(t, "look", body["line"])
	assert.Equal(t, "test-session", body["session"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	stub.full = true
	rec, body = do(t, h, http.MethodPost, "/v1/commands", `{"line": "look"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "input queue full", body["error"])
	assert.Equal(t, float64(http.StatusTooManyRequests), body["status"])
	assert.Equal(t, "test-session", body["session"])
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	stub.full = false
	rec, body = do(t, h, http.MethodPost, "/v1/commands", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "line is required", body["error"])
	assert.Equal(t, "test-session", body["session"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(newStub(t))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mudbot_lines_received_total")
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(newStub(t))
	req := httptest.NewRequest(http.MethodDelete, "/v1/states", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
