package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON encodes v as JSON and writes it with the given status code.
// Replies describe live engine state and are never cached.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the envelope of every non-2xx reply. Session names the
// telnet session that produced it.
type errorResponse struct {
	Error   string `json:"error"`
	Status  int    `json:"status"`
	Session string `json:"session,omitempty"`
}

// commandResponse acknowledges a line queued for the session loop.
type commandResponse struct {
	Queued  bool   `json:"queued"`
	Line    string `json:"line"`
	Session string `json:"session"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Status: status, Session: h.sess.ID()})
}

// writeQueueFull rejects a line the session cannot take right now.
func (h *Handler) writeQueueFull(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	h.writeError(w, http.StatusTooManyRequests, "input queue full")
}
