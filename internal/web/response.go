package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/pantry/internal/service"
)

// result is the envelope of every API response.
type result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Added   *int   `json:"added,omitempty"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	msgUnknownAction = "Unknown action"
	msgNotFound      = "Item not found"
	msgInternal      = "internal error"
)

func intPtr(n int) *int { return &n }

func writeJSON(w http.ResponseWriter, status int, body result, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

// writeFailure maps service errors onto the response envelope. Not-found is a
// structured failure with a 200 status; anything else is a 500.
func (s *Server) writeFailure(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, service.ErrNotFound) {
		writeJSON(w, http.StatusOK, result{Error: msgNotFound}, s.logger)
		return
	}
	s.logger.Error("action failed", "action", action, "error", err)
	writeJSON(w, http.StatusInternalServerError, result{Error: msgInternal}, s.logger)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
