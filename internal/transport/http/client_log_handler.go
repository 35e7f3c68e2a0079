package http

import (
	"log/slog"
	"net/http"
	"strings"

	apierrors "metrolog/internal/errors"
	mw "metrolog/internal/middleware"
)

// ClientLogHandler relays dashboard log entries into the server log
type ClientLogHandler struct {
	validator    *mw.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(validator *mw.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ClientLogHandler {
	return &ClientLogHandler{
		validator:    validator,
		logger:       logger.With(slog.String("handler", "client_log")),
		errorHandler: errorHandler,
	}
}

// LogRequest represents a client log entry
type LogRequest struct {
	Level     string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message   string                 `json:"message" validate:"required,max=2000"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Source    string                 `json:"source,omitempty" validate:"omitempty,max=128"`
	SessionID string                 `json:"session_id,omitempty" validate:"omitempty,max=64"`
}

var clientLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Handle processes POST /api/client-log
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	level, ok := clientLevels[strings.ToLower(req.Level)]
	if !ok {
		level = slog.LevelInfo
	}

	attrs := []slog.Attr{slog.String("client_source", req.Source)}
	if req.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", req.SessionID))
	}
	if req.Data != nil {
		attrs = append(attrs, slog.Any("data", req.Data))
	}

	h.logger.LogAttrs(r.Context(), level, req.Message, attrs...)
	w.WriteHeader(http.StatusNoContent)
}
