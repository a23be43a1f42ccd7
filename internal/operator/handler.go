// Package operator exposes the bot to its operator: an HTTP command channel and a
// gRPC health service.
package operator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/tradebot/internal/bot"
	"github.com/ashureev/tradebot/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultCommandTimeout = 30 * time.Second
	maxBodyBytes          = 64 << 10
)

// Bot is the part of a bot the operator API drives.
type Bot interface {
	HandleCommand(ctx context.Context, command string) (string, error)
	Status() bot.Status
	RecentLog() []string
}

// CodeSink accepts second-factor codes typed by the operator.
type CodeSink interface {
	Submit(code string) error
}

// Handler serves the operator routes.
type Handler struct {
	bot            Bot
	codes          CodeSink
	commandTimeout time.Duration
	logger         *slog.Logger
}

// NewHandler creates a Handler. codes may be nil when codes are read from a terminal.
func NewHandler(b Bot, codes CodeSink, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{bot: b, codes: codes, commandTimeout: defaultCommandTimeout, logger: logger}
}

// RegisterRoutes registers the operator routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/log", h.GetLog)
		r.Post("/command", h.PostCommand)
		r.Post("/auth", h.PostAuthCode)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// GetStatus returns the latest bot snapshot.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.bot.Status())
}

// GetLog returns the bot's recent log lines, oldest first.
func (h *Handler) GetLog(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string][]string{"lines": h.bot.RecentLog()})
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	ID     string `json:"id"`
	Output string `json:"output"`
}

// PostCommand runs one command inside the bot's event loop.
func (h *Handler) PostCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !decode(w, r, &req) {
		return
	}
	command := strings.TrimSpace(req.Command)
	if command == "" {
		Error(w, http.StatusBadRequest, "command is required")
		return
	}

	id := uuid.NewString()
	logger := h.logger.With("command_id", id, "operator", middleware.OperatorFromContext(r.Context()))
	logger.Info("Operator command", "command", command)

	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()

	out, err := h.bot.HandleCommand(ctx, command)
	switch {
	case err == nil:
		JSON(w, http.StatusOK, commandResponse{ID: id, Output: out})
	case errors.Is(err, bot.ErrNotRunning):
		Error(w, http.StatusServiceUnavailable, "bot is not running")
	case errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusGatewayTimeout, "command timed out")
	default:
		logger.Warn("Operator command failed", "error", err)
		Error(w, http.StatusUnprocessableEntity, err.Error())
	}
}

type authCodeRequest struct {
	Code string `json:"code"`
}

// PostAuthCode hands a second-factor code to a pending logon.
func (h *Handler) PostAuthCode(w http.ResponseWriter, r *http.Request) {
	if h.codes == nil {
		Error(w, http.StatusNotFound, "auth codes are read from the terminal")
		return
	}
	var req authCodeRequest
	if !decode(w, r, &req) {
		return
	}

	switch err := h.codes.Submit(req.Code); {
	case err == nil:
		JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	case errors.Is(err, bot.ErrNoPendingCode):
		Error(w, http.StatusConflict, err.Error())
	default:
		Error(w, http.StatusBadRequest, err.Error())
	}
}
