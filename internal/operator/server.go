package operator

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/tradebot/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the operator router. Every /api route requires token.
func NewRouter(h *Handler, token string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(token))
		h.RegisterRoutes(r)
	})
	return r
}

// NewServer wraps the router in an http.Server listening on addr.
func NewServer(addr string, h *Handler, token string, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:         addr,
		Handler:      NewRouter(h, token),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: defaultCommandTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
