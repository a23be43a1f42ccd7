package operator

import (
	"log/slog"
	"time"

	"github.com/ashureev/tradebot/internal/bot"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the health service name the bot reports under.
const ServiceName = "tradebot.Bot"

// Health reports SERVING while the bot is online.
type Health struct {
	srv    *health.Server
	logger *slog.Logger
}

// NewHealth creates a Health that starts out NOT_SERVING.
func NewHealth(logger *slog.Logger) *Health {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Health{srv: health.NewServer(), logger: logger}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Observe is a bot state observer.
func (h *Health) Observe(s bot.State) {
	h.logger.Debug("Bot state changed", "state", s.String())
	if s == bot.StateOnline {
		h.set(healthpb.HealthCheckResponse_SERVING)
		return
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(ServiceName, status)
}

// Shutdown marks every service NOT_SERVING for good.
func (h *Health) Shutdown() {
	h.srv.Shutdown()
}

// NewGRPCServer builds a gRPC server exposing only the health service.
func NewGRPCServer(h *Health) *grpc.Server {
	s := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    2 * time.Minute,
			Timeout: 10 * time.Second,
		}),
	)
	healthpb.RegisterHealthServer(s, h.srv)
	return s
}
