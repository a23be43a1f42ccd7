// Package store provides persistence for the per-identity machine-auth secret.
package store

import (
	"context"

	"github.com/ashureev/tradebot/internal/domain"
)

// Repository persists one opaque machine-auth secret per username.
type Repository interface {
	// GetSentry returns the last stored secret for username, or nil if none exists.
	GetSentry(ctx context.Context, username string) (*domain.Sentry, error)

	// SaveSentry creates or replaces the secret for sentry.Username.
	SaveSentry(ctx context.Context, sentry *domain.Sentry) error

	// DeleteSentry removes the secret for username.
	DeleteSentry(ctx context.Context, username string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
