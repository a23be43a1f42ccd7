// Package cookie tracks whether the bot's web session cookies can still be used.
package cookie

import (
	"context"
	"log/slog"
)

// Verifier asks the web service whether the current session is still accepted.
type Verifier interface {
	VerifySession(ctx context.Context) (bool, error)
}

// NonceRequester asks the platform for a fresh web login nonce.
type NonceRequester func(ctx context.Context) error

// Validator caches the web session state. It is owned by the event loop.
type Validator struct {
	verifier     Verifier
	requestNonce NonceRequester
	logger       *slog.Logger

	invalid bool
	nonce   string
}

// NewValidator returns a Validator that starts out invalid.
func NewValidator(v Verifier, requestNonce NonceRequester, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		verifier:     v,
		requestNonce: requestNonce,
		logger:       logger,
		invalid:      true,
	}
}

// IsValid reports whether the cookies are usable. A negative answer from the web
// service invalidates them and requests a new nonce. A verification error is
// logged and the cookies are assumed to still work.
func (v *Validator) IsValid(ctx context.Context) bool {
	if v.invalid {
		return false
	}
	if v.verifier == nil {
		return true
	}

	ok, err := v.verifier.VerifySession(ctx)
	if err != nil {
		v.logger.Warn("Cookie check failed, assuming cookies are valid", "error", err)
		return true
	}
	if ok {
		return true
	}

	v.logger.Warn("Cookies are invalid, requesting a new web nonce")
	v.invalid = true
	if v.requestNonce != nil {
		if err := v.requestNonce(ctx); err != nil {
			v.logger.Error("Could not request web nonce", "error", err)
		}
	}
	return false
}

// MarkValid records a successful web authentication with nonce.
func (v *Validator) MarkValid(nonce string) {
	v.invalid = false
	v.nonce = nonce
}

// Invalidate marks the cookies unusable until the next web authentication.
func (v *Validator) Invalidate() {
	v.invalid = true
}

// Valid reports the cached state without contacting the web service.
func (v *Validator) Valid() bool {
	return !v.invalid
}

// Nonce returns the nonce the current session was established with.
func (v *Validator) Nonce() string {
	return v.nonce
}
