package domain

import (
	"crypto/sha1" //nolint:gosec // The platform identifies machine-auth blobs by SHA-1.
	"time"
)

// Sentry is the machine-auth secret the platform issues once a second factor has been
// accepted. Presenting its hash on later logons skips the challenge.
type Sentry struct {
	Username  string
	Data      []byte
	Hash      []byte
	UpdatedAt time.Time
}

// NewSentry builds a record for the blob and computes its hash.
func NewSentry(username string, data []byte) *Sentry {
	return &Sentry{
		Username:  username,
		Data:      data,
		Hash:      SentryHash(data),
		UpdatedAt: time.Now(),
	}
}

// SentryHash returns the SHA-1 digest of the blob, or nil for an empty blob.
func SentryHash(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	sum := sha1.Sum(data) //nolint:gosec // required by the platform
	return sum[:]
}
