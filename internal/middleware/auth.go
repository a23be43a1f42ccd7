// Package middleware provides HTTP middleware for the operator API.
package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
)

type contextKey int

const operatorKey contextKey = iota

// OperatorFromContext returns the remote address of the authenticated operator.
func OperatorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(operatorKey).(string); ok {
		return v
	}
	return ""
}

// RequireToken rejects requests whose bearer token does not match token.
// An empty token disables the check.
func RequireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
					w.Header().Set("WWW-Authenticate", `Bearer realm="tradebot"`)
					http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
					return
				}
			}
			ctx := context.WithValue(r.Context(), operatorKey, remoteIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
