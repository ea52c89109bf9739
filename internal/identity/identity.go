// Package identity derives the anonymous client key that rate limiting and
// the exchange log are keyed by.
package identity

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey int

const clientKeyKey contextKey = iota

// UnknownClient is used when no address can be derived from a request.
const UnknownClient = "unknown"

// ClientKey returns the host part of the request's remote address. Put chi's
// RealIP middleware in front so proxied requests resolve to the visitor.
func ClientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return UnknownClient
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" {
		return UnknownClient
	}
	return host
}

// Middleware stores the client key on the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientKey(r.Context(), ClientKey(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithClientKey returns a copy of ctx carrying key.
func WithClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, clientKeyKey, key)
}

// ClientKeyFromContext extracts the client key from the request context.
func ClientKeyFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientKeyKey).(string); ok && v != "" {
		return v
	}
	return UnknownClient
}
