package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestClientKey(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"203.0.113.7:51234": "203.0.113.7",
		"[2001:db8::1]:443": "2001:db8::1",
		"198.51.100.2":      "198.51.100.2",
		"":                  UnknownClient,
	}
	for addr, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		assert.Equal(t, want, ClientKey(r), "addr %q", addr)
	}
}

func TestMiddlewareBehindRealIP(t *testing.T) {
	t.Parallel()

	var got string
	h := middleware.RealIP(Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = ClientKeyFromContext(r.Context())
	})))

	r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "203.0.113.9", got)
}

func TestClientKeyFromEmptyContext(t *testing.T) {
	t.Parallel()
	assert.Equal(t, UnknownClient, ClientKeyFromContext(context.Background()))
}
