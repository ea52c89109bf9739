// Package api provides HTTP handlers for the portfolio chat API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/prompt"
	"github.com/ashureev/portfolio-chat/internal/ratelimit"
	"github.com/ashureev/portfolio-chat/internal/store"
)

const maxRequestBodySize = 1 << 20

const rateLimitedMessage = "Too many requests. Please wait a bit and try again."

// ExchangeRecorder receives one record per answered or rejected chat request.
type ExchangeRecorder interface {
	Record(e store.Exchange)
}

type noopRecorder struct{}

func (noopRecorder) Record(store.Exchange) {}

// Options configures a Handler.
type Options struct {
	Responder      *chat.DirectResponder
	Limiter        *ratelimit.Limiter
	Recorder       ExchangeRecorder
	Repo           store.Repository
	Greeting       string
	HistoryWindow  int
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Handler serves the chat endpoints.
type Handler struct {
	responder      *chat.DirectResponder
	limiter        *ratelimit.Limiter
	recorder       ExchangeRecorder
	repo           store.Repository
	greeting       string
	window         int
	allowedOrigins []string
	logger         *slog.Logger
	now            func() time.Time
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		responder:      opts.Responder,
		limiter:        opts.Limiter,
		recorder:       opts.Recorder,
		repo:           opts.Repo,
		greeting:       opts.Greeting,
		window:         opts.HistoryWindow,
		allowedOrigins: opts.AllowedOrigins,
		logger:         opts.Logger,
		now:            time.Now,
	}
	if h.limiter == nil {
		h.limiter = ratelimit.New(ratelimit.Config{})
	}
	if h.recorder == nil {
		h.recorder = noopRecorder{}
	}
	if h.repo == nil {
		h.repo = store.NewNoop()
	}
	if h.window <= 0 {
		h.window = prompt.DefaultWindow
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, domain.ErrorResponse{Error: message})
}

// writeFailure writes a classified failure. Only the friendly text and the
// kind leave the server.
func writeFailure(w http.ResponseWriter, e *llm.Error) {
	body := domain.ErrorResponse{
		Error:      e.Friendly(),
		Details:    string(e.Kind),
		RetryAfter: e.RetryAfterSeconds(),
	}
	if body.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}
	JSON(w, e.Status(), body)
}

func writeRateLimited(w http.ResponseWriter, d ratelimit.Decision) {
	secs := d.RetryAfterSeconds()
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	JSON(w, http.StatusTooManyRequests, domain.ErrorResponse{
		Error:      rateLimitedMessage,
		Details:    string(llm.KindRateLimited),
		RetryAfter: secs,
	})
}
