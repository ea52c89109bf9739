package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/portfolio-chat/internal/identity"
	"github.com/ashureev/portfolio-chat/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers the chat API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Get("/stats", h.HandleStats)
		r.Post("/chat", h.HandleChat)
		r.Get("/chat/ws", h.HandleChatWS)
	})
}

// NewRouter builds the full middleware stack around the handler.
func NewRouter(h *Handler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(identity.Middleware)

	h.RegisterRoutes(r)
	return r
}
