package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/identity"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/session"
	"github.com/ashureev/portfolio-chat/internal/store"
	"github.com/coder/websocket"
)

const wsReadLimit = 64 << 10

// wsInbound is a frame sent by the widget.
type wsInbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsOutbound is a frame sent to the widget.
type wsOutbound struct {
	Type       string          `json:"type"`
	Message    *domain.Message `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Details    string          `json:"details,omitempty"`
	RetryAfter int             `json:"retryAfter,omitempty"`
}

// HandleChatWS handles GET /api/chat/ws. Each connection is one widget
// instance with its own session; closing the connection unmounts it.
func (h *Handler) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	clientKey := identity.ClientKeyFromContext(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(h.allowedOrigins),
	})
	if err != nil {
		h.logger.Warn("Failed to accept WebSocket", "error", err, "client_key", clientKey)
		return
	}
	ws.SetReadLimit(wsReadLimit)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "client_key", clientKey)
		}
	}()

	sess := session.New(h.greeting, h.now)
	ctrl := chat.NewController(sess, h.responder, h.window)
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if msgs := sess.Messages(); len(msgs) > 0 {
		if err := h.writeFrame(ctx, ws, wsOutbound{Type: "greeting", Message: &msgs[0]}); err != nil {
			return
		}
	}

	h.logger.Info("Chat widget connected", "client_key", clientKey)

	var wg sync.WaitGroup
	h.inputLoop(ctx, ws, ctrl, clientKey, &wg)

	// Unmount: cancel the in-flight call before waiting on it.
	ctrl.Close()
	wg.Wait()
	h.logger.Info("Chat widget disconnected", "client_key", clientKey, "messages", sess.Len())
}

func (h *Handler) inputLoop(ctx context.Context, ws *websocket.Conn, ctrl *chat.Controller, clientKey string, wg *sync.WaitGroup) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("WebSocket closed by client", "client_key", clientKey)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "client_key", clientKey)
			}
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = h.writeFrame(ctx, ws, wsOutbound{Type: "error", Error: "invalid frame", Details: kindInvalid})
			continue
		}

		switch msg.Type {
		case "ping":
			if err := h.writeFrame(ctx, ws, wsOutbound{Type: "pong"}); err != nil {
				h.logger.Debug("Failed to send pong", "error", err)
			}
		case "message":
			start := time.Now()
			if ctrl.State() == chat.StateSubmitting {
				_ = h.writeFrame(ctx, ws, wsOutbound{Type: "busy"})
				continue
			}
			if strings.TrimSpace(msg.Content) == "" {
				h.writeRejection(ctx, ws, clientKey, domain.ErrEmptyInput)
				continue
			}
			if d := h.limiter.Admit(clientKey, h.now()); !d.Allowed {
				_ = h.writeFrame(ctx, ws, wsOutbound{
					Type:       "error",
					Error:      rateLimitedMessage,
					Details:    string(llm.KindRateLimited),
					RetryAfter: d.RetryAfterSeconds(),
				})
				h.record(clientKey, store.TransportWebSocket, string(llm.KindRateLimited), http.StatusTooManyRequests, start, 0, 0)
				continue
			}

			// Begin runs on the read loop so a frame that arrives while this one
			// is pending always sees the controller as submitting.
			pending, err := ctrl.Begin(ctx, msg.Content)
			if err != nil {
				h.writeRejection(ctx, ws, clientKey, err)
				continue
			}

			wg.Add(1)
			go func(content string) {
				defer wg.Done()
				h.await(ctx, ws, pending, clientKey, content, start)
			}(msg.Content)
		default:
			_ = h.writeFrame(ctx, ws, wsOutbound{Type: "error", Error: "unknown frame type", Details: kindInvalid})
		}
	}
}

func (h *Handler) writeRejection(ctx context.Context, ws *websocket.Conn, clientKey string, err error) {
	switch {
	case errors.Is(err, domain.ErrSubmitInFlight):
		_ = h.writeFrame(ctx, ws, wsOutbound{Type: "busy"})
	case errors.Is(err, domain.ErrEmptyInput):
		_ = h.writeFrame(ctx, ws, wsOutbound{Type: "error", Error: "message is required", Details: kindInvalid})
	case errors.Is(err, domain.ErrSessionClosed):
	default:
		h.logger.Error("Chat submit failed", "error", err, "client_key", clientKey)
	}
}

func (h *Handler) await(ctx context.Context, ws *websocket.Conn, pending *chat.Pending, clientKey, content string, start time.Time) {
	out, err := pending.Wait()
	switch {
	case errors.Is(err, domain.ErrSessionClosed):
		h.record(clientKey, store.TransportWebSocket, kindCanceled, 0, start, len(content), 0)
		return
	case err != nil:
		h.logger.Error("Chat submit failed", "error", err, "client_key", clientKey)
		return
	}

	reply := out.Reply
	if out.Result == chat.ResultFailed {
		h.logger.Warn("Chat generation failed",
			"client_key", clientKey,
			"transport", store.TransportWebSocket,
			"kind", out.Err.Kind,
			"status", out.Err.Status(),
			"error", out.Err,
		)
		_ = h.writeFrame(ctx, ws, wsOutbound{
			Type:       "error",
			Message:    &reply,
			Error:      out.Err.Friendly(),
			Details:    string(out.Err.Kind),
			RetryAfter: out.Err.RetryAfterSeconds(),
		})
		h.record(clientKey, store.TransportWebSocket, string(out.Err.Kind), out.Err.Status(), start, len(content), 0)
		return
	}

	_ = h.writeFrame(ctx, ws, wsOutbound{Type: "message", Message: &reply})
	h.record(clientKey, store.TransportWebSocket, store.KindOK, http.StatusOK, start, len(content), len(reply.Text))
}

func (h *Handler) writeFrame(ctx context.Context, ws *websocket.Conn, v wsOutbound) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}

// originPatterns converts allowed origins to the host patterns the
// websocket handshake checks against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
