package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/identity"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/store"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// kindCanceled is recorded when the client went away before the reply.
const kindCanceled = "canceled"

// kindInvalid is recorded for requests rejected by validation.
const kindInvalid = "invalid_request"

// HandleChat handles POST /api/chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	clientKey := identity.ClientKeyFromContext(r.Context())
	reqID := chiMiddleware.GetReqID(r.Context())

	if d := h.limiter.Admit(clientKey, h.now()); !d.Allowed {
		h.logger.Warn("Chat request rate limited",
			"client_key", clientKey,
			"request_id", reqID,
			"count", d.Count,
			"retry_after", d.RetryAfterSeconds(),
		)
		writeRateLimited(w, d)
		h.record(clientKey, store.TransportHTTP, string(llm.KindRateLimited), http.StatusTooManyRequests, start, 0, 0)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			h.record(clientKey, store.TransportHTTP, kindInvalid, http.StatusRequestEntityTooLarge, start, 0, 0)
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		h.record(clientKey, store.TransportHTTP, kindInvalid, http.StatusBadRequest, start, 0, 0)
		return
	}

	message := strings.TrimSpace(req.Message)
	if err := validateChatRequest(message, req.ConversationHistory); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		h.record(clientKey, store.TransportHTTP, kindInvalid, http.StatusBadRequest, start, len(message), 0)
		return
	}

	portfolioContext := h.responder.PortfolioContext()
	if portfolioContext == "" {
		portfolioContext = req.Context
	}

	h.logger.Info("Chat request",
		"client_key", clientKey,
		"request_id", reqID,
		"message_length", len(message),
		"history_length", len(req.ConversationHistory),
	)

	text, err := h.responder.RespondWithContext(r.Context(), portfolioContext, req.ConversationHistory, message)
	if err != nil {
		if chat.IsCanceled(err) {
			h.logger.Debug("Chat request abandoned by client", "client_key", clientKey, "request_id", reqID)
			h.record(clientKey, store.TransportHTTP, kindCanceled, 0, start, len(message), 0)
			return
		}

		failure := llm.Classify(err)
		h.logger.Warn("Chat generation failed",
			"client_key", clientKey,
			"request_id", reqID,
			"kind", failure.Kind,
			"status", failure.Status(),
			"error", err,
		)
		writeFailure(w, failure)
		h.record(clientKey, store.TransportHTTP, string(failure.Kind), failure.Status(), start, len(message), 0)
		return
	}

	JSON(w, http.StatusOK, domain.ChatResponse{Response: text})
	h.record(clientKey, store.TransportHTTP, store.KindOK, http.StatusOK, start, len(message), len(text))
}

func validateChatRequest(message string, history []domain.HistoryTurn) error {
	if message == "" {
		return errors.New("message is required")
	}
	if len(history) > domain.MaxHistoryTurns {
		return fmt.Errorf("conversationHistory cannot exceed %d entries", domain.MaxHistoryTurns)
	}
	for i, turn := range history {
		if !turn.Role.Valid() {
			return fmt.Errorf("conversationHistory[%d].role must be \"user\" or \"assistant\"", i)
		}
	}
	return nil
}

func (h *Handler) record(clientKey, transport, kind string, status int, start time.Time, messageLen, responseLen int) {
	h.recorder.Record(store.Exchange{
		ClientKey:   clientKey,
		Transport:   transport,
		Kind:        kind,
		Status:      status,
		Latency:     time.Since(start),
		MessageLen:  messageLen,
		ResponseLen: responseLen,
		CreatedAt:   h.now(),
	})
}
