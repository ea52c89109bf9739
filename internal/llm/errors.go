// Package llm issues generation calls to the model provider and turns every
// failure into one of a closed set of kinds.
package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind tags a classified failure.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindTimeout       Kind = "timeout"
	KindRateLimited   Kind = "rate_limited"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindAuth          Kind = "auth"
	KindModel         Kind = "model"
	KindSafetyBlocked Kind = "safety_blocked"
	KindUnclassified  Kind = "unclassified"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{
	KindConfiguration,
	KindTimeout,
	KindRateLimited,
	KindQuotaExceeded,
	KindAuth,
	KindModel,
	KindSafetyBlocked,
	KindUnclassified,
}

type kindInfo struct {
	status   int
	friendly string
}

var kindTable = map[Kind]kindInfo{
	KindConfiguration: {http.StatusInternalServerError, "The AI assistant is not configured yet. Please contact the site owner."},
	KindTimeout:       {http.StatusRequestTimeout, "The request timed out. Please try again."},
	KindRateLimited:   {http.StatusTooManyRequests, "You have hit a rate limit. Please wait a bit and try again."},
	KindQuotaExceeded: {http.StatusTooManyRequests, "The AI service is over its usage quota right now. Please try again later."},
	KindAuth:          {http.StatusUnauthorized, "The AI service rejected its API key. Please check the API key configuration."},
	KindModel:         {http.StatusBadRequest, "The AI service has a configuration error. Please contact support."},
	KindSafetyBlocked: {http.StatusBadRequest, "The content was blocked by safety filters. Try rephrasing your question."},
	KindUnclassified:  {http.StatusInternalServerError, "Sorry, there was an error. Please try again."},
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Status is the HTTP status code a failure of this kind maps to.
func (k Kind) Status() int {
	if info, ok := kindTable[k]; ok {
		return info.status
	}
	return kindTable[KindUnclassified].status
}

// Friendly is the user-facing text for this kind.
func (k Kind) Friendly() string {
	if info, ok := kindTable[k]; ok {
		return info.friendly
	}
	return kindTable[KindUnclassified].friendly
}

// Error is a classified generation failure. Err holds the raw cause and is
// meant for logs only.
type Error struct {
	Kind       Kind
	Err        error
	RetryAfter time.Duration

	// Message overrides the kind's friendly text, e.g. when relaying a
	// message produced by a remote server.
	Message string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("llm %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status for the failure.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Friendly returns the text that may be shown to end users.
func (e *Error) Friendly() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Friendly()
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds; zero means unknown.
func (e *Error) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int((e.RetryAfter + time.Second - 1) / time.Second)
}

// ProviderError is a non-success response from the model provider.
type ProviderError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("provider error (HTTP %d): %s", e.Status, e.Message)
}

// ErrNotConfigured indicates that no provider credential is set. It
// classifies as KindConfiguration (HTTP 500).
var ErrNotConfigured = errors.New("provider API key not configured")

// ErrMalformedKey indicates that the credential cannot be a valid provider key.
// It classifies as KindAuth (HTTP 401), like a key the provider rejects.
var ErrMalformedKey = errors.New("provider API key is malformed")

// AsError extracts a classified error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
