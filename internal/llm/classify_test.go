package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"missing key", ErrNotConfigured, KindConfiguration},
		{"malformed key", ErrMalformedKey, KindAuth},
		{"deadline", fmt.Errorf("generate request: %w", context.DeadlineExceeded), KindTimeout},
		{"429 quota", &ProviderError{Status: 429, Message: "You exceeded your current quota"}, KindQuotaExceeded},
		{"429 plain", &ProviderError{Status: 429, Message: "Too many requests"}, KindRateLimited},
		{"401", &ProviderError{Status: 401, Message: "Request had invalid authentication credentials"}, KindAuth},
		{"403 permission", &ProviderError{Status: 403, Code: "PERMISSION_DENIED", Message: "Permission denied"}, KindAuth},
		{"403 billing", &ProviderError{Status: 403, Message: "Billing account disabled"}, KindQuotaExceeded},
		{"400 safety", &ProviderError{Status: 400, Code: "SAFETY", Message: "response blocked by safety filters"}, KindSafetyBlocked},
		{"400 bad key", &ProviderError{Status: 400, Code: "INVALID_ARGUMENT", Message: "API key not valid. Please pass a valid API key."}, KindAuth},
		{"400 plain", &ProviderError{Status: 400, Code: "INVALID_ARGUMENT", Message: "Invalid JSON payload"}, KindModel},
		{"404", &ProviderError{Status: 404, Message: "models/gemini-9 is not found"}, KindModel},
		{"timeout wording", errors.New("upstream timed out"), KindTimeout},
		{"quota wording", errors.New("quota exceeded"), KindQuotaExceeded},
		{"rate wording", errors.New("rate limit reached"), KindRateLimited},
		{"auth wording", errors.New("unauthorized"), KindAuth},
		{"safety wording", errors.New("candidate was blocked"), KindSafetyBlocked},
		{"model wording", errors.New("model not found"), KindModel},
		{"500", &ProviderError{Status: 500, Message: "Internal error"}, KindUnclassified},
		{"anything else", errors.New("connection reset by peer"), KindUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyStructuredBeatsWording(t *testing.T) {
	t.Parallel()

	// Wording says quota but the status says auth.
	got := Classify(&ProviderError{Status: 401, Message: "quota project not set"})
	assert.Equal(t, KindAuth, got.Kind)
}

func TestClassifyKeepsClassifiedError(t *testing.T) {
	t.Parallel()

	in := &Error{Kind: KindTimeout}
	assert.Same(t, in, Classify(fmt.Errorf("wrapped: %w", in)))
	assert.Nil(t, Classify(nil))
}

func TestClassifyCarriesRetryAfter(t *testing.T) {
	t.Parallel()

	got := Classify(&ProviderError{Status: 429, RetryAfter: 1500 * time.Millisecond})
	assert.Equal(t, KindRateLimited, got.Kind)
	assert.Equal(t, 2, got.RetryAfterSeconds())
}

func TestKindTableIsComplete(t *testing.T) {
	t.Parallel()

	want := map[Kind]int{
		KindConfiguration: http.StatusInternalServerError,
		KindTimeout:       http.StatusRequestTimeout,
		KindRateLimited:   http.StatusTooManyRequests,
		KindQuotaExceeded: http.StatusTooManyRequests,
		KindAuth:          http.StatusUnauthorized,
		KindModel:         http.StatusBadRequest,
		KindSafetyBlocked: http.StatusBadRequest,
		KindUnclassified:  http.StatusInternalServerError,
	}
	require.Len(t, Kinds, len(want))
	for _, k := range Kinds {
		assert.True(t, k.Valid())
		assert.Equal(t, want[k], k.Status(), string(k))
		assert.NotEmpty(t, k.Friendly())
	}
	assert.False(t, Kind("nope").Valid())
	assert.Equal(t, KindUnclassified.Friendly(), Kind("nope").Friendly())
}

func TestErrorFriendlyNeverLeaksCause(t *testing.T) {
	t.Parallel()

	e := &Error{Kind: KindAuth, Err: errors.New("key AIzaSECRET rejected")}
	assert.NotContains(t, e.Friendly(), "AIzaSECRET")
	assert.Contains(t, e.Error(), "AIzaSECRET")

	relayed := &Error{Kind: KindTimeout, Message: "server says slow down"}
	assert.Equal(t, "server says slow down", relayed.Friendly())
}
