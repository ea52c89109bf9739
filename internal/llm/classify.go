package llm

import (
	"context"
	"errors"
	"net/http"
	"regexp"
)

type rule struct {
	name  string
	kind  Kind
	match func(err error, pe *ProviderError) bool
}

var (
	quotaWording   = regexp.MustCompile(`(?i)quota|billing`)
	rateWording    = regexp.MustCompile(`(?i)rate.?limit|resource.?exhausted|too many requests`)
	authWording    = regexp.MustCompile(`(?i)api.?key|unauthori[sz]ed|invalid key|permission|access denied|unauthenticated`)
	safetyWording  = regexp.MustCompile(`(?i)safety|blocked`)
	modelWording   = regexp.MustCompile(`(?i)model|not found`)
	timeoutWording = regexp.MustCompile(`(?i)time.?out|timed out|deadline`)
)

func status(code int) func(error, *ProviderError) bool {
	return func(_ error, pe *ProviderError) bool {
		return pe != nil && pe.Status == code
	}
}

func statusWith(code int, re *regexp.Regexp) func(error, *ProviderError) bool {
	return func(_ error, pe *ProviderError) bool {
		return pe != nil && pe.Status == code && (re.MatchString(pe.Message) || re.MatchString(pe.Code))
	}
}

func wording(re *regexp.Regexp) func(error, *ProviderError) bool {
	return func(err error, _ *ProviderError) bool {
		return re.MatchString(err.Error())
	}
}

// rules are evaluated in order and the first match wins. Structured checks
// come first; wording checks only run when nothing structured matched.
var rules = []rule{
	{"not configured", KindConfiguration, func(err error, _ *ProviderError) bool { return errors.Is(err, ErrNotConfigured) }},
	{"malformed key", KindAuth, func(err error, _ *ProviderError) bool { return errors.Is(err, ErrMalformedKey) }},
	{"deadline", KindTimeout, func(err error, _ *ProviderError) bool { return errors.Is(err, context.DeadlineExceeded) }},

	{"429 quota", KindQuotaExceeded, statusWith(http.StatusTooManyRequests, quotaWording)},
	{"429", KindRateLimited, status(http.StatusTooManyRequests)},
	{"401", KindAuth, status(http.StatusUnauthorized)},
	{"403 quota", KindQuotaExceeded, statusWith(http.StatusForbidden, quotaWording)},
	{"403", KindAuth, status(http.StatusForbidden)},
	{"400 safety", KindSafetyBlocked, statusWith(http.StatusBadRequest, safetyWording)},
	{"400 key", KindAuth, statusWith(http.StatusBadRequest, authWording)},
	{"400", KindModel, status(http.StatusBadRequest)},
	{"404", KindModel, status(http.StatusNotFound)},
	{"408", KindTimeout, status(http.StatusRequestTimeout)},
	{"504", KindTimeout, status(http.StatusGatewayTimeout)},

	{"timeout wording", KindTimeout, wording(timeoutWording)},
	{"quota wording", KindQuotaExceeded, wording(quotaWording)},
	{"rate wording", KindRateLimited, wording(rateWording)},
	{"auth wording", KindAuth, wording(authWording)},
	{"safety wording", KindSafetyBlocked, wording(safetyWording)},
	{"model wording", KindModel, wording(modelWording)},
}

// Classify maps any failure to exactly one kind. An error that is already
// classified is returned unchanged. Classify(nil) returns nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}

	var pe *ProviderError
	_ = errors.As(err, &pe)

	out := &Error{Kind: KindUnclassified, Err: err}
	for _, r := range rules {
		if r.match(err, pe) {
			out.Kind = r.kind
			break
		}
	}
	if pe != nil {
		out.RetryAfter = pe.RetryAfter
	}
	return out
}
