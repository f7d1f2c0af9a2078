// Package resilience provides the error taxonomy, retry, and circuit breaker
// used by maintenance passes when talking to the database and enrichment
// providers.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError wraps an error that is safe to retry (5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// QuotaError signals that an enrichment provider reported rate-limit or quota
// exhaustion. It is not retried: the containing pass halts gracefully and the
// remaining entities are left for a future run.
type QuotaError struct {
	Provider   string
	Err        error
	StatusCode int
}

func (e *QuotaError) Error() string {
	return e.Provider + ": quota exhausted: " + e.Err.Error()
}

func (e *QuotaError) Unwrap() error {
	return e.Err
}

// NewQuotaError wraps a provider rate-limit/quota response.
func NewQuotaError(provider string, err error, statusCode int) *QuotaError {
	return &QuotaError{Provider: provider, Err: err, StatusCode: statusCode}
}

// IsQuota reports whether the error chain contains a QuotaError.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or matches common transient network failure patterns.
// Quota errors are never transient: retrying them burns the remaining budget.
func IsTransient(err error) bool {
	if err == nil || IsQuota(err) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true for server-side statuses that are safe
// to retry. 429 is deliberately excluded: providers here meter monthly
// credits, so a 429 means the budget is gone, not that the server hiccupped.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
