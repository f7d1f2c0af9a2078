package resilience

import (
	"time"
)

// RetryEntry represents a single record that a maintenance pass failed to
// process (constraint violation, provider error) and queued for a later run.
// Per-record failures never abort a pass; they land here instead.
type RetryEntry struct {
	ID           string    `json:"id"`
	EntityKind   string    `json:"entity_kind"` // person, company, prospect, lead
	EntityID     string    `json:"entity_id"`
	WorkspaceID  string    `json:"workspace_id"`
	Pass         string    `json:"pass"`
	Error        string    `json:"error"`
	ErrorType    string    `json:"error_type"` // "transient" or "permanent"
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	NextRetryAt  time.Time `json:"next_retry_at"`
	CreatedAt    time.Time `json:"created_at"`
	LastFailedAt time.Time `json:"last_failed_at"`
}

// RetryFilter specifies criteria for draining the retry queue.
type RetryFilter struct {
	Pass      string `json:"pass,omitempty"`
	ErrorType string `json:"error_type,omitempty"` // "transient", "permanent", or "" for all
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry returns true if this entry has retry budget left.
func (e *RetryEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// NextBackoff computes when the entry should next be attempted, doubling the
// base interval per prior retry and capping at maxDelay.
func (e *RetryEntry) NextBackoff(now time.Time, base, maxDelay time.Duration) time.Time {
	delay := base << e.RetryCount
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	return now.Add(delay)
}

// ClassifyError categorizes an error as "transient" or "permanent" for queue
// triage. Quota errors are permanent from the queue's point of view: the next
// scheduled run retries them anyway once the budget resets.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
