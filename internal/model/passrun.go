package model

import "time"

// PassStatus represents the state of a maintenance pass run.
type PassStatus string

const (
	PassStatusRunning  PassStatus = "running"
	PassStatusComplete PassStatus = "complete"
	PassStatusFailed   PassStatus = "failed"
)

// PassRun is one row in the run log: a single execution of a maintenance
// pass against a workspace.
type PassRun struct {
	ID          string      `json:"id"`
	Pass        string      `json:"pass"`
	WorkspaceID string      `json:"workspace_id"`
	Status      PassStatus  `json:"status"`
	Result      *PassResult `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// PassResult summarizes what a pass did. Examined counts every candidate the
// pass looked at; Changed counts writes; Skipped counts records excluded by
// filters; Errors counts per-record failures that were logged and continued.
type PassResult struct {
	Examined int            `json:"examined"`
	Changed  int            `json:"changed"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Details  map[string]any `json:"details,omitempty"`
}

// ChangedFraction returns the share of examined records that changed.
func (r *PassResult) ChangedFraction() float64 {
	if r == nil || r.Examined == 0 {
		return 0
	}
	return float64(r.Changed) / float64(r.Examined)
}
