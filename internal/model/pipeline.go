package model

import "time"

// Stage identifies where a pipeline record sits in the sales funnel.
type Stage string

const (
	StageProspect    Stage = "prospect"
	StageLead        Stage = "lead"
	StageOpportunity Stage = "opportunity"
	StageClient      Stage = "client"
)

// AllStages returns the funnel stages in pipeline order.
func AllStages() []Stage {
	return []Stage{StageProspect, StageLead, StageOpportunity, StageClient}
}

// PipelineRecord is a stage-specific wrapper around a person and/or company.
// The stage is expected to reflect observed engagement: a prospect with
// communication history belongs at lead or later.
type PipelineRecord struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Stage       Stage     `json:"stage"`
	PersonID    string    `json:"person_id,omitempty"`
	CompanyID   string    `json:"company_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Lifecycle
}
