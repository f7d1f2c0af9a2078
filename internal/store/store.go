package store

import (
	"context"
	"time"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/resilience"
)

// RunFilter specifies criteria for listing pass runs.
type RunFilter struct {
	Pass        string           `json:"pass,omitempty"`
	WorkspaceID string           `json:"workspace_id,omitempty"`
	Status      model.PassStatus `json:"status,omitempty"`
	Limit       int              `json:"limit,omitempty"`
	Offset      int              `json:"offset,omitempty"`
}

// Store defines the persistence interface shared by the maintenance passes.
// Listing methods return active (not soft-deleted) entities only; deletions
// of merged duplicates are hard deletes performed after their dependents have
// been repointed.
type Store interface {
	// People
	ListPeople(ctx context.Context, workspaceID string) ([]model.Person, error)
	UpdatePerson(ctx context.Context, p model.Person) error
	DeletePeople(ctx context.Context, ids []string) error
	RepointPersonRefs(ctx context.Context, survivorID string, duplicateIDs []string) (int64, error)
	UnlinkPersonRefs(ctx context.Context, ids []string) (int64, error)

	// Companies
	ListCompanies(ctx context.Context, workspaceID string) ([]model.Company, error)
	UpdateCompany(ctx context.Context, c model.Company) error
	DeleteCompanies(ctx context.Context, ids []string) error
	RepointCompanyRefs(ctx context.Context, survivorID string, duplicateIDs []string) (int64, error)
	UnlinkCompanyRefs(ctx context.Context, ids []string) (int64, error)

	// Pipeline records and engagement
	ListPipelineRecords(ctx context.Context, workspaceID string, stage model.Stage) ([]model.PipelineRecord, error)
	UpdateRecordStage(ctx context.Context, recordID string, stage model.Stage) error
	ListActions(ctx context.Context, workspaceID string) ([]model.Action, error)

	// Run log
	StartPassRun(ctx context.Context, pass, workspaceID string) (*model.PassRun, error)
	CompletePassRun(ctx context.Context, runID string, result *model.PassResult) error
	FailPassRun(ctx context.Context, runID, errMsg string) error
	LastSuccess(ctx context.Context, pass, workspaceID string) (*time.Time, error)
	GetPassRun(ctx context.Context, runID string) (*model.PassRun, error)
	ListPassRuns(ctx context.Context, filter RunFilter) ([]model.PassRun, error)

	// Retry queue for per-record failures
	EnqueueRetry(ctx context.Context, entry resilience.RetryEntry) error
	DequeueRetries(ctx context.Context, filter resilience.RetryFilter) ([]resilience.RetryEntry, error)
	RemoveRetry(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
