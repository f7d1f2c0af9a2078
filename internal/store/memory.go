package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/resilience"
)

// MemoryStore is an in-memory Store used by unit tests and --dry-run
// previews. It applies the same active-only listing semantics as the SQL
// drivers.
type MemoryStore struct {
	mu      sync.Mutex
	people  map[string]model.Person
	comps   map[string]model.Company
	records map[string]model.PipelineRecord
	actions map[string]model.Action
	runs    map[string]model.PassRun
	retries map[string]resilience.RetryEntry
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		people:  make(map[string]model.Person),
		comps:   make(map[string]model.Company),
		records: make(map[string]model.PipelineRecord),
		actions: make(map[string]model.Action),
		runs:    make(map[string]model.PassRun),
		retries: make(map[string]resilience.RetryEntry),
	}
}

// Seed helpers for tests.

func (s *MemoryStore) PutPerson(p model.Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people[p.ID] = p
}

func (s *MemoryStore) PutCompany(c model.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comps[c.ID] = c
}

func (s *MemoryStore) PutRecord(r model.PipelineRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
}

func (s *MemoryStore) PutAction(a model.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[a.ID] = a
}

// GetPerson returns a person by id regardless of lifecycle state.
func (s *MemoryStore) GetPerson(id string) (model.Person, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	return p, ok
}

func (s *MemoryStore) GetCompany(id string) (model.Company, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comps[id]
	return c, ok
}

func (s *MemoryStore) GetRecord(id string) (model.PipelineRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	return r, ok
}

func (s *MemoryStore) GetAction(id string) (model.Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	return a, ok
}

// Retries returns every queued entry, due or not.
func (s *MemoryStore) Retries() []resilience.RetryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]resilience.RetryEntry, 0, len(s.retries))
	for _, e := range s.retries {
		out = append(out, e)
	}
	return out
}

// People

func (s *MemoryStore) ListPeople(ctx context.Context, workspaceID string) ([]model.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Person
	for _, p := range s.people {
		if p.WorkspaceID == workspaceID && p.Active() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdatePerson(ctx context.Context, p model.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[p.ID]; !ok {
		return eris.Errorf("person not found: %s", p.ID)
	}
	p.UpdatedAt = time.Now().UTC()
	s.people[p.ID] = p
	return nil
}

func (s *MemoryStore) DeletePeople(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.people, id)
	}
	return nil
}

func (s *MemoryStore) RepointPersonRefs(ctx context.Context, survivorID string, duplicateIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dups := toSet(duplicateIDs)
	var n int64
	for id, r := range s.records {
		if dups[r.PersonID] {
			r.PersonID = survivorID
			s.records[id] = r
			n++
		}
	}
	for id, a := range s.actions {
		if dups[a.PersonID] {
			a.PersonID = survivorID
			s.actions[id] = a
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UnlinkPersonRefs(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := toSet(ids)
	var n int64
	for id, r := range s.records {
		if set[r.PersonID] {
			r.PersonID = ""
			s.records[id] = r
			n++
		}
	}
	for id, a := range s.actions {
		if set[a.PersonID] {
			a.PersonID = ""
			s.actions[id] = a
			n++
		}
	}
	return n, nil
}

// Companies

func (s *MemoryStore) ListCompanies(ctx context.Context, workspaceID string) ([]model.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Company
	for _, c := range s.comps {
		if c.WorkspaceID == workspaceID && c.Active() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateCompany(ctx context.Context, c model.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comps[c.ID]; !ok {
		return eris.Errorf("company not found: %s", c.ID)
	}
	c.UpdatedAt = time.Now().UTC()
	s.comps[c.ID] = c
	return nil
}

func (s *MemoryStore) DeleteCompanies(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.comps, id)
	}
	return nil
}

func (s *MemoryStore) RepointCompanyRefs(ctx context.Context, survivorID string, duplicateIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dups := toSet(duplicateIDs)
	var n int64
	for id, r := range s.records {
		if dups[r.CompanyID] {
			r.CompanyID = survivorID
			s.records[id] = r
			n++
		}
	}
	for id, a := range s.actions {
		if dups[a.CompanyID] {
			a.CompanyID = survivorID
			s.actions[id] = a
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UnlinkCompanyRefs(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := toSet(ids)
	var n int64
	for id, r := range s.records {
		if set[r.CompanyID] {
			r.CompanyID = ""
			s.records[id] = r
			n++
		}
	}
	for id, a := range s.actions {
		if set[a.CompanyID] {
			a.CompanyID = ""
			s.actions[id] = a
			n++
		}
	}
	return n, nil
}

// Pipeline records and engagement

func (s *MemoryStore) ListPipelineRecords(ctx context.Context, workspaceID string, stage model.Stage) ([]model.PipelineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PipelineRecord
	for _, r := range s.records {
		if r.WorkspaceID == workspaceID && r.Stage == stage && r.Active() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateRecordStage(ctx context.Context, recordID string, stage model.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return eris.Errorf("pipeline record not found: %s", recordID)
	}
	r.Stage = stage
	r.UpdatedAt = time.Now().UTC()
	s.records[recordID] = r
	return nil
}

func (s *MemoryStore) ListActions(ctx context.Context, workspaceID string) ([]model.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Action
	for _, a := range s.actions {
		if a.WorkspaceID == workspaceID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Run log

func (s *MemoryStore) StartPassRun(ctx context.Context, pass, workspaceID string) (*model.PassRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run := model.PassRun{
		ID:          uuid.New().String(),
		Pass:        pass,
		WorkspaceID: workspaceID,
		Status:      model.PassStatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	s.runs[run.ID] = run
	return &run, nil
}

func (s *MemoryStore) CompletePassRun(ctx context.Context, runID string, result *model.PassResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return eris.Errorf("pass run not found: %s", runID)
	}
	now := time.Now().UTC()
	run.Status = model.PassStatusComplete
	run.Result = result
	run.CompletedAt = &now
	s.runs[runID] = run
	return nil
}

func (s *MemoryStore) FailPassRun(ctx context.Context, runID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return eris.Errorf("pass run not found: %s", runID)
	}
	now := time.Now().UTC()
	run.Status = model.PassStatusFailed
	run.Error = errMsg
	run.CompletedAt = &now
	s.runs[runID] = run
	return nil
}

func (s *MemoryStore) LastSuccess(ctx context.Context, pass, workspaceID string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, run := range s.runs {
		if run.Pass != pass || run.WorkspaceID != workspaceID || run.Status != model.PassStatusComplete {
			continue
		}
		t := run.StartedAt
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest, nil
}

func (s *MemoryStore) GetPassRun(ctx context.Context, runID string) (*model.PassRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, eris.Errorf("pass run not found: %s", runID)
	}
	out := run
	return &out, nil
}

func (s *MemoryStore) ListPassRuns(ctx context.Context, filter RunFilter) ([]model.PassRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PassRun
	for _, run := range s.runs {
		if filter.Pass != "" && run.Pass != filter.Pass {
			continue
		}
		if filter.WorkspaceID != "" && run.WorkspaceID != filter.WorkspaceID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Retry queue

func (s *MemoryStore) EnqueueRetry(ctx context.Context, entry resilience.RetryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	s.retries[entry.ID] = entry
	return nil
}

func (s *MemoryStore) DequeueRetries(ctx context.Context, filter resilience.RetryFilter) ([]resilience.RetryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var out []resilience.RetryEntry
	for _, e := range s.retries {
		if e.NextRetryAt.After(now) || e.RetryCount >= e.MaxRetries {
			continue
		}
		if filter.Pass != "" && e.Pass != filter.Pass {
			continue
		}
		if filter.ErrorType != "" && e.ErrorType != filter.ErrorType {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextRetryAt.Before(out[j].NextRetryAt) })
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RemoveRetry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.retries, id)
	return nil
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
