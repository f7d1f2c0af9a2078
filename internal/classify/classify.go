// Package classify reconciles pipeline stage with observed engagement. A
// prospect that has real communication history belongs at lead; a lead with
// none was promoted prematurely and goes back to prospect. Rows are never
// moved or copied: the record keeps its id and its dependents, only the stage
// field changes.
package classify

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/store"
)

// Classifier runs the engagement reclassification pass.
type Classifier struct {
	store store.Store
}

// New creates a Classifier.
func New(st store.Store) *Classifier {
	return &Classifier{store: st}
}

// engagementIndex answers "does this record have communication history" from
// a single Action snapshot, so every decision in one pass reads the same
// frozen view of the data.
type engagementIndex struct {
	byRecord  map[string]bool
	byPerson  map[string]bool
	byCompany map[string]bool
}

func buildIndex(actions []model.Action) engagementIndex {
	idx := engagementIndex{
		byRecord:  make(map[string]bool),
		byPerson:  make(map[string]bool),
		byCompany: make(map[string]bool),
	}
	for _, a := range actions {
		if !a.Type.IsCommunication() {
			continue
		}
		if a.RecordID != "" {
			idx.byRecord[a.RecordID] = true
		}
		if a.PersonID != "" {
			idx.byPerson[a.PersonID] = true
		}
		if a.CompanyID != "" {
			idx.byCompany[a.CompanyID] = true
		}
	}
	return idx
}

// engaged reports whether any communication action references the record
// directly or transitively through its linked person or company.
func (idx engagementIndex) engaged(r model.PipelineRecord) bool {
	if idx.byRecord[r.ID] {
		return true
	}
	if r.PersonID != "" && idx.byPerson[r.PersonID] {
		return true
	}
	if r.CompanyID != "" && idx.byCompany[r.CompanyID] {
		return true
	}
	return false
}

// Run reclassifies prospects and leads in the workspace against a snapshot of
// the action log. Records are visited in id order; the outcome is a pure
// function of the snapshot, so rerunning on unchanged data changes nothing.
func (c *Classifier) Run(ctx context.Context, workspaceID string) (*model.PassResult, error) {
	log := zap.L().With(
		zap.String("component", "classify"),
		zap.String("workspace", workspaceID),
	)

	actions, err := c.store.ListActions(ctx, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "classify: list actions")
	}
	idx := buildIndex(actions)

	prospects, err := c.store.ListPipelineRecords(ctx, workspaceID, model.StageProspect)
	if err != nil {
		return nil, eris.Wrap(err, "classify: list prospects")
	}
	leads, err := c.store.ListPipelineRecords(ctx, workspaceID, model.StageLead)
	if err != nil {
		return nil, eris.Wrap(err, "classify: list leads")
	}

	result := &model.PassResult{
		Examined: len(prospects) + len(leads),
		Details: map[string]any{
			"prospects_before": len(prospects),
			"leads_before":     len(leads),
		},
	}

	promoted, err := c.reclassify(ctx, log, result, prospects, idx, true, model.StageLead)
	if err != nil {
		return nil, err
	}
	demoted, err := c.reclassify(ctx, log, result, leads, idx, false, model.StageProspect)
	if err != nil {
		return nil, err
	}

	result.Changed = promoted + demoted
	result.Details["promoted"] = promoted
	result.Details["demoted"] = demoted
	result.Details["prospects_after"] = len(prospects) - promoted + demoted
	result.Details["leads_after"] = len(leads) - demoted + promoted
	result.Details["changed_fraction"] = result.ChangedFraction()

	log.Info("classification complete",
		zap.Int("examined", result.Examined),
		zap.Int("promoted", promoted),
		zap.Int("demoted", demoted),
		zap.Int("errors", result.Errors),
		zap.Float64("changed_fraction", result.ChangedFraction()))
	return result, nil
}

// reclassify moves records whose engagement state contradicts their stage.
// whenEngaged selects the direction: prospects move when engaged, leads move
// when not.
func (c *Classifier) reclassify(
	ctx context.Context,
	log *zap.Logger,
	result *model.PassResult,
	records []model.PipelineRecord,
	idx engagementIndex,
	whenEngaged bool,
	target model.Stage,
) (int, error) {
	changed := 0
	for _, r := range records {
		if idx.engaged(r) != whenEngaged {
			result.Skipped++
			continue
		}
		if err := c.store.UpdateRecordStage(ctx, r.ID, target); err != nil {
			result.Errors++
			log.Warn("stage update failed, continuing",
				zap.String("record", r.ID), zap.String("target", string(target)), zap.Error(err))
			continue
		}
		changed++
	}
	return changed, nil
}
