package audit

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// MergePlan declares a workspace consolidation: every entity in Source moves
// to Target, record owners are remapped, and the emptied source workspace is
// soft-deleted.
type MergePlan struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	// OwnerMap remaps pipeline record owners from source-workspace users to
	// their target-workspace accounts.
	OwnerMap map[string]string `yaml:"owner_map"`
}

// LoadMergePlan reads and validates a YAML merge plan.
func LoadMergePlan(path string) (*MergePlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: read merge plan %s", path)
	}

	var plan MergePlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, eris.Wrapf(err, "audit: parse merge plan %s", path)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks the plan is executable.
func (p *MergePlan) Validate() error {
	if p.Source == "" {
		return eris.New("audit: merge plan missing source workspace")
	}
	if p.Target == "" {
		return eris.New("audit: merge plan missing target workspace")
	}
	if p.Source == p.Target {
		return eris.New("audit: merge plan source and target are the same workspace")
	}
	return nil
}

// MergeResult summarizes a workspace consolidation.
type MergeResult struct {
	Moved          map[string]int64 `json:"moved"`
	OwnersRemapped int64            `json:"owners_remapped"`
	BackupPath     string           `json:"backup_path"`
}

// Merge consolidates the source workspace into the target per the plan. The
// moved entity ids are backed up to JSON before anything changes.
func (a *Auditor) Merge(ctx context.Context, plan *MergePlan) (*MergeResult, error) {
	log := zap.L().With(
		zap.String("component", "audit"),
		zap.String("source", plan.Source),
		zap.String("target", plan.Target),
	)
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	backup, err := a.collectWorkspaceRows(ctx, plan.Source)
	if err != nil {
		return nil, err
	}
	backupPath, err := a.writer.Backup("workspace-merge", backup)
	if err != nil {
		return nil, err
	}

	result := &MergeResult{Moved: make(map[string]int64), BackupPath: backupPath}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "audit: begin merge tx")
	}
	defer tx.Rollback(ctx)

	// Remap owners while the records still carry the source workspace id, so
	// records already living in the target are never touched.
	for oldOwner, newOwner := range plan.OwnerMap {
		tag, err := tx.Exec(ctx,
			"UPDATE pipeline_records SET owner_id = $1 WHERE workspace_id = $2 AND owner_id = $3",
			newOwner, plan.Source, oldOwner)
		if err != nil {
			return nil, eris.Wrapf(err, "audit: remap owner %s", oldOwner)
		}
		result.OwnersRemapped += tag.RowsAffected()
	}

	for _, table := range entityTables {
		tag, err := tx.Exec(ctx,
			"UPDATE "+table+" SET workspace_id = $1 WHERE workspace_id = $2",
			plan.Target, plan.Source)
		if err != nil {
			return nil, eris.Wrapf(err, "audit: move %s", table)
		}
		result.Moved[table] = tag.RowsAffected()
	}

	if _, err := tx.Exec(ctx,
		"UPDATE workspaces SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL",
		plan.Source); err != nil {
		return nil, eris.Wrap(err, "audit: retire source workspace")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "audit: commit merge")
	}

	log.Info("workspace merged",
		zap.Int64("owners_remapped", result.OwnersRemapped),
		zap.String("backup", backupPath))
	return result, nil
}

func (a *Auditor) collectWorkspaceRows(ctx context.Context, workspaceID string) ([]strayRow, error) {
	var out []strayRow
	for _, table := range entityTables {
		rows, err := a.pool.Query(ctx,
			"SELECT id, workspace_id FROM "+table+" WHERE workspace_id = $1", workspaceID)
		if err != nil {
			return nil, eris.Wrapf(err, "audit: collect %s for backup", table)
		}
		for rows.Next() {
			r := strayRow{Table: table}
			if err := rows.Scan(&r.ID, &r.WorkspaceID); err != nil {
				rows.Close()
				return nil, eris.Wrapf(err, "audit: scan %s for backup", table)
			}
			out = append(out, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, eris.Wrapf(err, "audit: iterate %s for backup", table)
		}
	}
	return out, nil
}
