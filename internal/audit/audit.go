// Package audit checks and repairs workspace scoping. Every entity must
// belong to exactly one live workspace; null or unknown workspace ids are
// integrity defects this package finds and fixes.
package audit

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/db"
	"github.com/adrata/dataops-cli/internal/report"
)

// entityTables lists every workspace-scoped table.
var entityTables = []string{"people", "companies", "pipeline_records", "actions"}

// Auditor inspects and repairs workspace integrity. It works straight against
// the pool: audits cut across workspaces, so the store's scoped queries do
// not fit.
type Auditor struct {
	pool   db.Pool
	writer *report.Writer
}

// New creates an Auditor. writer receives JSON backups before destructive
// repairs.
func New(pool db.Pool, writer *report.Writer) *Auditor {
	return &Auditor{pool: pool, writer: writer}
}

// TableFindings counts integrity defects in one table.
type TableFindings struct {
	Table            string `json:"table"`
	NullWorkspace    int    `json:"null_workspace"`
	UnknownWorkspace int    `json:"unknown_workspace"`
}

// Report is the outcome of one audit.
type Report struct {
	Findings []TableFindings `json:"findings"`
	Total    int             `json:"total"`
}

// Audit counts entities with a null workspace id or a workspace id that does
// not resolve to a live workspace.
func (a *Auditor) Audit(ctx context.Context) (*Report, error) {
	log := zap.L().With(zap.String("component", "audit"))
	rep := &Report{}

	for _, table := range entityTables {
		f := TableFindings{Table: table}

		row := a.pool.QueryRow(ctx,
			"SELECT count(*) FROM "+table+" WHERE workspace_id IS NULL AND deleted_at IS NULL")
		if err := row.Scan(&f.NullWorkspace); err != nil {
			return nil, eris.Wrapf(err, "audit: count null workspace in %s", table)
		}

		row = a.pool.QueryRow(ctx,
			"SELECT count(*) FROM "+table+` t
			 WHERE t.workspace_id IS NOT NULL AND t.deleted_at IS NULL
			   AND NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = t.workspace_id AND w.deleted_at IS NULL)`)
		if err := row.Scan(&f.UnknownWorkspace); err != nil {
			return nil, eris.Wrapf(err, "audit: count unknown workspace in %s", table)
		}

		rep.Findings = append(rep.Findings, f)
		rep.Total += f.NullWorkspace + f.UnknownWorkspace
		log.Info("table audited",
			zap.String("table", table),
			zap.Int("null_workspace", f.NullWorkspace),
			zap.Int("unknown_workspace", f.UnknownWorkspace))
	}

	return rep, nil
}

// RepairOpts controls what Repair does with stray entities.
type RepairOpts struct {
	// AdoptInto moves entities with a null or unknown workspace id into this
	// workspace. Empty means do not adopt.
	AdoptInto string
	// SoftDeleteOrphans retires strays instead of adopting them. Ignored when
	// AdoptInto is set.
	SoftDeleteOrphans bool
}

// Repair fixes the defects Audit reports. Strays are either adopted into a
// target workspace or soft-deleted; affected ids are backed up to a JSON
// report first.
func (a *Auditor) Repair(ctx context.Context, opts RepairOpts) (int64, error) {
	log := zap.L().With(zap.String("component", "audit"))

	if opts.AdoptInto == "" && !opts.SoftDeleteOrphans {
		return 0, eris.New("audit: repair needs a target workspace or the soft-delete flag")
	}

	backup, err := a.collectStrays(ctx)
	if err != nil {
		return 0, err
	}
	if len(backup) == 0 {
		log.Info("nothing to repair")
		return 0, nil
	}
	if _, err := a.writer.Backup("audit-repair", backup); err != nil {
		return 0, err
	}

	var total int64
	for _, table := range entityTables {
		var sql string
		var args []any
		if opts.AdoptInto != "" {
			sql = "UPDATE " + table + ` SET workspace_id = $1
			 WHERE deleted_at IS NULL AND (workspace_id IS NULL
			   OR NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = workspace_id AND w.deleted_at IS NULL))`
			args = []any{opts.AdoptInto}
		} else {
			sql = "UPDATE " + table + ` SET deleted_at = now()
			 WHERE deleted_at IS NULL AND (workspace_id IS NULL
			   OR NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = workspace_id AND w.deleted_at IS NULL))`
		}

		tag, err := a.pool.Exec(ctx, sql, args...)
		if err != nil {
			return total, eris.Wrapf(err, "audit: repair %s", table)
		}
		total += tag.RowsAffected()
		log.Info("table repaired", zap.String("table", table), zap.Int64("rows", tag.RowsAffected()))
	}

	return total, nil
}

// strayRow is one backed-up defect row.
type strayRow struct {
	Table       string  `json:"table"`
	ID          string  `json:"id"`
	WorkspaceID *string `json:"workspace_id"`
}

func (a *Auditor) collectStrays(ctx context.Context) ([]strayRow, error) {
	var out []strayRow
	for _, table := range entityTables {
		rows, err := a.pool.Query(ctx,
			"SELECT id, workspace_id FROM "+table+` t
			 WHERE t.deleted_at IS NULL AND (t.workspace_id IS NULL
			   OR NOT EXISTS (SELECT 1 FROM workspaces w WHERE w.id = t.workspace_id AND w.deleted_at IS NULL))`)
		if err != nil {
			return nil, eris.Wrapf(err, "audit: collect strays from %s", table)
		}
		for rows.Next() {
			r := strayRow{Table: table}
			if err := rows.Scan(&r.ID, &r.WorkspaceID); err != nil {
				rows.Close()
				return nil, eris.Wrapf(err, "audit: scan stray from %s", table)
			}
			out = append(out, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, eris.Wrapf(err, "audit: iterate strays from %s", table)
		}
	}
	return out, nil
}
