// Package idmigrate rewrites legacy CUID primary keys to ULIDs. The new ULID
// embeds the row's creation time, so sorting by id matches sorting by age.
// Rows that already carry a ULID are untouched, which makes reruns free.
package idmigrate

import (
	"context"
	crand "crypto/rand"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adrata/dataops-cli/internal/db"
)

// table describes one migratable table and the columns that reference its id.
type table struct {
	name string
	refs [][2]string // {referencing table, column}
}

var tables = []table{
	{name: "workspaces", refs: [][2]string{
		{"people", "workspace_id"},
		{"companies", "workspace_id"},
		{"pipeline_records", "workspace_id"},
		{"actions", "workspace_id"},
	}},
	{name: "people", refs: [][2]string{
		{"pipeline_records", "person_id"},
		{"actions", "person_id"},
	}},
	{name: "companies", refs: [][2]string{
		{"pipeline_records", "company_id"},
		{"actions", "company_id"},
	}},
	{name: "pipeline_records", refs: [][2]string{
		{"actions", "record_id"},
	}},
	{name: "actions", refs: nil},
}

// IsCUID reports whether id looks like a legacy CUID: a literal "c" followed
// by 24 base36 characters.
func IsCUID(id string) bool {
	if len(id) != 25 || id[0] != 'c' {
		return false
	}
	for i := 1; i < len(id); i++ {
		ch := id[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'z') {
			return false
		}
	}
	return true
}

// Result summarizes one migration run.
type Result struct {
	// Mapping records old id -> new id for every rewritten row.
	Mapping map[string]string `json:"mapping"`
	// PerTable counts rewritten rows by table.
	PerTable map[string]int `json:"per_table"`
}

// Migrator rewrites CUIDs to ULIDs across the workspace schema.
type Migrator struct {
	pool    db.Pool
	entropy io.Reader
}

// New creates a Migrator.
func New(pool db.Pool) *Migrator {
	return &Migrator{
		pool:    pool,
		entropy: ulid.Monotonic(crand.Reader, 0),
	}
}

// newID derives a ULID whose timestamp component is the row's creation time.
func (m *Migrator) newID(createdAt time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(createdAt.UTC()), m.entropy)
	if err != nil {
		return "", eris.Wrap(err, "idmigrate: generate ulid")
	}
	return id.String(), nil
}

// Run migrates every table in dependency order. Each row is rewritten inside
// its own transaction together with all references to it, so a crash mid-run
// never leaves a dangling foreign key.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("component", "idmigrate"))
	result := &Result{
		Mapping:  make(map[string]string),
		PerTable: make(map[string]int),
	}

	for _, t := range tables {
		n, err := m.migrateTable(ctx, log, t, result)
		if err != nil {
			return result, err
		}
		result.PerTable[t.name] = n
	}

	log.Info("id migration complete", zap.Int("rewritten", len(result.Mapping)))
	return result, nil
}

type legacyRow struct {
	id        string
	createdAt time.Time
}

func (m *Migrator) migrateTable(ctx context.Context, log *zap.Logger, t table, result *Result) (int, error) {
	rows, err := m.pool.Query(ctx,
		"SELECT id, created_at FROM "+t.name+" WHERE id LIKE 'c%' AND length(id) = 25")
	if err != nil {
		return 0, eris.Wrapf(err, "idmigrate: scan %s", t.name)
	}

	var legacy []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.id, &r.createdAt); err != nil {
			rows.Close()
			return 0, eris.Wrapf(err, "idmigrate: scan %s row", t.name)
		}
		if IsCUID(r.id) {
			legacy = append(legacy, r)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, eris.Wrapf(err, "idmigrate: iterate %s", t.name)
	}

	if len(legacy) == 0 {
		log.Debug("no legacy ids", zap.String("table", t.name))
		return 0, nil
	}
	log.Info("rewriting legacy ids", zap.String("table", t.name), zap.Int("count", len(legacy)))

	for _, r := range legacy {
		newID, err := m.newID(r.createdAt)
		if err != nil {
			return 0, err
		}
		if err := m.rewriteRow(ctx, t, r.id, newID); err != nil {
			return 0, err
		}
		result.Mapping[r.id] = newID
	}
	return len(legacy), nil
}

func (m *Migrator) rewriteRow(ctx context.Context, t table, oldID, newID string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "idmigrate: begin tx for %s", t.name)
	}
	defer tx.Rollback(ctx)

	// The pk update leaves children dangling until the ref updates below run,
	// so FK checks must wait for commit.
	if _, err := tx.Exec(ctx, "SET CONSTRAINTS ALL DEFERRED"); err != nil {
		return eris.Wrapf(err, "idmigrate: defer constraints for %s", t.name)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE "+t.name+" SET id = $1 WHERE id = $2", newID, oldID); err != nil {
		return eris.Wrapf(err, "idmigrate: rewrite %s.%s", t.name, oldID)
	}

	for _, ref := range t.refs {
		if _, err := tx.Exec(ctx,
			"UPDATE "+ref[0]+" SET "+ref[1]+" = $1 WHERE "+ref[1]+" = $2", newID, oldID); err != nil {
			return eris.Wrapf(err, "idmigrate: repoint %s.%s", ref[0], ref[1])
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "idmigrate: commit %s.%s", t.name, oldID)
	}
	return nil
}
