package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/dataops-cli/internal/report"
)

func newMockAuditor(t *testing.T) (*Auditor, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return New(mock, report.NewWriter(t.TempDir())), mock
}

func countRows(n int) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"count"}).AddRow(n)
}

func TestAudit_CountsDefectsPerTable(t *testing.T) {
	a, mock := newMockAuditor(t)

	for _, table := range entityTables {
		nulls := 0
		unknown := 0
		if table == "people" {
			nulls = 2
		}
		if table == "actions" {
			unknown = 1
		}
		mock.ExpectQuery(`SELECT count\(\*\) FROM ` + table + ` WHERE workspace_id IS NULL`).
			WillReturnRows(countRows(nulls))
		mock.ExpectQuery(`SELECT count\(\*\) FROM ` + table + ` t`).
			WillReturnRows(countRows(unknown))
	}

	rep, err := a.Audit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Total)
	require.Len(t, rep.Findings, len(entityTables))
	assert.Equal(t, 2, rep.Findings[0].NullWorkspace)
	assert.Equal(t, 1, rep.Findings[3].UnknownWorkspace)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepair_RequiresMode(t *testing.T) {
	a, _ := newMockAuditor(t)
	_, err := a.Repair(context.Background(), RepairOpts{})
	require.Error(t, err)
}

func TestRepair_AdoptsStraysAfterBackup(t *testing.T) {
	a, mock := newMockAuditor(t)

	for _, table := range entityTables {
		rows := pgxmock.NewRows([]string{"id", "workspace_id"})
		if table == "people" {
			rows.AddRow("p-1", (*string)(nil))
		}
		mock.ExpectQuery(`SELECT id, workspace_id FROM ` + table).
			WillReturnRows(rows)
	}
	for _, table := range entityTables {
		affected := int64(0)
		if table == "people" {
			affected = 1
		}
		mock.ExpectExec(`UPDATE `+table+` SET workspace_id`).
			WithArgs("ws-target").
			WillReturnResult(pgxmock.NewResult("UPDATE", affected))
	}

	n, err := a.Repair(context.Background(), RepairOpts{AdoptInto: "ws-target"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())

	entries, err := os.ReadDir(a.writer.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "backup written before repair")
	assert.Contains(t, entries[0].Name(), "backup-audit-repair")
}

func TestRepair_NothingToDo(t *testing.T) {
	a, mock := newMockAuditor(t)

	for _, table := range entityTables {
		mock.ExpectQuery(`SELECT id, workspace_id FROM ` + table).
			WillReturnRows(pgxmock.NewRows([]string{"id", "workspace_id"}))
	}

	n, err := a.Repair(context.Background(), RepairOpts{SoftDeleteOrphans: true})
	require.NoError(t, err)
	assert.Zero(t, n)

	entries, err := os.ReadDir(a.writer.Dir())
	if err == nil {
		assert.Empty(t, entries, "no backup for a no-op repair")
	}
}

func TestLoadMergePlan(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	content := `source: ws-old
target: ws-new
owner_map:
  user-a: user-b
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	plan, err := LoadMergePlan(path)
	require.NoError(t, err)
	assert.Equal(t, "ws-old", plan.Source)
	assert.Equal(t, "ws-new", plan.Target)
	assert.Equal(t, "user-b", plan.OwnerMap["user-a"])
}

func TestMergePlan_Validate(t *testing.T) {
	t.Parallel()
	assert.Error(t, (&MergePlan{Target: "b"}).Validate())
	assert.Error(t, (&MergePlan{Source: "a"}).Validate())
	assert.Error(t, (&MergePlan{Source: "a", Target: "a"}).Validate())
	assert.NoError(t, (&MergePlan{Source: "a", Target: "b"}).Validate())
}

func TestMerge_MovesEntitiesAndRemapsOwners(t *testing.T) {
	a, mock := newMockAuditor(t)
	plan := &MergePlan{
		Source:   "ws-old",
		Target:   "ws-new",
		OwnerMap: map[string]string{"user-a": "user-b"},
	}

	src := "ws-old"
	for _, table := range entityTables {
		rows := pgxmock.NewRows([]string{"id", "workspace_id"})
		if table == "people" {
			rows.AddRow("p-1", &src)
		}
		mock.ExpectQuery(`SELECT id, workspace_id FROM ` + table).
			WithArgs("ws-old").
			WillReturnRows(rows)
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE pipeline_records SET owner_id`).
		WithArgs("user-b", "ws-old", "user-a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	for _, table := range entityTables {
		affected := int64(0)
		if table == "people" {
			affected = 1
		}
		mock.ExpectExec(`UPDATE `+table+` SET workspace_id`).
			WithArgs("ws-new", "ws-old").
			WillReturnResult(pgxmock.NewResult("UPDATE", affected))
	}
	mock.ExpectExec(`UPDATE workspaces SET deleted_at`).
		WithArgs("ws-old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	result, err := a.Merge(context.Background(), plan)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Moved["people"])
	assert.EqualValues(t, 4, result.OwnersRemapped)
	assert.NotEmpty(t, result.BackupPath)
	assert.NoError(t, mock.ExpectationsWereMet())
}
