package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepointFK(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE "actions" SET "person_id" = \$1 WHERE "person_id" = ANY\(\$2\)`).
		WithArgs("survivor", []string{"dup-1", "dup-2"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 7))

	n, err := RepointFK(context.Background(), mock, "actions", "person_id", "survivor", []string{"dup-1", "dup-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepointFK_EmptyIDs(t *testing.T) {
	n, err := RepointFK(context.Background(), nil, "actions", "person_id", "survivor", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUnlinkFK(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE "pipeline_records" SET "person_id" = NULL WHERE "person_id" = ANY\(\$1\)`).
		WithArgs([]string{"ghost-1"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := UnlinkFK(context.Background(), mock, "pipeline_records", "person_id", []string{"ghost-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "people", []string{"id"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "people",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "people",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "people",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "workspace_id"`, quoteAndJoin([]string{"id", "name", "workspace_id"}))
}
