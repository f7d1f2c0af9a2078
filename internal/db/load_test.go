package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/dataops-cli/internal/model"
)

func TestLoadPeople(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_people" \(LIKE "people" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_people"}, peopleLoadColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "people" .* ON CONFLICT \("id"\) DO UPDATE SET "name" = EXCLUDED."name"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	people := []model.Person{
		{ID: "p-1", Name: "Ada Lovelace", WorkEmail: "ada@acme.com", CreatedAt: time.Now().UTC()},
		{ID: "p-2", Name: "Grace Hopper", CreatedAt: time.Now().UTC()},
	}

	n, err := LoadPeople(context.Background(), mock, "ws-1", people)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCompanies_Empty(t *testing.T) {
	n, err := LoadCompanies(context.Background(), nil, "ws-1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
