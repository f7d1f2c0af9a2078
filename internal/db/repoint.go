package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// RepointFK rewrites every row in table whose column points at one of fromIDs
// so that it points at toID instead. Used during merges to move dependents
// from discarded duplicates onto the canonical survivor.
func RepointFK(ctx context.Context, pool Pool, table, column, toID string, fromIDs []string) (int64, error) {
	if len(fromIDs) == 0 {
		return 0, nil
	}

	sql := fmt.Sprintf(
		"UPDATE %s SET %s = $1 WHERE %s = ANY($2)",
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{column}.Sanitize(),
		pgx.Identifier{column}.Sanitize(),
	)
	tag, err := pool.Exec(ctx, sql, toID, fromIDs)
	if err != nil {
		return 0, eris.Wrapf(err, "db: repoint %s.%s", table, column)
	}
	return tag.RowsAffected(), nil
}

// UnlinkFK nulls out every row in table whose column points at one of the
// given ids. Used for dependents of placeholder records, which have no real
// identity to merge into.
func UnlinkFK(ctx context.Context, pool Pool, table, column string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	sql := fmt.Sprintf(
		"UPDATE %s SET %s = NULL WHERE %s = ANY($1)",
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{column}.Sanitize(),
		pgx.Identifier{column}.Sanitize(),
	)
	tag, err := pool.Exec(ctx, sql, ids)
	if err != nil {
		return 0, eris.Wrapf(err, "db: unlink %s.%s", table, column)
	}
	return tag.RowsAffected(), nil
}

// CopyFrom bulk-inserts rows into a table using the PostgreSQL COPY protocol.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
