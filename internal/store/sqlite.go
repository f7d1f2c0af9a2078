package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// dry-run and development workflows where a Postgres instance is overkill.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS workspaces (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS people (
	id             TEXT PRIMARY KEY,
	workspace_id   TEXT REFERENCES workspaces(id),
	name           TEXT NOT NULL DEFAULT '',
	work_email     TEXT NOT NULL DEFAULT '',
	personal_email TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	department     TEXT NOT NULL DEFAULT '',
	profile_url    TEXT NOT NULL DEFAULT '',
	custom_fields  TEXT,
	sources        TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	deleted_at     DATETIME
);

CREATE TABLE IF NOT EXISTS companies (
	id             TEXT PRIMARY KEY,
	workspace_id   TEXT REFERENCES workspaces(id),
	name           TEXT NOT NULL DEFAULT '',
	domain         TEXT NOT NULL DEFAULT '',
	industry       TEXT NOT NULL DEFAULT '',
	employee_count INTEGER NOT NULL DEFAULT 0,
	city           TEXT NOT NULL DEFAULT '',
	state          TEXT NOT NULL DEFAULT '',
	custom_fields  TEXT,
	sources        TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	deleted_at     DATETIME
);

CREATE TABLE IF NOT EXISTS pipeline_records (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT REFERENCES workspaces(id),
	stage        TEXT NOT NULL,
	person_id    TEXT REFERENCES people(id),
	company_id   TEXT REFERENCES companies(id),
	status       TEXT NOT NULL DEFAULT '',
	owner_id     TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	deleted_at   DATETIME
);

CREATE TABLE IF NOT EXISTS actions (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT REFERENCES workspaces(id),
	type         TEXT NOT NULL,
	subject      TEXT NOT NULL DEFAULT '',
	person_id    TEXT REFERENCES people(id),
	company_id   TEXT REFERENCES companies(id),
	record_id    TEXT REFERENCES pipeline_records(id),
	occurred_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pass_runs (
	id           TEXT PRIMARY KEY,
	pass         TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	result       TEXT,
	error        TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS retry_queue (
	id             TEXT PRIMARY KEY,
	entity_kind    TEXT NOT NULL,
	entity_id      TEXT NOT NULL,
	workspace_id   TEXT NOT NULL,
	pass           TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_people_workspace ON people(workspace_id);
CREATE INDEX IF NOT EXISTS idx_companies_workspace ON companies(workspace_id);
CREATE INDEX IF NOT EXISTS idx_records_workspace_stage ON pipeline_records(workspace_id, stage);
CREATE INDEX IF NOT EXISTS idx_actions_workspace ON actions(workspace_id);
CREATE INDEX IF NOT EXISTS idx_pass_runs_pass ON pass_runs(pass, workspace_id);
CREATE INDEX IF NOT EXISTS idx_retry_queue_next ON retry_queue(next_retry_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// People

func (s *SQLiteStore) ListPeople(ctx context.Context, workspaceID string) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, name, work_email, personal_email, phone, title,
		 department, profile_url, custom_fields, sources, created_at, updated_at, deleted_at
		 FROM people WHERE workspace_id = ? AND deleted_at IS NULL ORDER BY created_at, id`,
		workspaceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list people")
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		var p model.Person
		var workspaceID, customJSON, sourcesJSON sql.NullString
		if err := rows.Scan(&p.ID, &workspaceID, &p.Name, &p.WorkEmail, &p.PersonalEmail,
			&p.Phone, &p.Title, &p.Department, &p.ProfileURL,
			&customJSON, &sourcesJSON, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan person")
		}
		p.WorkspaceID = workspaceID.String
		if err := unmarshalEntityJSON(nullBytes(customJSON), nullBytes(sourcesJSON), &p.CustomFields, &p.Sources); err != nil {
			return nil, eris.Wrapf(err, "sqlite: person %s", p.ID)
		}
		people = append(people, p)
	}
	return people, eris.Wrap(rows.Err(), "sqlite: list people iterate")
}

func (s *SQLiteStore) UpdatePerson(ctx context.Context, p model.Person) error {
	customJSON, sourcesJSON, err := marshalEntityJSON(p.CustomFields, p.Sources)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal person")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE people SET name = ?, work_email = ?, personal_email = ?, phone = ?,
		 title = ?, department = ?, profile_url = ?, custom_fields = ?, sources = ?,
		 updated_at = ?, deleted_at = ? WHERE id = ?`,
		p.Name, p.WorkEmail, p.PersonalEmail, p.Phone, p.Title, p.Department, p.ProfileURL,
		nullText(customJSON), nullText(sourcesJSON), time.Now().UTC(), p.DeletedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update person %s", p.ID)
	}
	return checkRowsAffected(res, "person", p.ID)
}

func (s *SQLiteStore) DeletePeople(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM people WHERE id IN (%s)`, placeholders(len(ids)))
	_, err := s.db.ExecContext(ctx, query, toAnySlice(ids)...)
	return eris.Wrap(err, "sqlite: delete people")
}

func (s *SQLiteStore) RepointPersonRefs(ctx context.Context, survivorID string, duplicateIDs []string) (int64, error) {
	return s.repointRefs(ctx, personRefTables, survivorID, duplicateIDs)
}

func (s *SQLiteStore) UnlinkPersonRefs(ctx context.Context, ids []string) (int64, error) {
	return s.unlinkRefs(ctx, personRefTables, ids)
}

// Companies

func (s *SQLiteStore) ListCompanies(ctx context.Context, workspaceID string) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, name, domain, industry, employee_count, city, state,
		 custom_fields, sources, created_at, updated_at, deleted_at
		 FROM companies WHERE workspace_id = ? AND deleted_at IS NULL ORDER BY created_at, id`,
		workspaceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		var workspaceID, customJSON, sourcesJSON sql.NullString
		if err := rows.Scan(&c.ID, &workspaceID, &c.Name, &c.Domain, &c.Industry, &c.EmployeeCount,
			&c.City, &c.State, &customJSON, &sourcesJSON, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		c.WorkspaceID = workspaceID.String
		if err := unmarshalEntityJSON(nullBytes(customJSON), nullBytes(sourcesJSON), &c.CustomFields, &c.Sources); err != nil {
			return nil, eris.Wrapf(err, "sqlite: company %s", c.ID)
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

func (s *SQLiteStore) UpdateCompany(ctx context.Context, c model.Company) error {
	customJSON, sourcesJSON, err := marshalEntityJSON(c.CustomFields, c.Sources)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal company")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET name = ?, domain = ?, industry = ?, employee_count = ?,
		 city = ?, state = ?, custom_fields = ?, sources = ?, updated_at = ?, deleted_at = ?
		 WHERE id = ?`,
		c.Name, c.Domain, c.Industry, c.EmployeeCount, c.City, c.State,
		nullText(customJSON), nullText(sourcesJSON), time.Now().UTC(), c.DeletedAt, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company %s", c.ID)
	}
	return checkRowsAffected(res, "company", c.ID)
}

func (s *SQLiteStore) DeleteCompanies(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM companies WHERE id IN (%s)`, placeholders(len(ids)))
	_, err := s.db.ExecContext(ctx, query, toAnySlice(ids)...)
	return eris.Wrap(err, "sqlite: delete companies")
}

func (s *SQLiteStore) RepointCompanyRefs(ctx context.Context, survivorID string, duplicateIDs []string) (int64, error) {
	return s.repointRefs(ctx, companyRefTables, survivorID, duplicateIDs)
}

func (s *SQLiteStore) UnlinkCompanyRefs(ctx context.Context, ids []string) (int64, error) {
	return s.unlinkRefs(ctx, companyRefTables, ids)
}

func (s *SQLiteStore) repointRefs(ctx context.Context, refs [][2]string, survivorID string, duplicateIDs []string) (int64, error) {
	if len(duplicateIDs) == 0 {
		return 0, nil
	}
	var total int64
	args := append([]any{survivorID}, toAnySlice(duplicateIDs)...)
	for _, ref := range refs {
		query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s IN (%s)`,
			ref[0], ref[1], ref[1], placeholders(len(duplicateIDs)))
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: repoint %s.%s", ref[0], ref[1])
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (s *SQLiteStore) unlinkRefs(ctx context.Context, refs [][2]string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var total int64
	for _, ref := range refs {
		query := fmt.Sprintf(`UPDATE %s SET %s = NULL WHERE %s IN (%s)`,
			ref[0], ref[1], ref[1], placeholders(len(ids)))
		res, err := s.db.ExecContext(ctx, query, toAnySlice(ids)...)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: unlink %s.%s", ref[0], ref[1])
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// Pipeline records and engagement

func (s *SQLiteStore) ListPipelineRecords(ctx context.Context, workspaceID string, stage model.Stage) ([]model.PipelineRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, stage, person_id, company_id, status, owner_id,
		 created_at, updated_at, deleted_at
		 FROM pipeline_records
		 WHERE workspace_id = ? AND stage = ? AND deleted_at IS NULL ORDER BY id`,
		workspaceID, string(stage),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pipeline records")
	}
	defer rows.Close()

	var records []model.PipelineRecord
	for rows.Next() {
		var r model.PipelineRecord
		var stage string
		var workspaceID, personID, companyID sql.NullString
		if err := rows.Scan(&r.ID, &workspaceID, &stage, &personID, &companyID,
			&r.Status, &r.OwnerID, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pipeline record")
		}
		r.Stage = model.Stage(stage)
		r.WorkspaceID = workspaceID.String
		r.PersonID = personID.String
		r.CompanyID = companyID.String
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list pipeline records iterate")
}

func (s *SQLiteStore) UpdateRecordStage(ctx context.Context, recordID string, stage model.Stage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_records SET stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now().UTC(), recordID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update record stage %s", recordID)
	}
	return checkRowsAffected(res, "pipeline record", recordID)
}

func (s *SQLiteStore) ListActions(ctx context.Context, workspaceID string) ([]model.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, type, subject, person_id, company_id, record_id, occurred_at
		 FROM actions WHERE workspace_id = ? ORDER BY occurred_at, id`,
		workspaceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list actions")
	}
	defer rows.Close()

	var actions []model.Action
	for rows.Next() {
		var a model.Action
		var actionType string
		var workspaceID, personID, companyID, recordID sql.NullString
		if err := rows.Scan(&a.ID, &workspaceID, &actionType, &a.Subject,
			&personID, &companyID, &recordID, &a.OccurredAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan action")
		}
		a.Type = model.ActionType(actionType)
		a.WorkspaceID = workspaceID.String
		a.PersonID = personID.String
		a.CompanyID = companyID.String
		a.RecordID = recordID.String
		actions = append(actions, a)
	}
	return actions, eris.Wrap(rows.Err(), "sqlite: list actions iterate")
}

// Run log

func (s *SQLiteStore) StartPassRun(ctx context.Context, pass, workspaceID string) (*model.PassRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pass_runs (id, pass, workspace_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, pass, workspaceID, string(model.PassStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: start pass run %s", pass)
	}

	return &model.PassRun{
		ID:          id,
		Pass:        pass,
		WorkspaceID: workspaceID,
		Status:      model.PassStatusRunning,
		StartedAt:   now,
	}, nil
}

func (s *SQLiteStore) CompletePassRun(ctx context.Context, runID string, result *model.PassResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal pass result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pass_runs SET status = ?, result = ?, completed_at = ? WHERE id = ?`,
		string(model.PassStatusComplete), string(resultJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete pass run %s", runID)
	}
	return checkRowsAffected(res, "pass run", runID)
}

func (s *SQLiteStore) FailPassRun(ctx context.Context, runID, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pass_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(model.PassStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail pass run %s", runID)
	}
	return checkRowsAffected(res, "pass run", runID)
}

func (s *SQLiteStore) LastSuccess(ctx context.Context, pass, workspaceID string) (*time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at FROM pass_runs
		 WHERE pass = ? AND workspace_id = ? AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		pass, workspaceID,
	).Scan(&t)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: last success for %s", pass)
	}
	return &t, nil
}

func (s *SQLiteStore) GetPassRun(ctx context.Context, runID string) (*model.PassRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, pass, workspace_id, status, result, error, started_at, completed_at
		 FROM pass_runs WHERE id = ?`, runID)

	var r model.PassRun
	var status string
	var resultJSON, errStr sql.NullString
	if err := row.Scan(&r.ID, &r.Pass, &r.WorkspaceID, &status,
		&resultJSON, &errStr, &r.StartedAt, &r.CompletedAt); err != nil {
		return nil, eris.Wrapf(err, "sqlite: get pass run %s", runID)
	}
	r.Status = model.PassStatus(status)
	r.Error = errStr.String
	if resultJSON.Valid {
		r.Result = &model.PassResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal pass result")
		}
	}
	return &r, nil
}

func (s *SQLiteStore) ListPassRuns(ctx context.Context, filter RunFilter) ([]model.PassRun, error) {
	query := `SELECT id, pass, workspace_id, status, result, error, started_at, completed_at
	          FROM pass_runs WHERE 1=1`
	var args []any

	if filter.Pass != "" {
		query += ` AND pass = ?`
		args = append(args, filter.Pass)
	}
	if filter.WorkspaceID != "" {
		query += ` AND workspace_id = ?`
		args = append(args, filter.WorkspaceID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pass runs")
	}
	defer rows.Close()

	var runs []model.PassRun
	for rows.Next() {
		var r model.PassRun
		var status string
		var resultJSON, errStr sql.NullString
		if err := rows.Scan(&r.ID, &r.Pass, &r.WorkspaceID, &status,
			&resultJSON, &errStr, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pass run")
		}
		r.Status = model.PassStatus(status)
		r.Error = errStr.String
		if resultJSON.Valid {
			r.Result = &model.PassResult{}
			if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal pass result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list pass runs iterate")
}

// Retry queue

func (s *SQLiteStore) EnqueueRetry(ctx context.Context, entry resilience.RetryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO retry_queue
		 (id, entity_kind, entity_id, workspace_id, pass, error, error_type,
		  retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   error = excluded.error, error_type = excluded.error_type,
		   retry_count = excluded.retry_count, next_retry_at = excluded.next_retry_at,
		   last_failed_at = excluded.last_failed_at`,
		entry.ID, entry.EntityKind, entry.EntityID, entry.WorkspaceID, entry.Pass,
		entry.Error, entry.ErrorType, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "sqlite: enqueue retry")
}

func (s *SQLiteStore) DequeueRetries(ctx context.Context, filter resilience.RetryFilter) ([]resilience.RetryEntry, error) {
	query := `SELECT id, entity_kind, entity_id, workspace_id, pass, error, error_type,
	          retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM retry_queue
	          WHERE next_retry_at <= ? AND retry_count < max_retries`
	args := []any{time.Now().UTC()}

	if filter.Pass != "" {
		query += ` AND pass = ?`
		args = append(args, filter.Pass)
	}
	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}

	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dequeue retries")
	}
	defer rows.Close()

	var entries []resilience.RetryEntry
	for rows.Next() {
		var e resilience.RetryEntry
		if err := rows.Scan(&e.ID, &e.EntityKind, &e.EntityID, &e.WorkspaceID, &e.Pass,
			&e.Error, &e.ErrorType, &e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan retry entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: dequeue retries iterate")
}

func (s *SQLiteStore) RemoveRetry(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM retry_queue WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove retry")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func nullText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}
