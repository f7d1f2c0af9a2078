package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/adrata/dataops-cli/internal/db"
	"github.com/adrata/dataops-cli/internal/model"
	"github.com/adrata/dataops-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection. These
// run once per record inside pass loops, so they dominate store traffic.
var preparedStatements = map[string]string{
	"update_record_stage":   `UPDATE pipeline_records SET stage = $1, updated_at = $2 WHERE id = $3`,
	"repoint_action_record": `UPDATE actions SET record_id = $1 WHERE id = $2`,
	"start_pass_run":        `INSERT INTO pass_runs (id, pass, workspace_id, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_pass_run":     `UPDATE pass_runs SET status = $1, result = $2, completed_at = $3 WHERE id = $4`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (workspace consolidation, id migration).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS workspaces (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS people (
	id             TEXT PRIMARY KEY,
	workspace_id   TEXT REFERENCES workspaces(id) DEFERRABLE INITIALLY IMMEDIATE,
	name           TEXT NOT NULL DEFAULT '',
	work_email     TEXT NOT NULL DEFAULT '',
	personal_email TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	department     TEXT NOT NULL DEFAULT '',
	profile_url    TEXT NOT NULL DEFAULT '',
	custom_fields  JSONB,
	sources        JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS companies (
	id             TEXT PRIMARY KEY,
	workspace_id   TEXT REFERENCES workspaces(id) DEFERRABLE INITIALLY IMMEDIATE,
	name           TEXT NOT NULL DEFAULT '',
	domain         TEXT NOT NULL DEFAULT '',
	industry       TEXT NOT NULL DEFAULT '',
	employee_count INTEGER NOT NULL DEFAULT 0,
	city           TEXT NOT NULL DEFAULT '',
	state          TEXT NOT NULL DEFAULT '',
	custom_fields  JSONB,
	sources        JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at     TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS pipeline_records (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT REFERENCES workspaces(id) DEFERRABLE INITIALLY IMMEDIATE,
	stage        TEXT NOT NULL,
	person_id    TEXT REFERENCES people(id) DEFERRABLE INITIALLY IMMEDIATE,
	company_id   TEXT REFERENCES companies(id) DEFERRABLE INITIALLY IMMEDIATE,
	status       TEXT NOT NULL DEFAULT '',
	owner_id     TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS actions (
	id           TEXT PRIMARY KEY,
	workspace_id TEXT REFERENCES workspaces(id) DEFERRABLE INITIALLY IMMEDIATE,
	type         TEXT NOT NULL,
	subject      TEXT NOT NULL DEFAULT '',
	person_id    TEXT REFERENCES people(id) DEFERRABLE INITIALLY IMMEDIATE,
	company_id   TEXT REFERENCES companies(id) DEFERRABLE INITIALLY IMMEDIATE,
	record_id    TEXT REFERENCES pipeline_records(id) DEFERRABLE INITIALLY IMMEDIATE,
	occurred_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pass_runs (
	id           TEXT PRIMARY KEY,
	pass         TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	result       JSONB,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
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
	next_retry_at  TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_people_workspace ON people(workspace_id);
CREATE INDEX IF NOT EXISTS idx_people_work_email ON people(lower(work_email));
CREATE INDEX IF NOT EXISTS idx_companies_workspace ON companies(workspace_id);
CREATE INDEX IF NOT EXISTS idx_companies_domain ON companies(lower(domain));
CREATE INDEX IF NOT EXISTS idx_records_workspace_stage ON pipeline_records(workspace_id, stage);
CREATE INDEX IF NOT EXISTS idx_records_person ON pipeline_records(person_id);
CREATE INDEX IF NOT EXISTS idx_records_company ON pipeline_records(company_id);
CREATE INDEX IF NOT EXISTS idx_actions_workspace ON actions(workspace_id);
CREATE INDEX IF NOT EXISTS idx_actions_person ON actions(person_id);
CREATE INDEX IF NOT EXISTS idx_actions_record ON actions(record_id);
CREATE INDEX IF NOT EXISTS idx_pass_runs_pass ON pass_runs(pass, workspace_id);
CREATE INDEX IF NOT EXISTS idx_retry_queue_next ON retry_queue(next_retry_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// People

const selectPeople = `SELECT id, workspace_id, name, work_email, personal_email, phone, title,
	department, profile_url, custom_fields, sources, created_at, updated_at, deleted_at
	FROM people WHERE workspace_id = $1 AND deleted_at IS NULL ORDER BY created_at, id`

func (s *PostgresStore) ListPeople(ctx context.Context, workspaceID string) ([]model.Person, error) {
	rows, err := s.pool.Query(ctx, selectPeople, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list people")
	}
	defer rows.Close()

	var people []model.Person
	for rows.Next() {
		var p model.Person
		var workspaceID *string
		var customJSON, sourcesJSON []byte
		if err := rows.Scan(&p.ID, &workspaceID, &p.Name, &p.WorkEmail, &p.PersonalEmail,
			&p.Phone, &p.Title, &p.Department, &p.ProfileURL,
			&customJSON, &sourcesJSON, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan person")
		}
		if workspaceID != nil {
			p.WorkspaceID = *workspaceID
		}
		if err := unmarshalEntityJSON(customJSON, sourcesJSON, &p.CustomFields, &p.Sources); err != nil {
			return nil, eris.Wrapf(err, "postgres: person %s", p.ID)
		}
		people = append(people, p)
	}
	return people, eris.Wrap(rows.Err(), "postgres: list people iterate")
}

func (s *PostgresStore) UpdatePerson(ctx context.Context, p model.Person) error {
	customJSON, sourcesJSON, err := marshalEntityJSON(p.CustomFields, p.Sources)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal person")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE people SET name = $1, work_email = $2, personal_email = $3, phone = $4,
		 title = $5, department = $6, profile_url = $7, custom_fields = $8, sources = $9,
		 updated_at = $10, deleted_at = $11 WHERE id = $12`,
		p.Name, p.WorkEmail, p.PersonalEmail, p.Phone, p.Title, p.Department, p.ProfileURL,
		customJSON, sourcesJSON, time.Now().UTC(), p.DeletedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update person %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("person not found: %s", p.ID)
	}
	return nil
}

func (s *PostgresStore) DeletePeople(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM people WHERE id = ANY($1)`, ids)
	return eris.Wrap(err, "postgres: delete people")
}

// personRefTables lists every foreign key that can point at a person row.
var personRefTables = [][2]string{
	{"pipeline_records", "person_id"},
	{"actions", "person_id"},
}

func (s *PostgresStore) RepointPersonRefs(ctx context.Context, survivorID string, duplicateIDs []string) (int64, error) {
	var total int64
	for _, ref := range personRefTables {
		n, err := db.RepointFK(ctx, s.pool, ref[0], ref[1], survivorID, duplicateIDs)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *PostgresStore) UnlinkPersonRefs(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for _, ref := range personRefTables {
		n, err := db.UnlinkFK(ctx, s.pool, ref[0], ref[1], ids)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Companies

const selectCompanies = `SELECT id, workspace_id, name, domain, industry, employee_count, city, state,
	custom_fields, sources, created_at, updated_at, deleted_at
	FROM companies WHERE workspace_id = $1 AND deleted_at IS NULL ORDER BY created_at, id`

func (s *PostgresStore) ListCompanies(ctx context.Context, workspaceID string) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx, selectCompanies, workspaceID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		var workspaceID *string
		var customJSON, sourcesJSON []byte
		if err := rows.Scan(&c.ID, &workspaceID, &c.Name, &c.Domain, &c.Industry, &c.EmployeeCount,
			&c.City, &c.State, &customJSON, &sourcesJSON, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		if workspaceID != nil {
			c.WorkspaceID = *workspaceID
		}
		if err := unmarshalEntityJSON(customJSON, sourcesJSON, &c.CustomFields, &c.Sources); err != nil {
			return nil, eris.Wrapf(err, "postgres: company %s", c.ID)
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

func (s *PostgresStore) UpdateCompany(ctx context.Context, c model.Company) error {
	customJSON, sourcesJSON, err := marshalEntityJSON(c.CustomFields, c.Sources)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal company")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET name = $1, domain = $2, industry = $3, employee_count = $4,
		 city = $5, state = $6, custom_fields = $7, sources = $8, updated_at = $9, deleted_at = $10
		 WHERE id = $11`,
		c.Name, c.Domain, c.Industry, c.EmployeeCount, c.City, c.State,
		customJSON, sourcesJSON, time.Now().UTC(), c.DeletedAt, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company %s", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("company not found: %s", c.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteCompanies(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM companies WHERE id = ANY($1)`, ids)
	return eris.Wrap(err, "postgres: delete companies")
}

var companyRefTables = [][2]string{
	{"pipeline_records", "company_id"},
	{"actions", "company_id"},
}

func (s *PostgresStore) RepointCompanyRefs(ctx context.Context, survivorID string, duplicateIDs []string) (int64, error) {
	var total int64
	for _, ref := range companyRefTables {
		n, err := db.RepointFK(ctx, s.pool, ref[0], ref[1], survivorID, duplicateIDs)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *PostgresStore) UnlinkCompanyRefs(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for _, ref := range companyRefTables {
		n, err := db.UnlinkFK(ctx, s.pool, ref[0], ref[1], ids)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Pipeline records and engagement

func (s *PostgresStore) ListPipelineRecords(ctx context.Context, workspaceID string, stage model.Stage) ([]model.PipelineRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, workspace_id, stage, person_id, company_id, status, owner_id,
		 created_at, updated_at, deleted_at
		 FROM pipeline_records
		 WHERE workspace_id = $1 AND stage = $2 AND deleted_at IS NULL ORDER BY id`,
		workspaceID, string(stage),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pipeline records")
	}
	defer rows.Close()

	var records []model.PipelineRecord
	for rows.Next() {
		var r model.PipelineRecord
		var workspaceID, personID, companyID *string
		if err := rows.Scan(&r.ID, &workspaceID, &r.Stage, &personID, &companyID,
			&r.Status, &r.OwnerID, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pipeline record")
		}
		if workspaceID != nil {
			r.WorkspaceID = *workspaceID
		}
		if personID != nil {
			r.PersonID = *personID
		}
		if companyID != nil {
			r.CompanyID = *companyID
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list pipeline records iterate")
}

func (s *PostgresStore) UpdateRecordStage(ctx context.Context, recordID string, stage model.Stage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_records SET stage = $1, updated_at = $2 WHERE id = $3`,
		string(stage), time.Now().UTC(), recordID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update record stage %s", recordID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("pipeline record not found: %s", recordID)
	}
	return nil
}

func (s *PostgresStore) ListActions(ctx context.Context, workspaceID string) ([]model.Action, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, workspace_id, type, subject, person_id, company_id, record_id, occurred_at
		 FROM actions WHERE workspace_id = $1 ORDER BY occurred_at, id`,
		workspaceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list actions")
	}
	defer rows.Close()

	var actions []model.Action
	for rows.Next() {
		var a model.Action
		var workspaceID, personID, companyID, recordID *string
		if err := rows.Scan(&a.ID, &workspaceID, &a.Type, &a.Subject,
			&personID, &companyID, &recordID, &a.OccurredAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan action")
		}
		if workspaceID != nil {
			a.WorkspaceID = *workspaceID
		}
		if personID != nil {
			a.PersonID = *personID
		}
		if companyID != nil {
			a.CompanyID = *companyID
		}
		if recordID != nil {
			a.RecordID = *recordID
		}
		actions = append(actions, a)
	}
	return actions, eris.Wrap(rows.Err(), "postgres: list actions iterate")
}

// Run log

func (s *PostgresStore) StartPassRun(ctx context.Context, pass, workspaceID string) (*model.PassRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO pass_runs (id, pass, workspace_id, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, pass, workspaceID, string(model.PassStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: start pass run %s", pass)
	}

	return &model.PassRun{
		ID:          id,
		Pass:        pass,
		WorkspaceID: workspaceID,
		Status:      model.PassStatusRunning,
		StartedAt:   now,
	}, nil
}

func (s *PostgresStore) CompletePassRun(ctx context.Context, runID string, result *model.PassResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal pass result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE pass_runs SET status = $1, result = $2, completed_at = $3 WHERE id = $4`,
		string(model.PassStatusComplete), resultJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete pass run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("pass run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailPassRun(ctx context.Context, runID, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pass_runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(model.PassStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail pass run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("pass run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) LastSuccess(ctx context.Context, pass, workspaceID string) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM pass_runs
		 WHERE pass = $1 AND workspace_id = $2 AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		pass, workspaceID,
	).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: last success for %s", pass)
	}
	return &t, nil
}

func (s *PostgresStore) GetPassRun(ctx context.Context, runID string) (*model.PassRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, pass, workspace_id, status, result, error, started_at, completed_at
		 FROM pass_runs WHERE id = $1`, runID)

	var r model.PassRun
	var resultJSON []byte
	var errStr *string
	if err := row.Scan(&r.ID, &r.Pass, &r.WorkspaceID, &r.Status,
		&resultJSON, &errStr, &r.StartedAt, &r.CompletedAt); err != nil {
		return nil, eris.Wrapf(err, "postgres: get pass run %s", runID)
	}
	if errStr != nil {
		r.Error = *errStr
	}
	if resultJSON != nil {
		r.Result = &model.PassResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal pass result")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListPassRuns(ctx context.Context, filter RunFilter) ([]model.PassRun, error) {
	query := `SELECT id, pass, workspace_id, status, result, error, started_at, completed_at
	          FROM pass_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Pass != "" {
		query += fmt.Sprintf(` AND pass = $%d`, argIdx)
		args = append(args, filter.Pass)
		argIdx++
	}
	if filter.WorkspaceID != "" {
		query += fmt.Sprintf(` AND workspace_id = $%d`, argIdx)
		args = append(args, filter.WorkspaceID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pass runs")
	}
	defer rows.Close()

	var runs []model.PassRun
	for rows.Next() {
		var r model.PassRun
		var resultJSON []byte
		var errStr *string
		if err := rows.Scan(&r.ID, &r.Pass, &r.WorkspaceID, &r.Status,
			&resultJSON, &errStr, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pass run")
		}
		if errStr != nil {
			r.Error = *errStr
		}
		if resultJSON != nil {
			r.Result = &model.PassResult{}
			if err := json.Unmarshal(resultJSON, r.Result); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal pass result")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list pass runs iterate")
}

// Retry queue

func (s *PostgresStore) EnqueueRetry(ctx context.Context, entry resilience.RetryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO retry_queue
		 (id, entity_kind, entity_id, workspace_id, pass, error, error_type,
		  retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   error = $6, error_type = $7, retry_count = $8, next_retry_at = $10, last_failed_at = $12`,
		entry.ID, entry.EntityKind, entry.EntityID, entry.WorkspaceID, entry.Pass,
		entry.Error, entry.ErrorType, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: enqueue retry")
}

func (s *PostgresStore) DequeueRetries(ctx context.Context, filter resilience.RetryFilter) ([]resilience.RetryEntry, error) {
	query := `SELECT id, entity_kind, entity_id, workspace_id, pass, error, error_type,
	          retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM retry_queue
	          WHERE next_retry_at <= now() AND retry_count < max_retries`
	args := []any{}
	argIdx := 1

	if filter.Pass != "" {
		query += fmt.Sprintf(` AND pass = $%d`, argIdx)
		args = append(args, filter.Pass)
		argIdx++
	}
	if filter.ErrorType != "" {
		query += fmt.Sprintf(` AND error_type = $%d`, argIdx)
		args = append(args, filter.ErrorType)
		argIdx++
	}

	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dequeue retries")
	}
	defer rows.Close()

	var entries []resilience.RetryEntry
	for rows.Next() {
		var e resilience.RetryEntry
		if err := rows.Scan(&e.ID, &e.EntityKind, &e.EntityID, &e.WorkspaceID, &e.Pass,
			&e.Error, &e.ErrorType, &e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan retry entry")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: dequeue retries iterate")
}

func (s *PostgresStore) RemoveRetry(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM retry_queue WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: remove retry")
}

// helpers

func marshalEntityJSON(custom map[string]any, sources []model.EnrichmentSource) ([]byte, []byte, error) {
	var customJSON, sourcesJSON []byte
	var err error
	if custom != nil {
		if customJSON, err = json.Marshal(custom); err != nil {
			return nil, nil, eris.Wrap(err, "marshal custom fields")
		}
	}
	if sources != nil {
		if sourcesJSON, err = json.Marshal(sources); err != nil {
			return nil, nil, eris.Wrap(err, "marshal sources")
		}
	}
	return customJSON, sourcesJSON, nil
}

func unmarshalEntityJSON(customJSON, sourcesJSON []byte, custom *map[string]any, sources *[]model.EnrichmentSource) error {
	if customJSON != nil {
		if err := json.Unmarshal(customJSON, custom); err != nil {
			return eris.Wrap(err, "unmarshal custom fields")
		}
	}
	if sourcesJSON != nil {
		if err := json.Unmarshal(sourcesJSON, sources); err != nil {
			return eris.Wrap(err, "unmarshal sources")
		}
	}
	return nil
}
