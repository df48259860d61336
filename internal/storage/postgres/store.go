// Package postgres provides Postgres-backed persistence for postings and
// run history.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobradar/jobradar/internal/job"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrRunNotFound is returned by GetRun for unknown run IDs.
var ErrRunNotFound = job.ErrRunNotFound

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	PostingsTable   string
	RunsTable       string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements job.Store over a pgx connection pool. It also satisfies
// the progress store sink's RunRepository so in-flight runs appear in the
// history table.
type Store struct {
	pool          pgxPool
	postingsTable string
	runsTable     string
}

// New connects a pool from the config and returns a ready Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newStore(pool, cfg.PostingsTable, cfg.RunsTable)
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(pool pgxPool, postingsTable, runsTable string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newStore(pool, postingsTable, runsTable)
}

func newStore(pool pgxPool, postingsTable, runsTable string) (*Store, error) {
	if postingsTable == "" {
		postingsTable = "jobs"
	}
	if runsTable == "" {
		runsTable = "pipeline_runs"
	}
	for _, table := range []string{postingsTable, runsTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &Store{pool: pool, postingsTable: postingsTable, runsTable: runsTable}, nil
}

// Migrate creates the tables when absent.
func (s *Store) Migrate(ctx context.Context) error {
	postings := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	company TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	salary TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL DEFAULT '',
	score DOUBLE PRECISION NOT NULL DEFAULT 0,
	collected_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.postingsTable)
	runs := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	total_records INTEGER NOT NULL DEFAULT 0,
	unique_records INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	profile JSONB
)`, s.runsTable)

	for _, query := range []string{postings, runs} {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SavePostings inserts the batch, silently skipping rows whose URL already
// exists. The returned count is the number of rows actually written.
func (s *Store) SavePostings(ctx context.Context, postings []job.Posting) (int, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (title, company, location, salary, description, url, source, score, collected_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (url) DO NOTHING`, s.postingsTable)

	inserted := 0
	for _, p := range postings {
		collectedAt, err := time.Parse(time.RFC3339, p.CollectedAt)
		if err != nil {
			collectedAt = time.Now().UTC()
		}
		tag, err := s.pool.Exec(ctx, query,
			p.Title, p.Company, p.Location, p.Salary, p.Description,
			p.URL, p.Source, p.Score, collectedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert posting %q: %w", p.URL, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// SaveRun upserts one run summary.
func (s *Store) SaveRun(ctx context.Context, run job.Run) error {
	profileJSON, err := json.Marshal(run.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, started_at, finished_at, total_records, unique_records, status, error, profile)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	finished_at = EXCLUDED.finished_at,
	total_records = EXCLUDED.total_records,
	unique_records = EXCLUDED.unique_records,
	status = EXCLUDED.status,
	error = EXCLUDED.error,
	profile = EXCLUDED.profile`, s.runsTable)

	if _, err := s.pool.Exec(ctx, query,
		run.ID, run.StartedAt, run.FinishedAt,
		run.TotalRecords, run.UniqueRecords,
		string(run.Status), run.Error, profileJSON,
	); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// UpsertRunStart records a run entering the running state.
func (s *Store) UpsertRunStart(ctx context.Context, runID string, startedAt time.Time) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, started_at, status)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET started_at = EXCLUDED.started_at, status = EXCLUDED.status`, s.runsTable)

	if _, err := s.pool.Exec(ctx, query, runID, startedAt, string(job.RunStatusRunning)); err != nil {
		return fmt.Errorf("upsert run start %s: %w", runID, err)
	}
	return nil
}

// CompleteRun records a run's terminal transition.
func (s *Store) CompleteRun(ctx context.Context, runID string, finishedAt time.Time, status job.RunStatus, note *string) error {
	reason := ""
	if note != nil {
		reason = *note
	}
	query := fmt.Sprintf(`
UPDATE %s SET finished_at = $2, status = $3, error = $4 WHERE id = $1`, s.runsTable)

	if _, err := s.pool.Exec(ctx, query, runID, finishedAt, string(status), reason); err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	return nil
}

// ListPostings returns stored postings at or above minScore, best first.
func (s *Store) ListPostings(ctx context.Context, minScore float64, limit, offset int) ([]job.Posting, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`
SELECT title, company, location, salary, description, url, source, score, collected_at
FROM %s
WHERE score >= $1
ORDER BY score DESC, collected_at DESC
LIMIT $2 OFFSET $3`, s.postingsTable)

	rows, err := s.pool.Query(ctx, query, minScore, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	var postings []job.Posting
	for rows.Next() {
		var (
			p           job.Posting
			collectedAt time.Time
		)
		if err := rows.Scan(&p.Title, &p.Company, &p.Location, &p.Salary, &p.Description,
			&p.URL, &p.Source, &p.Score, &collectedAt); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		p.CollectedAt = collectedAt.UTC().Format(time.RFC3339)
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list postings rows: %w", err)
	}
	return postings, nil
}

// ListRuns returns recent run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]job.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
SELECT id, started_at, finished_at, total_records, unique_records, status, error, profile
FROM %s
ORDER BY started_at DESC
LIMIT $1`, s.runsTable)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []job.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}

// GetRun loads one run summary.
func (s *Store) GetRun(ctx context.Context, runID string) (job.Run, error) {
	query := fmt.Sprintf(`
SELECT id, started_at, finished_at, total_records, unique_records, status, error, profile
FROM %s
WHERE id = $1`, s.runsTable)

	run, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return job.Run{}, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	return run, err
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (job.Run, error) {
	var (
		run         job.Run
		status      string
		profileJSON []byte
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt,
		&run.TotalRecords, &run.UniqueRecords, &status, &run.Error, &profileJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Run{}, err
		}
		return job.Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = job.RunStatus(status)
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &run.Profile); err != nil {
			return job.Run{}, fmt.Errorf("unmarshal run profile: %w", err)
		}
	}
	return run, nil
}
