package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS generation_runs (
	id UUID PRIMARY KEY,
	session_id UUID NOT NULL,
	test_case_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	framework TEXT NOT NULL,
	pattern TEXT NOT NULL,
	language TEXT NOT NULL,
	request JSONB NOT NULL,
	files JSONB NOT NULL DEFAULT '[]',
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_generation_runs_session_id ON generation_runs(session_id);
CREATE INDEX IF NOT EXISTS idx_generation_runs_created_at ON generation_runs(created_at DESC);
`

const runColumns = `id, session_id, request, files, status, error, model, duration_ms, created_at`

// Store persists generation runs
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new store
func NewStore(db *DB) *Store {
	return &Store{pool: db.Pool()}
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the run history table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// RecordRun inserts a finished run. Missing ids and timestamps are filled
// in; recording the same run twice is a no-op.
func (s *Store) RecordRun(ctx context.Context, run *model.GenerationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}
	sessionID, err := uuid.Parse(run.SessionID)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	request, err := json.Marshal(run.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	files := run.Files
	if files == nil {
		files = []model.GeneratedFile{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("failed to marshal files: %w", err)
	}

	tc := run.Request.TestCase
	_, err = s.pool.Exec(ctx, `
		INSERT INTO generation_runs (id, session_id, test_case_id, title, framework, pattern, language,
		                             request, files, status, error, model, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`, id, sessionID, tc.ID, tc.Title, string(run.Request.Framework), string(run.Request.Pattern),
		string(run.Request.Language), request, filesJSON, string(run.Status), run.Error, run.Model,
		run.Duration.Milliseconds(), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// GetRun returns a run by id, or nil when it does not exist. Ids that are
// not UUIDs cannot exist.
func (s *Store) GetRun(ctx context.Context, id string) (*model.GenerationRun, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM generation_runs WHERE id = $1`, runID)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.GenerationRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM generation_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

// ListSessionRuns returns the runs of one session, most recent first.
func (s *Store) ListSessionRuns(ctx context.Context, sessionID string, limit int) ([]model.GenerationRun, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return []model.GenerationRun{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM generation_runs
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list session runs: %w", err)
	}
	defer rows.Close()

	return collectRuns(rows)
}

func collectRuns(rows pgx.Rows) ([]model.GenerationRun, error) {
	runs := make([]model.GenerationRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*model.GenerationRun, error) {
	var (
		id, sessionID  uuid.UUID
		request, files []byte
		status         string
		durationMS     int64
		run            model.GenerationRun
	)
	if err := row.Scan(&id, &sessionID, &request, &files, &status, &run.Error, &run.Model,
		&durationMS, &run.CreatedAt); err != nil {
		return nil, err
	}

	run.ID = id.String()
	run.SessionID = sessionID.String()
	run.Status = model.RunStatus(status)
	run.Duration = time.Duration(durationMS) * time.Millisecond

	if err := json.Unmarshal(request, &run.Request); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := json.Unmarshal(files, &run.Files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	return &run, nil
}
