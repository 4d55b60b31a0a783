package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/averho/stepflow/pkg/workflow"
)

// PostgresRunStore is a RunStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresRunStore struct {
	db *sql.DB
}

// Ensure PostgresRunStore implements RunStore.
var _ workflow.RunStore = (*PostgresRunStore)(nil)

// NewPostgresRunStore initializes the required schema in the given
// database and returns a new PostgresRunStore.
func NewPostgresRunStore(db *sql.DB) (*PostgresRunStore, error) {
	s := &PostgresRunStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresRunStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			payload BYTEA NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_workflow ON runs (workflow_name, created_at);
	`)
	return err
}

func (s *PostgresRunStore) SaveRun(ctx context.Context, run *workflow.RunResponse) error {
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, workflow_name, session_id, status, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			workflow_name = EXCLUDED.workflow_name,
			session_id = EXCLUDED.session_id,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			payload = EXCLUDED.payload`,
		run.RunID,
		run.WorkflowName,
		run.SessionID,
		string(run.Status),
		run.CreatedAt,
		payload,
	)
	return err
}

func (s *PostgresRunStore) GetRun(ctx context.Context, runID string) (*workflow.RunResponse, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM runs WHERE run_id = $1`, runID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workflow.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeRun(payload)
}

func (s *PostgresRunStore) ListRuns(ctx context.Context, filter workflow.RunFilter) ([]*workflow.RunResponse, error) {
	query, args := buildListQuery(filter, "$")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}
