package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/averho/stepflow/pkg/workflow"
)

// SQLiteRunStore is a RunStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteRunStore struct {
	db *sql.DB
}

// Ensure SQLiteRunStore implements RunStore.
var _ workflow.RunStore = (*SQLiteRunStore)(nil)

// NewSQLiteRunStore initializes the required schema in the given
// database and returns a new SQLiteRunStore.
func NewSQLiteRunStore(db *sql.DB) (*SQLiteRunStore, error) {
	s := &SQLiteRunStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRunStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_workflow ON runs (workflow_name, created_at);`,
	)
	return err
}

func (s *SQLiteRunStore) SaveRun(ctx context.Context, run *workflow.RunResponse) error {
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, workflow_name, session_id, status, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			workflow_name = excluded.workflow_name,
			session_id = excluded.session_id,
			status = excluded.status,
			created_at = excluded.created_at,
			payload = excluded.payload`,
		run.RunID,
		run.WorkflowName,
		run.SessionID,
		string(run.Status),
		run.CreatedAt,
		payload,
	)
	return err
}

func (s *SQLiteRunStore) GetRun(ctx context.Context, runID string) (*workflow.RunResponse, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM runs WHERE run_id = ?`, runID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, workflow.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeRun(payload)
}

func (s *SQLiteRunStore) ListRuns(ctx context.Context, filter workflow.RunFilter) ([]*workflow.RunResponse, error) {
	query, args := buildListQuery(filter, "?")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// buildListQuery assembles the filtered list statement with the given
// placeholder style ("?" for SQLite, "$" for PostgreSQL).
func buildListQuery(filter workflow.RunFilter, placeholder string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func() string {
		if placeholder == "?" {
			return "?"
		}
		return "$" + strconv.Itoa(len(args))
	}
	if filter.WorkflowName != "" {
		args = append(args, filter.WorkflowName)
		conds = append(conds, "workflow_name = "+next())
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		conds = append(conds, "session_id = "+next())
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, "status = "+next())
	}

	query := "SELECT payload FROM runs"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT " + next()
	}
	return query, args
}

func scanRuns(rows *sql.Rows) ([]*workflow.RunResponse, error) {
	var out []*workflow.RunResponse
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
