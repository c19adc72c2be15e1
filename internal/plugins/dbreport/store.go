package dbreport

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"nosey/internal/domain"
)

// execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	insertRunQuery = "INSERT INTO nosey_runs (id, working_dir, names, tests_run, passed, failures, errors, skipped, duration_seconds, successful) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	insertFailureQuery = "INSERT INTO nosey_failures (run_id, test_name, address, file_path, outcome, error_type, message, file, line) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
)

// insertRun writes the run row and one row per failure.
func insertRun(ctx context.Context, ex execer, out *domain.TestResultsOutput) error {
	m := out.Meta
	_, err := ex.ExecContext(ctx, insertRunQuery,
		m.RunID, m.WorkingDir, strings.Join(m.Names, " "),
		m.TestsRun, m.Passed, m.Failures, m.Errors, m.Skipped,
		m.DurationSeconds, m.Successful())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", m.RunID, err)
	}
	for _, f := range out.Details {
		_, err := ex.ExecContext(ctx, insertFailureQuery,
			m.RunID, f.TestName, f.Address, f.FilePath, f.Outcome, f.ErrorType, f.Message, f.File, f.Line)
		if err != nil {
			return fmt.Errorf("failed to insert failure %s: %w", f.TestName, err)
		}
	}
	return nil
}

// Store writes runs to the report database.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save writes a run and its failures in one transaction.
func (s *Store) Save(ctx context.Context, out *domain.TestResultsOutput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := insertRun(ctx, tx, out); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error { return s.db.Close() }
