package dbreport

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"nosey/internal/domain"
)

const (
	runsTable     = "nosey_runs"
	failuresTable = "nosey_failures"
)

// tables are created in order; failures reference runs.
var tables = []struct {
	name string
	ddl  string
}{
	{runsTable, `CREATE TABLE IF NOT EXISTS nosey_runs (
	id CHAR(36) NOT NULL PRIMARY KEY,
	working_dir VARCHAR(1024) NOT NULL,
	names TEXT,
	tests_run INT NOT NULL,
	passed INT NOT NULL,
	failures INT NOT NULL,
	errors INT NOT NULL,
	skipped INT NOT NULL,
	duration_seconds DOUBLE NOT NULL,
	successful BOOLEAN NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`},
	{failuresTable, `CREATE TABLE IF NOT EXISTS nosey_failures (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	run_id CHAR(36) NOT NULL,
	test_name VARCHAR(1024) NOT NULL,
	address VARCHAR(2048),
	file_path VARCHAR(1024),
	outcome VARCHAR(16) NOT NULL,
	error_type VARCHAR(255),
	message TEXT,
	file VARCHAR(1024),
	line INT,
	INDEX idx_run_id (run_id),
	CONSTRAINT fk_failures_run FOREIGN KEY (run_id) REFERENCES nosey_runs (id) ON DELETE CASCADE
)`},
}

// InitSchema creates the report database and its tables where missing.
// One result is returned per database and table.
func InitSchema(ctx context.Context, s Settings) ([]domain.SchemaResult, error) {
	if !isValidDatabaseName(s.Database) {
		return nil, fmt.Errorf("invalid database name: %s", s.Database)
	}
	db, err := Open(ctx, s, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var results []domain.SchemaResult
	exists, err := databaseExists(ctx, db, s.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to check database %s: %w", s.Database, err)
	}
	if !exists {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", s.Database)); err != nil {
			return nil, fmt.Errorf("failed to create database %s: %w", s.Database, err)
		}
	}
	results = append(results, domain.SchemaResult{Table: s.Database, Created: !exists})

	conn, err := db.Conn(ctx)
	if err != nil {
		return results, err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("USE `%s`", s.Database)); err != nil {
		return results, fmt.Errorf("failed to select database %s: %w", s.Database, err)
	}

	for _, t := range tables {
		r := domain.SchemaResult{Table: t.name}
		exists, err := tableExists(ctx, conn, s.Database, t.name)
		switch {
		case err != nil:
			r.Error = err
		case !exists:
			if _, err := conn.ExecContext(ctx, t.ddl); err != nil {
				r.Error = err
			} else {
				r.Created = true
			}
		}
		results = append(results, r)
	}
	return results, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// databaseExists checks if a database exists
func databaseExists(ctx context.Context, db queryer, name string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	err := db.QueryRowContext(ctx, query, name).Scan(&exists)
	return exists, err
}

// tableExists checks if a table exists in a database
func tableExists(ctx context.Context, db queryer, database, table string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?)"
	err := db.QueryRowContext(ctx, query, database, table).Scan(&exists)
	return exists, err
}

// isValidDatabaseName validates database name (basic check)
func isValidDatabaseName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	// Check for SQL injection patterns
	invalidChars := []string{"'", "\"", "`", ";", "--", "/*", "*/", " ", "DROP", "DELETE", "TRUNCATE"}
	upperName := strings.ToUpper(name)
	for _, char := range invalidChars {
		if strings.Contains(upperName, char) {
			return false
		}
	}
	return true
}
