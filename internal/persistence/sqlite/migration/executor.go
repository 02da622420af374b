package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// SQLiteExecutor implements the Executor interface for SQLite databases
type SQLiteExecutor struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteExecutor creates a new SQLite migration executor
func NewSQLiteExecutor(db *sql.DB, logger *slog.Logger) *SQLiteExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteExecutor{db: db, logger: logger, now: time.Now}
}

// ExecuteMigration runs every statement of migration and the schema_migrations
// insert in one transaction.
func (e *SQLiteExecutor) ExecuteMigration(ctx context.Context, migration Migration) (elapsed time.Duration, err error) {
	start := e.now()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewDatabaseError(migration.Version, "begin transaction", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			e.logger.WarnContext(ctx, "rollback failed", "version", migration.Version, "error", rollbackErr)
		}
	}()

	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return 0, NewMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile))
	}

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return 0, NewDatabaseError(migration.Version, fmt.Sprintf("execute statement %d", i+1), err)
		}
	}

	elapsed = e.now().Sub(start)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		migration.Version, e.now().UTC().Format(time.RFC3339), migration.Checksum, elapsed.Milliseconds())
	if err != nil {
		return 0, NewDatabaseError(migration.Version, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, NewDatabaseError(migration.Version, "commit transaction", err)
	}
	return elapsed, nil
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist
func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms INTEGER NOT NULL DEFAULT 0
		)`

	if _, err := e.db.ExecContext(ctx, createTableSQL); err != nil {
		return NewDatabaseError("", "create schema_migrations table", err)
	}
	return nil
}

// GetAppliedVersions returns all applied migrations ordered by version.
func (e *SQLiteExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT version, applied_at, execution_time_ms, checksum FROM schema_migrations ORDER BY CAST(version AS INTEGER)`)
	if err != nil {
		return nil, NewDatabaseError("", "get applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			m         AppliedMigration
			appliedAt string
			elapsedMs int64
		)
		if err := rows.Scan(&m.Version, &appliedAt, &elapsedMs, &m.Checksum); err != nil {
			return nil, NewDatabaseError("", "scan applied migration", err)
		}
		m.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt)
		m.ExecutionTime = time.Duration(elapsedMs) * time.Millisecond
		applied = append(applied, m)
	}
	if err := rows.Err(); err != nil {
		return nil, NewDatabaseError("", "iterate applied migrations", err)
	}
	return applied, nil
}
