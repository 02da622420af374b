package migration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SQLiteConfig holds SQLite-specific database configuration
type SQLiteConfig struct {
	// DSN is the database file path or MemoryDSN.
	DSN string

	// BusyTimeout sets how long to wait for database locks
	BusyTimeout time.Duration

	// JournalMode sets the SQLite journal mode (WAL, DELETE, MEMORY, ...)
	JournalMode string

	// Synchronous sets the synchronous mode (OFF, NORMAL, FULL, EXTRA)
	Synchronous string

	// EnableForeignKeys enables foreign key constraint checking
	EnableForeignKeys bool
}

// DefaultSQLiteConfig returns a SQLite configuration with sensible defaults
func DefaultSQLiteConfig(databasePath string) SQLiteConfig {
	return SQLiteConfig{
		DSN:               databasePath,
		BusyTimeout:       5 * time.Second,
		JournalMode:       "WAL",
		Synchronous:       "NORMAL",
		EnableForeignKeys: true,
	}
}

// InMemorySQLiteConfig returns a configuration for throwaway in-memory databases.
func InMemorySQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		DSN:               MemoryDSN,
		BusyTimeout:       time.Second,
		JournalMode:       "MEMORY",
		Synchronous:       "OFF",
		EnableForeignKeys: true,
	}
}

// Validate checks the configuration.
func (c SQLiteConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("BusyTimeout cannot be negative")
	}

	validJournalModes := map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	if c.JournalMode != "" && !validJournalModes[c.JournalMode] {
		return fmt.Errorf("invalid journal mode: %s", c.JournalMode)
	}

	validSyncModes := map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
	if c.Synchronous != "" && !validSyncModes[c.Synchronous] {
		return fmt.Errorf("invalid synchronous mode: %s", c.Synchronous)
	}
	return nil
}

// OpenDB validates config, creates the database directory and returns a single
// connection pool with the configured pragmas applied.
//
// The pool is capped at one connection: pragmas are per connection and an
// in-memory database exists only inside the connection that created it.
func OpenDB(ctx context.Context, config SQLiteConfig) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite configuration: %w", err)
	}

	if config.DSN != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(config.DSN), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := configure(ctx, db, config); err != nil {
		db.Close()
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}

func configure(ctx context.Context, db *sql.DB, config SQLiteConfig) error {
	pragmas := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", config.BusyTimeout.Milliseconds())}
	if config.JournalMode != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = "+config.JournalMode)
	}
	if config.Synchronous != "" {
		pragmas = append(pragmas, "PRAGMA synchronous = "+config.Synchronous)
	}
	if config.EnableForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}
