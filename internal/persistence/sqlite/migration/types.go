package migration

import (
	"context"
	"time"
)

// Migration represents a database migration with its metadata and SQL content
type Migration struct {
	Version     string // numeric version taken from the file name, e.g. "0001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // hex blake2b-256 of SQL
}

// AppliedMigration represents a migration recorded in schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the migration state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// FileScanner discovers migration files.
type FileScanner interface {
	ScanMigrations() ([]Migration, error)
}

// Executor runs migrations against the database and tracks what has been applied.
type Executor interface {
	// ExecuteMigration runs a single migration and records it within one transaction.
	ExecuteMigration(ctx context.Context, migration Migration) (time.Duration, error)
	InitializeVersionTable(ctx context.Context) error
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
