package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Manager orchestrates scanning, sequence validation and execution of migrations.
type Manager struct {
	scanner  FileScanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a migration manager.
func NewManager(scanner FileScanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// RunMigrations executes all pending migrations in version order and returns the
// versions it applied.
func (m *Manager) RunMigrations(ctx context.Context) ([]string, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	if len(status.Pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil, nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "pending", len(status.Pending), "current_version", status.CurrentVersion)

	applied := make([]string, 0, len(status.Pending))
	for _, migration := range status.Pending {
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "file", migration.FilePath, "error", err)
			return applied, NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"elapsed", elapsed)
		applied = append(applied, migration.Version)
	}
	return applied, nil
}

// Status compares the migration files with the schema_migrations table.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedByVersion[versionNumber(a.Version)] = a
	}

	status := &Status{Applied: applied}
	for _, migration := range available {
		if _, ok := appliedByVersion[versionNumber(migration.Version)]; ok {
			continue
		}
		status.Pending = append(status.Pending, migration)
	}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	return status, nil
}

// validateSequence ensures the available files have no gaps, every applied version
// still has its file, and applied files have not been edited.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for i, migration := range available {
		n, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: version %q is not numeric", ErrInvalidMigrationFile, migration.Version))
		}
		if i > 0 && n != versionNumber(available[i-1].Version)+1 {
			return fmt.Errorf("%w: missing migration version %d", ErrVersionConflict, versionNumber(available[i-1].Version)+1)
		}
		byVersion[n] = migration
	}

	for _, a := range applied {
		migration, ok := byVersion[versionNumber(a.Version)]
		if !ok {
			return fmt.Errorf("%w: applied migration %s has no file", ErrVersionConflict, a.Version)
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return NewMigrationError(a.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}
