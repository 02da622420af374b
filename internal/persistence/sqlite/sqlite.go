package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/room-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage is the SQLite-backed snapshot store.
type Storage struct {
	db     *sql.DB
	logger *slog.Logger
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
	newID  func() string
}

// Option customises a Storage.
type Option func(*Storage)

// WithLogger sets the logger used by the storage and its migrations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for saved_at.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides snapshot id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Storage) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Open connects to the database described by config. Call Migrate before use.
func Open(ctx context.Context, config migration.SQLiteConfig, opts ...Option) (*Storage, error) {
	db, err := migration.OpenDB(ctx, config)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		db:     db,
		logger: slog.Default(),
		mapper: NewErrorMapper(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sqlite")
	s.retry = NewRetryHelper(DefaultRetryConfig(), s.mapper)
	return s, nil
}

// DB returns the underlying connection pool.
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Close releases the database handle.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate applies the embedded schema migrations and returns the versions applied.
func (s *Storage) Migrate(ctx context.Context) ([]string, error) {
	manager := migration.NewManager(
		migration.NewFileScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.db, s.logger),
		s.logger,
	)
	applied, err := manager.RunMigrations(ctx)
	if err != nil {
		return applied, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return applied, nil
}

// MigrationStatus reports applied and pending schema migrations.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.Status, error) {
	manager := migration.NewManager(
		migration.NewFileScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(s.db, s.logger),
		s.logger,
	)
	return manager.Status(ctx)
}
