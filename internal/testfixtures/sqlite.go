package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/persistence/sqlite"
	"github.com/example/room-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness wraps a migrated snapshot store in a temporary directory.
type SQLiteHarness struct {
	Storage *sqlite.Storage
	Path    string
	Stamps  *Stamps
}

// NewSQLiteHarness opens and migrates a fresh database under tb.TempDir. Snapshot
// ids and timestamps come from the harness Stamps.
// The storage is closed by tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "roomctl.db")
	stamps := &Stamps{}
	storage, err := sqlite.Open(context.Background(),
		migration.DefaultSQLiteConfig(path),
		sqlite.WithLogger(logging.Discard()),
		sqlite.WithClock(stamps.NextTime),
		sqlite.WithIDGenerator(stamps.NextID),
	)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if _, err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	return &SQLiteHarness{Storage: storage, Path: path, Stamps: stamps}
}
