package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/config"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/persistence/sqlite"
	"github.com/example/room-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/room-scheduler/internal/seed"
	"github.com/example/room-scheduler/internal/shell"
)

// errPersistenceDisabled is returned by commands that need the database.
var errPersistenceDisabled = errors.New("persistence is disabled")

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	dbPath     string
	logLevel   string
	noPersist  bool
}

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// app holds everything one roomctl invocation needs.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	storage  *sqlite.Storage
	store    *knowledge.Store
	services shell.Services
	streams  streams
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.dbPath != "" {
		cfg.SQLiteDSN = flags.dbPath
	}
	if flags.noPersist {
		cfg.Persist = false
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newApp wires configuration, logging, storage and services. The store starts
// empty; call loadState to fill it.
func newApp(ctx context.Context, flags *globalFlags, s streams) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: s.err})
	if err != nil {
		return nil, err
	}

	slots, err := cfg.Slots()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: knowledge.NewStore(), streams: s}

	var repo persistence.SnapshotRepository
	if cfg.Persist {
		storage, err := openStorage(ctx, cfg.SQLiteDSN, logger)
		if err != nil {
			return nil, err
		}
		if _, err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, err
		}
		a.storage = storage
		repo = storage
	}

	a.services = shell.Services{
		Placement: application.NewPlacementServiceWithLogger(a.store, slots, cfg.HighPriorityThreshold, logger),
		Audit:     application.NewAuditServiceWithLogger(a.store, slots, time.Now, logger),
		Query:     application.NewQueryServiceWithLogger(a.store, logger),
		Rooms:     application.NewRoomAdminServiceWithLogger(a.store, logger),
	}
	if repo != nil {
		a.services.Snapshots = application.NewSnapshotServiceWithLogger(a.store, repo, logger)
	}
	return a, nil
}

func openStorage(ctx context.Context, dsn string, logger *slog.Logger) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(dsn), sqlite.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return storage, nil
}

func (a *app) close() {
	if a == nil || a.storage == nil {
		return
	}
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

// loadState restores the newest snapshot. Without one it imports the configured
// knowledge file or the demonstration seed, and stores the result.
func (a *app) loadState(ctx context.Context) error {
	if a.services.Snapshots != nil {
		_, err := a.services.Snapshots.Load(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, persistence.ErrNotFound) {
			return err
		}
	}

	initial, ok, err := a.initialSnapshot()
	if err != nil || !ok {
		return err
	}
	if err := a.importSnapshot(ctx, initial); err != nil {
		return err
	}
	if a.services.Snapshots != nil {
		if _, err := a.services.Snapshots.Save(ctx); err != nil {
			return err
		}
	}
	return nil
}

// initialSnapshot returns the knowledge file when configured, otherwise the
// demonstration seed when enabled.
func (a *app) initialSnapshot() (persistence.Snapshot, bool, error) {
	if a.cfg.KnowledgeFile != "" {
		snapshot, err := seed.LoadFile(a.cfg.KnowledgeFile)
		if err != nil {
			return persistence.Snapshot{}, false, err
		}
		return snapshot, true, nil
	}
	if a.cfg.SeedDemo {
		return seed.Reference(), true, nil
	}
	return persistence.Snapshot{}, false, nil
}

func (a *app) importSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	importer := application.NewSnapshotServiceWithLogger(a.store, nil, a.logger)
	return importer.Import(ctx, snapshot)
}

func (a *app) dispatcher(interactive bool) *shell.Dispatcher {
	return shell.NewDispatcher(a.services, shell.Options{
		Out:         a.streams.out,
		Styles:      shell.StylesFor(a.cfg.Color, a.streams.out),
		Logger:      a.logger,
		AutoSave:    a.cfg.Persist,
		Interactive: interactive,
	})
}
