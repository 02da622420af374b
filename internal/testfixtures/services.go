package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/logging"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/scheduler"
)

// Services bundles every application service over one store.
type Services struct {
	Store     *knowledge.Store
	Placement *application.PlacementService
	Audit     *application.AuditService
	Query     *application.QueryService
	Rooms     *application.RoomAdminService
	Snapshots *application.SnapshotService
}

// ServiceFactory assists tests with constructing application services using a
// frozen clock and a silent logger.
type ServiceFactory struct {
	Now       func() time.Time
	Slots     []scheduler.Slot
	Threshold int
	Repo      persistence.SnapshotRepository
	Logger    *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults: reference clock,
// default slot grid, threshold 8, in-memory snapshot repository.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Now:       ReferenceTime,
		Slots:     scheduler.DefaultSlots(),
		Threshold: application.DefaultHighPriorityThreshold,
		Repo:      NewMemorySnapshotRepository(),
		Logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithThreshold overrides the preemption threshold.
func WithThreshold(threshold int) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Threshold = threshold
	}
}

// WithRepository overrides the snapshot repository.
func WithRepository(repo persistence.SnapshotRepository) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Repo = repo
	}
}

// WithSlots overrides the relocation grid.
func WithSlots(slots []scheduler.Slot) ServiceFactoryOption {
	return func(f *ServiceFactory) {
		f.Slots = slots
	}
}

// Build wires the services over store.
func (f *ServiceFactory) Build(store *knowledge.Store) Services {
	return Services{
		Store:     store,
		Placement: application.NewPlacementServiceWithLogger(store, f.Slots, f.Threshold, f.Logger),
		Audit:     application.NewAuditServiceWithLogger(store, f.Slots, f.Now, f.Logger),
		Query:     application.NewQueryServiceWithLogger(store, f.Logger),
		Rooms:     application.NewRoomAdminServiceWithLogger(store, f.Logger),
		Snapshots: application.NewSnapshotServiceWithLogger(store, f.Repo, f.Logger),
	}
}

// Reference wires the services over a fresh reference store.
func (f *ServiceFactory) Reference(tb testing.TB) Services {
	tb.Helper()
	return f.Build(ReferenceStore(tb))
}
