package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/example/room-scheduler/internal/derive"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/persistence"
)

// SnapshotService moves whole knowledge-base states between the store and a
// snapshot repository.
type SnapshotService struct {
	store  *knowledge.Store
	repo   persistence.SnapshotRepository
	logger *slog.Logger
}

// NewSnapshotService constructs a snapshot service. repo may be nil when persistence
// is disabled; Import still works then.
func NewSnapshotService(store *knowledge.Store, repo persistence.SnapshotRepository) *SnapshotService {
	return NewSnapshotServiceWithLogger(store, repo, nil)
}

// NewSnapshotServiceWithLogger constructs a snapshot service with a specified logger.
func NewSnapshotServiceWithLogger(store *knowledge.Store, repo persistence.SnapshotRepository, logger *slog.Logger) *SnapshotService {
	return &SnapshotService{store: store, repo: repo, logger: defaultLogger(logger)}
}

func (s *SnapshotService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SnapshotService", operation, attrs...)
}

func (s *SnapshotService) ready(needRepo bool) error {
	if s == nil {
		return fmt.Errorf("SnapshotService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("knowledge store not configured")
	}
	if needRepo && s.repo == nil {
		return fmt.Errorf("snapshot repository not configured")
	}
	return nil
}

// Save persists the current store as a new snapshot.
func (s *SnapshotService) Save(ctx context.Context) (info persistence.SnapshotInfo, err error) {
	if err = s.ready(true); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Save")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save snapshot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("snapshot_id", info.ID, "bookings", info.Bookings).InfoContext(ctx, "snapshot saved")
	}()

	info, err = s.repo.SaveSnapshot(ctx, SnapshotFromState(s.store.Snapshot()))
	return
}

// Load replaces the store with the newest stored snapshot and refreshes derived tags.
// It returns persistence.ErrNotFound when nothing has been saved yet.
func (s *SnapshotService) Load(ctx context.Context) (info persistence.SnapshotInfo, err error) {
	if err = s.ready(true); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Load")
	defer func() {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.InfoContext(ctx, "no stored snapshot")
			return
		}
		if err != nil {
			logger.ErrorContext(ctx, "failed to load snapshot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("snapshot_id", info.ID, "bookings", info.Bookings).InfoContext(ctx, "snapshot loaded")
	}()

	var snapshot persistence.Snapshot
	snapshot, info, err = s.repo.LatestSnapshot(ctx)
	if err != nil {
		return
	}
	err = s.store.Exclusive(func() error {
		if err := s.store.Restore(StateFromSnapshot(snapshot)); err != nil {
			return fmt.Errorf("restore snapshot %s: %w", info.ID, err)
		}
		derive.Refresh(s.store)
		return nil
	})
	return
}

// List returns stored snapshots, newest first.
func (s *SnapshotService) List(ctx context.Context) ([]persistence.SnapshotInfo, error) {
	if err := s.ready(true); err != nil {
		return nil, err
	}
	return s.repo.ListSnapshots(ctx)
}

// Import replaces the store with snapshot after validating every entity the way
// the store's constructors do. On error the store is unchanged.
func (s *SnapshotService) Import(ctx context.Context, snapshot persistence.Snapshot) (err error) {
	if err = s.ready(false); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Import")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to import knowledge base", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("rooms", len(snapshot.Rooms), "bookings", len(snapshot.Bookings)).InfoContext(ctx, "knowledge base imported")
	}()

	var staged *knowledge.Store
	staged, err = BuildStore(snapshot)
	if err != nil {
		return
	}
	err = s.store.Exclusive(func() error {
		if err := s.store.Restore(staged.Snapshot()); err != nil {
			return err
		}
		derive.Refresh(s.store)
		return nil
	})
	return
}

// BuildStore creates a new store from snapshot using the validating constructors.
// The returned store is already refreshed.
func BuildStore(snapshot persistence.Snapshot) (*knowledge.Store, error) {
	store := knowledge.NewStore()
	state := StateFromSnapshot(snapshot)
	for _, id := range state.Equipment {
		if err := store.AddEquipment(id); err != nil {
			return nil, err
		}
	}
	for _, room := range state.Rooms {
		if err := store.AddRoom(room); err != nil {
			return nil, err
		}
	}
	for _, activity := range state.Activities {
		if err := store.AddActivity(activity); err != nil {
			return nil, err
		}
	}
	for _, booking := range state.Bookings {
		if err := store.AddBooking(booking); err != nil {
			return nil, err
		}
	}
	if state.Counter > 0 {
		restored := store.Snapshot()
		restored.Counter = max(restored.Counter, state.Counter)
		if err := store.Restore(restored); err != nil {
			return nil, err
		}
	}
	derive.Refresh(store)
	return store, nil
}

// StateFromSnapshot converts a persisted snapshot into a store state.
func StateFromSnapshot(snapshot persistence.Snapshot) knowledge.State {
	state := knowledge.State{
		Equipment: slices.Clone(snapshot.Equipment),
		Counter:   snapshot.BookingCounter,
	}
	for _, r := range snapshot.Rooms {
		state.Rooms = append(state.Rooms, knowledge.Room{
			ID:        r.ID,
			Capacity:  copyInt(r.Capacity),
			Equipment: slices.Clone(r.Equipment),
		})
	}
	for _, a := range snapshot.Activities {
		state.Activities = append(state.Activities, knowledge.Activity{
			ID:                a.ID,
			Kind:              knowledge.ActivityKind(a.Kind),
			Attendance:        copyInt(a.Attendance),
			RequiredEquipment: slices.Clone(a.Requires),
			Course:            a.Course,
		})
	}
	for _, b := range snapshot.Bookings {
		state.Bookings = append(state.Bookings, knowledge.Booking{
			ID:         b.ID,
			RoomID:     b.Room,
			ActivityID: b.Activity,
			Start:      b.Start,
			End:        b.End,
			Priority:   b.Priority,
		})
	}
	return state
}

// SnapshotFromState converts a store state into its persisted form, dropping derived tags.
func SnapshotFromState(state knowledge.State) persistence.Snapshot {
	snapshot := persistence.Snapshot{
		Equipment:      slices.Clone(state.Equipment),
		BookingCounter: state.Counter,
	}
	for _, r := range state.Rooms {
		snapshot.Rooms = append(snapshot.Rooms, persistence.RoomRecord{
			ID:        r.ID,
			Capacity:  copyInt(r.Capacity),
			Equipment: slices.Clone(r.Equipment),
		})
	}
	for _, a := range state.Activities {
		snapshot.Activities = append(snapshot.Activities, persistence.ActivityRecord{
			ID:         a.ID,
			Kind:       string(a.Kind),
			Attendance: copyInt(a.Attendance),
			Requires:   slices.Clone(a.RequiredEquipment),
			Course:     a.Course,
		})
	}
	for _, b := range state.Bookings {
		snapshot.Bookings = append(snapshot.Bookings, persistence.BookingRecord{
			ID:       b.ID,
			Room:     b.RoomID,
			Activity: b.ActivityID,
			Start:    b.Start,
			End:      b.End,
			Priority: b.Priority,
		})
	}
	return snapshot
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
