package testfixtures

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/seed"
)

var referenceTime = time.Date(2026, time.January, 5, 7, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceStore returns a refreshed store holding the reference seed.
func ReferenceStore(tb testing.TB) *knowledge.Store {
	tb.Helper()
	store, err := application.BuildStore(seed.Reference())
	if err != nil {
		tb.Fatalf("failed to build reference store: %v", err)
	}
	return store
}

// EmptyStore returns a store with the reference rooms and activities but no bookings.
func EmptyStore(tb testing.TB) *knowledge.Store {
	tb.Helper()
	snapshot := seed.Reference()
	snapshot.Bookings = nil
	snapshot.BookingCounter = 0
	store, err := application.BuildStore(snapshot)
	if err != nil {
		tb.Fatalf("failed to build empty store: %v", err)
	}
	return store
}

// Stamps issues deterministic snapshot ids ("snapshot-1", "snapshot-2", ...) and
// save times one minute apart after ReferenceTime. Ids and times count independently.
type Stamps struct {
	mu    sync.Mutex
	ids   int
	ticks int
}

// NextID returns the next snapshot id.
func (s *Stamps) NextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids++
	return fmt.Sprintf("snapshot-%d", s.ids)
}

// NextTime returns the next save time.
func (s *Stamps) NextTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	return referenceTime.Add(time.Duration(s.ticks) * time.Minute)
}

// MemorySnapshotRepository is an in-memory persistence.SnapshotRepository.
type MemorySnapshotRepository struct {
	mu        sync.Mutex
	snapshots []persistence.Snapshot
	infos     []persistence.SnapshotInfo
	stamps    Stamps
	// SaveErr, when set, is returned by SaveSnapshot.
	SaveErr error
}

// NewMemorySnapshotRepository returns an empty repository with deterministic ids and timestamps.
func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{}
}

// SaveSnapshot records snapshot as the newest entry.
func (r *MemorySnapshotRepository) SaveSnapshot(_ context.Context, snapshot persistence.Snapshot) (persistence.SnapshotInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return persistence.SnapshotInfo{}, r.SaveErr
	}
	info := persistence.SnapshotInfo{
		ID:       r.stamps.NextID(),
		SavedAt:  r.stamps.NextTime(),
		Checksum: "memory",
		Rooms:    len(snapshot.Rooms),
		Bookings: len(snapshot.Bookings),
	}
	r.snapshots = append(r.snapshots, cloneSnapshot(snapshot))
	r.infos = append(r.infos, info)
	return info, nil
}

// LatestSnapshot returns the newest entry or persistence.ErrNotFound.
func (r *MemorySnapshotRepository) LatestSnapshot(context.Context) (persistence.Snapshot, persistence.SnapshotInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return persistence.Snapshot{}, persistence.SnapshotInfo{}, persistence.ErrNotFound
	}
	last := len(r.snapshots) - 1
	return cloneSnapshot(r.snapshots[last]), r.infos[last], nil
}

// ListSnapshots returns entries newest first.
func (r *MemorySnapshotRepository) ListSnapshots(context.Context) ([]persistence.SnapshotInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := slices.Clone(r.infos)
	slices.Reverse(infos)
	return infos, nil
}

// Count returns the number of saved snapshots.
func (r *MemorySnapshotRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func cloneSnapshot(s persistence.Snapshot) persistence.Snapshot {
	return application.SnapshotFromState(application.StateFromSnapshot(s))
}
