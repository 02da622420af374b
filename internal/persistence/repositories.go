package persistence

import "context"

// SnapshotRepository stores whole knowledge-base snapshots. The newest snapshot is
// the current state.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) (SnapshotInfo, error)
	// LatestSnapshot returns ErrNotFound when nothing has been saved yet.
	LatestSnapshot(ctx context.Context) (Snapshot, SnapshotInfo, error)
	// ListSnapshots returns snapshots newest first.
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)
}
