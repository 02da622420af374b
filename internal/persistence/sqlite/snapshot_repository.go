package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/example/room-scheduler/internal/persistence"
)

var _ persistence.SnapshotRepository = (*Storage)(nil)

const savedAtLayout = time.RFC3339Nano

// SaveSnapshot stores snapshot as the newest row.
func (s *Storage) SaveSnapshot(ctx context.Context, snapshot persistence.Snapshot) (persistence.SnapshotInfo, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return persistence.SnapshotInfo{}, fmt.Errorf("sqlite: encode snapshot: %w", err)
	}

	info := persistence.SnapshotInfo{
		ID:       s.newID(),
		SavedAt:  s.now().UTC(),
		Checksum: payloadChecksum(payload),
		Rooms:    len(snapshot.Rooms),
		Bookings: len(snapshot.Bookings),
	}

	err = s.retry.WithRetry(ctx, func() error {
		return s.WithTransaction(ctx, func(tx *sql.Tx) error {
			var seq int64
			if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM snapshots`).Scan(&seq); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO snapshots (id, saved_at, checksum, payload, room_count, booking_count, seq)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				info.ID, info.SavedAt.Format(savedAtLayout), info.Checksum, string(payload), info.Rooms, info.Bookings, seq)
			return err
		})
	})
	if err != nil {
		return persistence.SnapshotInfo{}, fmt.Errorf("sqlite: save snapshot: %w", s.mapper.MapError(err))
	}

	s.logger.DebugContext(ctx, "snapshot stored", "snapshot_id", info.ID, "bytes", len(payload))
	return info, nil
}

// LatestSnapshot loads the newest snapshot and verifies its checksum.
func (s *Storage) LatestSnapshot(ctx context.Context) (persistence.Snapshot, persistence.SnapshotInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, saved_at, checksum, room_count, booking_count, payload
		 FROM snapshots ORDER BY seq DESC LIMIT 1`)

	var payload string
	info, err := scanInfo(row, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Snapshot{}, persistence.SnapshotInfo{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Snapshot{}, persistence.SnapshotInfo{}, fmt.Errorf("sqlite: load snapshot: %w", s.mapper.MapError(err))
	}

	if got := payloadChecksum([]byte(payload)); got != info.Checksum {
		return persistence.Snapshot{}, info, fmt.Errorf("%w: snapshot %s checksum %s, want %s", persistence.ErrCorruptSnapshot, info.ID, got, info.Checksum)
	}

	var snapshot persistence.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return persistence.Snapshot{}, info, fmt.Errorf("%w: snapshot %s: %v", persistence.ErrCorruptSnapshot, info.ID, err)
	}
	return snapshot, info, nil
}

// ListSnapshots returns every stored snapshot, newest first.
func (s *Storage) ListSnapshots(ctx context.Context) ([]persistence.SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, saved_at, checksum, room_count, booking_count FROM snapshots ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list snapshots: %w", s.mapper.MapError(err))
	}
	defer rows.Close()

	var infos []persistence.SnapshotInfo
	for rows.Next() {
		info, err := scanInfo(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list snapshots: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list snapshots: %w", s.mapper.MapError(err))
	}
	return infos, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInfo(row rowScanner, payload *string) (persistence.SnapshotInfo, error) {
	var (
		info    persistence.SnapshotInfo
		savedAt string
	)
	dest := []any{&info.ID, &savedAt, &info.Checksum, &info.Rooms, &info.Bookings}
	if payload != nil {
		dest = append(dest, payload)
	}
	if err := row.Scan(dest...); err != nil {
		return persistence.SnapshotInfo{}, err
	}

	parsed, err := time.Parse(savedAtLayout, savedAt)
	if err != nil {
		return persistence.SnapshotInfo{}, fmt.Errorf("%w: saved_at %q: %v", persistence.ErrCorruptSnapshot, savedAt, err)
	}
	info.SavedAt = parsed
	return info, nil
}

func payloadChecksum(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
