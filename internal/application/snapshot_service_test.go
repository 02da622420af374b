package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/persistence"
	"github.com/example/room-scheduler/internal/seed"
	"github.com/example/room-scheduler/internal/testfixtures"
)

func TestSnapshotSaveAndLoad(t *testing.T) {
	ctx := context.Background()

	repos := map[string]func(t *testing.T) persistence.SnapshotRepository{
		"memory": func(*testing.T) persistence.SnapshotRepository { return testfixtures.NewMemorySnapshotRepository() },
		"sqlite": func(t *testing.T) persistence.SnapshotRepository { return testfixtures.NewSQLiteHarness(t).Storage },
	}

	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			repo := newRepo(t)
			svc := testfixtures.NewServiceFactory(testfixtures.WithRepository(repo)).Reference(t)
			saved := svc.Store.Snapshot()

			info, err := svc.Snapshots.Save(ctx)
			require.NoError(t, err)
			assert.Equal(t, "snapshot-1", info.ID)
			assert.Equal(t, 4, info.Rooms)
			assert.Equal(t, 6, info.Bookings)
			assert.True(t, info.SavedAt.Equal(testfixtures.ReferenceTime().Add(time.Minute)))

			_, err = svc.Placement.CreateBooking(ctx, application.BookingRequest{
				ActivityID: "Lecture_CRP_1", Start: "2026-01-07T09:00", End: "2026-01-07T11:00", Priority: 1,
			})
			require.NoError(t, err)
			_, err = svc.Audit.Apply(ctx)
			require.NoError(t, err)

			loaded, err := svc.Snapshots.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, info.ID, loaded.ID)
			assert.Equal(t, saved, svc.Store.Snapshot(), "derived tags are recomputed on load")

			infos, err := svc.Snapshots.List(ctx)
			require.NoError(t, err)
			require.Len(t, infos, 1)
			assert.Equal(t, "snapshot-1", infos[0].ID)
		})
	}
}

func TestSnapshotLoadKeepsBookingCounter(t *testing.T) {
	ctx := context.Background()
	repo := testfixtures.NewMemorySnapshotRepository()
	svc := testfixtures.NewServiceFactory(testfixtures.WithRepository(repo)).Reference(t)

	_, err := svc.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Lecture_CRP_1", Start: "2026-01-07T09:00", End: "2026-01-07T11:00", Priority: 1,
	})
	require.NoError(t, err)
	_, err = svc.Snapshots.Save(ctx)
	require.NoError(t, err)

	fresh := testfixtures.NewServiceFactory(testfixtures.WithRepository(repo)).Build(knowledge.NewStore())
	_, err = fresh.Snapshots.Load(ctx)
	require.NoError(t, err)

	result, err := fresh.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Lecture_CRP_1", Start: "2026-01-08T09:00", End: "2026-01-08T11:00", Priority: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Booking_8", result.BookingID)
}

func TestSnapshotErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("load with nothing saved", func(t *testing.T) {
		svc := testfixtures.NewServiceFactory().Reference(t)
		before := svc.Store.Snapshot()

		_, err := svc.Snapshots.Load(ctx)
		assert.ErrorIs(t, err, persistence.ErrNotFound)
		assert.Equal(t, before, svc.Store.Snapshot())
	})

	t.Run("save failure surfaces", func(t *testing.T) {
		repo := testfixtures.NewMemorySnapshotRepository()
		repo.SaveErr = errors.New("disk full")
		svc := testfixtures.NewServiceFactory(testfixtures.WithRepository(repo)).Reference(t)

		_, err := svc.Snapshots.Save(ctx)
		assert.ErrorIs(t, err, repo.SaveErr)
		assert.Zero(t, repo.Count())
	})

	t.Run("no repository configured", func(t *testing.T) {
		svc := application.NewSnapshotService(testfixtures.ReferenceStore(t), nil)

		_, err := svc.Save(ctx)
		assert.Error(t, err)
		_, err = svc.Load(ctx)
		assert.Error(t, err)
	})
}

func TestSnapshotImport(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the store", func(t *testing.T) {
		svc := testfixtures.NewServiceFactory().Build(testfixtures.EmptyStore(t))

		require.NoError(t, svc.Snapshots.Import(ctx, seed.Reference()))

		problems, err := svc.Query.Problems(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Booking_1", "Booking_3"}, problems.Conflicting)
		assert.Len(t, svc.Store.Bookings(), 6)
	})

	t.Run("invalid snapshot leaves the store unchanged", func(t *testing.T) {
		svc := testfixtures.NewServiceFactory().Reference(t)
		before := svc.Store.Snapshot()

		broken := seed.Reference()
		broken.Bookings = append(broken.Bookings, persistence.BookingRecord{
			ID: "Booking_9", Room: "R999", Activity: "Lecture_CRP_1", Start: "2026-01-08T09:00", End: "2026-01-08T11:00",
		})

		err := svc.Snapshots.Import(ctx, broken)
		assert.ErrorIs(t, err, knowledge.ErrUnknownReference)
		assert.Equal(t, before, svc.Store.Snapshot())
	})
}

func TestBuildStoreRejectsDuplicates(t *testing.T) {
	snapshot := seed.Reference()
	snapshot.Rooms = append(snapshot.Rooms, persistence.RoomRecord{ID: "Projector", Capacity: knowledge.Int(10)})

	_, err := application.BuildStore(snapshot)
	assert.ErrorIs(t, err, knowledge.ErrDuplicateID)
}

func TestSnapshotConversionDropsDerivedTags(t *testing.T) {
	store := testfixtures.ReferenceStore(t)
	state := store.Snapshot()

	snapshot := application.SnapshotFromState(state)
	assert.Equal(t, seed.Reference(), snapshot)

	back := application.StateFromSnapshot(snapshot)
	for _, b := range back.Bookings {
		assert.Equal(t, knowledge.Tag(0), b.Tags, b.ID)
	}
	assert.Equal(t, 6, back.Counter)
}
