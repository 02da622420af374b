package derive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/derive"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/testfixtures"
)

func TestRefreshReferenceSeed(t *testing.T) {
	store := testfixtures.ReferenceStore(t)

	res := derive.Refresh(store)

	assert.Equal(t, []string{"Booking_1", "Booking_3"}, res.Conflicting)
	assert.Equal(t, []string{"Booking_3"}, res.UnderCapacity)
	assert.Equal(t, []string{"Booking_4"}, res.MissingEquipment)
	assert.Equal(t, []string{"R101"}, res.OverBooked)
	assert.Equal(t, []string{"R202", "R303", "R404"}, res.Available)

	b3, ok := store.Booking("Booking_3")
	require.True(t, ok)
	assert.True(t, b3.Tags.Has(knowledge.TagConflicting|knowledge.TagUnderCapacity))
	assert.False(t, b3.Tags.Has(knowledge.TagMissingEquipment))

	r101, _ := store.Room("R101")
	assert.Equal(t, knowledge.OverBooked, r101.Availability)
}

func TestRefreshIsIdempotent(t *testing.T) {
	store := testfixtures.ReferenceStore(t)

	derive.Refresh(store)
	first := store.Snapshot()
	derive.Refresh(store)
	assert.Equal(t, first, store.Snapshot())
}

func TestRefreshPredicates(t *testing.T) {
	build := func(t *testing.T) *knowledge.Store {
		t.Helper()
		s := knowledge.NewStore()
		require.NoError(t, s.AddEquipment("Projector"))
		require.NoError(t, s.AddRoom(knowledge.Room{ID: "Small", Capacity: knowledge.Int(10)}))
		require.NoError(t, s.AddRoom(knowledge.Room{ID: "Unknown"}))
		require.NoError(t, s.AddActivity(knowledge.Activity{ID: "Big", Kind: knowledge.Exam, Attendance: knowledge.Int(50), RequiredEquipment: []string{"Projector"}}))
		require.NoError(t, s.AddActivity(knowledge.Activity{ID: "Vague", Kind: knowledge.Lecture}))
		return s
	}

	t.Run("unknown capacity or attendance is never under capacity", func(t *testing.T) {
		s := build(t)
		require.NoError(t, s.AddBooking(knowledge.Booking{ID: "B1", RoomID: "Unknown", ActivityID: "Big", Start: "2026-01-05T08:00", End: "2026-01-05T09:00"}))
		require.NoError(t, s.AddBooking(knowledge.Booking{ID: "B2", RoomID: "Small", ActivityID: "Vague", Start: "2026-01-05T08:00", End: "2026-01-05T09:00"}))

		res := derive.Refresh(s)
		assert.Empty(t, res.UnderCapacity)
		assert.Equal(t, []string{"B1"}, res.MissingEquipment)
	})

	t.Run("touching bookings do not conflict", func(t *testing.T) {
		s := build(t)
		require.NoError(t, s.AddBooking(knowledge.Booking{ID: "B1", RoomID: "Small", ActivityID: "Vague", Start: "2026-01-05T08:00", End: "2026-01-05T09:00"}))
		require.NoError(t, s.AddBooking(knowledge.Booking{ID: "B2", RoomID: "Small", ActivityID: "Vague", Start: "2026-01-05T09:00", End: "2026-01-05T10:00"}))

		res := derive.Refresh(s)
		assert.Empty(t, res.Conflicting)
		assert.Equal(t, []string{"Small", "Unknown"}, res.Available)
	})

	t.Run("malformed bookings are skipped", func(t *testing.T) {
		s := build(t)
		require.NoError(t, s.Restore(knowledge.State{
			Equipment: []string{"Projector"},
			Rooms:     []knowledge.Room{{ID: "Small", Capacity: knowledge.Int(10)}},
			Activities: []knowledge.Activity{
				{ID: "Big", Kind: knowledge.Exam, Attendance: knowledge.Int(50)},
			},
			Bookings: []knowledge.Booking{
				{ID: "B1", RoomID: "Small", ActivityID: "Big", Start: "garbage", End: "2026-01-05T09:00"},
				{ID: "B2", RoomID: "Small", ActivityID: "Big", Start: "2026-01-05T08:00", End: "2026-01-05T09:00"},
				{ID: "B3", RoomID: "Gone", ActivityID: "Big", Start: "2026-01-05T08:00", End: "2026-01-05T09:00"},
			},
		}))

		res := derive.Refresh(s)
		assert.Empty(t, res.Conflicting)
		assert.Equal(t, []string{"B1", "B2"}, res.UnderCapacity)
		assert.Equal(t, []string{"Small"}, res.Available)
	})

	t.Run("rooms are partitioned into available and overbooked", func(t *testing.T) {
		s := build(t)
		require.NoError(t, s.AddBooking(knowledge.Booking{ID: "B1", RoomID: "Unknown", ActivityID: "Vague", Start: "2026-01-05T08:00", End: "2026-01-05T10:00"}))
		require.NoError(t, s.AddBooking(knowledge.Booking{ID: "B2", RoomID: "Unknown", ActivityID: "Vague", Start: "2026-01-05T09:00", End: "2026-01-05T11:00"}))

		res := derive.Refresh(s)
		assert.Equal(t, []string{"Unknown"}, res.OverBooked)
		assert.Equal(t, []string{"Small"}, res.Available)
		assert.Equal(t, []string{"B1", "B2"}, res.Conflicting)
	})
}
