package application_test

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/scheduler"
	"github.com/example/room-scheduler/internal/testfixtures"
)

func roomIDs(rooms []knowledge.Room) []string {
	return lo.Map(rooms, func(r knowledge.Room, _ int) string { return r.ID })
}

func TestQueryListings(t *testing.T) {
	ctx := context.Background()
	svc := testfixtures.NewServiceFactory().Reference(t)

	t.Run("rooms in store order", func(t *testing.T) {
		rooms, err := svc.Query.Rooms(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"R101", "R202", "R303", "R404"}, roomIDs(rooms))
	})

	t.Run("activities in store order", func(t *testing.T) {
		activities, err := svc.Query.Activities(ctx)
		require.NoError(t, err)
		require.Len(t, activities, 6)
		assert.Equal(t, "Lecture_CRP_1", activities[0].ID)
		assert.Equal(t, knowledge.Exam, activities[1].Kind)
	})

	t.Run("bookings by start then id", func(t *testing.T) {
		bookings, err := svc.Query.Bookings(ctx)
		require.NoError(t, err)
		ids := lo.Map(bookings, func(b knowledge.Booking, _ int) string { return b.ID })
		assert.Equal(t, []string{"Booking_1", "Booking_2", "Booking_3", "Booking_5", "Booking_6", "Booking_4"}, ids)
	})

	t.Run("single booking", func(t *testing.T) {
		booking, err := svc.Query.Booking(ctx, "Booking_3")
		require.NoError(t, err)
		assert.Equal(t, "R101", booking.RoomID)
		assert.True(t, booking.Tags.Has(knowledge.TagUnderCapacity))
		assert.True(t, booking.Tags.Has(knowledge.TagConflicting))

		_, err = svc.Query.Booking(ctx, "Booking_99")
		assert.ErrorIs(t, err, application.ErrNotFound)
	})
}

func TestQueryProblems(t *testing.T) {
	ctx := context.Background()
	svc := testfixtures.NewServiceFactory().Reference(t)

	problems, err := svc.Query.Problems(ctx)
	require.NoError(t, err)
	assert.Equal(t, application.ProblemReport{
		Conflicting:      []string{"Booking_1", "Booking_3"},
		UnderCapacity:    []string{"Booking_3"},
		MissingEquipment: []string{"Booking_4"},
		OverBooked:       []string{"R101"},
	}, problems)

	available, err := svc.Query.AvailableRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"R202", "R303", "R404"}, available)
}

func TestAvailableBetween(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		query application.AvailabilityQuery
		want  []string
	}{
		{
			name:  "busy morning leaves rooms without projectors",
			query: application.AvailabilityQuery{Start: "2026-01-05T10:00", End: "2026-01-05T12:00"},
			want:  []string{"R303", "R404"},
		},
		{
			name:  "early slot with constraints",
			query: application.AvailabilityQuery{Start: "2026-01-05T08:00", End: "2026-01-05T10:00", MinCapacity: knowledge.Int(25), Equipment: []string{"Projector"}},
			want:  []string{"R101", "R202"},
		},
		{
			name:  "touching intervals do not conflict",
			query: application.AvailabilityQuery{Start: "2026-01-05T12:30", End: "2026-01-05T14:00", Equipment: []string{"Projector"}},
			want:  []string{"R101"},
		},
		{
			name:  "capacity above every room",
			query: application.AvailabilityQuery{Start: "2026-01-07T08:00", End: "2026-01-07T10:00", MinCapacity: knowledge.Int(100)},
			want:  []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := testfixtures.NewServiceFactory().Reference(t)
			rooms, err := svc.Query.AvailableBetween(ctx, tc.query)
			require.NoError(t, err)
			assert.Equal(t, tc.want, roomIDs(rooms))
		})
	}

	t.Run("unknown capacity passes the capacity filter", func(t *testing.T) {
		svc := testfixtures.NewServiceFactory().Reference(t)
		require.NoError(t, svc.Store.SetRoomCapacity("R303", nil))

		rooms, err := svc.Query.AvailableBetween(ctx, application.AvailabilityQuery{
			Start: "2026-01-07T08:00", End: "2026-01-07T10:00", MinCapacity: knowledge.Int(50),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"R202", "R303", "R404"}, roomIDs(rooms))
	})

	t.Run("rejects malformed queries", func(t *testing.T) {
		svc := testfixtures.NewServiceFactory().Reference(t)

		_, err := svc.Query.AvailableBetween(ctx, application.AvailabilityQuery{Start: "tomorrow", End: "2026-01-07T10:00"})
		assert.ErrorIs(t, err, scheduler.ErrBadInstant)

		_, err = svc.Query.AvailableBetween(ctx, application.AvailabilityQuery{Start: "2026-01-07T10:00", End: "2026-01-07T08:00"})
		assert.ErrorIs(t, err, application.ErrBadRequest)

		_, err = svc.Query.AvailableBetween(ctx, application.AvailabilityQuery{Start: "2026-01-07T08:00", End: "2026-01-07T10:00", MinCapacity: knowledge.Int(-1)})
		assert.ErrorIs(t, err, application.ErrBadRequest)
	})
}

func TestEfficiency(t *testing.T) {
	ctx := context.Background()
	svc := testfixtures.NewServiceFactory().Reference(t)

	report, err := svc.Query.Efficiency(ctx)
	require.NoError(t, err)
	require.Len(t, report.Entries, 6)

	worst := report.Entries[0]
	assert.Equal(t, "Booking_3", worst.BookingID)
	assert.Equal(t, 55, worst.Attendance)
	assert.Equal(t, 30, worst.Capacity)
	assert.InDelta(t, 55.0/30.0, worst.Utilization, 1e-9)
	assert.InDelta(t, 1-(55.0/30.0-1.4)/0.6, worst.Score, 1e-9)
	assert.Equal(t, application.EfficiencyVeryPoor, worst.Class)
	assert.Empty(t, worst.Better, "R202 is busy at that time")

	ids := lo.Map(report.Entries[1:], func(e application.EfficiencyEntry, _ int) string { return e.BookingID })
	assert.Equal(t, []string{"Booking_1", "Booking_2", "Booking_4", "Booking_5", "Booking_6"}, ids)
	for _, e := range report.Entries[1:] {
		assert.Equal(t, application.EfficiencyOptimal, e.Class, e.BookingID)
	}

	assert.Equal(t, 1, report.Wasteful)
	assert.InDelta(t, (worst.Score+5)/6, report.Average, 1e-9)
}

func TestEfficiencySuggestsBetterRooms(t *testing.T) {
	ctx := context.Background()
	svc := testfixtures.NewServiceFactory().Build(testfixtures.EmptyStore(t))

	// Inflating R202 leaves the exam using under a fifth of it.
	_, err := svc.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Exam_ALG_1", Start: "2026-01-07T09:00", End: "2026-01-07T11:00", Priority: 10,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Store.SetRoomCapacity("R202", knowledge.Int(500)))

	report, err := svc.Query.Efficiency(ctx)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)

	entry := report.Entries[0]
	assert.Equal(t, application.EfficiencyVeryPoor, entry.Class)
	assert.Equal(t, 1, report.Wasteful)
	assert.InDelta(t, 55.0/500.0/0.6, entry.Score, 1e-9)
	require.Len(t, entry.Better, 1)
	assert.Equal(t, "R101", entry.Better[0].RoomID)
	assert.Equal(t, 30, entry.Better[0].Capacity)
	assert.InDelta(t, 1-(55.0/30.0-1.4)/0.6, entry.Better[0].Score, 1e-9)
}
