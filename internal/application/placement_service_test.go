package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/scheduler"
	"github.com/example/room-scheduler/internal/testfixtures"
)

func TestCreateBookingReferenceScenarios(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		req      application.BookingRequest
		wantRoom string
	}{
		{
			name:     "lecture takes the tighter fit",
			req:      application.BookingRequest{ActivityID: "Lecture_CRP_1", Start: "2026-01-07T09:00", End: "2026-01-07T11:00", Priority: 1},
			wantRoom: "R101",
		},
		{
			name:     "exam needs capacity 55 and a projector",
			req:      application.BookingRequest{ActivityID: "Exam_ALG_1", Start: "2026-01-07T09:00", End: "2026-01-07T11:00", Priority: 10},
			wantRoom: "R202",
		},
		{
			name:     "lab prefers the smaller computer room",
			req:      application.BookingRequest{ActivityID: "Lab_PROG_1", Start: "2026-01-07T09:00", End: "2026-01-07T11:00", Priority: 5},
			wantRoom: "R202",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := testfixtures.NewServiceFactory().Reference(t)

			result, err := svc.Placement.CreateBooking(ctx, tc.req)
			require.NoError(t, err)
			assert.Equal(t, "Booking_7", result.BookingID)
			assert.Equal(t, tc.wantRoom, result.RoomID)
			assert.Nil(t, result.Relocated)

			booking, ok := svc.Store.Booking("Booking_7")
			require.True(t, ok)
			assert.Equal(t, tc.wantRoom, booking.RoomID)
			assert.Equal(t, tc.req.Start, booking.Start)
			assert.Equal(t, tc.req.Priority, booking.Priority)
			assert.Equal(t, knowledge.Tag(0), booking.Tags)
		})
	}
}

func TestCreateBookingNoFeasibleRoom(t *testing.T) {
	ctx := context.Background()
	svc := testfixtures.NewServiceFactory().Reference(t)
	before := svc.Store.Snapshot()

	_, err := svc.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Exam_MASSIVE_1", Start: "2026-01-07T09:00", End: "2026-01-07T11:00", Priority: 10,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, application.ErrNoFeasibleRoom)

	var placementErr *application.PlacementError
	require.True(t, errors.As(err, &placementErr))
	assert.Equal(t, "Exam_MASSIVE_1", placementErr.ActivityID)
	assert.Equal(t, []string{
		"R101: capacity 30 < attendance 120",
		"R202: capacity 60 < attendance 120",
		"R303: capacity 20 < attendance 120; missing equipment [Projector]",
		"R404: capacity 80 < attendance 120; missing equipment [Projector]",
	}, placementErr.Details)

	assert.Equal(t, before, svc.Store.Snapshot())
}

func TestCreateBookingPreemptsLowerPriorityBlocker(t *testing.T) {
	ctx := context.Background()
	svc := testfixtures.NewServiceFactory().Reference(t)

	result, err := svc.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Exam_CRP_SMALL", Start: "2026-01-05T14:00", End: "2026-01-05T16:00", Priority: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "Booking_7", result.BookingID)
	assert.Equal(t, "R101", result.RoomID)

	require.NotNil(t, result.Relocated)
	assert.Equal(t, application.Relocation{
		BookingID: "Booking_5",
		FromRoom:  "R101",
		FromStart: "2026-01-05T14:00",
		FromEnd:   "2026-01-05T16:00",
		ToRoom:    "R101",
		ToStart:   "2026-01-05T08:00",
		ToEnd:     "2026-01-05T10:00",
	}, *result.Relocated)
	assert.False(t, result.Relocated.SameTime())

	moved, ok := svc.Store.Booking("Booking_5")
	require.True(t, ok)
	assert.Equal(t, "2026-01-05T08:00", moved.Start)
	assert.Equal(t, "2026-01-05T10:00", moved.End)
	assert.False(t, moved.Tags.Has(knowledge.TagConflicting))
}

func TestCreateBookingPreemptionRollsBack(t *testing.T) {
	ctx := context.Background()
	// The only grid slot is the requested one, so the blocker can only be "moved"
	// onto itself and the request still has nowhere to go.
	slots := []scheduler.Slot{{Start: "2026-01-05T14:00", End: "2026-01-05T16:00"}}
	svc := testfixtures.NewServiceFactory(testfixtures.WithSlots(slots)).Reference(t)
	before := svc.Store.Snapshot()

	_, err := svc.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Exam_CRP_SMALL", Start: "2026-01-05T14:00", End: "2026-01-05T16:00", Priority: 10,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, application.ErrNoFeasibleRoom)

	var placementErr *application.PlacementError
	require.True(t, errors.As(err, &placementErr))
	assert.Equal(t, []string{
		"R101: conflicts with Booking_5 (2026-01-05T14:00..2026-01-05T16:00, priority 1)",
		"R202: conflicts with Booking_6 (2026-01-05T14:00..2026-01-05T16:00, priority 10)",
		"R303: capacity 20 < attendance 25; missing equipment [Projector]",
		"R404: missing equipment [Projector]",
	}, placementErr.Details)

	assert.Equal(t, before, svc.Store.Snapshot())
}

func TestCreateBookingBelowThresholdDoesNotPreempt(t *testing.T) {
	ctx := context.Background()
	svc := testfixtures.NewServiceFactory().Reference(t)
	before := svc.Store.Snapshot()

	_, err := svc.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Exam_CRP_SMALL", Start: "2026-01-05T14:00", End: "2026-01-05T16:00", Priority: 7,
	})
	assert.ErrorIs(t, err, application.ErrNoFeasibleRoom)
	assert.Equal(t, before, svc.Store.Snapshot())
}

func TestCreateBookingThresholdIsConfigurable(t *testing.T) {
	ctx := context.Background()
	svc := testfixtures.NewServiceFactory(testfixtures.WithThreshold(3)).Reference(t)

	result, err := svc.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Exam_CRP_SMALL", Start: "2026-01-05T14:00", End: "2026-01-05T16:00", Priority: 3,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Relocated)
	assert.Equal(t, "Booking_5", result.Relocated.BookingID)
}

func TestCreateBookingRejectsBadRequests(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		req  application.BookingRequest
		want error
	}{
		{
			name: "unknown activity",
			req:  application.BookingRequest{ActivityID: "Seminar_X", Start: "2026-01-07T09:00", End: "2026-01-07T11:00"},
			want: application.ErrUnknownActivity,
		},
		{
			name: "malformed start",
			req:  application.BookingRequest{ActivityID: "Lecture_CRP_1", Start: "2026-01-07 09:00", End: "2026-01-07T11:00"},
			want: scheduler.ErrBadInstant,
		},
		{
			name: "end before start",
			req:  application.BookingRequest{ActivityID: "Lecture_CRP_1", Start: "2026-01-07T11:00", End: "2026-01-07T09:00"},
			want: application.ErrBadRequest,
		},
		{
			name: "empty interval",
			req:  application.BookingRequest{ActivityID: "Lecture_CRP_1", Start: "2026-01-07T11:00", End: "2026-01-07T11:00"},
			want: application.ErrBadRequest,
		},
		{
			name: "missing activity",
			req:  application.BookingRequest{Start: "2026-01-07T09:00", End: "2026-01-07T11:00"},
			want: application.ErrBadRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := testfixtures.NewServiceFactory().Reference(t)
			before := svc.Store.Snapshot()

			_, err := svc.Placement.CreateBooking(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, svc.Store.Snapshot())
		})
	}
}

func TestCreateBookingIDsKeepIncreasing(t *testing.T) {
	ctx := context.Background()
	svc := testfixtures.NewServiceFactory().Build(testfixtures.EmptyStore(t))

	first, err := svc.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Lecture_CRP_1", Start: "2026-01-07T09:00", End: "2026-01-07T11:00", Priority: 1,
	})
	require.NoError(t, err)
	second, err := svc.Placement.CreateBooking(ctx, application.BookingRequest{
		ActivityID: "Lecture_CRP_1", Start: "2026-01-07T09:00", End: "2026-01-07T11:00", Priority: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "Booking_1", first.BookingID)
	assert.Equal(t, "Booking_2", second.BookingID)
	assert.Equal(t, "R101", first.RoomID)
	assert.Equal(t, "R202", second.RoomID, "R101 is taken at that time")
}

func TestCreateBookingBlockerSelection(t *testing.T) {
	ctx := context.Background()
	request := application.BookingRequest{
		ActivityID: "Exam_CRP_SMALL", Start: "2026-01-05T14:00", End: "2026-01-05T16:00", Priority: 10,
	}

	cases := []struct {
		name          string
		setup         func(t *testing.T, store *knowledge.Store)
		wantBookingID string
		wantRoom      string
		wantRelocated application.Relocation
		wantSameTime  bool
	}{
		{
			name: "blocker in the best-fit room moves before a lower-priority one",
			setup: func(t *testing.T, store *knowledge.Store) {
				addBooking(t, store, "Booking_1", "R101", "Lecture_CRP_1", "2026-01-05T14:00", "2026-01-05T16:00", 5)
				addBooking(t, store, "Booking_2", "R202", "Lecture_CRP_1", "2026-01-05T14:00", "2026-01-05T16:00", 1)
			},
			wantBookingID: "Booking_3",
			wantRoom:      "R101",
			wantRelocated: application.Relocation{
				BookingID: "Booking_1",
				FromRoom:  "R101", FromStart: "2026-01-05T14:00", FromEnd: "2026-01-05T16:00",
				ToRoom: "R101", ToStart: "2026-01-05T08:00", ToEnd: "2026-01-05T10:00",
			},
		},
		{
			name: "lowest priority moves among the other rooms",
			setup: func(t *testing.T, store *knowledge.Store) {
				require.NoError(t, store.AddRoom(knowledge.Room{ID: "R505", Capacity: knowledge.Int(40), Equipment: []string{"Projector"}}))
				addBooking(t, store, "Booking_1", "R101", "Exam_CRP_SMALL", "2026-01-05T14:00", "2026-01-05T16:00", 10)
				addBooking(t, store, "Booking_2", "R505", "Lecture_CRP_1", "2026-01-05T14:00", "2026-01-05T16:00", 5)
				addBooking(t, store, "Booking_3", "R202", "Lecture_CRP_1", "2026-01-05T14:00", "2026-01-05T16:00", 2)
			},
			wantBookingID: "Booking_4",
			wantRoom:      "R202",
			wantRelocated: application.Relocation{
				BookingID: "Booking_3",
				FromRoom:  "R202", FromStart: "2026-01-05T14:00", FromEnd: "2026-01-05T16:00",
				ToRoom: "R101", ToStart: "2026-01-05T08:00", ToEnd: "2026-01-05T10:00",
			},
		},
		{
			name: "blocker keeps its time in another room",
			setup: func(t *testing.T, store *knowledge.Store) {
				require.NoError(t, store.AddActivity(knowledge.Activity{ID: "Seminar_X", Kind: knowledge.Lecture, Attendance: knowledge.Int(10)}))
				addBooking(t, store, "Booking_1", "R101", "Seminar_X", "2026-01-05T14:00", "2026-01-05T16:00", 1)
				addBooking(t, store, "Booking_2", "R202", "Exam_ALG_2", "2026-01-05T14:00", "2026-01-05T16:00", 10)
			},
			wantBookingID: "Booking_3",
			wantRoom:      "R101",
			wantRelocated: application.Relocation{
				BookingID: "Booking_1",
				FromRoom:  "R101", FromStart: "2026-01-05T14:00", FromEnd: "2026-01-05T16:00",
				ToRoom: "R303", ToStart: "2026-01-05T14:00", ToEnd: "2026-01-05T16:00",
			},
			wantSameTime: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := testfixtures.EmptyStore(t)
			tc.setup(t, store)
			svc := testfixtures.NewServiceFactory().Build(store)

			result, err := svc.Placement.CreateBooking(ctx, request)
			require.NoError(t, err)
			assert.Equal(t, tc.wantBookingID, result.BookingID)
			assert.Equal(t, tc.wantRoom, result.RoomID)
			require.NotNil(t, result.Relocated)
			assert.Equal(t, tc.wantRelocated, *result.Relocated)
			assert.Equal(t, tc.wantSameTime, result.Relocated.SameTime())

			moved, ok := store.Booking(tc.wantRelocated.BookingID)
			require.True(t, ok)
			assert.Equal(t, tc.wantRelocated.ToRoom, moved.RoomID)
			assert.Equal(t, tc.wantRelocated.ToStart, moved.Start)
		})
	}
}

func addBooking(t *testing.T, store *knowledge.Store, id, room, activity, start, end string, priority int) {
	t.Helper()
	require.NoError(t, store.AddBooking(knowledge.Booking{
		ID: id, RoomID: room, ActivityID: activity, Start: start, End: end, Priority: priority,
	}))
}
