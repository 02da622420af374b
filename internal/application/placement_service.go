package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/example/room-scheduler/internal/derive"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/scheduler"
)

// DefaultHighPriorityThreshold is the lowest priority allowed to preempt a blocker.
const DefaultHighPriorityThreshold = 8

// PlacementService places new bookings, preempting a lower-priority blocker when the
// request is important enough.
type PlacementService struct {
	store     *knowledge.Store
	slots     []scheduler.Slot
	threshold int
	logger    *slog.Logger
}

// NewPlacementService constructs a placement service over store.
func NewPlacementService(store *knowledge.Store, slots []scheduler.Slot, threshold int) *PlacementService {
	return NewPlacementServiceWithLogger(store, slots, threshold, nil)
}

// NewPlacementServiceWithLogger constructs a placement service with a specified logger.
func NewPlacementServiceWithLogger(store *knowledge.Store, slots []scheduler.Slot, threshold int, logger *slog.Logger) *PlacementService {
	if len(slots) == 0 {
		slots = scheduler.DefaultSlots()
	}
	if threshold <= 0 {
		threshold = DefaultHighPriorityThreshold
	}
	return &PlacementService{
		store:     store,
		slots:     slices.Clone(slots),
		threshold: threshold,
		logger:    defaultLogger(logger),
	}
}

func (s *PlacementService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PlacementService", operation, attrs...)
}

// CreateBooking finds a room for the request and materialises the booking. On failure
// the store is left exactly as it was.
func (s *PlacementService) CreateBooking(ctx context.Context, req BookingRequest) (result PlacementResult, err error) {
	if s == nil {
		err = fmt.Errorf("PlacementService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("knowledge store not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"activity_id", req.ActivityID,
		"start", req.Start,
		"end", req.End,
		"priority", req.Priority,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		attrs := []any{"booking_id", result.BookingID, "room_id", result.RoomID}
		if result.Relocated != nil {
			attrs = append(attrs, "relocated_id", result.Relocated.BookingID)
		}
		logger.With(attrs...).InfoContext(ctx, "booking created")
	}()

	var interval scheduler.Interval
	interval, err = validateBookingRequest(req)
	if err != nil {
		return
	}

	err = s.store.Exclusive(func() error {
		var placeErr error
		result, placeErr = s.place(ctx, logger, req, interval)
		return placeErr
	})
	return
}

func validateBookingRequest(req BookingRequest) (scheduler.Interval, error) {
	vErr := &ValidationError{}
	if strings.TrimSpace(req.ActivityID) == "" {
		vErr.add("activity", "is required")
	}
	start, startErr := scheduler.ParseInstant(req.Start)
	end, endErr := scheduler.ParseInstant(req.End)
	if err := errors.Join(startErr, endErr); err != nil {
		return scheduler.Interval{}, err
	}
	interval := scheduler.Interval{Start: start, End: end}
	if !interval.Valid() {
		vErr.add("end", "must be after start")
	}
	if vErr.HasErrors() {
		return scheduler.Interval{}, vErr
	}
	return interval, nil
}

func (s *PlacementService) place(ctx context.Context, logger *slog.Logger, req BookingRequest, interval scheduler.Interval) (PlacementResult, error) {
	activity, ok := s.store.Activity(req.ActivityID)
	if !ok {
		return PlacementResult{}, fmt.Errorf("%w: %s", ErrUnknownActivity, req.ActivityID)
	}

	candidates := newRoomFinder(s.store).feasible(activity, interval, "")

	var relocated *Relocation
	if len(candidates) == 0 && req.Priority >= s.threshold {
		var err error
		relocated, candidates, err = s.preempt(ctx, logger, activity, req.Priority, interval)
		if err != nil {
			return PlacementResult{}, err
		}
	}

	if len(candidates) == 0 {
		return PlacementResult{}, &PlacementError{
			ActivityID: activity.ID,
			Interval:   interval.String(),
			Details:    newRoomFinder(s.store).diagnose(activity, interval),
		}
	}

	chosen := rankRooms(candidates, activity)[0]
	booking := knowledge.Booking{
		ID:         s.store.NextBookingID(),
		RoomID:     chosen.ID,
		ActivityID: activity.ID,
		Start:      req.Start,
		End:        req.End,
		Priority:   req.Priority,
	}
	if err := s.store.AddBooking(booking); err != nil {
		if relocated != nil {
			err = errors.Join(err, restore(s.store, *relocated))
		}
		return PlacementResult{}, err
	}
	derive.Refresh(s.store)

	return PlacementResult{BookingID: booking.ID, RoomID: chosen.ID, Relocated: relocated}, nil
}

type blocker struct {
	booking   knowledge.Booking
	preferred bool
}

// preempt relocates at most one strictly lower-priority booking that blocks a room
// able to host the activity. If the request still cannot be placed afterwards the
// move is rolled back and no candidates are returned.
func (s *PlacementService) preempt(ctx context.Context, logger *slog.Logger, activity knowledge.Activity, priority int, interval scheduler.Interval) (*Relocation, []knowledge.Room, error) {
	finder := newRoomFinder(s.store)

	eligible := finder.eligible(activity)
	if len(eligible) == 0 {
		logger.DebugContext(ctx, "preemption skipped", "reason", "no room meets capacity and equipment")
		return nil, nil, nil
	}
	preferred := rankRooms(eligible, activity)[0].ID
	eligibleIDs := make(map[string]bool, len(eligible))
	for _, r := range eligible {
		eligibleIDs[r.ID] = true
	}

	var blockers []blocker
	for _, b := range finder.bookings {
		if !eligibleIDs[b.RoomID] || b.Priority >= priority {
			continue
		}
		bi, err := scheduler.ParseInterval(b.Start, b.End)
		if err != nil || !bi.Overlaps(interval) {
			continue
		}
		blockers = append(blockers, blocker{booking: b, preferred: b.RoomID == preferred})
	}
	if len(blockers) == 0 {
		logger.DebugContext(ctx, "preemption skipped", "reason", "no lower-priority blocker")
		return nil, nil, nil
	}
	slices.SortStableFunc(blockers, func(a, b blocker) int {
		if a.preferred != b.preferred {
			if a.preferred {
				return -1
			}
			return 1
		}
		return a.booking.Priority - b.booking.Priority
	})

	victim := blockers[0].booking
	moved, ok, err := relocate(s.store, s.slots, victim)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		logger.DebugContext(ctx, "preemption failed", "blocker_id", victim.ID, "reason", "no alternative placement")
		return nil, nil, nil
	}

	candidates := newRoomFinder(s.store).feasible(activity, interval, "")
	if len(candidates) == 0 {
		if err := restore(s.store, moved); err != nil {
			return nil, nil, err
		}
		logger.DebugContext(ctx, "preemption rolled back", "blocker_id", victim.ID)
		return nil, nil, nil
	}

	logger.InfoContext(ctx, "blocker relocated",
		"blocker_id", moved.BookingID,
		"from_room", moved.FromRoom,
		"to_room", moved.ToRoom,
		"to_start", moved.ToStart,
		"to_end", moved.ToEnd,
	)
	return &moved, candidates, nil
}
