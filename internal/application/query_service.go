package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/scheduler"
)

// QueryService answers read-only questions about the store. It relies on the
// mutating services having refreshed derived tags.
type QueryService struct {
	store  *knowledge.Store
	logger *slog.Logger
}

// NewQueryService constructs a query service over store.
func NewQueryService(store *knowledge.Store) *QueryService {
	return NewQueryServiceWithLogger(store, nil)
}

// NewQueryServiceWithLogger constructs a query service with a specified logger.
func NewQueryServiceWithLogger(store *knowledge.Store, logger *slog.Logger) *QueryService {
	return &QueryService{store: store, logger: defaultLogger(logger)}
}

func (s *QueryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "QueryService", operation, attrs...)
}

func (s *QueryService) ready() error {
	if s == nil {
		return fmt.Errorf("QueryService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("knowledge store not configured")
	}
	return nil
}

// Rooms lists rooms in store order.
func (s *QueryService) Rooms(ctx context.Context) ([]knowledge.Room, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Rooms(), nil
}

// Activities lists activities in store order.
func (s *QueryService) Activities(ctx context.Context) ([]knowledge.Activity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Activities(), nil
}

// Bookings lists bookings ordered by start instant, then id.
func (s *QueryService) Bookings(ctx context.Context) ([]knowledge.Booking, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	bookings := s.store.Bookings()
	// Instants share one fixed-width layout, so lexical order is chronological.
	slices.SortStableFunc(bookings, func(a, b knowledge.Booking) int {
		if c := strings.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return bookings, nil
}

// Booking returns one booking or ErrNotFound.
func (s *QueryService) Booking(ctx context.Context, id string) (knowledge.Booking, error) {
	if err := s.ready(); err != nil {
		return knowledge.Booking{}, err
	}
	booking, ok := s.store.Booking(id)
	if !ok {
		return knowledge.Booking{}, fmt.Errorf("%w: booking %s", ErrNotFound, id)
	}
	return booking, nil
}

// AvailableRooms lists the ids of rooms tagged Available.
func (s *QueryService) AvailableRooms(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	available := lo.Filter(s.store.Rooms(), func(r knowledge.Room, _ int) bool {
		return r.Availability == knowledge.Available
	})
	return lo.Map(available, func(r knowledge.Room, _ int) string { return r.ID }), nil
}

// Problems lists the ids under each derived problem tag.
func (s *QueryService) Problems(ctx context.Context) (ProblemReport, error) {
	if err := s.ready(); err != nil {
		return ProblemReport{}, err
	}
	var report ProblemReport
	for _, b := range s.store.Bookings() {
		if b.Tags.Has(knowledge.TagConflicting) {
			report.Conflicting = append(report.Conflicting, b.ID)
		}
		if b.Tags.Has(knowledge.TagUnderCapacity) {
			report.UnderCapacity = append(report.UnderCapacity, b.ID)
		}
		if b.Tags.Has(knowledge.TagMissingEquipment) {
			report.MissingEquipment = append(report.MissingEquipment, b.ID)
		}
	}
	for _, r := range s.store.Rooms() {
		if r.Availability == knowledge.OverBooked {
			report.OverBooked = append(report.OverBooked, r.ID)
		}
	}
	return report, nil
}

// AvailableBetween lists rooms free over the query interval that meet the optional
// capacity and equipment constraints. Rooms with unknown capacity pass the capacity
// constraint.
func (s *QueryService) AvailableBetween(ctx context.Context, query AvailabilityQuery) (rooms []knowledge.Room, err error) {
	if err = s.ready(); err != nil {
		return nil, err
	}

	logger := s.loggerWith(ctx, "AvailableBetween", "start", query.Start, "end", query.End)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "availability query rejected", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var interval scheduler.Interval
	interval, err = scheduler.ParseInterval(query.Start, query.End)
	if err != nil {
		return nil, err
	}
	vErr := &ValidationError{}
	if !interval.Valid() {
		vErr.add("end", "must be after start")
	}
	if query.MinCapacity != nil && *query.MinCapacity < 0 {
		vErr.add("min_capacity", "must not be negative")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	finder := newRoomFinder(s.store)
	need := knowledge.Activity{Attendance: query.MinCapacity, RequiredEquipment: query.Equipment}
	return lo.Filter(finder.rooms, func(r knowledge.Room, _ int) bool {
		return suits(r, need) && finder.free(r.ID, interval, "")
	}), nil
}
