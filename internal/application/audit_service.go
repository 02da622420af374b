package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/example/room-scheduler/internal/derive"
	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/scheduler"
)

// AuditService proposes, and on request applies, repairs for problem bookings.
type AuditService struct {
	store  *knowledge.Store
	slots  []scheduler.Slot
	cache  *suggestionCache
	logger *slog.Logger
}

// NewAuditService constructs an audit service over store.
func NewAuditService(store *knowledge.Store, slots []scheduler.Slot) *AuditService {
	return NewAuditServiceWithLogger(store, slots, nil, nil)
}

// NewAuditServiceWithLogger constructs an audit service with a specified clock and logger.
func NewAuditServiceWithLogger(store *knowledge.Store, slots []scheduler.Slot, now func() time.Time, logger *slog.Logger) *AuditService {
	if len(slots) == 0 {
		slots = scheduler.DefaultSlots()
	}
	return &AuditService{
		store:  store,
		slots:  slices.Clone(slots),
		cache:  newSuggestionCache(time.Minute, 16, now),
		logger: defaultLogger(logger),
	}
}

func (s *AuditService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuditService", operation, attrs...)
}

// GenerateSuggestions returns at most one suggestion per problem booking: time
// conflicts first, then under-capacity, then missing equipment. It never mutates
// the store.
func (s *AuditService) GenerateSuggestions(ctx context.Context) (suggestions []Suggestion, err error) {
	if s == nil {
		err = fmt.Errorf("AuditService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("knowledge store not configured")
		return
	}

	logger := s.loggerWith(ctx, "GenerateSuggestions")
	cached := false
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to generate suggestions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", len(suggestions), "cached", cached).InfoContext(ctx, "suggestions generated")
	}()

	err = s.store.Exclusive(func() error {
		key := revisionKey(s.store.Revision())
		if hit, ok := s.cache.Get(key); ok {
			suggestions, cached = hit, true
			return nil
		}
		suggestions = s.suggest()
		s.cache.Store(key, suggestions)
		return nil
	})
	return
}

// Apply runs the audit and moves every booking whose suggestion names a concrete
// placement. Targets are re-validated as earlier moves may have taken them.
func (s *AuditService) Apply(ctx context.Context) (report ApplyReport, err error) {
	if s == nil {
		err = fmt.Errorf("AuditService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("knowledge store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Apply")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to apply suggestions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("applied", len(report.Applied), "skipped", len(report.Skipped)).InfoContext(ctx, "suggestions applied")
	}()

	err = s.store.Exclusive(func() error {
		for _, suggestion := range s.suggest() {
			if suggestion.Target == nil {
				report.Skipped = append(report.Skipped, suggestion)
				continue
			}
			booking, ok := s.store.Booking(suggestion.BookingID)
			if !ok || !stillValid(newRoomFinder(s.store), booking, *suggestion.Target) {
				report.Skipped = append(report.Skipped, suggestion)
				continue
			}
			target := suggestion.Target
			if err := s.store.MoveBooking(booking.ID, target.RoomID, target.Start, target.End); err != nil {
				return fmt.Errorf("apply suggestion for %s: %w", booking.ID, err)
			}
			report.Applied = append(report.Applied, Relocation{
				BookingID: booking.ID,
				FromRoom:  booking.RoomID,
				FromStart: booking.Start,
				FromEnd:   booking.End,
				ToRoom:    target.RoomID,
				ToStart:   target.Start,
				ToEnd:     target.End,
			})
		}
		if len(report.Applied) > 0 {
			derive.Refresh(s.store)
			s.cache.Invalidate()
		}
		return nil
	})
	return
}

// suggest must run under the store's exclusive lock.
func (s *AuditService) suggest() []Suggestion {
	finder := newRoomFinder(s.store)
	res := derive.Evaluate(finder.rooms, s.store.Activities(), finder.bookings)

	var suggestions []Suggestion
	addressed := make(map[string]bool)

	for _, pair := range res.Pairs {
		first, second := finder.byID[pair.First.ID], finder.byID[pair.Second.ID]
		move, keep := first, second
		if second.Priority < first.Priority || (second.Priority == first.Priority && second.ID < first.ID) {
			move, keep = second, first
		}
		if addressed[move.ID] {
			continue
		}
		addressed[move.ID] = true

		suggestion := Suggestion{BookingID: move.ID, Issue: IssueTimeConflict, KeepID: keep.ID}
		suggestion.Target = findAlternative(finder, s.slots, move)
		switch {
		case suggestion.Target == nil:
			suggestion.Recommendation = fmt.Sprintf("Conflict with %s. No alternative found; expand time grid or add rooms.", keep.ID)
		case suggestion.Target.SameTime:
			suggestion.Recommendation = fmt.Sprintf("Conflict with %s. Move %s to room %s at the same time.", keep.ID, move.ID, suggestion.Target.RoomID)
		default:
			suggestion.Recommendation = fmt.Sprintf("Conflict with %s. Reschedule %s: %s.", keep.ID, move.ID, describeTarget(*suggestion.Target))
		}
		suggestions = append(suggestions, suggestion)
	}

	for _, id := range res.UnderCapacity {
		if addressed[id] {
			continue
		}
		addressed[id] = true

		suggestion := Suggestion{BookingID: id, Issue: IssueUnderCapacity}
		suggestion.Target = findAlternative(finder, s.slots, finder.byID[id])
		switch {
		case suggestion.Target == nil:
			suggestion.Recommendation = "No suitable room found; expand time grid or require new room."
		case suggestion.Target.SameTime:
			suggestion.Recommendation = fmt.Sprintf("Move to room %s at the same time.", suggestion.Target.RoomID)
		default:
			suggestion.Recommendation = fmt.Sprintf("Reschedule to a slot with a suitable room: %s.", describeTarget(*suggestion.Target))
		}
		suggestions = append(suggestions, suggestion)
	}

	for _, id := range res.MissingEquipment {
		if addressed[id] {
			continue
		}
		addressed[id] = true

		suggestion := Suggestion{BookingID: id, Issue: IssueMissingEquipment}
		suggestion.Target = findAlternative(finder, s.slots, finder.byID[id])
		switch {
		case suggestion.Target == nil:
			suggestion.Recommendation = "No alternative found; expand time grid or add equipment."
		case suggestion.Target.SameTime:
			suggestion.Recommendation = fmt.Sprintf("Move to room %s at the same time.", suggestion.Target.RoomID)
		default:
			suggestion.Recommendation = fmt.Sprintf("Reschedule: %s.", describeTarget(*suggestion.Target))
		}
		suggestions = append(suggestions, suggestion)
	}

	return suggestions
}

func describeTarget(t Target) string {
	return fmt.Sprintf("%s..%s in %s", t.Start, t.End, t.RoomID)
}
