package application

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/scheduler"
)

// findAlternative proposes a new placement for an existing booking. It first looks for
// another room at the same time, then walks the candidate grid trying every room,
// the current one included. Candidates must pass capacity and equipment for the
// booking's activity and be free ignoring the booking itself. It returns nil when
// nothing fits or the booking's activity cannot be resolved.
func findAlternative(f *roomFinder, slots []scheduler.Slot, booking knowledge.Booking) *Target {
	activity, ok := f.activities[booking.ActivityID]
	if !ok {
		return nil
	}

	if current, err := scheduler.ParseInterval(booking.Start, booking.End); err == nil && booking.RoomID != "" {
		for _, room := range f.rooms {
			if room.ID == booking.RoomID || !suits(room, activity) {
				continue
			}
			if f.free(room.ID, current, booking.ID) {
				return &Target{RoomID: room.ID, Start: booking.Start, End: booking.End, SameTime: true}
			}
		}
	}

	for _, slot := range slots {
		interval, err := slot.Interval()
		if err != nil || !interval.Valid() {
			continue
		}
		for _, room := range f.rooms {
			if !suits(room, activity) {
				continue
			}
			if f.free(room.ID, interval, booking.ID) {
				return &Target{RoomID: room.ID, Start: slot.Start, End: slot.End}
			}
		}
	}
	return nil
}

// stillValid re-checks a target against a fresh view of the store.
func stillValid(f *roomFinder, booking knowledge.Booking, target Target) bool {
	activity, ok := f.activities[booking.ActivityID]
	if !ok {
		return false
	}
	room, ok := lo.Find(f.rooms, func(r knowledge.Room) bool { return r.ID == target.RoomID })
	if !ok || !suits(room, activity) {
		return false
	}
	interval, err := scheduler.ParseInterval(target.Start, target.End)
	if err != nil || !interval.Valid() {
		return false
	}
	return f.free(room.ID, interval, booking.ID)
}

// relocate moves booking to the first alternative findAlternative proposes. When none
// exists it reports false and leaves the store untouched.
func relocate(store *knowledge.Store, slots []scheduler.Slot, booking knowledge.Booking) (Relocation, bool, error) {
	target := findAlternative(newRoomFinder(store), slots, booking)
	if target == nil {
		return Relocation{}, false, nil
	}
	if err := store.MoveBooking(booking.ID, target.RoomID, target.Start, target.End); err != nil {
		return Relocation{}, false, fmt.Errorf("relocate %s: %w", booking.ID, err)
	}
	return Relocation{
		BookingID: booking.ID,
		FromRoom:  booking.RoomID,
		FromStart: booking.Start,
		FromEnd:   booking.End,
		ToRoom:    target.RoomID,
		ToStart:   target.Start,
		ToEnd:     target.End,
	}, true, nil
}

// restore undoes a relocation.
func restore(store *knowledge.Store, moved Relocation) error {
	if err := store.MoveBooking(moved.BookingID, moved.FromRoom, moved.FromStart, moved.FromEnd); err != nil {
		return fmt.Errorf("roll back %s: %w", moved.BookingID, err)
	}
	return nil
}
