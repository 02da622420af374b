package application

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/scheduler"
)

// unknownCapacity stands in for a missing room capacity when ranking, so such rooms
// sort after every room with a known capacity.
const unknownCapacity = 1_000_000_000

// roomFinder is a read-only view of the store taken at one point in time. Any
// mutation of the store invalidates it.
type roomFinder struct {
	rooms      []knowledge.Room
	activities map[string]knowledge.Activity
	bookings   []knowledge.Booking
	byID       map[string]knowledge.Booking
	entries    []scheduler.Entry
}

func newRoomFinder(store *knowledge.Store) *roomFinder {
	f := &roomFinder{
		rooms:      store.Rooms(),
		activities: lo.KeyBy(store.Activities(), func(a knowledge.Activity) string { return a.ID }),
		bookings:   store.Bookings(),
	}
	f.byID = lo.KeyBy(f.bookings, func(b knowledge.Booking) string { return b.ID })
	for _, b := range f.bookings {
		interval, err := scheduler.ParseInterval(b.Start, b.End)
		if err != nil || b.RoomID == "" {
			continue
		}
		f.entries = append(f.entries, scheduler.Entry{ID: b.ID, RoomID: b.RoomID, Interval: interval})
	}
	return f
}

// suits is the capacity and equipment filter, ignoring time.
func suits(room knowledge.Room, activity knowledge.Activity) bool {
	return knowledge.CapacityFits(room, activity) && knowledge.EquipmentFits(room, activity)
}

func (f *roomFinder) conflicts(roomID string, interval scheduler.Interval, ignoreID string) []scheduler.Conflict {
	return scheduler.DetectConflicts(f.entries, scheduler.Entry{RoomID: roomID, Interval: interval}, ignoreID)
}

func (f *roomFinder) free(roomID string, interval scheduler.Interval, ignoreID string) bool {
	return len(f.conflicts(roomID, interval, ignoreID)) == 0
}

// eligible returns the rooms passing capacity and equipment, in store order.
func (f *roomFinder) eligible(activity knowledge.Activity) []knowledge.Room {
	return lo.Filter(f.rooms, func(r knowledge.Room, _ int) bool {
		return suits(r, activity)
	})
}

// feasible returns the rooms passing every filter, in store order.
func (f *roomFinder) feasible(activity knowledge.Activity, interval scheduler.Interval, ignoreID string) []knowledge.Room {
	return lo.Filter(f.rooms, func(r knowledge.Room, _ int) bool {
		return suits(r, activity) && f.free(r.ID, interval, ignoreID)
	})
}

// fitScore is the best-fit key: smaller leftover first, then more equipment first.
func fitScore(room knowledge.Room, activity knowledge.Activity) (leftover, equipment int) {
	capacity := unknownCapacity
	if room.Capacity != nil {
		capacity = *room.Capacity
	}
	attendance := 0
	if activity.Attendance != nil {
		attendance = *activity.Attendance
	}
	return capacity - attendance, -len(room.Equipment)
}

// rankRooms orders rooms by fitScore. Ties keep store order.
func rankRooms(rooms []knowledge.Room, activity knowledge.Activity) []knowledge.Room {
	ranked := slices.Clone(rooms)
	slices.SortStableFunc(ranked, func(a, b knowledge.Room) int {
		al, ae := fitScore(a, activity)
		bl, be := fitScore(b, activity)
		if al != bl {
			return al - bl
		}
		return ae - be
	})
	return ranked
}

// diagnose explains, per room, why it cannot host the activity over interval.
func (f *roomFinder) diagnose(activity knowledge.Activity, interval scheduler.Interval) []string {
	lines := make([]string, 0, len(f.rooms))
	for _, room := range f.rooms {
		var problems []string
		if !knowledge.CapacityFits(room, activity) {
			problems = append(problems, fmt.Sprintf("capacity %d < attendance %d", *room.Capacity, *activity.Attendance))
		}
		if missing := knowledge.MissingEquipment(room, activity); len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("missing equipment [%s]", strings.Join(missing, ", ")))
		}
		if conflicts := f.conflicts(room.ID, interval, ""); len(conflicts) > 0 {
			described := lo.Map(conflicts, func(c scheduler.Conflict, _ int) string {
				return fmt.Sprintf("%s (%s, priority %d)", c.WithID, c.Interval, f.byID[c.WithID].Priority)
			})
			problems = append(problems, "conflicts with "+strings.Join(described, ", "))
		}
		if len(problems) == 0 {
			lines = append(lines, room.ID+": OK")
			continue
		}
		lines = append(lines, room.ID+": "+strings.Join(problems, "; "))
	}
	return lines
}
