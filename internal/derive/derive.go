// Package derive recomputes the problem tags carried by bookings and rooms.
package derive

import (
	"github.com/samber/lo"

	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/scheduler"
)

// Result holds the derived tags for one store state. Id lists follow store order.
type Result struct {
	Tags         map[string]knowledge.Tag
	Availability map[string]knowledge.Availability
	Pairs        []scheduler.Pair

	UnderCapacity    []string
	MissingEquipment []string
	Conflicting      []string
	OverBooked       []string
	Available        []string
}

// Evaluate computes the derived tags without touching any store.
//
// Bookings whose room or activity cannot be resolved get no per-booking tag.
// Bookings whose instants do not parse are left out of conflict detection.
func Evaluate(rooms []knowledge.Room, activities []knowledge.Activity, bookings []knowledge.Booking) Result {
	roomByID := lo.KeyBy(rooms, func(r knowledge.Room) string { return r.ID })
	activityByID := lo.KeyBy(activities, func(a knowledge.Activity) string { return a.ID })

	res := Result{
		Tags:         make(map[string]knowledge.Tag),
		Availability: make(map[string]knowledge.Availability, len(rooms)),
	}

	entries := make([]scheduler.Entry, 0, len(bookings))
	for _, b := range bookings {
		room, roomOK := roomByID[b.RoomID]
		activity, activityOK := activityByID[b.ActivityID]
		if roomOK && activityOK {
			if underCapacity(room, activity) {
				res.Tags[b.ID] |= knowledge.TagUnderCapacity
			}
			if len(activity.RequiredEquipment) > 0 && !knowledge.EquipmentFits(room, activity) {
				res.Tags[b.ID] |= knowledge.TagMissingEquipment
			}
		}

		if b.RoomID == "" {
			continue
		}
		interval, err := scheduler.ParseInterval(b.Start, b.End)
		if err != nil {
			continue
		}
		entries = append(entries, scheduler.Entry{ID: b.ID, RoomID: b.RoomID, Interval: interval})
	}

	res.Pairs = scheduler.ConflictPairs(entries)
	overbooked := make(map[string]bool)
	for _, p := range res.Pairs {
		res.Tags[p.First.ID] |= knowledge.TagConflicting
		res.Tags[p.Second.ID] |= knowledge.TagConflicting
		overbooked[p.RoomID] = true
	}

	res.UnderCapacity = taggedIDs(bookings, res.Tags, knowledge.TagUnderCapacity)
	res.MissingEquipment = taggedIDs(bookings, res.Tags, knowledge.TagMissingEquipment)
	res.Conflicting = taggedIDs(bookings, res.Tags, knowledge.TagConflicting)
	for _, r := range rooms {
		if overbooked[r.ID] {
			res.Availability[r.ID] = knowledge.OverBooked
			res.OverBooked = append(res.OverBooked, r.ID)
			continue
		}
		res.Availability[r.ID] = knowledge.Available
		res.Available = append(res.Available, r.ID)
	}
	return res
}

// Refresh recomputes every derived tag of the store and writes them back.
// It is idempotent.
func Refresh(store *knowledge.Store) Result {
	res := Evaluate(store.Rooms(), store.Activities(), store.Bookings())
	store.ApplyDerived(res.Tags, res.Availability)
	return res
}

// taggedIDs returns the ids of bookings carrying tag, in booking order.
func taggedIDs(bookings []knowledge.Booking, tags map[string]knowledge.Tag, tag knowledge.Tag) []string {
	ids := lo.FilterMap(bookings, func(b knowledge.Booking, _ int) (string, bool) {
		return b.ID, tags[b.ID].Has(tag)
	})
	if len(ids) == 0 {
		return nil
	}
	return ids
}

func underCapacity(room knowledge.Room, activity knowledge.Activity) bool {
	return room.Capacity != nil && activity.Attendance != nil && *room.Capacity < *activity.Attendance
}
