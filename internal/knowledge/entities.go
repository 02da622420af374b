package knowledge

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Kind names the entity classes held by the store.
type Kind string

const (
	KindEquipment Kind = "Equipment"
	KindRoom      Kind = "Room"
	KindActivity  Kind = "Activity"
	KindBooking   Kind = "Booking"
)

// ActivityKind distinguishes lectures from exams. It affects display and the
// priority convention only.
type ActivityKind string

const (
	Lecture ActivityKind = "Lecture"
	Exam    ActivityKind = "Exam"
)

// Valid reports whether k is a known activity variant.
func (k ActivityKind) Valid() bool {
	return k == Lecture || k == Exam
}

// Availability is the derived room tag.
type Availability string

const (
	AvailabilityUnknown Availability = ""
	Available           Availability = "Available"
	OverBooked          Availability = "OverBooked"
)

// Tag is a bitmask of derived booking problems.
type Tag uint8

const (
	TagUnderCapacity Tag = 1 << iota
	TagMissingEquipment
	TagConflicting
)

// Has reports whether every bit of other is set on t.
func (t Tag) Has(other Tag) bool {
	return other != 0 && t&other == other
}

func (t Tag) String() string {
	var names []string
	if t.Has(TagUnderCapacity) {
		names = append(names, "UnderCapacity")
	}
	if t.Has(TagMissingEquipment) {
		names = append(names, "MissingEquipment")
	}
	if t.Has(TagConflicting) {
		names = append(names, "Conflicting")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Room is a bookable space. A nil Capacity means the capacity is unknown.
type Room struct {
	ID           string
	Capacity     *int
	Equipment    []string
	Availability Availability
}

// Activity is a lecture or exam that needs a room. A nil Attendance means unknown.
type Activity struct {
	ID                string
	Kind              ActivityKind
	Attendance        *int
	RequiredEquipment []string
	Course            string
}

// Booking binds one activity to one room over [Start, End). Instants are kept in
// their wire form so state restored from disk survives even when malformed.
type Booking struct {
	ID         string
	RoomID     string
	ActivityID string
	Start      string
	End        string
	Priority   int
	Tags       Tag
}

// Int returns a pointer to v, for optional capacity and attendance fields.
func Int(v int) *int {
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneRoom(r Room) Room {
	r.Capacity = cloneInt(r.Capacity)
	r.Equipment = slices.Clone(r.Equipment)
	return r
}

func cloneActivity(a Activity) Activity {
	a.Attendance = cloneInt(a.Attendance)
	a.RequiredEquipment = slices.Clone(a.RequiredEquipment)
	return a
}

// CapacityFits is the permissive capacity predicate: unknown capacity or unknown
// attendance always fits.
func CapacityFits(room Room, activity Activity) bool {
	if room.Capacity == nil || activity.Attendance == nil {
		return true
	}
	return *room.Capacity >= *activity.Attendance
}

// MissingEquipment returns the required equipment not installed in the room, in
// the activity's order.
func MissingEquipment(room Room, activity Activity) []string {
	missing := lo.Filter(activity.RequiredEquipment, func(eq string, _ int) bool {
		return !lo.Contains(room.Equipment, eq)
	})
	if len(missing) == 0 {
		return nil
	}
	return missing
}

// EquipmentFits reports whether the room installs every required item.
func EquipmentFits(room Room, activity Activity) bool {
	return len(MissingEquipment(room, activity)) == 0
}
