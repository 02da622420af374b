package persistence

import "time"

// Snapshot is the serialisable form of the knowledge base. Derived tags are not stored;
// they are recomputed after loading.
type Snapshot struct {
	Equipment  []string         `json:"equipment" yaml:"equipment"`
	Rooms      []RoomRecord     `json:"rooms" yaml:"rooms"`
	Activities []ActivityRecord `json:"activities" yaml:"activities"`
	Bookings   []BookingRecord  `json:"bookings" yaml:"bookings"`
	// BookingCounter is the highest booking sequence number handed out.
	BookingCounter int `json:"booking_counter" yaml:"booking_counter"`
}

// RoomRecord is a persisted room.
type RoomRecord struct {
	ID        string   `json:"id" yaml:"id"`
	Capacity  *int     `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	Equipment []string `json:"equipment,omitempty" yaml:"equipment,omitempty"`
}

// ActivityRecord is a persisted lecture or exam.
type ActivityRecord struct {
	ID         string   `json:"id" yaml:"id"`
	Kind       string   `json:"kind" yaml:"kind"`
	Attendance *int     `json:"attendance,omitempty" yaml:"attendance,omitempty"`
	Requires   []string `json:"requires,omitempty" yaml:"requires,omitempty"`
	Course     string   `json:"course,omitempty" yaml:"course,omitempty"`
}

// BookingRecord is a persisted reservation.
type BookingRecord struct {
	ID       string `json:"id" yaml:"id"`
	Room     string `json:"room" yaml:"room"`
	Activity string `json:"activity" yaml:"activity"`
	Start    string `json:"start" yaml:"start"`
	End      string `json:"end" yaml:"end"`
	Priority int    `json:"priority" yaml:"priority"`
}

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	ID       string
	SavedAt  time.Time
	Checksum string
	Rooms    int
	Bookings int
}

// Empty reports whether the snapshot holds no entities.
func (s Snapshot) Empty() bool {
	return len(s.Equipment) == 0 && len(s.Rooms) == 0 && len(s.Activities) == 0 && len(s.Bookings) == 0
}
