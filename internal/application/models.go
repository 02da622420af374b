package application

// BookingRequest asks the placement agent for a room.
type BookingRequest struct {
	ActivityID string
	Start      string
	End        string
	Priority   int
}

// PlacementResult describes a booking created by the placement agent.
type PlacementResult struct {
	BookingID string
	RoomID    string
	// Relocated is set when a lower-priority booking was moved to make room.
	Relocated *Relocation
}

// Relocation records a booking that changed room or interval.
type Relocation struct {
	BookingID string
	FromRoom  string
	FromStart string
	FromEnd   string
	ToRoom    string
	ToStart   string
	ToEnd     string
}

// SameTime reports whether only the room changed.
func (r Relocation) SameTime() bool {
	return r.FromStart == r.ToStart && r.FromEnd == r.ToEnd
}

// Issue labels the problem a suggestion addresses.
type Issue string

const (
	IssueTimeConflict     Issue = "Time conflict"
	IssueUnderCapacity    Issue = "Under capacity"
	IssueMissingEquipment Issue = "Missing equipment"
)

// Target is a proposed placement for an existing booking.
type Target struct {
	RoomID   string
	Start    string
	End      string
	SameTime bool
}

// Suggestion is one repair proposal produced by the audit agent.
type Suggestion struct {
	BookingID      string
	Issue          Issue
	Recommendation string
	// KeepID names the booking that stays put, for time conflicts.
	KeepID string
	// Target is nil when no alternative was found.
	Target *Target
}

// ApplyReport summarises an Apply run.
type ApplyReport struct {
	Applied []Relocation
	Skipped []Suggestion
}

// AvailabilityQuery filters rooms that are free over an interval.
type AvailabilityQuery struct {
	Start       string
	End         string
	MinCapacity *int
	Equipment   []string
}

// ProblemReport lists the ids carrying each derived problem tag, in store order.
type ProblemReport struct {
	Conflicting      []string
	UnderCapacity    []string
	MissingEquipment []string
	OverBooked       []string
}
