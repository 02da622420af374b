package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyInterval is returned when an interval does not satisfy start < end.
var ErrEmptyInterval = errors.New("scheduler: interval start must be before end")

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// ParseInterval parses both bounds. It does not require the interval to be non-empty;
// call Valid for that.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseInstant(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseInstant(end)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: e}, nil
}

// Valid reports whether the interval is non-empty.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals share at least one instant.
// Touching intervals do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

func (i Interval) String() string {
	return FormatInstant(i.Start) + ".." + FormatInstant(i.End)
}

// Overlaps is the half-open overlap predicate a_s < b_e && b_s < a_e.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Slot is a candidate (start, end) pair of the relocation grid, kept in wire form.
type Slot struct {
	Start string
	End   string
}

func (s Slot) String() string {
	return s.Start + ".." + s.End
}

// Interval parses the slot bounds.
func (s Slot) Interval() (Interval, error) {
	return ParseInterval(s.Start, s.End)
}

// DefaultSlots returns the built-in candidate time grid.
func DefaultSlots() []Slot {
	return []Slot{
		{Start: "2026-01-05T08:00", End: "2026-01-05T10:00"},
		{Start: "2026-01-05T13:00", End: "2026-01-05T15:00"},
		{Start: "2026-01-05T15:00", End: "2026-01-05T17:00"},
		{Start: "2026-01-06T10:00", End: "2026-01-06T12:00"},
	}
}

// ParseSlots parses a comma separated list of "start..end" pairs.
func ParseSlots(value string) ([]Slot, error) {
	var slots []Slot
	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		start, end, ok := strings.Cut(raw, "..")
		if !ok {
			return nil, fmt.Errorf("scheduler: slot %q: want start..end", raw)
		}
		slot := Slot{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
		interval, err := slot.Interval()
		if err != nil {
			return nil, fmt.Errorf("scheduler: slot %q: %w", raw, err)
		}
		if !interval.Valid() {
			return nil, fmt.Errorf("scheduler: slot %q: %w", raw, ErrEmptyInterval)
		}
		slots = append(slots, slot)
	}
	if len(slots) == 0 {
		return nil, errors.New("scheduler: no slots given")
	}
	return slots, nil
}
