package scheduler

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// InstantLayout is the wall-clock layout accepted for booking instants.
const InstantLayout = "2006-01-02T15:04"

// ErrBadInstant is returned when an instant does not match InstantLayout.
var ErrBadInstant = errors.New("scheduler: bad instant")

// time.Parse tolerates single digit hours, so the shape is checked first.
var instantPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}$`)

// ParseInstant parses a local wall-clock instant with minute precision.
// Seconds and zone offsets are rejected.
func ParseInstant(value string) (time.Time, error) {
	if !instantPattern.MatchString(value) {
		return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DDTHH:MM)", ErrBadInstant, value)
	}
	t, err := time.ParseInLocation(InstantLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrBadInstant, value, err)
	}
	return t, nil
}

// FormatInstant renders t using InstantLayout.
func FormatInstant(t time.Time) string {
	return t.Format(InstantLayout)
}
