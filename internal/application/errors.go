package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested booking does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrUnknownActivity is returned when a request names an activity the store does not hold.
	ErrUnknownActivity = errors.New("application: unknown activity")
	// ErrNoFeasibleRoom is returned when no room can host a request, preemption included.
	ErrNoFeasibleRoom = errors.New("application: no feasible room")
	// ErrBadRequest is returned for malformed arguments. State is never touched.
	ErrBadRequest = errors.New("application: bad request")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap classifies every validation failure as a bad request.
func (v *ValidationError) Unwrap() error {
	return ErrBadRequest
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// PlacementError reports why a booking request could not be placed. Details holds one
// line per room.
type PlacementError struct {
	ActivityID string
	Interval   string
	Details    []string
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("no feasible room for %s at %s", e.ActivityID, e.Interval)
}

// Unwrap lets callers match ErrNoFeasibleRoom.
func (e *PlacementError) Unwrap() error {
	return ErrNoFeasibleRoom
}
