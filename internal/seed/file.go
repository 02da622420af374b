package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/example/room-scheduler/internal/persistence"
)

// FileVersion is the knowledge-base file format understood by Parse.
const FileVersion = 1

// ErrInvalidFile is returned when a knowledge-base file cannot be used.
var ErrInvalidFile = errors.New("seed: invalid knowledge-base file")

// LoadFile reads a knowledge base from a YAML file.
func LoadFile(path string) (persistence.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("reading knowledge base: %w", err)
	}
	snapshot, err := Parse(bytes.NewReader(data))
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snapshot, nil
}

// Parse decodes a YAML knowledge base of the form
//
//	version: 1
//	knowledge:
//	  equipment: [Projector]
//	  rooms: [{id: R101, capacity: 30, equipment: [Projector]}]
//	  activities: [{id: Lecture_1, kind: Lecture, attendance: 25, requires: [Projector]}]
//	  bookings: [{id: Booking_1, room: R101, activity: Lecture_1, start: "2026-01-05T10:00", end: "2026-01-05T12:00", priority: 1}]
//
// Unknown keys are rejected.
func Parse(r io.Reader) (persistence.Snapshot, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return persistence.Snapshot{}, fmt.Errorf("%w: empty document", ErrInvalidFile)
		}
		return persistence.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	version, ok := doc["version"].(int)
	if !ok || version != FileVersion {
		return persistence.Snapshot{}, fmt.Errorf("%w: version must be %d", ErrInvalidFile, FileVersion)
	}
	body, ok := doc["knowledge"].(map[string]any)
	if !ok {
		return persistence.Snapshot{}, fmt.Errorf("%w: missing knowledge section", ErrInvalidFile)
	}
	for key := range doc {
		if key != "version" && key != "knowledge" {
			return persistence.Snapshot{}, fmt.Errorf("%w: unknown key %q", ErrInvalidFile, key)
		}
	}

	var snapshot persistence.Snapshot
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "yaml",
		ErrorUnused: true,
		Result:      &snapshot,
	})
	if err != nil {
		return persistence.Snapshot{}, err
	}
	if err := decoder.Decode(body); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if err := validate(snapshot); err != nil {
		return persistence.Snapshot{}, err
	}
	return snapshot, nil
}

func validate(s persistence.Snapshot) error {
	var problems []error
	for i, r := range s.Rooms {
		if r.ID == "" {
			problems = append(problems, fmt.Errorf("rooms[%d]: id is required", i))
		}
	}
	for i, a := range s.Activities {
		if a.ID == "" {
			problems = append(problems, fmt.Errorf("activities[%d]: id is required", i))
		}
		if a.Kind != "Lecture" && a.Kind != "Exam" {
			problems = append(problems, fmt.Errorf("activities[%d]: kind must be Lecture or Exam", i))
		}
	}
	for i, b := range s.Bookings {
		if b.ID == "" || b.Room == "" || b.Activity == "" {
			problems = append(problems, fmt.Errorf("bookings[%d]: id, room and activity are required", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidFile, errors.Join(problems...))
	}
	return nil
}
