package application

import (
	"cmp"
	"context"
	"slices"

	"github.com/samber/lo"

	"github.com/example/room-scheduler/internal/knowledge"
	"github.com/example/room-scheduler/internal/scheduler"
)

// EfficiencyClass buckets an efficiency score.
type EfficiencyClass string

const (
	EfficiencyOptimal    EfficiencyClass = "OPTIMAL"
	EfficiencyGood       EfficiencyClass = "GOOD"
	EfficiencyAcceptable EfficiencyClass = "ACCEPTABLE"
	EfficiencyPoor       EfficiencyClass = "POOR"
	EfficiencyVeryPoor   EfficiencyClass = "VERY_POOR"
)

// wastefulThreshold marks bookings worth moving to a better sized room.
const wastefulThreshold = 0.3

// EfficiencyEntry rates how well one booking's attendance fits its room.
type EfficiencyEntry struct {
	BookingID   string
	RoomID      string
	ActivityID  string
	Attendance  int
	Capacity    int
	Utilization float64
	Score       float64
	Class       EfficiencyClass
	// Better lists free, equipped rooms with a higher score, best first. Only filled
	// for wasteful bookings.
	Better []RoomOption
}

// RoomOption is an alternative room for a wasteful booking.
type RoomOption struct {
	RoomID   string
	Capacity int
	Score    float64
}

// EfficiencyReport rates every booking with known attendance and capacity, worst first.
type EfficiencyReport struct {
	Entries  []EfficiencyEntry
	Average  float64
	Wasteful int
}

// efficiencyScore maps utilisation to [0,1]: full marks between 60% and 140%,
// linear falloff below, and down to zero at 200%.
func efficiencyScore(utilization float64) float64 {
	switch {
	case utilization < 0.6:
		return utilization / 0.6
	case utilization > 2.0:
		return 0
	case utilization > 1.4:
		return 1 - (utilization-1.4)/0.6
	default:
		return 1
	}
}

func classifyEfficiency(score float64) EfficiencyClass {
	switch {
	case score >= 0.9:
		return EfficiencyOptimal
	case score >= 0.7:
		return EfficiencyGood
	case score >= 0.5:
		return EfficiencyAcceptable
	case score >= 0.3:
		return EfficiencyPoor
	default:
		return EfficiencyVeryPoor
	}
}

func roomScore(room knowledge.Room, attendance int) (float64, bool) {
	if room.Capacity == nil || *room.Capacity == 0 {
		return 0, false
	}
	return efficiencyScore(float64(attendance) / float64(*room.Capacity)), true
}

// Efficiency rates capacity usage. It never mutates the store.
func (s *QueryService) Efficiency(ctx context.Context) (EfficiencyReport, error) {
	if err := s.ready(); err != nil {
		return EfficiencyReport{}, err
	}

	finder := newRoomFinder(s.store)
	var report EfficiencyReport
	total := 0.0
	for _, b := range finder.bookings {
		activity, ok := finder.activities[b.ActivityID]
		if !ok || activity.Attendance == nil {
			continue
		}
		room, ok := lo.Find(finder.rooms, func(r knowledge.Room) bool { return r.ID == b.RoomID })
		if !ok {
			continue
		}
		score, ok := roomScore(room, *activity.Attendance)
		if !ok {
			continue
		}
		entry := EfficiencyEntry{
			BookingID:   b.ID,
			RoomID:      room.ID,
			ActivityID:  activity.ID,
			Attendance:  *activity.Attendance,
			Capacity:    *room.Capacity,
			Utilization: float64(*activity.Attendance) / float64(*room.Capacity),
			Score:       score,
			Class:       classifyEfficiency(score),
		}
		if score < wastefulThreshold {
			report.Wasteful++
			entry.Better = betterRooms(finder, b, activity, score)
		}
		total += score
		report.Entries = append(report.Entries, entry)
	}

	slices.SortStableFunc(report.Entries, func(a, b EfficiencyEntry) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.BookingID, b.BookingID)
	})
	if len(report.Entries) > 0 {
		report.Average = total / float64(len(report.Entries))
	}
	return report, nil
}

func betterRooms(finder *roomFinder, booking knowledge.Booking, activity knowledge.Activity, current float64) []RoomOption {
	interval, err := scheduler.ParseInterval(booking.Start, booking.End)
	if err != nil {
		return nil
	}
	var options []RoomOption
	for _, room := range finder.rooms {
		if room.ID == booking.RoomID || !knowledge.EquipmentFits(room, activity) {
			continue
		}
		score, ok := roomScore(room, *activity.Attendance)
		if !ok || score <= current || !finder.free(room.ID, interval, booking.ID) {
			continue
		}
		options = append(options, RoomOption{RoomID: room.ID, Capacity: *room.Capacity, Score: score})
	}
	attendance := *activity.Attendance
	slices.SortStableFunc(options, func(a, b RoomOption) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(absInt(a.Capacity-attendance), absInt(b.Capacity-attendance))
	})
	if len(options) > 3 {
		options = options[:3]
	}
	return options
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
