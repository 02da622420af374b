// Package seed provides the demonstration knowledge base and reads knowledge bases
// from YAML files.
package seed

import "github.com/example/room-scheduler/internal/persistence"

func intp(v int) *int {
	return &v
}

// Reference returns the demonstration knowledge base: four rooms, six activities and
// six bookings with a conflict, an under-capacity exam and a lab missing computers.
func Reference() persistence.Snapshot {
	return persistence.Snapshot{
		Equipment: []string{"Projector", "Computers", "Whiteboard"},
		Rooms: []persistence.RoomRecord{
			{ID: "R101", Capacity: intp(30), Equipment: []string{"Projector", "Whiteboard"}},
			{ID: "R202", Capacity: intp(60), Equipment: []string{"Projector", "Computers"}},
			{ID: "R303", Capacity: intp(20)},
			{ID: "R404", Capacity: intp(80), Equipment: []string{"Computers"}},
		},
		Activities: []persistence.ActivityRecord{
			{ID: "Lecture_CRP_1", Kind: "Lecture", Attendance: intp(25), Requires: []string{"Projector"}, Course: "CRP"},
			{ID: "Exam_ALG_1", Kind: "Exam", Attendance: intp(55), Requires: []string{"Projector"}, Course: "ALG"},
			{ID: "Lab_PROG_1", Kind: "Lecture", Attendance: intp(30), Requires: []string{"Computers"}, Course: "PROG"},
			{ID: "Exam_MASSIVE_1", Kind: "Exam", Attendance: intp(120), Requires: []string{"Projector"}, Course: "ALG"},
			{ID: "Exam_CRP_SMALL", Kind: "Exam", Attendance: intp(25), Requires: []string{"Projector"}, Course: "CRP"},
			{ID: "Exam_ALG_2", Kind: "Exam", Attendance: intp(55), Requires: []string{"Projector"}, Course: "ALG"},
		},
		Bookings: []persistence.BookingRecord{
			{ID: "Booking_1", Room: "R101", Activity: "Lecture_CRP_1", Start: "2026-01-05T10:00", End: "2026-01-05T12:00", Priority: 1},
			{ID: "Booking_2", Room: "R202", Activity: "Exam_ALG_1", Start: "2026-01-05T10:00", End: "2026-01-05T13:00", Priority: 10},
			{ID: "Booking_3", Room: "R101", Activity: "Exam_ALG_1", Start: "2026-01-05T11:00", End: "2026-01-05T12:30", Priority: 10},
			{ID: "Booking_4", Room: "R101", Activity: "Lab_PROG_1", Start: "2026-01-06T14:00", End: "2026-01-06T16:00", Priority: 5},
			{ID: "Booking_5", Room: "R101", Activity: "Lecture_CRP_1", Start: "2026-01-05T14:00", End: "2026-01-05T16:00", Priority: 1},
			{ID: "Booking_6", Room: "R202", Activity: "Exam_ALG_2", Start: "2026-01-05T14:00", End: "2026-01-05T16:00", Priority: 10},
		},
		BookingCounter: 6,
	}
}
