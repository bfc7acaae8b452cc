package models

import "time"

// SeatingArrangement assigns one student to one seat for one exam. Within
// an exam no two arrangements may share a seat or a student; both
// invariants are backed by unique constraints on (exam_entry_id, seat_id)
// and (exam_entry_id, student_id).
type SeatingArrangement struct {
	ID          string    `db:"id" json:"id"`
	ExamEntryID string    `db:"exam_entry_id" json:"exam_entry_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	SeatID      string    `db:"seat_id" json:"seat_id"`
	AssignedBy  string    `db:"assigned_by" json:"assigned_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SeatingArrangementDetail joins an arrangement with student and seat
// context for listings and exports.
type SeatingArrangementDetail struct {
	SeatingArrangement
	StudentRollNumber string `db:"student_roll_number" json:"student_roll_number"`
	StudentName       string `db:"student_name" json:"student_name"`
	SeatNumber        string `db:"seat_number" json:"seat_number"`
	ClassroomID       string `db:"classroom_id" json:"classroom_id"`
	ClassroomName     string `db:"classroom_name" json:"classroom_name"`
}
