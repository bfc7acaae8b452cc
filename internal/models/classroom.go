package models

import "time"

// Classroom owns a fixed set of seats created at classroom-creation time.
// Capacity always equals cols * seats_per_col and therefore the seat count.
type Classroom struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Branch      string    `db:"branch" json:"branch"`
	Year        int       `db:"year" json:"year"`
	Cols        int       `db:"cols" json:"cols"`
	SeatsPerCol int       `db:"seats_per_col" json:"seats_per_col"`
	Capacity    int       `db:"capacity" json:"capacity"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Seat is exclusively owned by one classroom for its lifetime. Position is
// the stable fill order used by the deterministic generator; the column/row
// placement is derived from it for rendering only.
type Seat struct {
	ID          string    `db:"id" json:"id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	SeatNumber  string    `db:"seat_number" json:"seat_number"`
	Position    int       `db:"position" json:"position"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ClassroomDetail bundles a classroom with its seats in stored order.
type ClassroomDetail struct {
	Classroom
	Seats []Seat `json:"seats"`
}

// SeatDetail is a seat joined with its owning classroom, used when the
// caller needs classroom context (edit modal, exports).
type SeatDetail struct {
	Seat
	ClassroomName   string `db:"classroom_name" json:"classroom_name"`
	ClassroomBranch string `db:"classroom_branch" json:"classroom_branch"`
	ClassroomYear   int    `db:"classroom_year" json:"classroom_year"`
}
