package models

import "time"

// Timetable is the parent of exam entries for one (branch, year) cohort.
type Timetable struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Branch    string    `db:"branch" json:"branch"`
	Year      int       `db:"year" json:"year"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ExamEntry belongs to exactly one timetable; timetable deletion cascades.
type ExamEntry struct {
	ID              string    `db:"id" json:"id"`
	TimetableID     string    `db:"timetable_id" json:"timetable_id"`
	Subject         string    `db:"subject" json:"subject"`
	Code            string    `db:"code" json:"code"`
	ExamDate        time.Time `db:"exam_date" json:"exam_date"`
	TimeSlot        string    `db:"time_slot" json:"time_slot"`
	DurationMinutes *int      `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Venue           *string   `db:"venue" json:"venue,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TimetableDetail bundles a timetable with its exam entries.
type TimetableDetail struct {
	Timetable
	Exams []ExamEntry `json:"exams"`
}

// ExamDetail joins an exam entry with its parent timetable's cohort, which
// scopes roster and seat inventory lookups.
type ExamDetail struct {
	ExamEntry
	TimetableTitle string `db:"timetable_title" json:"timetable_title"`
	Branch         string `db:"branch" json:"branch"`
	Year           int    `db:"year" json:"year"`
}
