package models

import "time"

// Student represents an enrolled examinee. Students are immutable once
// created and belong to a (branch, year) cohort.
type Student struct {
	ID         string    `db:"id" json:"id"`
	RollNumber string    `db:"roll_number" json:"roll_number"`
	FullName   string    `db:"full_name" json:"full_name"`
	Branch     string    `db:"branch" json:"branch"`
	Year       int       `db:"year" json:"year"`
	Email      string    `db:"email" json:"email"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Branch    string
	Year      int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
