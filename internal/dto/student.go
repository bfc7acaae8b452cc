package dto

// CreateStudentRequest registers a new student in a cohort.
type CreateStudentRequest struct {
	RollNumber string `json:"rollNumber" validate:"required,min=3"`
	FullName   string `json:"fullName" validate:"required,min=2"`
	Branch     string `json:"branch" validate:"required,min=2,max=8"`
	Year       int    `json:"year" validate:"required,min=1,max=4"`
	Email      string `json:"email" validate:"omitempty,email"`
}
