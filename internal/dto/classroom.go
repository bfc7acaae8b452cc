package dto

// CreateClassroomRequest creates a classroom and its full seat set.
// Capacity is derived as cols * seatsPerCol.
type CreateClassroomRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Branch      string `json:"branch" validate:"required,min=2,max=8"`
	Year        int    `json:"year" validate:"required,min=1,max=4"`
	Cols        int    `json:"cols" validate:"required,min=1"`
	SeatsPerCol int    `json:"seatsPerCol" validate:"required,min=1"`
}
