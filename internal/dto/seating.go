package dto

// GenerateSeatingRequest selects the classrooms used for generation. An
// empty list means "all classrooms matching the exam cohort".
type GenerateSeatingRequest struct {
	ClassroomIDs []string `json:"classroomIds" validate:"omitempty,unique,dive,required"`
}

// SeatProposal is one student-to-seat pairing inside a proposed assignment.
type SeatProposal struct {
	StudentID string `json:"studentId"`
	SeatID    string `json:"seatId"`
}

// ClassroomUsage reports per-classroom seat consumption after generation.
type ClassroomUsage struct {
	ClassroomID string `json:"classroomId"`
	Name        string `json:"name"`
	Assigned    int    `json:"assigned"`
	Capacity    int    `json:"capacity"`
}

// GenerateSeatingResponse summarises a committed generation run.
type GenerateSeatingResponse struct {
	Generated    int              `json:"generated"`
	StudentCount int              `json:"studentCount"`
	SeatCount    int              `json:"seatCount"`
	Strategy     string           `json:"strategy"`
	Classrooms   []ClassroomUsage `json:"classrooms"`
}

// ReassignSeatRequest moves one arrangement onto a new seat.
type ReassignSeatRequest struct {
	SeatID string `json:"seatId" validate:"required"`
}
