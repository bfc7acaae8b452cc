package dto

// ExamEntryRequest is one exam inside a timetable creation payload.
type ExamEntryRequest struct {
	Subject         string  `json:"subject" validate:"required,min=2"`
	Code            string  `json:"code" validate:"required,min=2"`
	Date            string  `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot        string  `json:"timeSlot" validate:"required,oneof=10:00-13:00 14:00-17:00"`
	DurationMinutes *int    `json:"durationMinutes" validate:"omitempty,min=30,max=300"`
	Venue           *string `json:"venue" validate:"omitempty,min=2"`
}

// CreateTimetableRequest creates a timetable with its exam entries in one
// transaction.
type CreateTimetableRequest struct {
	Title     string             `json:"title" validate:"required,min=3"`
	Branch    string             `json:"branch" validate:"required,min=2,max=8"`
	Year      int                `json:"year" validate:"required,min=1,max=4"`
	StartDate string             `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string             `json:"endDate" validate:"required,datetime=2006-01-02"`
	Exams     []ExamEntryRequest `json:"exams" validate:"required,min=1,dive"`
}

// NotifyResponse reports how many notifications were queued.
type NotifyResponse struct {
	Queued int `json:"queued"`
}
