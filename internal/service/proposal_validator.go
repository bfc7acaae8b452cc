package service

import (
	"fmt"

	"github.com/noah-isme/exam-seat-api/internal/dto"
)

// ValidateProposal checks an advisory seating proposal against the roster
// and seat inventory. The check is all or nothing: the first violation
// rejects the whole proposal and no partial result is kept.
func ValidateProposal(proposal []dto.SeatProposal, studentIDs, seatIDs []string) error {
	if len(proposal) != len(studentIDs) {
		return fmt.Errorf("proposal has %d assignments, expected %d", len(proposal), len(studentIDs))
	}

	validStudents := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		validStudents[id] = struct{}{}
	}
	validSeats := make(map[string]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		validSeats[id] = struct{}{}
	}

	seenStudents := make(map[string]struct{}, len(proposal))
	seenSeats := make(map[string]struct{}, len(proposal))
	for i, a := range proposal {
		if a.StudentID == "" || a.SeatID == "" {
			return fmt.Errorf("assignment %d is missing a student or seat id", i)
		}
		if _, ok := validStudents[a.StudentID]; !ok {
			return fmt.Errorf("assignment %d references unknown student %s", i, a.StudentID)
		}
		if _, ok := validSeats[a.SeatID]; !ok {
			return fmt.Errorf("assignment %d references unknown seat %s", i, a.SeatID)
		}
		if _, dup := seenStudents[a.StudentID]; dup {
			return fmt.Errorf("student %s assigned more than once", a.StudentID)
		}
		if _, dup := seenSeats[a.SeatID]; dup {
			return fmt.Errorf("seat %s assigned more than once", a.SeatID)
		}
		seenStudents[a.StudentID] = struct{}{}
		seenSeats[a.SeatID] = struct{}{}
	}
	return nil
}
