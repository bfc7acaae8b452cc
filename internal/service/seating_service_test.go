package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seat-api/internal/dto"
	"github.com/noah-isme/exam-seat-api/internal/models"
	"github.com/noah-isme/exam-seat-api/internal/repository"
	"github.com/noah-isme/exam-seat-api/internal/suggest"
	appErrors "github.com/noah-isme/exam-seat-api/pkg/errors"
)

func TestSeatingGenerateFallbackDeterministic(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 3, seatsPerRoom: []int{3}})
	svc := fixture.service()

	resp, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Generated)
	assert.Equal(t, strategyFallback, resp.Strategy)

	first := append([]models.SeatingArrangement(nil), fixture.store.saved...)

	_, err = svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
	require.NoError(t, err)

	require.Len(t, fixture.store.saved, len(first))
	for i := range first {
		assert.Equal(t, first[i].StudentID, fixture.store.saved[i].StudentID)
		assert.Equal(t, first[i].SeatID, fixture.store.saved[i].SeatID)
	}
}

func TestSeatingGenerateWalksRosterInRollOrder(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 3, seatsPerRoom: []int{3}})
	svc := fixture.service()

	_, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
	require.NoError(t, err)

	require.Len(t, fixture.store.saved, 3)
	assert.Equal(t, "student-1", fixture.store.saved[0].StudentID)
	assert.Equal(t, "seat-r1-1", fixture.store.saved[0].SeatID)
	assert.Equal(t, "student-2", fixture.store.saved[1].StudentID)
	assert.Equal(t, "seat-r1-2", fixture.store.saved[1].SeatID)
	assert.Equal(t, "student-3", fixture.store.saved[2].StudentID)
	assert.Equal(t, "seat-r1-3", fixture.store.saved[2].SeatID)
}

func TestSeatingGenerateSpillsIntoNextClassroom(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 5, seatsPerRoom: []int{3, 4}})
	svc := fixture.service()

	resp, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 5, resp.Generated)
	require.Len(t, resp.Classrooms, 2)
	assert.Equal(t, 3, resp.Classrooms[0].Assigned)
	assert.Equal(t, 2, resp.Classrooms[1].Assigned)

	assert.Equal(t, "seat-r2-1", fixture.store.saved[3].SeatID)
	assert.Equal(t, "seat-r2-2", fixture.store.saved[4].SeatID)
}

func TestSeatingGenerateCapacityExceeded(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 4, seatsPerRoom: []int{3}})
	svc := fixture.service()

	_, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, "CAPACITY_EXCEEDED", appErr.Code)
	assert.Equal(t, 4, appErr.Details["required"])
	assert.Equal(t, 3, appErr.Details["available"])
	assert.Empty(t, fixture.store.saved, "nothing may be persisted on capacity failure")
}

func TestSeatingGenerateNoStudents(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 0, seatsPerRoom: []int{3}})
	svc := fixture.service()

	_, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoStudents.Code, appErrors.FromError(err).Code)
}

func TestSeatingGenerateNoSeats(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 2})
	svc := fixture.service()

	_, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoSeats.Code, appErrors.FromError(err).Code)
}

func TestSeatingGenerateUnknownExam(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 2, seatsPerRoom: []int{2}})
	fixture.exams.err = sql.ErrNoRows
	svc := fixture.service()

	_, err := svc.Generate(context.Background(), "missing", dto.GenerateSeatingRequest{}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSeatingGenerateUsesValidHeuristicProposal(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 2, seatsPerRoom: []int{2}})
	fixture.proposer = &proposerStub{proposal: []dto.SeatProposal{
		{StudentID: "student-2", SeatID: "seat-r1-1"},
		{StudentID: "student-1", SeatID: "seat-r1-2"},
	}}
	svc := fixture.service()

	resp, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, strategyHeuristic, resp.Strategy)
	assert.Equal(t, "student-2", fixture.store.saved[0].StudentID)
}

func TestSeatingGenerateRejectsInvalidProposal(t *testing.T) {
	cases := map[string][]dto.SeatProposal{
		"duplicate seat": {
			{StudentID: "student-1", SeatID: "seat-r1-1"},
			{StudentID: "student-2", SeatID: "seat-r1-1"},
		},
		"unknown student": {
			{StudentID: "ghost", SeatID: "seat-r1-1"},
			{StudentID: "student-2", SeatID: "seat-r1-2"},
		},
		"too few assignments": {
			{StudentID: "student-1", SeatID: "seat-r1-1"},
		},
	}

	for name, proposal := range cases {
		t.Run(name, func(t *testing.T) {
			fixture := newSeatingFixture(seatingFixtureConfig{students: 2, seatsPerRoom: []int{2}})
			fixture.proposer = &proposerStub{proposal: proposal}
			svc := fixture.service()

			resp, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
			require.NoError(t, err)
			assert.Equal(t, strategyFallback, resp.Strategy)
			assert.Equal(t, "student-1", fixture.store.saved[0].StudentID)
			assert.Equal(t, "seat-r1-1", fixture.store.saved[0].SeatID)
		})
	}
}

func TestSeatingGenerateHeuristicFailureDegradesSilently(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 2, seatsPerRoom: []int{2}})
	fixture.proposer = &proposerStub{err: fmt.Errorf("upstream timeout")}
	svc := fixture.service()

	resp, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, strategyFallback, resp.Strategy)
	assert.Equal(t, 2, resp.Generated)
}

func TestSeatingGenerateExplicitSelectionOrder(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 4, seatsPerRoom: []int{2, 3}})
	svc := fixture.service()

	// Select the second classroom first; its seats must fill first.
	_, err := svc.Generate(context.Background(), "exam-1", dto.GenerateSeatingRequest{
		ClassroomIDs: []string{"room-2", "room-1"},
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "seat-r2-1", fixture.store.saved[0].SeatID)
	assert.Equal(t, "seat-r2-2", fixture.store.saved[1].SeatID)
	assert.Equal(t, "seat-r2-3", fixture.store.saved[2].SeatID)
	assert.Equal(t, "seat-r1-1", fixture.store.saved[3].SeatID)
}

func TestSeatingReassignSeatOccupied(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 2, seatsPerRoom: []int{2}})
	fixture.store.existing = &models.SeatingArrangement{ID: "arr-1", ExamEntryID: "exam-1", StudentID: "student-1", SeatID: "seat-r1-1"}
	fixture.store.reassignErr = repository.ErrSeatTaken
	svc := fixture.service()

	_, err := svc.Reassign(context.Background(), "exam-1", "arr-1", dto.ReassignSeatRequest{SeatID: "seat-r1-2"}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSeatOccupied.Code, appErrors.FromError(err).Code)
}

func TestSeatingReassignSuccess(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 2, seatsPerRoom: []int{2}})
	fixture.store.existing = &models.SeatingArrangement{ID: "arr-1", ExamEntryID: "exam-1", StudentID: "student-1", SeatID: "seat-r1-1"}
	svc := fixture.service()

	updated, err := svc.Reassign(context.Background(), "exam-1", "arr-1", dto.ReassignSeatRequest{SeatID: "seat-r1-2"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "seat-r1-2", updated.SeatID)
}

func TestSeatingReassignUnknownArrangement(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 2, seatsPerRoom: []int{2}})
	svc := fixture.service()

	_, err := svc.Reassign(context.Background(), "exam-1", "missing", dto.ReassignSeatRequest{SeatID: "seat-r1-2"}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSeatingAvailableSeatsKeepsCurrentSeat(t *testing.T) {
	fixture := newSeatingFixture(seatingFixtureConfig{students: 2, seatsPerRoom: []int{3}})
	fixture.store.occupied = []string{"seat-r1-1", "seat-r1-2"}
	svc := fixture.service()

	seats, err := svc.AvailableSeats(context.Background(), "exam-1", "seat-r1-2")
	require.NoError(t, err)

	ids := make([]string, 0, len(seats))
	for _, seat := range seats {
		ids = append(ids, seat.ID)
	}
	assert.Equal(t, []string{"seat-r1-2", "seat-r1-3"}, ids)
}

// --- Fixtures ---

type seatingFixtureConfig struct {
	students     int
	seatsPerRoom []int
}

type seatingFixture struct {
	exams    *examReaderStub
	roster   *rosterStub
	rooms    *inventoryStub
	store    *storeStub
	proposer seatProposer
}

func newSeatingFixture(cfg seatingFixtureConfig) *seatingFixture {
	students := make([]models.Student, 0, cfg.students)
	for i := 1; i <= cfg.students; i++ {
		students = append(students, models.Student{
			ID:         fmt.Sprintf("student-%d", i),
			RollNumber: fmt.Sprintf("CSE2-%03d", i),
			Branch:     "CSE",
			Year:       2,
		})
	}

	rooms := make([]models.Classroom, 0, len(cfg.seatsPerRoom))
	seatsByRoom := make(map[string][]models.Seat, len(cfg.seatsPerRoom))
	for r, count := range cfg.seatsPerRoom {
		roomID := fmt.Sprintf("room-%d", r+1)
		rooms = append(rooms, models.Classroom{
			ID:       roomID,
			Name:     fmt.Sprintf("Hall %d", r+1),
			Branch:   "CSE",
			Year:     2,
			Capacity: count,
		})
		for i := 1; i <= count; i++ {
			seatsByRoom[roomID] = append(seatsByRoom[roomID], models.Seat{
				ID:          fmt.Sprintf("seat-r%d-%d", r+1, i),
				ClassroomID: roomID,
				SeatNumber:  fmt.Sprintf("A%d", i),
				Position:    i,
			})
		}
	}

	return &seatingFixture{
		exams: &examReaderStub{exam: &models.ExamDetail{
			ExamEntry: models.ExamEntry{ID: "exam-1", Subject: "Algorithms", Code: "CS201"},
			Branch:    "CSE",
			Year:      2,
		}},
		roster: &rosterStub{students: students},
		rooms:  &inventoryStub{rooms: rooms, seats: seatsByRoom},
		store:  &storeStub{},
	}
}

func (f *seatingFixture) service() *SeatingService {
	return NewSeatingService(f.exams, f.roster, f.rooms, f.store, f.proposer, nil, nil, nil, nil, SeatingConfig{
		HeuristicTimeout: time.Second,
	})
}

type examReaderStub struct {
	exam *models.ExamDetail
	err  error
}

func (s *examReaderStub) FindExam(_ context.Context, _ string) (*models.ExamDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.exam, nil
}

type rosterStub struct {
	students []models.Student
}

func (s *rosterStub) ListByCohort(_ context.Context, _ string, _ int) ([]models.Student, error) {
	return s.students, nil
}

type inventoryStub struct {
	rooms []models.Classroom
	seats map[string][]models.Seat
}

func (s *inventoryStub) ListByCohort(_ context.Context, _ string, _ int) ([]models.Classroom, error) {
	return s.rooms, nil
}

func (s *inventoryStub) ListByIDs(_ context.Context, ids []string) ([]models.Classroom, error) {
	byID := make(map[string]models.Classroom, len(s.rooms))
	for _, room := range s.rooms {
		byID[room.ID] = room
	}
	ordered := make([]models.Classroom, 0, len(ids))
	for _, id := range ids {
		room, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("classrooms not found: %s", id)
		}
		ordered = append(ordered, room)
	}
	return ordered, nil
}

func (s *inventoryStub) ListSeatsForClassrooms(_ context.Context, ids []string) (map[string][]models.Seat, error) {
	out := make(map[string][]models.Seat, len(ids))
	for _, id := range ids {
		out[id] = s.seats[id]
	}
	return out, nil
}

func (s *inventoryStub) ListSeatDetailsByCohort(_ context.Context, _ string, _ int) ([]models.SeatDetail, error) {
	var details []models.SeatDetail
	for _, room := range s.rooms {
		for _, seat := range s.seats[room.ID] {
			details = append(details, models.SeatDetail{Seat: seat, ClassroomName: room.Name})
		}
	}
	return details, nil
}

type storeStub struct {
	saved       []models.SeatingArrangement
	existing    *models.SeatingArrangement
	reassignErr error
	occupied    []string
}

func (s *storeStub) ListByExam(_ context.Context, _ string) ([]models.SeatingArrangementDetail, error) {
	details := make([]models.SeatingArrangementDetail, 0, len(s.saved))
	for _, a := range s.saved {
		details = append(details, models.SeatingArrangementDetail{SeatingArrangement: a})
	}
	return details, nil
}

func (s *storeStub) ReplaceForExam(_ context.Context, examID string, arrangements []models.SeatingArrangement) error {
	for i := range arrangements {
		arrangements[i].ExamEntryID = examID
	}
	s.saved = arrangements
	return nil
}

func (s *storeStub) FindByID(_ context.Context, _, arrangementID string) (*models.SeatingArrangement, error) {
	if s.existing == nil || s.existing.ID != arrangementID {
		return nil, sql.ErrNoRows
	}
	return s.existing, nil
}

func (s *storeStub) ReassignSeat(_ context.Context, examID, arrangementID, seatID, userID string) (*models.SeatingArrangement, error) {
	if s.reassignErr != nil {
		return nil, s.reassignErr
	}
	updated := *s.existing
	updated.SeatID = seatID
	updated.AssignedBy = userID
	return &updated, nil
}

func (s *storeStub) DeleteForExam(_ context.Context, _ string) error {
	s.saved = nil
	return nil
}

func (s *storeStub) DeleteOne(_ context.Context, _, _ string) error {
	return nil
}

func (s *storeStub) OccupiedSeatIDs(_ context.Context, _ string) ([]string, error) {
	return s.occupied, nil
}

type proposerStub struct {
	proposal []dto.SeatProposal
	err      error
}

func (p *proposerStub) Propose(_ context.Context, _ suggest.ProposalRequest) ([]dto.SeatProposal, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.proposal, nil
}
