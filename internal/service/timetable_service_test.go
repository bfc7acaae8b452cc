package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seat-api/internal/dto"
	"github.com/noah-isme/exam-seat-api/internal/models"
	appErrors "github.com/noah-isme/exam-seat-api/pkg/errors"
)

type timetableRepoStub struct {
	created *models.Timetable
	exams   []models.ExamEntry
	detail  *models.TimetableDetail
}

func (s *timetableRepoStub) CreateWithExams(_ context.Context, timetable *models.Timetable, exams []models.ExamEntry) error {
	timetable.ID = "tt-1"
	s.created = timetable
	s.exams = exams
	return nil
}

func (s *timetableRepoStub) List(_ context.Context) ([]models.Timetable, error) { return nil, nil }

func (s *timetableRepoStub) FindDetail(_ context.Context, id string) (*models.TimetableDetail, error) {
	if s.detail == nil || s.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.detail, nil
}

func (s *timetableRepoStub) Delete(_ context.Context, _ string) error { return nil }

func (s *timetableRepoStub) FindExam(_ context.Context, _ string) (*models.ExamDetail, error) {
	return nil, sql.ErrNoRows
}

type notifierStub struct {
	queued int
}

func (n *notifierStub) NotifyTimetable(_ *models.TimetableDetail, students []models.Student) (int, error) {
	n.queued = len(students)
	return n.queued, nil
}

func validTimetableRequest() dto.CreateTimetableRequest {
	return dto.CreateTimetableRequest{
		Title:     "End Semester March 2026",
		Branch:    "cse",
		Year:      2,
		StartDate: "2026-03-10",
		EndDate:   "2026-03-20",
		Exams: []dto.ExamEntryRequest{
			{Subject: "Algorithms", Code: "CS201", Date: "2026-03-12", TimeSlot: "10:00-13:00"},
			{Subject: "Databases", Code: "CS202", Date: "2026-03-14", TimeSlot: "14:00-17:00"},
		},
	}
}

func TestTimetableServiceCreateNormalisesBranch(t *testing.T) {
	repo := &timetableRepoStub{}
	svc := NewTimetableService(repo, &rosterStub{}, nil, nil, nil)

	detail, err := svc.Create(context.Background(), validTimetableRequest())
	require.NoError(t, err)
	assert.Equal(t, "CSE", detail.Branch)
	assert.Len(t, repo.exams, 2)
}

func TestTimetableServiceCreateRejectsExamOutsideRange(t *testing.T) {
	svc := NewTimetableService(&timetableRepoStub{}, &rosterStub{}, nil, nil, nil)

	req := validTimetableRequest()
	req.Exams[0].Date = "2026-04-01"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceCreateRejectsInvertedRange(t *testing.T) {
	svc := NewTimetableService(&timetableRepoStub{}, &rosterStub{}, nil, nil, nil)

	req := validTimetableRequest()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
}

func TestTimetableServiceNotifyCountsCohort(t *testing.T) {
	repo := &timetableRepoStub{detail: &models.TimetableDetail{
		Timetable: models.Timetable{ID: "tt-1", Title: "End Sem", Branch: "CSE", Year: 2},
	}}
	roster := &rosterStub{students: []models.Student{
		{ID: "student-1", Email: "a@example.edu"},
		{ID: "student-2", Email: "b@example.edu"},
	}}
	notifier := &notifierStub{}
	svc := NewTimetableService(repo, roster, notifier, nil, nil)

	res, err := svc.Notify(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Queued)
}

func TestTimetableServiceNotifyUnknownTimetable(t *testing.T) {
	svc := NewTimetableService(&timetableRepoStub{}, &rosterStub{}, &notifierStub{}, nil, nil)

	_, err := svc.Notify(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceNotifyDisabled(t *testing.T) {
	svc := NewTimetableService(&timetableRepoStub{}, &rosterStub{}, nil, nil, nil)

	_, err := svc.Notify(context.Background(), "tt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
