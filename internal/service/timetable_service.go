package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seat-api/internal/dto"
	"github.com/noah-isme/exam-seat-api/internal/models"
	appErrors "github.com/noah-isme/exam-seat-api/pkg/errors"
)

type timetableRepository interface {
	CreateWithExams(ctx context.Context, timetable *models.Timetable, exams []models.ExamEntry) error
	List(ctx context.Context) ([]models.Timetable, error)
	FindDetail(ctx context.Context, id string) (*models.TimetableDetail, error)
	Delete(ctx context.Context, id string) error
	FindExam(ctx context.Context, examID string) (*models.ExamDetail, error)
}

type timetableRoster interface {
	ListByCohort(ctx context.Context, branch string, year int) ([]models.Student, error)
}

type timetableNotifier interface {
	NotifyTimetable(timetable *models.TimetableDetail, students []models.Student) (int, error)
}

// TimetableService manages timetables and their exam entries.
type TimetableService struct {
	repo      timetableRepository
	students  timetableRoster
	notifier  timetableNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService. notifier may be nil
// when notifications are disabled.
func NewTimetableService(repo timetableRepository, students timetableRoster, notifier timetableNotifier, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{repo: repo, students: students, notifier: notifier, validator: validate, logger: logger}
}

// Create stores a timetable and its exam entries atomically.
func (s *TimetableService) Create(ctx context.Context, req dto.CreateTimetableRequest) (*models.TimetableDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	timetable := &models.Timetable{
		Title:     strings.TrimSpace(req.Title),
		Branch:    strings.ToUpper(strings.TrimSpace(req.Branch)),
		Year:      req.Year,
		StartDate: startDate,
		EndDate:   endDate,
	}

	exams := make([]models.ExamEntry, 0, len(req.Exams))
	for _, e := range req.Exams {
		examDate, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam date")
		}
		if examDate.Before(startDate) || examDate.After(endDate) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "exam date outside timetable range")
		}
		exams = append(exams, models.ExamEntry{
			Subject:         strings.TrimSpace(e.Subject),
			Code:            strings.TrimSpace(e.Code),
			ExamDate:        examDate,
			TimeSlot:        e.TimeSlot,
			DurationMinutes: e.DurationMinutes,
			Venue:           e.Venue,
		})
	}

	if err := s.repo.CreateWithExams(ctx, timetable, exams); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}

	s.logger.Info("timetable created",
		zap.String("timetable_id", timetable.ID),
		zap.Int("exams", len(exams)),
	)
	return &models.TimetableDetail{Timetable: *timetable, Exams: exams}, nil
}

// List returns all timetables, most recent first.
func (s *TimetableService) List(ctx context.Context) ([]models.Timetable, error) {
	timetables, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return timetables, nil
}

// Get fetches a timetable with its exam entries.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.TimetableDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return detail, nil
}

// GetExam fetches one exam entry joined with its cohort.
func (s *TimetableService) GetExam(ctx context.Context, examID string) (*models.ExamDetail, error) {
	exam, err := s.repo.FindExam(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// Delete removes a timetable. Exam entries and seating arrangements cascade.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.logger.Info("timetable deleted", zap.String("timetable_id", id))
	return nil
}

// Notify queues a publication email to every cohort student and returns the
// number queued.
func (s *TimetableService) Notify(ctx context.Context, id string) (*dto.NotifyResponse, error) {
	if s.notifier == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "notifications are disabled")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	students, err := s.students.ListByCohort(ctx, detail.Branch, detail.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoStudents, "")
	}

	queued, err := s.notifier.NotifyTimetable(detail, students)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue notifications")
	}
	return &dto.NotifyResponse{Queued: queued}, nil
}
