package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seat-api/internal/dto"
	"github.com/noah-isme/exam-seat-api/internal/models"
	appErrors "github.com/noah-isme/exam-seat-api/pkg/errors"
)

type classroomRepository interface {
	Create(ctx context.Context, classroom *models.Classroom) error
	List(ctx context.Context) ([]models.Classroom, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ListSeats(ctx context.Context, classroomID string) ([]models.Seat, error)
}

// ClassroomService manages classrooms and their seat inventory.
type ClassroomService struct {
	repo      classroomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs a ClassroomService.
func NewClassroomService(repo classroomRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, validator: validate, logger: logger}
}

// Create registers a classroom and materialises its seat set. Capacity is
// derived from the grid, never taken from the caller.
func (s *ClassroomService) Create(ctx context.Context, req dto.CreateClassroomRequest) (*models.ClassroomDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	classroom := &models.Classroom{
		Name:        strings.TrimSpace(req.Name),
		Branch:      strings.ToUpper(strings.TrimSpace(req.Branch)),
		Year:        req.Year,
		Cols:        req.Cols,
		SeatsPerCol: req.SeatsPerCol,
	}
	if err := s.repo.Create(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}

	seats, err := s.repo.ListSeats(ctx, classroom.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom seats")
	}

	s.logger.Info("classroom created",
		zap.String("classroom_id", classroom.ID),
		zap.Int("capacity", classroom.Capacity),
	)
	return &models.ClassroomDetail{Classroom: *classroom, Seats: seats}, nil
}

// List returns all classrooms in cohort order.
func (s *ClassroomService) List(ctx context.Context) ([]models.Classroom, error) {
	classrooms, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	return classrooms, nil
}

// Get fetches a classroom with its seats.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.ClassroomDetail, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	seats, err := s.repo.ListSeats(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom seats")
	}
	return &models.ClassroomDetail{Classroom: *classroom, Seats: seats}, nil
}
