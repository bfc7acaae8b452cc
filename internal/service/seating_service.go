package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seat-api/internal/dto"
	"github.com/noah-isme/exam-seat-api/internal/models"
	"github.com/noah-isme/exam-seat-api/internal/repository"
	"github.com/noah-isme/exam-seat-api/internal/suggest"
	appErrors "github.com/noah-isme/exam-seat-api/pkg/errors"
)

const (
	strategyFallback  = "fallback"
	strategyHeuristic = "heuristic"
)

type seatingExamReader interface {
	FindExam(ctx context.Context, examID string) (*models.ExamDetail, error)
}

type seatingRoster interface {
	ListByCohort(ctx context.Context, branch string, year int) ([]models.Student, error)
}

type seatingInventory interface {
	ListByCohort(ctx context.Context, branch string, year int) ([]models.Classroom, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Classroom, error)
	ListSeatsForClassrooms(ctx context.Context, classroomIDs []string) (map[string][]models.Seat, error)
	ListSeatDetailsByCohort(ctx context.Context, branch string, year int) ([]models.SeatDetail, error)
}

type seatingStore interface {
	ListByExam(ctx context.Context, examID string) ([]models.SeatingArrangementDetail, error)
	ReplaceForExam(ctx context.Context, examID string, arrangements []models.SeatingArrangement) error
	FindByID(ctx context.Context, examID, arrangementID string) (*models.SeatingArrangement, error)
	ReassignSeat(ctx context.Context, examID, arrangementID, seatID, userID string) (*models.SeatingArrangement, error)
	DeleteForExam(ctx context.Context, examID string) error
	DeleteOne(ctx context.Context, examID, arrangementID string) error
	OccupiedSeatIDs(ctx context.Context, examID string) ([]string, error)
}

type seatProposer interface {
	Propose(ctx context.Context, req suggest.ProposalRequest) ([]dto.SeatProposal, error)
}

type seatingCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SeatingConfig governs generator behaviour.
type SeatingConfig struct {
	HeuristicTimeout time.Duration
	CacheTTL         time.Duration
}

// SeatingService generates, serves and edits seating arrangements. The
// deterministic fallback is the required baseline; the heuristic proposer
// is advisory and its output never reaches storage without validation.
type SeatingService struct {
	exams     seatingExamReader
	students  seatingRoster
	rooms     seatingInventory
	store     seatingStore
	proposer  seatProposer
	cache     seatingCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SeatingConfig
}

// NewSeatingService wires seating dependencies. proposer and cache may be
// nil; the service then runs fallback-only and uncached.
func NewSeatingService(
	exams seatingExamReader,
	students seatingRoster,
	rooms seatingInventory,
	store seatingStore,
	proposer seatProposer,
	cache seatingCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SeatingConfig,
) *SeatingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HeuristicTimeout <= 0 {
		cfg.HeuristicTimeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &SeatingService{
		exams:     exams,
		students:  students,
		rooms:     rooms,
		store:     store,
		proposer:  proposer,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate produces a conflict-free assignment of every cohort student to a
// seat and atomically replaces the exam's previous arrangements.
func (s *SeatingService) Generate(ctx context.Context, examID string, req dto.GenerateSeatingRequest, userID string) (*dto.GenerateSeatingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seating generation payload")
	}

	exam, err := s.loadExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	students, err := s.students.ListByCohort(ctx, exam.Branch, exam.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoStudents, "")
	}

	classrooms, seatStream, err := s.loadSeatStream(ctx, exam, req.ClassroomIDs)
	if err != nil {
		return nil, err
	}
	if len(seatStream) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoSeats, "")
	}
	if len(students) > len(seatStream) {
		return nil, appErrors.CapacityExceeded(len(students), len(seatStream))
	}

	started := time.Now()
	assignments, strategy := s.buildAssignments(ctx, exam, students, seatStream)
	s.metrics.ObserveGeneration(strategy, time.Since(started))

	rows := make([]models.SeatingArrangement, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, models.SeatingArrangement{
			ExamEntryID: examID,
			StudentID:   a.StudentID,
			SeatID:      a.SeatID,
			AssignedBy:  userID,
		})
	}
	if err := s.store.ReplaceForExam(ctx, examID, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist seating arrangements")
	}
	s.invalidate(ctx, examID)

	s.logger.Info("seating generated",
		zap.String("exam_id", examID),
		zap.String("strategy", strategy),
		zap.Int("students", len(students)),
		zap.Int("seats", len(seatStream)),
	)

	return &dto.GenerateSeatingResponse{
		Generated:    len(rows),
		StudentCount: len(students),
		SeatCount:    len(seatStream),
		Strategy:     strategy,
		Classrooms:   classroomUsage(classrooms, seatStream, assignments),
	}, nil
}

// List returns the exam's current arrangements, cached per exam.
func (s *SeatingService) List(ctx context.Context, examID string) ([]models.SeatingArrangementDetail, error) {
	if _, err := s.loadExam(ctx, examID); err != nil {
		return nil, err
	}

	key := seatingCacheKey(examID)
	if s.cache != nil {
		var cached []models.SeatingArrangementDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	arrangements, err := s.store.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list seating arrangements")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, arrangements, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache seating arrangements", zap.String("exam_id", examID), zap.Error(err))
		}
	}
	return arrangements, nil
}

// Reassign moves one arrangement onto a new seat after a scoped occupancy
// check. Cohort membership of the new seat's classroom is not re-checked.
func (s *SeatingService) Reassign(ctx context.Context, examID, arrangementID string, req dto.ReassignSeatRequest, userID string) (*models.SeatingArrangement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassign payload")
	}

	if _, err := s.loadExam(ctx, examID); err != nil {
		return nil, err
	}
	if _, err := s.store.FindByID(ctx, examID, arrangementID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "seating arrangement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seating arrangement")
	}

	updated, err := s.store.ReassignSeat(ctx, examID, arrangementID, req.SeatID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSeatTaken) {
			return nil, appErrors.Clone(appErrors.ErrSeatOccupied, "")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "seating arrangement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update seating arrangement")
	}
	s.invalidate(ctx, examID)
	return updated, nil
}

// Clear removes every arrangement of the exam.
func (s *SeatingService) Clear(ctx context.Context, examID string) error {
	if _, err := s.loadExam(ctx, examID); err != nil {
		return err
	}
	if err := s.store.DeleteForExam(ctx, examID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear seating arrangements")
	}
	s.invalidate(ctx, examID)
	return nil
}

// Remove deletes a single arrangement.
func (s *SeatingService) Remove(ctx context.Context, examID, arrangementID string) error {
	if _, err := s.loadExam(ctx, examID); err != nil {
		return err
	}
	if err := s.store.DeleteOne(ctx, examID, arrangementID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "seating arrangement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete seating arrangement")
	}
	s.invalidate(ctx, examID)
	return nil
}

// AvailableSeats lists cohort seats not yet taken in this exam. The seat
// identified by currentSeatID stays in the result so the edit modal can
// keep the current selection.
func (s *SeatingService) AvailableSeats(ctx context.Context, examID, currentSeatID string) ([]models.SeatDetail, error) {
	exam, err := s.loadExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	seats, err := s.rooms.ListSeatDetailsByCohort(ctx, exam.Branch, exam.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort seats")
	}
	occupied, err := s.store.OccupiedSeatIDs(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupied seats")
	}

	taken := make(map[string]struct{}, len(occupied))
	for _, id := range occupied {
		taken[id] = struct{}{}
	}
	available := make([]models.SeatDetail, 0, len(seats))
	for _, seat := range seats {
		if _, ok := taken[seat.ID]; ok && seat.ID != currentSeatID {
			continue
		}
		available = append(available, seat)
	}
	return available, nil
}

func (s *SeatingService) loadExam(ctx context.Context, examID string) (*models.ExamDetail, error) {
	exam, err := s.exams.FindExam(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// loadSeatStream resolves the classroom selection and flattens their seats
// into the deterministic fill order: classrooms in selection order (cohort
// order when no explicit selection), seats in stored order within each.
func (s *SeatingService) loadSeatStream(ctx context.Context, exam *models.ExamDetail, classroomIDs []string) ([]models.Classroom, []models.Seat, error) {
	var (
		classrooms []models.Classroom
		err        error
	)
	if len(classroomIDs) > 0 {
		classrooms, err = s.rooms.ListByIDs(ctx, classroomIDs)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom selection")
		}
	} else {
		classrooms, err = s.rooms.ListByCohort(ctx, exam.Branch, exam.Year)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort classrooms")
		}
	}
	if len(classrooms) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrNoSeats, "")
	}

	ids := make([]string, 0, len(classrooms))
	for _, room := range classrooms {
		ids = append(ids, room.ID)
	}
	seatsByRoom, err := s.rooms.ListSeatsForClassrooms(ctx, ids)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seats")
	}

	stream := make([]models.Seat, 0)
	for _, room := range classrooms {
		stream = append(stream, seatsByRoom[room.ID]...)
	}
	return classrooms, stream, nil
}

// buildAssignments tries the heuristic proposer first and falls back to the
// deterministic walk. Heuristic failures are absorbed here, never surfaced.
func (s *SeatingService) buildAssignments(ctx context.Context, exam *models.ExamDetail, students []models.Student, seats []models.Seat) ([]dto.SeatProposal, string) {
	if s.proposer != nil {
		proposalCtx, cancel := context.WithTimeout(ctx, s.cfg.HeuristicTimeout)
		defer cancel()

		studentIDs := make([]string, 0, len(students))
		for _, student := range students {
			studentIDs = append(studentIDs, student.ID)
		}
		seatIDs := make([]string, 0, len(seats))
		for _, seat := range seats {
			seatIDs = append(seatIDs, seat.ID)
		}

		proposal, err := s.proposer.Propose(proposalCtx, suggest.ProposalRequest{
			StudentIDs: studentIDs,
			SeatIDs:    seatIDs,
			Cohort:     fmt.Sprintf("%s year %d, exam %s", exam.Branch, exam.Year, exam.Subject),
			Hints: []string{
				"fill classrooms sequentially in the order the seats are listed",
				"prioritize roll number ordering",
				"no duplicate students or seats",
			},
		})
		if err != nil {
			s.logger.Warn("heuristic proposal unavailable, using fallback",
				zap.String("exam_id", exam.ID), zap.Error(err))
		} else if err := ValidateProposal(proposal, studentIDs, seatIDs); err != nil {
			s.logger.Warn("heuristic proposal rejected, using fallback",
				zap.String("exam_id", exam.ID), zap.Error(err))
		} else {
			return proposal, strategyHeuristic
		}
	}
	return fallbackAssignments(students, seats), strategyFallback
}

// fallbackAssignments walks students in roster order through the seat
// stream. For a fixed roster and inventory the result is reproducible
// byte for byte.
func fallbackAssignments(students []models.Student, seats []models.Seat) []dto.SeatProposal {
	assignments := make([]dto.SeatProposal, 0, len(students))
	for i, student := range students {
		assignments = append(assignments, dto.SeatProposal{
			StudentID: student.ID,
			SeatID:    seats[i].ID,
		})
	}
	return assignments
}

func classroomUsage(classrooms []models.Classroom, seats []models.Seat, assignments []dto.SeatProposal) []dto.ClassroomUsage {
	roomBySeat := make(map[string]string, len(seats))
	for _, seat := range seats {
		roomBySeat[seat.ID] = seat.ClassroomID
	}
	counts := make(map[string]int, len(classrooms))
	for _, a := range assignments {
		counts[roomBySeat[a.SeatID]]++
	}

	usage := make([]dto.ClassroomUsage, 0, len(classrooms))
	for _, room := range classrooms {
		usage = append(usage, dto.ClassroomUsage{
			ClassroomID: room.ID,
			Name:        room.Name,
			Assigned:    counts[room.ID],
			Capacity:    room.Capacity,
		})
	}
	return usage
}

func (s *SeatingService) invalidate(ctx context.Context, examID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, seatingCacheKey(examID)); err != nil {
		s.logger.Warn("failed to invalidate seating cache", zap.String("exam_id", examID), zap.Error(err))
	}
}

func seatingCacheKey(examID string) string {
	return "seating:exam:" + examID
}
