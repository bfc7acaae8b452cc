package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-seat-api/internal/models"
)

// ClassroomRepository manages classrooms and their seat inventory.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs a ClassroomRepository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// Create inserts a classroom together with its full seat set in one
// transaction. Seat count always equals capacity.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = now
	}
	classroom.UpdatedAt = now
	classroom.Capacity = classroom.Cols * classroom.SeatsPerCol

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin classroom tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertClassroom = `INSERT INTO classrooms (id, name, branch, year, cols, seats_per_col, capacity, created_at, updated_at)
        VALUES (:id, :name, :branch, :year, :cols, :seats_per_col, :capacity, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertClassroom, classroom); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}

	seats := make([]models.Seat, 0, classroom.Capacity)
	for i := 1; i <= classroom.Capacity; i++ {
		seats = append(seats, models.Seat{
			ID:          uuid.NewString(),
			ClassroomID: classroom.ID,
			SeatNumber:  fmt.Sprintf("A%d", i),
			Position:    i,
			CreatedAt:   now,
		})
	}
	const insertSeats = `INSERT INTO seats (id, classroom_id, seat_number, position, created_at)
        VALUES (:id, :classroom_id, :seat_number, :position, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertSeats, seats); err != nil {
		return fmt.Errorf("create seats: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit classroom tx: %w", err)
	}
	return nil
}

// List returns all classrooms in cohort order.
func (r *ClassroomRepository) List(ctx context.Context) ([]models.Classroom, error) {
	const query = `SELECT id, name, branch, year, cols, seats_per_col, capacity, created_at, updated_at
        FROM classrooms ORDER BY branch ASC, year ASC, name ASC`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return classrooms, nil
}

// ListByCohort returns classrooms for a (branch, year) cohort ordered by
// branch, year then name. The generator relies on this ordering.
func (r *ClassroomRepository) ListByCohort(ctx context.Context, branch string, year int) ([]models.Classroom, error) {
	const query = `SELECT id, name, branch, year, cols, seats_per_col, capacity, created_at, updated_at
        FROM classrooms WHERE branch = $1 AND year = $2 ORDER BY branch ASC, year ASC, name ASC`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, branch, year); err != nil {
		return nil, fmt.Errorf("list cohort classrooms: %w", err)
	}
	return classrooms, nil
}

// ListByIDs fetches the given classrooms preserving the order of ids.
// Unknown ids are reported as an error so a bad selection never silently
// shrinks capacity.
func (r *ClassroomRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Classroom, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, branch, year, cols, seats_per_col, capacity, created_at, updated_at
        FROM classrooms WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build classroom query: %w", err)
	}
	query = r.db.Rebind(query)

	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, fmt.Errorf("list classrooms by ids: %w", err)
	}

	byID := make(map[string]models.Classroom, len(classrooms))
	for _, room := range classrooms {
		byID[room.ID] = room
	}
	ordered := make([]models.Classroom, 0, len(ids))
	var missing []string
	for _, id := range ids {
		room, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, room)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("classrooms not found: %s", strings.Join(missing, ", "))
	}
	return ordered, nil
}

// FindByID fetches a classroom by ID.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, name, branch, year, cols, seats_per_col, capacity, created_at, updated_at
        FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// ListSeats returns a classroom's seats in stored fill order.
func (r *ClassroomRepository) ListSeats(ctx context.Context, classroomID string) ([]models.Seat, error) {
	const query = `SELECT id, classroom_id, seat_number, position, created_at
        FROM seats WHERE classroom_id = $1 ORDER BY position ASC`
	var seats []models.Seat
	if err := r.db.SelectContext(ctx, &seats, query, classroomID); err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	return seats, nil
}

// ListSeatsForClassrooms returns seats for several classrooms keyed by
// classroom ID, each slice in stored fill order.
func (r *ClassroomRepository) ListSeatsForClassrooms(ctx context.Context, classroomIDs []string) (map[string][]models.Seat, error) {
	if len(classroomIDs) == 0 {
		return map[string][]models.Seat{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, classroom_id, seat_number, position, created_at
        FROM seats WHERE classroom_id IN (?) ORDER BY classroom_id ASC, position ASC`, classroomIDs)
	if err != nil {
		return nil, fmt.Errorf("build seats query: %w", err)
	}
	query = r.db.Rebind(query)

	var seats []models.Seat
	if err := r.db.SelectContext(ctx, &seats, query, args...); err != nil {
		return nil, fmt.Errorf("list seats for classrooms: %w", err)
	}

	grouped := make(map[string][]models.Seat, len(classroomIDs))
	for _, seat := range seats {
		grouped[seat.ClassroomID] = append(grouped[seat.ClassroomID], seat)
	}
	return grouped, nil
}

// ListSeatDetailsByCohort returns every cohort seat joined with classroom
// context, in classroom then fill order.
func (r *ClassroomRepository) ListSeatDetailsByCohort(ctx context.Context, branch string, year int) ([]models.SeatDetail, error) {
	const query = `SELECT s.id, s.classroom_id, s.seat_number, s.position, s.created_at,
        c.name AS classroom_name, c.branch AS classroom_branch, c.year AS classroom_year
        FROM seats s
        JOIN classrooms c ON c.id = s.classroom_id
        WHERE c.branch = $1 AND c.year = $2
        ORDER BY c.branch ASC, c.year ASC, c.name ASC, s.position ASC`
	var seats []models.SeatDetail
	if err := r.db.SelectContext(ctx, &seats, query, branch, year); err != nil {
		return nil, fmt.Errorf("list cohort seats: %w", err)
	}
	return seats, nil
}
