package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/exam-seat-api/internal/models"
)

// ErrSeatTaken reports that the target seat is already referenced by
// another arrangement of the same exam.
var ErrSeatTaken = errors.New("seat already assigned in this exam")

const pqUniqueViolation = "23505"

// SeatingRepository manages seating arrangement persistence. Every
// multi-row mutation runs inside a single transaction.
type SeatingRepository struct {
	db *sqlx.DB
}

// NewSeatingRepository constructs a SeatingRepository.
func NewSeatingRepository(db *sqlx.DB) *SeatingRepository {
	return &SeatingRepository{db: db}
}

// ListByExam returns the exam's arrangements joined with student and seat
// context, ordered by classroom then seat fill order.
func (r *SeatingRepository) ListByExam(ctx context.Context, examID string) ([]models.SeatingArrangementDetail, error) {
	const query = `SELECT a.id, a.exam_entry_id, a.student_id, a.seat_id, a.assigned_by, a.created_at, a.updated_at,
        st.roll_number AS student_roll_number, st.full_name AS student_name,
        se.seat_number, se.classroom_id, c.name AS classroom_name
        FROM seating_arrangements a
        JOIN students st ON st.id = a.student_id
        JOIN seats se ON se.id = a.seat_id
        JOIN classrooms c ON c.id = se.classroom_id
        WHERE a.exam_entry_id = $1
        ORDER BY c.name ASC, se.position ASC`
	var arrangements []models.SeatingArrangementDetail
	if err := r.db.SelectContext(ctx, &arrangements, query, examID); err != nil {
		return nil, fmt.Errorf("list arrangements: %w", err)
	}
	return arrangements, nil
}

// OccupiedSeatIDs returns the seat IDs currently referenced by the exam.
func (r *SeatingRepository) OccupiedSeatIDs(ctx context.Context, examID string) ([]string, error) {
	const query = `SELECT seat_id FROM seating_arrangements WHERE exam_entry_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, examID); err != nil {
		return nil, fmt.Errorf("list occupied seats: %w", err)
	}
	return ids, nil
}

// CountByExam returns the number of arrangements stored for the exam.
func (r *SeatingRepository) CountByExam(ctx context.Context, examID string) (int, error) {
	const query = `SELECT COUNT(*) FROM seating_arrangements WHERE exam_entry_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, examID); err != nil {
		return 0, fmt.Errorf("count arrangements: %w", err)
	}
	return count, nil
}

// ReplaceForExam deletes every arrangement of the exam and inserts the new
// set in one transaction. Regeneration replaces, never appends; a failed
// insert rolls the delete back.
func (r *SeatingRepository) ReplaceForExam(ctx context.Context, examID string, arrangements []models.SeatingArrangement) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seating tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM seating_arrangements WHERE exam_entry_id = $1`, examID); err != nil {
		return fmt.Errorf("clear arrangements: %w", err)
	}

	now := time.Now().UTC()
	for i := range arrangements {
		if arrangements[i].ID == "" {
			arrangements[i].ID = uuid.NewString()
		}
		arrangements[i].ExamEntryID = examID
		arrangements[i].CreatedAt = now
		arrangements[i].UpdatedAt = now
	}
	if len(arrangements) > 0 {
		const insert = `INSERT INTO seating_arrangements (id, exam_entry_id, student_id, seat_id, assigned_by, created_at, updated_at)
            VALUES (:id, :exam_entry_id, :student_id, :seat_id, :assigned_by, :created_at, :updated_at)`
		if _, err = tx.NamedExecContext(ctx, insert, arrangements); err != nil {
			return fmt.Errorf("insert arrangements: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seating tx: %w", err)
	}
	return nil
}

// FindByID fetches one arrangement scoped to its exam.
func (r *SeatingRepository) FindByID(ctx context.Context, examID, arrangementID string) (*models.SeatingArrangement, error) {
	const query = `SELECT id, exam_entry_id, student_id, seat_id, assigned_by, created_at, updated_at
        FROM seating_arrangements WHERE id = $1 AND exam_entry_id = $2`
	var arrangement models.SeatingArrangement
	if err := r.db.GetContext(ctx, &arrangement, query, arrangementID, examID); err != nil {
		return nil, err
	}
	return &arrangement, nil
}

// ReassignSeat moves one arrangement onto a new seat. The occupancy check
// and the update run in the same transaction, and the unique constraint on
// (exam_entry_id, seat_id) backs the check against concurrent writers.
func (r *SeatingRepository) ReassignSeat(ctx context.Context, examID, arrangementID, seatID, userID string) (*models.SeatingArrangement, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reassign tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var occupied int
	err = tx.GetContext(ctx, &occupied,
		`SELECT COUNT(*) FROM seating_arrangements WHERE exam_entry_id = $1 AND seat_id = $2 AND id <> $3`,
		examID, seatID, arrangementID)
	if err != nil {
		return nil, fmt.Errorf("check seat occupancy: %w", err)
	}
	if occupied > 0 {
		err = ErrSeatTaken
		return nil, err
	}

	var arrangement models.SeatingArrangement
	err = tx.GetContext(ctx, &arrangement,
		`UPDATE seating_arrangements SET seat_id = $1, assigned_by = $2, updated_at = $3
         WHERE id = $4 AND exam_entry_id = $5
         RETURNING id, exam_entry_id, student_id, seat_id, assigned_by, created_at, updated_at`,
		seatID, userID, time.Now().UTC(), arrangementID, examID)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrSeatTaken
		}
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			err = ErrSeatTaken
		}
		return nil, fmt.Errorf("commit reassign tx: %w", err)
	}
	return &arrangement, nil
}

// DeleteForExam removes every arrangement of the exam.
func (r *SeatingRepository) DeleteForExam(ctx context.Context, examID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM seating_arrangements WHERE exam_entry_id = $1`, examID); err != nil {
		return fmt.Errorf("clear arrangements: %w", err)
	}
	return nil
}

// DeleteOne removes a single arrangement scoped to its exam.
func (r *SeatingRepository) DeleteOne(ctx context.Context, examID, arrangementID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM seating_arrangements WHERE id = $1 AND exam_entry_id = $2`, arrangementID, examID)
	if err != nil {
		return fmt.Errorf("delete arrangement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete arrangement rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}
