package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-seat-api/internal/models"
)

// TimetableRepository manages timetables and their exam entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// CreateWithExams inserts a timetable and its exam entries in one
// transaction.
func (r *TimetableRepository) CreateWithExams(ctx context.Context, timetable *models.Timetable, exams []models.ExamEntry) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin timetable tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertTimetable = `INSERT INTO timetables (id, title, branch, year, start_date, end_date, created_at, updated_at)
        VALUES (:id, :title, :branch, :year, :start_date, :end_date, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertTimetable, timetable); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}

	for i := range exams {
		if exams[i].ID == "" {
			exams[i].ID = uuid.NewString()
		}
		exams[i].TimetableID = timetable.ID
		exams[i].CreatedAt = now
		exams[i].UpdatedAt = now
	}
	if len(exams) > 0 {
		const insertExams = `INSERT INTO exam_entries (id, timetable_id, subject, code, exam_date, time_slot, duration_minutes, venue, created_at, updated_at)
            VALUES (:id, :timetable_id, :subject, :code, :exam_date, :time_slot, :duration_minutes, :venue, :created_at, :updated_at)`
		if _, err = tx.NamedExecContext(ctx, insertExams, exams); err != nil {
			return fmt.Errorf("create exam entries: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit timetable tx: %w", err)
	}
	return nil
}

// List returns all timetables, most recent first.
func (r *TimetableRepository) List(ctx context.Context) ([]models.Timetable, error) {
	const query = `SELECT id, title, branch, year, start_date, end_date, created_at, updated_at
        FROM timetables ORDER BY created_at DESC`
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query); err != nil {
		return nil, fmt.Errorf("list timetables: %w", err)
	}
	return timetables, nil
}

// FindDetail fetches a timetable with its exam entries in date order.
func (r *TimetableRepository) FindDetail(ctx context.Context, id string) (*models.TimetableDetail, error) {
	const timetableQuery = `SELECT id, title, branch, year, start_date, end_date, created_at, updated_at
        FROM timetables WHERE id = $1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, timetableQuery, id); err != nil {
		return nil, err
	}

	const examsQuery = `SELECT id, timetable_id, subject, code, exam_date, time_slot, duration_minutes, venue, created_at, updated_at
        FROM exam_entries WHERE timetable_id = $1 ORDER BY exam_date ASC, time_slot ASC`
	var exams []models.ExamEntry
	if err := r.db.SelectContext(ctx, &exams, examsQuery, id); err != nil {
		return nil, fmt.Errorf("list exam entries: %w", err)
	}

	return &models.TimetableDetail{Timetable: timetable, Exams: exams}, nil
}

// Delete removes a timetable. Exam entries and their seating arrangements
// cascade at the schema level.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete timetable rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindExam fetches an exam entry joined with its parent timetable's cohort.
func (r *TimetableRepository) FindExam(ctx context.Context, examID string) (*models.ExamDetail, error) {
	const query = `SELECT e.id, e.timetable_id, e.subject, e.code, e.exam_date, e.time_slot, e.duration_minutes, e.venue, e.created_at, e.updated_at,
        t.title AS timetable_title, t.branch, t.year
        FROM exam_entries e
        JOIN timetables t ON t.id = e.timetable_id
        WHERE e.id = $1`
	var exam models.ExamDetail
	if err := r.db.GetContext(ctx, &exam, query, examID); err != nil {
		return nil, err
	}
	return &exam, nil
}
