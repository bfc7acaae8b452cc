package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seat-api/internal/models"
)

func newSeatingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSeatingRepositoryReplaceForExam(t *testing.T) {
	db, mock, cleanup := newSeatingRepoMock(t)
	defer cleanup()
	repo := NewSeatingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seating_arrangements WHERE exam_entry_id = $1")).
		WithArgs("exam-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seating_arrangements")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.ReplaceForExam(context.Background(), "exam-1", []models.SeatingArrangement{
		{StudentID: "student-1", SeatID: "seat-1"},
		{StudentID: "student-2", SeatID: "seat-2"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatingRepositoryReplaceForExamRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newSeatingRepoMock(t)
	defer cleanup()
	repo := NewSeatingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seating_arrangements WHERE exam_entry_id = $1")).
		WithArgs("exam-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seating_arrangements")).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.ReplaceForExam(context.Background(), "exam-1", []models.SeatingArrangement{
		{StudentID: "student-1", SeatID: "seat-1"},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatingRepositoryReplaceForExamEmptySetOnlyDeletes(t *testing.T) {
	db, mock, cleanup := newSeatingRepoMock(t)
	defer cleanup()
	repo := NewSeatingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seating_arrangements WHERE exam_entry_id = $1")).
		WithArgs("exam-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForExam(context.Background(), "exam-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatingRepositoryReassignSeatConflict(t *testing.T) {
	db, mock, cleanup := newSeatingRepoMock(t)
	defer cleanup()
	repo := NewSeatingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM seating_arrangements WHERE exam_entry_id = $1 AND seat_id = $2 AND id <> $3")).
		WithArgs("exam-1", "seat-2", "arr-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.ReassignSeat(context.Background(), "exam-1", "arr-1", "seat-2", "user-1")
	require.ErrorIs(t, err, ErrSeatTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatingRepositoryReassignSeatSuccess(t *testing.T) {
	db, mock, cleanup := newSeatingRepoMock(t)
	defer cleanup()
	repo := NewSeatingRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM seating_arrangements WHERE exam_entry_id = $1 AND seat_id = $2 AND id <> $3")).
		WithArgs("exam-1", "seat-2", "arr-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE seating_arrangements SET seat_id = $1, assigned_by = $2, updated_at = $3")).
		WithArgs("seat-2", "user-1", sqlmock.AnyArg(), "arr-1", "exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "exam_entry_id", "student_id", "seat_id", "assigned_by", "created_at", "updated_at"}).
			AddRow("arr-1", "exam-1", "student-1", "seat-2", "user-1", now, now))
	mock.ExpectCommit()

	updated, err := repo.ReassignSeat(context.Background(), "exam-1", "arr-1", "seat-2", "user-1")
	require.NoError(t, err)
	require.Equal(t, "seat-2", updated.SeatID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatingRepositoryDeleteOneMissing(t *testing.T) {
	db, mock, cleanup := newSeatingRepoMock(t)
	defer cleanup()
	repo := NewSeatingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seating_arrangements WHERE id = $1 AND exam_entry_id = $2")).
		WithArgs("missing", "exam-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteOne(context.Background(), "exam-1", "missing")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
