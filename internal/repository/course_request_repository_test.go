package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

func newCourseRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRequestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "course_id", "section_id", "shift", "status", "origin", "instructor_id", "preferences", "accepted_at", "undo_deadline", "undo_count", "created_at", "updated_at"})
}

func TestCourseRequestRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newCourseRequestRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	rows := courseRequestRows().
		AddRow("req-1", "c1", "s1", "morning", "pending", "admin", nil, []byte("{}"), nil, nil, 0, time.Now(), time.Now()).
		AddRow("req-2", "c2", "s2", "morning", "pending", "admin", nil, []byte("{}"), nil, nil, 0, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_requests WHERE status = $1 ORDER BY id")).
		WithArgs(models.CourseRequestPending).
		WillReturnRows(rows)

	list, err := repo.ListByStatus(context.Background(), models.CourseRequestPending)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "req-1", list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryFindByIDForUpdateLocksRow(t *testing.T) {
	db, mock, cleanup := newCourseRequestRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_requests WHERE id = $1 FOR UPDATE")).
		WithArgs("req-1").
		WillReturnRows(courseRequestRows().
			AddRow("req-1", "c1", "s1", "morning", "pending", "instructor", nil, []byte("{}"), nil, nil, 0, time.Now(), time.Now()))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	request, err := repo.FindByIDForUpdate(context.Background(), tx, "req-1")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, "req-1", request.ID)
	assert.Equal(t, models.CourseRequestPending, request.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryAcceptThenUndo(t *testing.T) {
	db, mock, cleanup := newCourseRequestRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	mock.ExpectExec("UPDATE course_requests").
		WithArgs(string(models.CourseRequestAccepted), "teacher-1", []byte(`{"days":[1]}`), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	teacherID := "teacher-1"
	acceptedAt := time.Now().UTC()
	deadline := acceptedAt.Add(10 * time.Minute)
	req := &models.CourseRequest{
		ID:           "req-1",
		Status:       models.CourseRequestAccepted,
		InstructorID: &teacherID,
		Preferences:  []byte(`{"days":[1]}`),
		AcceptedAt:   &acceptedAt,
		UndoDeadline: &deadline,
	}
	require.NoError(t, repo.UpdateAccept(context.Background(), db, req))

	mock.ExpectExec("UPDATE course_requests").
		WithArgs(string(models.CourseRequestPending), 1, sqlmock.AnyArg(), "req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req.Status = models.CourseRequestPending
	req.UndoCount = 1
	require.NoError(t, repo.UpdateUndo(context.Background(), db, req))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryMarkCommitted(t *testing.T) {
	db, mock, cleanup := newCourseRequestRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_requests SET status = 'committed'")).
		WithArgs(pq.Array([]string{"req-1", "req-2"})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.MarkCommitted(context.Background(), db, []string{"req-1", "req-2"}))
	assert.NoError(t, mock.ExpectationsWereMet())

	// An empty run must not touch the database at all.
	require.NoError(t, repo.MarkCommitted(context.Background(), db, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryRevertNonPending(t *testing.T) {
	db, mock, cleanup := newCourseRequestRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE status IN ('accepted', 'committed')")).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevertNonPending(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRequestRepositoryInsertBatchFillsDefaults(t *testing.T) {
	db, mock, cleanup := newCourseRequestRepoMock(t)
	defer cleanup()
	repo := NewCourseRequestRepository(db)

	mock.ExpectExec("INSERT INTO course_requests").
		WithArgs(sqlmock.AnyArg(), "c1", "s1", string(models.ShiftMorning), string(models.CourseRequestPending), string(models.RequestOriginAdmin),
			nil, []byte("{}"), nil, nil, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	requests := []models.CourseRequest{{
		CourseID:  "c1",
		SectionID: "s1",
		Shift:     models.ShiftMorning,
		Status:    models.CourseRequestPending,
		Origin:    models.RequestOriginAdmin,
	}}
	require.NoError(t, repo.InsertBatch(context.Background(), db, requests))
	assert.NotEmpty(t, requests[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
