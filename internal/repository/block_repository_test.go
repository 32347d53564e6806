package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

func newBlockRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func blockDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "course_id", "section_id", "instructor_id", "room_id", "day_of_week", "time_slot_id", "shift", "component", "created_at",
		"course_code", "course_name", "section_name", "room_name", "instructor_name", "slot_label",
	})
}

func TestBlockRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "section_id", "instructor_id", "room_id", "day_of_week", "time_slot_id", "shift", "component", "created_at"}).
		AddRow("b1", "c1", "s1", "t1", "r1", 1, "slot-1", "morning", "theory", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM blocks ORDER BY day_of_week, time_slot_id, id")).
		WillReturnRows(rows)

	blocks, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, models.BlockComponentTheory, blocks[0].Component)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockRepositoryListDetailsAppliesFilters(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	rows := blockDetailRows().
		AddRow("b1", "c1", "s1", "t1", "r1", 2, "slot-1", "morning", "theory", time.Now(),
			"CS101", "Algorithms", "A", "Lecture Hall 1", "Teacher One", "08:00 - 09:00")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE b.shift = $1 AND b.day_of_week = $2 ORDER BY b.day_of_week, t.start_time, b.id")).
		WithArgs("morning", 2).
		WillReturnRows(rows)

	blocks, err := repo.ListDetails(context.Background(), dto.BlockFilter{Shift: "morning", DayOfWeek: 2})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "CS101", blocks[0].CourseCode)
	assert.Equal(t, "Teacher One", blocks[0].InstructorName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockRepositoryListDetailsUnfiltered(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN time_slots t ON t.id = b.time_slot_id ORDER BY b.day_of_week, t.start_time, b.id")).
		WillReturnRows(blockDetailRows())

	blocks, err := repo.ListDetails(context.Background(), dto.BlockFilter{})
	require.NoError(t, err)
	assert.Empty(t, blocks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockRepositoryMovePlacement(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM blocks WHERE id = $1 FOR UPDATE")).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "section_id", "instructor_id", "room_id", "day_of_week", "time_slot_id", "shift", "component", "created_at"}).
			AddRow("b1", "c1", "s1", "t1", "r1", 1, "slot-1", "morning", "theory", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("blocks:2:slot-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM blocks WHERE day_of_week = $1 AND time_slot_id = $2 ORDER BY id")).
		WithArgs(2, "slot-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE blocks SET room_id")).
		WithArgs("r2", 2, "slot-2", "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	block, err := repo.FindByIDForUpdate(context.Background(), tx, "b1")
	require.NoError(t, err)
	require.NoError(t, repo.LockPlacement(context.Background(), tx, 2, "slot-2"))
	occupants, err := repo.ListAt(context.Background(), tx, 2, "slot-2")
	require.NoError(t, err)
	assert.Empty(t, occupants)

	block.RoomID = "r2"
	block.DayOfWeek = 2
	block.TimeSlotID = "slot-2"
	require.NoError(t, repo.UpdatePlacement(context.Background(), tx, block))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockRepositoryReplaceSet(t *testing.T) {
	db, mock, cleanup := newBlockRepoMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM blocks")).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO blocks").
		WithArgs(sqlmock.AnyArg(), "c1", "s1", "t1", "r1", 1, "slot-1", string(models.ShiftMorning), string(models.BlockComponentTheory), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.DeleteAll(context.Background(), tx))

	blocks := []models.Block{{
		CourseID:     "c1",
		SectionID:    "s1",
		InstructorID: "t1",
		RoomID:       "r1",
		DayOfWeek:    1,
		TimeSlotID:   "slot-1",
		Shift:        models.ShiftMorning,
		Component:    models.BlockComponentTheory,
	}}
	require.NoError(t, repo.InsertBatch(context.Background(), tx, blocks))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, blocks[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
