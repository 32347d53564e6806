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

func newTimeSlotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimeSlotRepositoryListByShift(t *testing.T) {
	db, mock, cleanup := newTimeSlotRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "shift", "day_of_week", "start_time", "end_time", "duration_min", "label", "created_at"}).
		AddRow("slot-1", "morning", nil, "08:00", "09:00", 60, "08:00 - 09:00", time.Now()).
		AddRow("slot-2", "morning", 2, "08:00", "09:30", 90, "08:00 - 09:30", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots WHERE shift = $1 ORDER BY day_of_week NULLS FIRST, start_time, id")).
		WithArgs(models.ShiftMorning).
		WillReturnRows(rows)

	slots, err := repo.ListByShift(context.Background(), models.ShiftMorning)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Nil(t, slots[0].DayOfWeek)
	require.NotNil(t, slots[1].DayOfWeek)
	assert.Equal(t, 2, *slots[1].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryDeleteScopes(t *testing.T) {
	db, mock, cleanup := newTimeSlotRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_slots WHERE shift = $1 AND day_of_week IS NULL")).
		WithArgs(models.ShiftMorning).
		WillReturnResult(sqlmock.NewResult(0, 4))
	require.NoError(t, repo.DeleteShiftScoped(context.Background(), db, models.ShiftMorning))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_slots WHERE shift = $1 AND day_of_week = ANY($2)")).
		WithArgs(models.ShiftEvening, pq.Array([]int{1, 2})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, repo.DeleteByShiftDays(context.Background(), db, models.ShiftEvening, []int{1, 2}))

	// No days means nothing to delete and no round trip.
	require.NoError(t, repo.DeleteByShiftDays(context.Background(), db, models.ShiftEvening, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryInsertBatchFillsDefaults(t *testing.T) {
	db, mock, cleanup := newTimeSlotRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec("INSERT INTO time_slots").
		WithArgs(sqlmock.AnyArg(), string(models.ShiftMorning), nil, "08:00", "09:00", 60, "08:00 - 09:00", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	slots := []models.TimeSlot{{
		Shift:       models.ShiftMorning,
		StartTime:   "08:00",
		EndTime:     "09:00",
		DurationMin: 60,
		Label:       "08:00 - 09:00",
	}}
	require.NoError(t, repo.InsertBatch(context.Background(), db, slots))
	assert.NotEmpty(t, slots[0].ID)
	assert.False(t, slots[0].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimingConfigRepositoryInsertAndDeactivate(t *testing.T) {
	db, mock, cleanup := newTimeSlotRepoMock(t)
	defer cleanup()
	repo := NewTimingConfigRepository(db)

	mock.ExpectExec("INSERT INTO timing_configs").
		WithArgs(sqlmock.AnyArg(), string(models.ShiftMorning), "08:00", "17:00", "12:00", 60, 60, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cfg := &models.TimingConfig{
		Shift:        models.ShiftMorning,
		OpenTime:     "08:00",
		CloseTime:    "17:00",
		BreakStart:   "12:00",
		BreakMinutes: 60,
		SlotMinutes:  60,
		Active:       true,
	}
	require.NoError(t, repo.Insert(context.Background(), db, cfg))
	assert.NotEmpty(t, cfg.ID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timing_configs SET active = FALSE, updated_at = NOW() WHERE shift = $1 AND active")).
		WithArgs(models.ShiftMorning).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeactivateByShift(context.Background(), db, models.ShiftMorning))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE timing_configs SET active = FALSE, updated_at = NOW() WHERE active")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, repo.DeactivateAll(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
