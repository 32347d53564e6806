package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

// TimeSlotRepository persists generated time slots.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs the repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

const timeSlotColumns = `id, shift, day_of_week, start_time, end_time, duration_min, label, created_at`

// ListByShift returns slots of a shift ordered chronologically.
func (r *TimeSlotRepository) ListByShift(ctx context.Context, shift models.Shift) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE shift = $1 ORDER BY day_of_week NULLS FIRST, start_time, id`, timeSlotColumns)
	slots := []models.TimeSlot{}
	if err := r.db.SelectContext(ctx, &slots, query, shift); err != nil {
		return nil, fmt.Errorf("list time slots by shift: %w", err)
	}
	return slots, nil
}

// ListAll returns every slot ordered by shift then start time.
func (r *TimeSlotRepository) ListAll(ctx context.Context) ([]models.TimeSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM time_slots ORDER BY shift, day_of_week NULLS FIRST, start_time, id`, timeSlotColumns)
	slots := []models.TimeSlot{}
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// DeleteShiftScoped removes day-agnostic slots of one shift.
func (r *TimeSlotRepository) DeleteShiftScoped(ctx context.Context, exec sqlx.ExtContext, shift models.Shift) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM time_slots WHERE shift = $1 AND day_of_week IS NULL`, shift); err != nil {
		return fmt.Errorf("delete shift-scoped time slots: %w", err)
	}
	return nil
}

// DeleteByShiftDays removes day-scoped slots of one shift for the given days.
func (r *TimeSlotRepository) DeleteByShiftDays(ctx context.Context, exec sqlx.ExtContext, shift models.Shift, days []int) error {
	if len(days) == 0 {
		return nil
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM time_slots WHERE shift = $1 AND day_of_week = ANY($2)`, shift, pq.Array(days)); err != nil {
		return fmt.Errorf("delete time slots for days: %w", err)
	}
	return nil
}

// DeleteAll clears the slot table (schedule reset).
func (r *TimeSlotRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM time_slots`); err != nil {
		return fmt.Errorf("delete time slots: %w", err)
	}
	return nil
}

// InsertBatch stores a generated slot set.
func (r *TimeSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		if slots[i].CreatedAt.IsZero() {
			slots[i].CreatedAt = now
		}
	}
	const query = `INSERT INTO time_slots (id, shift, day_of_week, start_time, end_time, duration_min, label, created_at)
		VALUES (:id, :shift, :day_of_week, :start_time, :end_time, :duration_min, :label, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, slots); err != nil {
		return fmt.Errorf("insert time slots: %w", err)
	}
	return nil
}

// TimingConfigRepository persists the slot-generation parameters.
type TimingConfigRepository struct {
	db *sqlx.DB
}

// NewTimingConfigRepository constructs the repository.
func NewTimingConfigRepository(db *sqlx.DB) *TimingConfigRepository {
	return &TimingConfigRepository{db: db}
}

// DeactivateByShift retires prior configs for a shift.
func (r *TimingConfigRepository) DeactivateByShift(ctx context.Context, exec sqlx.ExtContext, shift models.Shift) error {
	if _, err := exec.ExecContext(ctx, `UPDATE timing_configs SET active = FALSE, updated_at = NOW() WHERE shift = $1 AND active`, shift); err != nil {
		return fmt.Errorf("deactivate timing configs: %w", err)
	}
	return nil
}

// DeactivateAll retires every active config (full reset).
func (r *TimingConfigRepository) DeactivateAll(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := exec.ExecContext(ctx, `UPDATE timing_configs SET active = FALSE, updated_at = NOW() WHERE active`); err != nil {
		return fmt.Errorf("deactivate timing configs: %w", err)
	}
	return nil
}

// Insert stores a new active config row.
func (r *TimingConfigRepository) Insert(ctx context.Context, exec sqlx.ExtContext, cfg *models.TimingConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	const query = `INSERT INTO timing_configs (id, shift, open_time, close_time, break_start, break_minutes, slot_minutes, active, created_at, updated_at)
		VALUES (:id, :shift, :open_time, :close_time, :break_start, :break_minutes, :slot_minutes, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, cfg); err != nil {
		return fmt.Errorf("insert timing config: %w", err)
	}
	return nil
}
