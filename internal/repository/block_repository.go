package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

// BlockRepository persists committed class meetings.
type BlockRepository struct {
	db *sqlx.DB
}

// NewBlockRepository constructs the repository.
func NewBlockRepository(db *sqlx.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

const blockColumns = `id, course_id, section_id, instructor_id, room_id, day_of_week, time_slot_id, shift, component, created_at`

// ListAll returns every block ordered by day, slot, then id.
func (r *BlockRepository) ListAll(ctx context.Context) ([]models.Block, error) {
	query := fmt.Sprintf(`SELECT %s FROM blocks ORDER BY day_of_week, time_slot_id, id`, blockColumns)
	blocks := []models.Block{}
	if err := r.db.SelectContext(ctx, &blocks, query); err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}

// FindByIDForUpdate locks one block row inside a transaction.
func (r *BlockRepository) FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Block, error) {
	query := fmt.Sprintf(`SELECT %s FROM blocks WHERE id = $1 FOR UPDATE`, blockColumns)
	var block models.Block
	if err := tx.GetContext(ctx, &block, query, id); err != nil {
		return nil, err
	}
	return &block, nil
}

// LockPlacement serialises writers targeting one (day, slot) cell. A row lock
// cannot guard a cell no block occupies yet, hence the advisory xact lock.
func (r *BlockRepository) LockPlacement(ctx context.Context, tx *sqlx.Tx, dayOfWeek int, timeSlotID string) error {
	key := fmt.Sprintf("blocks:%d:%s", dayOfWeek, timeSlotID)
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("lock placement: %w", err)
	}
	return nil
}

// ListAt returns the blocks occupying one (day, slot) cell.
func (r *BlockRepository) ListAt(ctx context.Context, tx *sqlx.Tx, dayOfWeek int, timeSlotID string) ([]models.Block, error) {
	query := fmt.Sprintf(`SELECT %s FROM blocks WHERE day_of_week = $1 AND time_slot_id = $2 ORDER BY id`, blockColumns)
	blocks := []models.Block{}
	if err := tx.SelectContext(ctx, &blocks, query, dayOfWeek, timeSlotID); err != nil {
		return nil, fmt.Errorf("list blocks at slot: %w", err)
	}
	return blocks, nil
}

// UpdatePlacement moves a block to a new (room, day, slot).
func (r *BlockRepository) UpdatePlacement(ctx context.Context, exec sqlx.ExtContext, block *models.Block) error {
	const query = `UPDATE blocks SET room_id = :room_id, day_of_week = :day_of_week, time_slot_id = :time_slot_id WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, block); err != nil {
		return fmt.Errorf("update block placement: %w", err)
	}
	return nil
}

// ListDetails returns enriched blocks for list and export views.
func (r *BlockRepository) ListDetails(ctx context.Context, filter dto.BlockFilter) ([]models.BlockDetail, error) {
	query := `SELECT b.id, b.course_id, b.section_id, b.instructor_id, b.room_id, b.day_of_week, b.time_slot_id, b.shift, b.component, b.created_at,
			c.code AS course_code, c.name AS course_name, s.name AS section_name, r.name AS room_name, i.full_name AS instructor_name, t.label AS slot_label
		FROM blocks b
		JOIN courses c ON c.id = b.course_id
		JOIN sections s ON s.id = b.section_id
		JOIN rooms r ON r.id = b.room_id
		JOIN instructors i ON i.id = b.instructor_id
		JOIN time_slots t ON t.id = b.time_slot_id`
	args := []interface{}{}
	where := ""
	appendClause := func(clause string, value interface{}) {
		args = append(args, value)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(clause, len(args))
	}
	if filter.Shift != "" {
		appendClause("b.shift = $%d", filter.Shift)
	}
	if filter.DayOfWeek > 0 {
		appendClause("b.day_of_week = $%d", filter.DayOfWeek)
	}
	if filter.SectionID != "" {
		appendClause("b.section_id = $%d", filter.SectionID)
	}
	if filter.TeacherID != "" {
		appendClause("b.instructor_id = $%d", filter.TeacherID)
	}
	query += where + " ORDER BY b.day_of_week, t.start_time, b.id"

	blocks := []models.BlockDetail{}
	if err := r.db.SelectContext(ctx, &blocks, query, args...); err != nil {
		return nil, fmt.Errorf("list block details: %w", err)
	}
	return blocks, nil
}

// DeleteAll clears the block table. Regeneration wholly replaces the set.
func (r *BlockRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM blocks`); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}
	return nil
}

// InsertBatch stores the blocks produced by an allocation run.
func (r *BlockRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range blocks {
		if blocks[i].ID == "" {
			blocks[i].ID = uuid.NewString()
		}
		if blocks[i].CreatedAt.IsZero() {
			blocks[i].CreatedAt = now
		}
	}
	const query = `INSERT INTO blocks (id, course_id, section_id, instructor_id, room_id, day_of_week, time_slot_id, shift, component, created_at)
		VALUES (:id, :course_id, :section_id, :instructor_id, :room_id, :day_of_week, :time_slot_id, :shift, :component, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, blocks); err != nil {
		return fmt.Errorf("insert blocks: %w", err)
	}
	return nil
}
