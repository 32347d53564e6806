package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
	"github.com/gux-htm/EmersonSched-sub000/pkg/config"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
)

type blockStore interface {
	ListDetails(ctx context.Context, filter dto.BlockFilter) ([]models.BlockDetail, error)
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) error
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.Block) error
	FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Block, error)
	LockPlacement(ctx context.Context, tx *sqlx.Tx, dayOfWeek int, timeSlotID string) error
	ListAt(ctx context.Context, tx *sqlx.Tx, dayOfWeek int, timeSlotID string) ([]models.Block, error)
	UpdatePlacement(ctx context.Context, exec sqlx.ExtContext, block *models.Block) error
}

type roomReader interface {
	List(ctx context.Context) ([]models.Room, error)
}

type catalogReader interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	ListSections(ctx context.Context) ([]models.Section, error)
}

type allocatableRequestStore interface {
	ListByStatus(ctx context.Context, status models.CourseRequestStatus) ([]models.CourseRequest, error)
	MarkCommitted(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

const blockCachePattern = "blocks:*"

// BlockService runs the greedy block allocator over accepted course requests
// and replaces the committed schedule wholesale.
type BlockService struct {
	blocks      blockStore
	rooms       roomReader
	catalog     catalogReader
	requests    allocatableRequestStore
	slots       shiftSlotReader
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	workingDays []int
}

// NewBlockService wires the allocator.
func NewBlockService(blocks blockStore, rooms roomReader, catalog catalogReader, requests allocatableRequestStore, slots shiftSlotReader, tx txProvider, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg config.AllocatorConfig) *BlockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	days := normalizeDays(cfg.WorkingDays)
	if len(days) == 0 {
		days = []int{1, 2, 3, 4, 5}
	}
	return &BlockService{
		blocks:      blocks,
		rooms:       rooms,
		catalog:     catalog,
		requests:    requests,
		slots:       slots,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		workingDays: days,
	}
}

// Generate snapshots accepted requests and the resource directory, runs the
// allocator, and commits the result as the new schedule. The previous block
// set is discarded in the same transaction: a run never leaves a mix of old
// and new placements behind.
func (s *BlockService) Generate(ctx context.Context) (*dto.GenerateBlocksResponse, error) {
	accepted, err := s.requests.ListByStatus(ctx, models.CourseRequestAccepted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accepted requests")
	}

	candidates, slotsByShift, err := s.loadSnapshot(ctx, accepted)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}

	allocation := allocateBlocks(candidates, rooms, slotsByShift, s.workingDays)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := s.blocks.DeleteAll(ctx, tx); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous blocks")
	}
	if err := s.blocks.InsertBatch(ctx, tx, allocation.Blocks); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store blocks")
	}
	if err := s.requests.MarkCommitted(ctx, tx, allocation.Committed); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit placed requests")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit allocation run")
	}

	s.cache.Invalidate(ctx, blockCachePattern)
	if s.metrics != nil {
		s.metrics.RecordBlockRun(len(allocation.Blocks), len(allocation.Unassigned))
	}
	s.logger.Info("block allocation completed",
		zap.Int("requests", len(accepted)),
		zap.Int("blocks_created", len(allocation.Blocks)),
		zap.Int("unassigned", len(allocation.Unassigned)))

	return &dto.GenerateBlocksResponse{
		BlocksCreated: len(allocation.Blocks),
		Unassigned:    allocation.Unassigned,
	}, nil
}

// List returns enriched blocks, served from cache when the filter allows.
func (s *BlockService) List(ctx context.Context, filter dto.BlockFilter) ([]models.BlockDetail, error) {
	key := fmt.Sprintf("blocks:%s:%d:%s:%s", filter.Shift, filter.DayOfWeek, filter.SectionID, filter.TeacherID)
	var cached []models.BlockDetail
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	blocks, err := s.blocks.ListDetails(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocks")
	}
	s.cache.Set(ctx, key, blocks)
	return blocks, nil
}

// Move relocates one committed block to a new (room, day, slot). The target
// cell is guarded by an exclusive lock before the conflict check so two
// concurrent edits cannot both observe it free.
func (s *BlockService) Move(ctx context.Context, blockID string, req dto.MoveBlockRequest) (*models.Block, error) {
	if req.RoomID == "" || req.TimeSlotID == "" || req.DayOfWeek < 1 || req.DayOfWeek > 7 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roomId, day (1-7) and timeSlotId are required")
	}

	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	var room *models.Room
	for i := range rooms {
		if rooms[i].ID == req.RoomID {
			room = &rooms[i]
			break
		}
	}
	if room == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("unknown room %s", req.RoomID))
	}

	sections, err := s.catalog.ListSections(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}

	block, err := s.blocks.FindByIDForUpdate(ctx, tx, blockID)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "block not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load block")
	}

	slots, err := s.slots.ListByShift(ctx, block.Shift)
	if err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift slots")
	}
	if !slotBelongsToShift(slots, req.TimeSlotID, req.DayOfWeek) {
		_ = tx.Rollback()
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("time slot %s is not available on day %d of the %s shift", req.TimeSlotID, req.DayOfWeek, block.Shift))
	}

	if block.Component == models.BlockComponentLab && room.Type != models.RoomTypeLab {
		_ = tx.Rollback()
		return nil, appErrors.Clone(appErrors.ErrValidation, "lab meetings require a lab room")
	}
	if block.Component == models.BlockComponentTheory && room.Type == models.RoomTypeLab {
		_ = tx.Rollback()
		return nil, appErrors.Clone(appErrors.ErrValidation, "theory meetings cannot use a lab room")
	}
	for _, section := range sections {
		if section.ID == block.SectionID && room.Capacity < section.Size {
			_ = tx.Rollback()
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s seats %d, section needs %d", room.ID, room.Capacity, section.Size))
		}
	}

	if err := s.blocks.LockPlacement(ctx, tx, req.DayOfWeek, req.TimeSlotID); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock target slot")
	}
	occupants, err := s.blocks.ListAt(ctx, tx, req.DayOfWeek, req.TimeSlotID)
	if err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect target slot")
	}
	for _, other := range occupants {
		if other.ID == block.ID {
			continue
		}
		switch {
		case other.RoomID == req.RoomID:
			_ = tx.Rollback()
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room %s is already booked at that time", req.RoomID))
		case other.InstructorID == block.InstructorID:
			_ = tx.Rollback()
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("instructor %s already teaches at that time", block.InstructorID))
		case other.SectionID == block.SectionID:
			_ = tx.Rollback()
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("section %s already meets at that time", block.SectionID))
		}
	}

	block.RoomID = req.RoomID
	block.DayOfWeek = req.DayOfWeek
	block.TimeSlotID = req.TimeSlotID
	if err := s.blocks.UpdatePlacement(ctx, tx, block); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move block")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit move")
	}

	s.cache.Invalidate(ctx, blockCachePattern)
	s.logger.Info("block moved",
		zap.String("block_id", block.ID),
		zap.String("room_id", block.RoomID),
		zap.Int("day", block.DayOfWeek),
		zap.String("time_slot_id", block.TimeSlotID))
	return block, nil
}

func slotBelongsToShift(slots []models.TimeSlot, slotID string, day int) bool {
	for _, slot := range slots {
		if slot.ID != slotID {
			continue
		}
		return slot.DayOfWeek == nil || *slot.DayOfWeek == day
	}
	return false
}

// loadSnapshot joins accepted requests with their catalog rows and collects
// the slot sets for every shift present in the queue.
func (s *BlockService) loadSnapshot(ctx context.Context, accepted []models.CourseRequest) ([]blockCandidate, map[models.Shift][]models.TimeSlot, error) {
	courses, err := s.catalog.ListCourses(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	sections, err := s.catalog.ListSections(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	courseByID := make(map[string]models.Course, len(courses))
	for _, course := range courses {
		courseByID[course.ID] = course
	}
	sectionByID := make(map[string]models.Section, len(sections))
	for _, section := range sections {
		sectionByID[section.ID] = section
	}

	candidates := make([]blockCandidate, 0, len(accepted))
	slotsByShift := map[models.Shift][]models.TimeSlot{}
	for _, request := range accepted {
		course, ok := courseByID[request.CourseID]
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("request %s references unknown course %s", request.ID, request.CourseID))
		}
		section, ok := sectionByID[request.SectionID]
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("request %s references unknown section %s", request.ID, request.SectionID))
		}
		prefs, err := request.DecodePreferences()
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("request %s has corrupt preferences", request.ID))
		}
		if _, loaded := slotsByShift[request.Shift]; !loaded {
			slots, err := s.slots.ListByShift(ctx, request.Shift)
			if err != nil {
				return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift slots")
			}
			slotsByShift[request.Shift] = slots
		}
		candidates = append(candidates, blockCandidate{
			Request: request,
			Course:  course,
			Section: section,
			Prefs:   prefs,
		})
	}
	return candidates, slotsByShift, nil
}
