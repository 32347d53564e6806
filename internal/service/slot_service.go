package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
	"github.com/gux-htm/EmersonSched-sub000/pkg/config"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
)

type timeSlotStore interface {
	ListByShift(ctx context.Context, shift models.Shift) ([]models.TimeSlot, error)
	DeleteShiftScoped(ctx context.Context, exec sqlx.ExtContext, shift models.Shift) error
	DeleteByShiftDays(ctx context.Context, exec sqlx.ExtContext, shift models.Shift, days []int) error
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimeSlot) error
}

type timingConfigStore interface {
	DeactivateByShift(ctx context.Context, exec sqlx.ExtContext, shift models.Shift) error
	Insert(ctx context.Context, exec sqlx.ExtContext, cfg *models.TimingConfig) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// SlotService generates the discrete time slots allocation runs draw from.
type SlotService struct {
	slots     timeSlotStore
	configs   timingConfigStore
	tx        txProvider
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	slotGap   time.Duration
}

// NewSlotService wires the slot generator.
func NewSlotService(slots timeSlotStore, configs timingConfigStore, tx txProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg config.AllocatorConfig) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	gap := cfg.SlotGap
	if gap <= 0 {
		gap = 15 * time.Minute
	}
	return &SlotService{
		slots:     slots,
		configs:   configs,
		tx:        tx,
		cache:     cache,
		validator: validate,
		logger:    logger,
		slotGap:   gap,
	}
}

// span is a half-open slot window in minutes since midnight.
type span struct {
	start int
	end   int
}

// GenerateFixed replaces a shift's day-agnostic slot set with fixed-length
// slots between opening and closing time, skipping the break window.
func (s *SlotService) GenerateFixed(ctx context.Context, req dto.GenerateSlotsRequest) (*dto.GenerateSlotsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot generation payload")
	}

	open, err := parseClock(req.OpenTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	closing, err := parseClock(req.CloseTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if closing <= open {
		return nil, appErrors.Clone(appErrors.ErrValidation, "closing time must be after opening time")
	}

	breakStart := 0
	if req.BreakMinutes > 0 {
		if req.BreakStart == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "breakStart is required when breakMinutes is set")
		}
		breakStart, err = parseClock(req.BreakStart)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		if breakStart < open || breakStart+req.BreakMinutes > closing {
			return nil, appErrors.Clone(appErrors.ErrValidation, "break window must lie within working hours")
		}
	}

	spans := buildFixedSpans(open, closing, breakStart, req.BreakMinutes, req.SlotMinutes)
	if len(spans) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "working-hours window too small for a single slot")
	}

	shift := models.Shift(req.Shift)
	slots := make([]models.TimeSlot, 0, len(spans))
	for _, sp := range spans {
		slots = append(slots, models.TimeSlot{
			Shift:       shift,
			StartTime:   formatClock(sp.start),
			EndTime:     formatClock(sp.end),
			DurationMin: sp.end - sp.start,
			Label:       slotLabel(sp.start, sp.end),
		})
	}

	previous, err := s.slots.ListByShift(ctx, shift)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing slots")
	}

	timing := &models.TimingConfig{
		Shift:        shift,
		OpenTime:     req.OpenTime,
		CloseTime:    req.CloseTime,
		BreakStart:   req.BreakStart,
		BreakMinutes: req.BreakMinutes,
		SlotMinutes:  req.SlotMinutes,
		Active:       true,
	}

	if err := s.replaceShiftScoped(ctx, shift, timing, slots); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("time slots generated",
		zap.String("shift", string(shift)),
		zap.String("mode", "fixed"),
		zap.Int("slots", len(slots)),
		zap.Int("replaced", len(previous)))

	return &dto.GenerateSlotsResponse{Slots: slots, Replaced: len(previous)}, nil
}

// GenerateDistribution replaces day-scoped slots for the given days of a
// shift, walking the distribution groups in order. A distribution whose total
// minutes exceed the window is rejected before anything is written.
func (s *SlotService) GenerateDistribution(ctx context.Context, req dto.GenerateDistributionRequest) (*dto.GenerateSlotsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid distribution payload")
	}

	start, err := parseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	end, err := parseClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	gap := int(s.slotGap.Minutes())
	spans, err := buildDistributionSpans(start, end, req.Groups, gap)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	days := normalizeDays(req.Days)
	shift := models.Shift(req.Shift)

	slots := make([]models.TimeSlot, 0, len(spans)*len(days))
	for _, day := range days {
		day := day
		for _, sp := range spans {
			slots = append(slots, models.TimeSlot{
				Shift:       shift,
				DayOfWeek:   &day,
				StartTime:   formatClock(sp.start),
				EndTime:     formatClock(sp.end),
				DurationMin: sp.end - sp.start,
				Label:       slotLabel(sp.start, sp.end),
			})
		}
	}

	if err := s.replaceDayScoped(ctx, shift, days, slots); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("time slots generated",
		zap.String("shift", string(shift)),
		zap.String("mode", "distribution"),
		zap.Ints("days", days),
		zap.Int("slots", len(slots)))

	return &dto.GenerateSlotsResponse{Slots: slots}, nil
}

// ListByShift returns the current slot set of a shift, served from cache
// when warm.
func (s *SlotService) ListByShift(ctx context.Context, shift models.Shift) ([]models.TimeSlot, error) {
	if !models.ValidShift(shift) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown shift")
	}
	cacheKey := fmt.Sprintf("slots:%s", shift)
	var cached []models.TimeSlot
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}
	slots, err := s.slots.ListByShift(ctx, shift)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	s.cache.Set(ctx, cacheKey, slots)
	return slots, nil
}

func (s *SlotService) replaceShiftScoped(ctx context.Context, shift models.Shift, timing *models.TimingConfig, slots []models.TimeSlot) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.configs.DeactivateByShift(ctx, tx, shift); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retire timing config")
	}
	if err = s.configs.Insert(ctx, tx, timing); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timing config")
	}
	if err = s.slots.DeleteShiftScoped(ctx, tx, shift); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous slots")
	}
	if err = s.slots.InsertBatch(ctx, tx, slots); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store slots")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit slot generation")
	}
	return nil
}

func (s *SlotService) replaceDayScoped(ctx context.Context, shift models.Shift, days []int, slots []models.TimeSlot) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.slots.DeleteByShiftDays(ctx, tx, shift, days); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous slots")
	}
	if err = s.slots.InsertBatch(ctx, tx, slots); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store slots")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit slot generation")
	}
	return nil
}

func (s *SlotService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, "slots:*")
}

// buildFixedSpans walks from opening time emitting slot-length windows. A
// slot that would overlap the break advances the cursor to break end first.
func buildFixedSpans(open, closing, breakStart, breakMinutes, slotMinutes int) []span {
	spans := []span{}
	breakEnd := breakStart + breakMinutes
	cursor := open
	for cursor+slotMinutes <= closing {
		if breakMinutes > 0 && cursor < breakEnd && cursor+slotMinutes > breakStart {
			cursor = breakEnd
			continue
		}
		spans = append(spans, span{start: cursor, end: cursor + slotMinutes})
		cursor += slotMinutes
	}
	return spans
}

// buildDistributionSpans emits each group's slots in order, separating slots
// of the same group by gapMinutes. The distribution must fit the window;
// overflow is an error, never a silent truncation.
func buildDistributionSpans(start, end int, groups []dto.SlotGroup, gapMinutes int) ([]span, error) {
	total := 0
	for _, group := range groups {
		total += group.LengthMin*group.Count + gapMinutes*(group.Count-1)
	}
	window := end - start
	if total > window {
		return nil, fmt.Errorf("distribution needs %d minutes but window holds %d", total, window)
	}

	spans := make([]span, 0, total)
	cursor := start
	for _, group := range groups {
		for i := 0; i < group.Count; i++ {
			if i > 0 {
				cursor += gapMinutes
			}
			spans = append(spans, span{start: cursor, end: cursor + group.LengthMin})
			cursor += group.LengthMin
		}
	}
	return spans, nil
}

func normalizeDays(days []int) []int {
	unique := make(map[int]struct{})
	for _, day := range days {
		if day < 1 || day > 7 {
			continue
		}
		unique[day] = struct{}{}
	}
	result := make([]int, 0, len(unique))
	for day := 1; day <= 7; day++ {
		if _, ok := unique[day]; ok {
			result = append(result, day)
		}
	}
	return result
}
