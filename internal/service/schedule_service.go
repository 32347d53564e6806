package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
)

type slotResetStore interface {
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) error
}

type configResetStore interface {
	DeactivateAll(ctx context.Context, exec sqlx.ExtContext) error
}

type blockResetStore interface {
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) error
}

type requestResetStore interface {
	RevertNonPending(ctx context.Context, exec sqlx.ExtContext) error
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) error
}

// ScheduleService clears generated scheduling state by scope.
type ScheduleService struct {
	slots     slotResetStore
	configs   configResetStore
	blocks    blockResetStore
	requests  requestResetStore
	tx        txProvider
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService wires the reset surface.
func NewScheduleService(slots slotResetStore, configs configResetStore, blocks blockResetStore, requests requestResetStore, tx txProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		slots:     slots,
		configs:   configs,
		blocks:    blocks,
		requests:  requests,
		tx:        tx,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Reset clears state by scope in one transaction. `slots` clears time slots
// and deactivates timing configs, `assignments` clears blocks and returns
// consumed requests to pending, `full` does both and drops requests entirely.
func (s *ScheduleService) Reset(ctx context.Context, req dto.ResetScheduleRequest) (*dto.ResetScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "scope must be one of slots, assignments, full")
	}

	resp := &dto.ResetScheduleResponse{Scope: req.Scope}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}

	if req.Scope == "assignments" || req.Scope == "full" {
		if err := s.blocks.DeleteAll(ctx, tx); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear blocks")
		}
		resp.BlocksCleared = true
		if req.Scope == "assignments" {
			if err := s.requests.RevertNonPending(ctx, tx); err != nil {
				_ = tx.Rollback()
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revert requests")
			}
		}
	}
	if req.Scope == "full" {
		if err := s.requests.DeleteAll(ctx, tx); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear requests")
		}
		resp.RequestsCleared = true
	}
	if req.Scope == "slots" || req.Scope == "full" {
		if err := s.slots.DeleteAll(ctx, tx); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear time slots")
		}
		if err := s.configs.DeactivateAll(ctx, tx); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate timing configs")
		}
		resp.SlotsCleared = true
		resp.ConfigDeactivated = true
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reset")
	}

	s.cache.Invalidate(ctx, "slots:*")
	s.cache.Invalidate(ctx, blockCachePattern)
	s.logger.Info("schedule reset", zap.String("scope", req.Scope))
	return resp, nil
}
