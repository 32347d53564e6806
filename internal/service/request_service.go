package service

import (
	"context"
	"database/sql"
	"errors"
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

type courseRequestStore interface {
	ListByStatus(ctx context.Context, status models.CourseRequestStatus) ([]models.CourseRequest, error)
	ListActive(ctx context.Context) ([]models.CourseRequest, error)
	FindByID(ctx context.Context, id string) (*models.CourseRequest, error)
	FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.CourseRequest, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, requests []models.CourseRequest) error
	UpdateAccept(ctx context.Context, exec sqlx.ExtContext, req *models.CourseRequest) error
	UpdateUndo(ctx context.Context, exec sqlx.ExtContext, req *models.CourseRequest) error
}

type offeringReader interface {
	ListOfferings(ctx context.Context, shift models.Shift, program string) ([]models.Offering, error)
}

type shiftSlotReader interface {
	ListByShift(ctx context.Context, shift models.Shift) ([]models.TimeSlot, error)
}

// RequestService drives the course-request lifecycle:
// pending -> accepted -> {pending (undo), committed}.
type RequestService struct {
	requests  courseRequestStore
	offerings offeringReader
	slots     shiftSlotReader
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	clock     func() time.Time

	adminWindow      time.Duration
	instructorWindow time.Duration
}

// NewRequestService wires the lifecycle service. The two undo windows are
// deliberate configuration, not per-call-site constants.
func NewRequestService(requests courseRequestStore, offerings offeringReader, slots shiftSlotReader, tx txProvider, validate *validator.Validate, logger *zap.Logger, cfg config.AllocatorConfig) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	adminWindow := cfg.AdminUndoWindow
	if adminWindow <= 0 {
		adminWindow = 10 * time.Second
	}
	instructorWindow := cfg.InstructorUndoWindow
	if instructorWindow <= 0 {
		instructorWindow = 10 * time.Minute
	}
	return &RequestService{
		requests:         requests,
		offerings:        offerings,
		slots:            slots,
		tx:               tx,
		validator:        validate,
		logger:           logger,
		clock:            time.Now,
		adminWindow:      adminWindow,
		instructorWindow: instructorWindow,
	}
}

// Generate creates one pending request per offering that has no active
// request yet. Re-running never duplicates coverage.
func (s *RequestService) Generate(ctx context.Context, filter dto.GenerateRequestsFilter) (*dto.GenerateRequestsResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request generation filter")
	}

	offerings, err := s.offerings.ListOfferings(ctx, models.Shift(filter.Shift), filter.Program)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}

	active, err := s.requests.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active requests")
	}
	covered := make(map[string]struct{}, len(active))
	for _, req := range active {
		covered[offeringKey(req.CourseID, req.SectionID)] = struct{}{}
	}

	origin := models.RequestOrigin(filter.Origin)
	if origin == "" {
		origin = models.RequestOriginAdmin
	}

	created := make([]models.CourseRequest, 0, len(offerings))
	skipped := 0
	for _, offering := range offerings {
		if _, ok := covered[offeringKey(offering.CourseID, offering.SectionID)]; ok {
			skipped++
			continue
		}
		created = append(created, models.CourseRequest{
			CourseID:  offering.CourseID,
			SectionID: offering.SectionID,
			Shift:     offering.Shift,
			Status:    models.CourseRequestPending,
			Origin:    origin,
		})
	}

	if len(created) > 0 {
		tx, err := s.tx.BeginTxx(ctx, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
		}
		if err := s.requests.InsertBatch(ctx, tx, created); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create requests")
		}
		if err := tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit request generation")
		}
	}

	s.logger.Info("course requests generated", zap.Int("created", len(created)), zap.Int("skipped", skipped))
	return &dto.GenerateRequestsResponse{Created: len(created), Skipped: skipped}, nil
}

// Accept moves a pending request to accepted with the instructor's
// preferences. Every named slot must belong to the request's shift.
func (s *RequestService) Accept(ctx context.Context, requestID, instructorID string, payload dto.AcceptRequestPayload) (*dto.AcceptRequestResponse, error) {
	if instructorID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "instructor identity required")
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "preferences must name at least one day and one time slot")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	request, err := s.requests.FindByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "course request not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course request")
		return nil, err
	}
	if request.Status != models.CourseRequestPending {
		err = appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("request is %s, only pending requests can be accepted", request.Status))
		return nil, err
	}

	if err = s.checkSlotMembership(ctx, request.Shift, payload.Preferences.SlotIDs); err != nil {
		return nil, err
	}

	encoded, marshalErr := models.EncodePreferences(models.RequestPreferences{
		Days:    payload.Preferences.Days,
		SlotIDs: payload.Preferences.SlotIDs,
	})
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode preferences")
		return nil, err
	}

	now := s.clock().UTC()
	deadline := now.Add(s.undoWindow(request.Origin))
	request.Status = models.CourseRequestAccepted
	request.InstructorID = &instructorID
	request.Preferences = encoded
	request.AcceptedAt = &now
	request.UndoDeadline = &deadline

	if err = s.requests.UpdateAccept(ctx, tx, request); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store acceptance")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit acceptance")
		return nil, err
	}

	s.logger.Info("course request accepted",
		zap.String("request_id", requestID),
		zap.String("instructor_id", instructorID),
		zap.Time("undo_deadline", deadline))

	return &dto.AcceptRequestResponse{Status: string(models.CourseRequestAccepted), UndoDeadline: deadline}, nil
}

// Undo reverts an acceptance. Only the accepting instructor may undo, only
// while the deadline has not passed, and only once per request.
func (s *RequestService) Undo(ctx context.Context, requestID, instructorID string) (*dto.UndoRequestResponse, error) {
	if instructorID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "instructor identity required")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	request, err := s.requests.FindByIDForUpdate(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "course request not found")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course request")
		return nil, err
	}
	if request.Status != models.CourseRequestAccepted {
		err = appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("request is %s, only accepted requests can be undone", request.Status))
		return nil, err
	}
	if request.InstructorID == nil || *request.InstructorID != instructorID {
		err = appErrors.Clone(appErrors.ErrForbidden, "only the accepting instructor may undo")
		return nil, err
	}
	if request.UndoCount > 0 {
		err = appErrors.Clone(appErrors.ErrConflict, "request was already undone once")
		return nil, err
	}
	// The deadline check uses the stored acceptance time against the server
	// clock, never a client-supplied timestamp.
	if request.UndoDeadline == nil || !s.clock().Before(*request.UndoDeadline) {
		err = appErrors.Clone(appErrors.ErrExpired, "")
		return nil, err
	}

	request.Status = models.CourseRequestPending
	request.UndoCount++
	if err = s.requests.UpdateUndo(ctx, tx, request); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store undo")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit undo")
		return nil, err
	}

	s.logger.Info("course request acceptance undone",
		zap.String("request_id", requestID),
		zap.String("instructor_id", instructorID))

	return &dto.UndoRequestResponse{Status: string(models.CourseRequestPending)}, nil
}

// List returns requests in one state.
func (s *RequestService) List(ctx context.Context, status string) ([]models.CourseRequest, error) {
	switch models.CourseRequestStatus(status) {
	case models.CourseRequestPending, models.CourseRequestAccepted, models.CourseRequestCommitted:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request status")
	}
	requests, err := s.requests.ListByStatus(ctx, models.CourseRequestStatus(status))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

func (s *RequestService) undoWindow(origin models.RequestOrigin) time.Duration {
	if origin == models.RequestOriginInstructor {
		return s.instructorWindow
	}
	return s.adminWindow
}

func (s *RequestService) checkSlotMembership(ctx context.Context, shift models.Shift, slotIDs []string) error {
	slots, err := s.slots.ListByShift(ctx, shift)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift slots")
	}
	known := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		known[slot.ID] = struct{}{}
	}
	for _, id := range slotIDs {
		if _, ok := known[id]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("time slot %s does not belong to the %s shift", id, shift))
		}
	}
	return nil
}

func offeringKey(courseID, sectionID string) string {
	return courseID + "|" + sectionID
}
