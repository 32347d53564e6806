package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
)

type courseRequestStoreStub struct {
	byID     map[string]models.CourseRequest
	active   []models.CourseRequest
	byStatus []models.CourseRequest

	inserted []models.CourseRequest
	accepted *models.CourseRequest
	undone   *models.CourseRequest
}

func (s *courseRequestStoreStub) ListByStatus(ctx context.Context, status models.CourseRequestStatus) ([]models.CourseRequest, error) {
	return s.byStatus, nil
}

func (s *courseRequestStoreStub) ListActive(ctx context.Context) ([]models.CourseRequest, error) {
	return s.active, nil
}

func (s *courseRequestStoreStub) FindByID(ctx context.Context, id string) (*models.CourseRequest, error) {
	if req, ok := s.byID[id]; ok {
		return &req, nil
	}
	return nil, sql.ErrNoRows
}

func (s *courseRequestStoreStub) FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.CourseRequest, error) {
	return s.FindByID(ctx, id)
}

func (s *courseRequestStoreStub) InsertBatch(ctx context.Context, exec sqlx.ExtContext, requests []models.CourseRequest) error {
	s.inserted = append(s.inserted, requests...)
	return nil
}

func (s *courseRequestStoreStub) UpdateAccept(ctx context.Context, exec sqlx.ExtContext, req *models.CourseRequest) error {
	clone := *req
	s.accepted = &clone
	return nil
}

func (s *courseRequestStoreStub) UpdateUndo(ctx context.Context, exec sqlx.ExtContext, req *models.CourseRequest) error {
	clone := *req
	s.undone = &clone
	return nil
}

type offeringReaderStub struct {
	offerings []models.Offering
}

func (s offeringReaderStub) ListOfferings(ctx context.Context, shift models.Shift, program string) ([]models.Offering, error) {
	return s.offerings, nil
}

func pendingRequest(id string, origin models.RequestOrigin) models.CourseRequest {
	return models.CourseRequest{
		ID:        id,
		CourseID:  "course-1",
		SectionID: "section-1",
		Shift:     models.ShiftMorning,
		Status:    models.CourseRequestPending,
		Origin:    origin,
	}
}

func TestGenerateRequestsSkipsCoveredOfferings(t *testing.T) {
	offerings := offeringReaderStub{offerings: []models.Offering{
		{CourseID: "c1", SectionID: "s1", Shift: models.ShiftMorning},
		{CourseID: "c2", SectionID: "s1", Shift: models.ShiftMorning},
		{CourseID: "c3", SectionID: "s2", Shift: models.ShiftMorning},
	}}
	requests := &courseRequestStoreStub{active: []models.CourseRequest{
		{CourseID: "c2", SectionID: "s1", Status: models.CourseRequestAccepted},
	}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewRequestService(requests, offerings, &timeSlotStoreStub{}, tx, validator.New(), nil, allocatorConfig())
	resp, err := svc.Generate(context.Background(), dto.GenerateRequestsFilter{Shift: "morning"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Created)
	assert.Equal(t, 1, resp.Skipped)
	require.Len(t, requests.inserted, 2)
	assert.Equal(t, models.CourseRequestPending, requests.inserted[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateRequestsNoopWhenFullyCovered(t *testing.T) {
	offerings := offeringReaderStub{offerings: []models.Offering{
		{CourseID: "c1", SectionID: "s1", Shift: models.ShiftMorning},
	}}
	requests := &courseRequestStoreStub{active: []models.CourseRequest{
		{CourseID: "c1", SectionID: "s1", Status: models.CourseRequestPending},
	}}
	tx, mock := newTxProviderMock(t)

	svc := NewRequestService(requests, offerings, &timeSlotStoreStub{}, tx, validator.New(), nil, allocatorConfig())
	resp, err := svc.Generate(context.Background(), dto.GenerateRequestsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Created)
	assert.Equal(t, 1, resp.Skipped)
	assert.Empty(t, requests.inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptSetsOriginScopedUndoDeadline(t *testing.T) {
	requests := &courseRequestStoreStub{byID: map[string]models.CourseRequest{
		"req-1": pendingRequest("req-1", models.RequestOriginInstructor),
	}}
	slots := &timeSlotStoreStub{existing: []models.TimeSlot{{ID: "slot-1", Shift: models.ShiftMorning}}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewRequestService(requests, offeringReaderStub{}, slots, tx, validator.New(), nil, allocatorConfig())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	resp, err := svc.Accept(context.Background(), "req-1", "teacher-1", dto.AcceptRequestPayload{
		Preferences: dto.PreferencePayload{Days: []int{1, 3}, SlotIDs: []string{"slot-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)
	assert.Equal(t, now.Add(10*time.Minute), resp.UndoDeadline)

	require.NotNil(t, requests.accepted)
	assert.Equal(t, models.CourseRequestAccepted, requests.accepted.Status)
	require.NotNil(t, requests.accepted.InstructorID)
	assert.Equal(t, "teacher-1", *requests.accepted.InstructorID)
	prefs, err := requests.accepted.DecodePreferences()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, prefs.Days)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptAdminOriginUsesShortWindow(t *testing.T) {
	requests := &courseRequestStoreStub{byID: map[string]models.CourseRequest{
		"req-1": pendingRequest("req-1", models.RequestOriginAdmin),
	}}
	slots := &timeSlotStoreStub{existing: []models.TimeSlot{{ID: "slot-1", Shift: models.ShiftMorning}}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewRequestService(requests, offeringReaderStub{}, slots, tx, validator.New(), nil, allocatorConfig())
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	resp, err := svc.Accept(context.Background(), "req-1", "teacher-1", dto.AcceptRequestPayload{
		Preferences: dto.PreferencePayload{Days: []int{1}, SlotIDs: []string{"slot-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Second), resp.UndoDeadline)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptRejectsSlotFromAnotherShift(t *testing.T) {
	requests := &courseRequestStoreStub{byID: map[string]models.CourseRequest{
		"req-1": pendingRequest("req-1", models.RequestOriginAdmin),
	}}
	slots := &timeSlotStoreStub{existing: []models.TimeSlot{{ID: "slot-1", Shift: models.ShiftMorning}}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := NewRequestService(requests, offeringReaderStub{}, slots, tx, validator.New(), nil, allocatorConfig())
	_, err := svc.Accept(context.Background(), "req-1", "teacher-1", dto.AcceptRequestPayload{
		Preferences: dto.PreferencePayload{Days: []int{1}, SlotIDs: []string{"evening-slot"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, requests.accepted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptRejectsNonPendingRequest(t *testing.T) {
	accepted := pendingRequest("req-1", models.RequestOriginAdmin)
	accepted.Status = models.CourseRequestAccepted
	requests := &courseRequestStoreStub{byID: map[string]models.CourseRequest{"req-1": accepted}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := NewRequestService(requests, offeringReaderStub{}, &timeSlotStoreStub{}, tx, validator.New(), nil, allocatorConfig())
	_, err := svc.Accept(context.Background(), "req-1", "teacher-1", dto.AcceptRequestPayload{
		Preferences: dto.PreferencePayload{Days: []int{1}, SlotIDs: []string{"slot-1"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func acceptedRequest(instructorID string, deadline time.Time) models.CourseRequest {
	req := pendingRequest("req-1", models.RequestOriginInstructor)
	req.Status = models.CourseRequestAccepted
	req.InstructorID = &instructorID
	req.UndoDeadline = &deadline
	return req
}

func TestUndoBeforeDeadlineRevertsToPending(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	requests := &courseRequestStoreStub{byID: map[string]models.CourseRequest{
		"req-1": acceptedRequest("teacher-1", now.Add(time.Minute)),
	}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewRequestService(requests, offeringReaderStub{}, &timeSlotStoreStub{}, tx, validator.New(), nil, allocatorConfig())
	svc.clock = func() time.Time { return now }

	resp, err := svc.Undo(context.Background(), "req-1", "teacher-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
	require.NotNil(t, requests.undone)
	assert.Equal(t, models.CourseRequestPending, requests.undone.Status)
	assert.Equal(t, 1, requests.undone.UndoCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUndoAtOrAfterDeadlineIsGone(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	// The window is exclusive at its end: an undo arriving exactly at the
	// deadline is already expired.
	deadlines := map[string]time.Time{
		"at deadline":   now,
		"past deadline": now.Add(-time.Second),
	}
	for name, deadline := range deadlines {
		t.Run(name, func(t *testing.T) {
			requests := &courseRequestStoreStub{byID: map[string]models.CourseRequest{
				"req-1": acceptedRequest("teacher-1", deadline),
			}}
			tx, mock := newTxProviderMock(t)
			mock.ExpectBegin()
			mock.ExpectRollback()

			svc := NewRequestService(requests, offeringReaderStub{}, &timeSlotStoreStub{}, tx, validator.New(), nil, allocatorConfig())
			svc.clock = func() time.Time { return now }

			_, err := svc.Undo(context.Background(), "req-1", "teacher-1")
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrExpired.Code, appErrors.FromError(err).Code)
			assert.Nil(t, requests.undone)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUndoRejectsOtherInstructor(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	requests := &courseRequestStoreStub{byID: map[string]models.CourseRequest{
		"req-1": acceptedRequest("teacher-1", now.Add(time.Minute)),
	}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := NewRequestService(requests, offeringReaderStub{}, &timeSlotStoreStub{}, tx, validator.New(), nil, allocatorConfig())
	svc.clock = func() time.Time { return now }

	_, err := svc.Undo(context.Background(), "req-1", "teacher-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUndoOnlyOncePerAcceptance(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	alreadyUndone := acceptedRequest("teacher-1", now.Add(time.Minute))
	alreadyUndone.UndoCount = 1
	requests := &courseRequestStoreStub{byID: map[string]models.CourseRequest{"req-1": alreadyUndone}}
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := NewRequestService(requests, offeringReaderStub{}, &timeSlotStoreStub{}, tx, validator.New(), nil, allocatorConfig())
	svc.clock = func() time.Time { return now }

	_, err := svc.Undo(context.Background(), "req-1", "teacher-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
