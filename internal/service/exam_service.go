package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
	"github.com/gux-htm/EmersonSched-sub000/pkg/config"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
)

type examStore interface {
	InsertSession(ctx context.Context, exec sqlx.ExtContext, session *models.ExamSession) error
	DeleteByExamType(ctx context.Context, exec sqlx.ExtContext, examType string) error
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, exams []models.Exam) error
	List(ctx context.Context, filter dto.ExamFilter) ([]models.Exam, error)
}

type blockLister interface {
	ListAll(ctx context.Context) ([]models.Block, error)
}

type instructorReader interface {
	ListActive(ctx context.Context) ([]models.Instructor, error)
}

// ExamService schedules examination sittings for every offered course-section
// pair within a session's calendar window.
type ExamService struct {
	exams       examStore
	blocks      blockLister
	offerings   offeringReader
	catalog     catalogReader
	instructors instructorReader
	rooms       roomReader
	tx          txProvider
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger

	bufferMin     int
	matchFallback string
}

// NewExamService wires the exam allocator.
func NewExamService(exams examStore, blocks blockLister, offerings offeringReader, catalog catalogReader, instructors instructorReader, rooms roomReader, tx txProvider, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg config.AllocatorConfig) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	buffer := int(cfg.ExamBuffer.Minutes())
	if buffer <= 0 {
		buffer = 30
	}
	fallback := cfg.MatchFallback
	if fallback == "" {
		fallback = config.MatchFallbackFail
	}
	return &ExamService{
		exams:         exams,
		blocks:        blocks,
		offerings:     offerings,
		catalog:       catalog,
		instructors:   instructors,
		rooms:         rooms,
		tx:            tx,
		validator:     validate,
		metrics:       metrics,
		logger:        logger,
		bufferMin:     buffer,
		matchFallback: fallback,
	}
}

// GenerateSession runs one exam allocation and replaces any earlier session
// of the same exam type together with its exams.
func (s *ExamService) GenerateSession(ctx context.Context, req dto.GenerateExamSessionRequest) (*dto.GenerateExamSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam session payload")
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}

	workingHours := make(map[string]models.WorkingWindow, len(req.WorkingHours))
	for day, window := range req.WorkingHours {
		start, err := parseClock(window.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: %v", day, err))
		}
		end, err := parseClock(window.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: %v", day, err))
		}
		if end <= start {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: end time must follow start time", day))
		}
		workingHours[strings.ToLower(day)] = models.WorkingWindow{StartTime: window.StartTime, EndTime: window.EndTime}
	}

	slots, err := buildExamSlots(examGridParams{
		StartDate:    startDate,
		EndDate:      endDate,
		WorkingHours: workingHours,
		DurationMin:  req.DurationMin,
		BufferMin:    s.bufferMin,
	})
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	candidates, err := s.loadCandidates(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	instructors, err := s.instructors.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}

	rawHours, err := json.Marshal(workingHours)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode working hours")
	}
	session := &models.ExamSession{
		ExamType:     req.ExamType,
		StartDate:    startDate,
		EndDate:      endDate,
		WorkingHours: types.JSONText(rawHours),
		DurationMin:  req.DurationMin,
		Mode:         models.InvigilatorMode(req.Mode),
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := s.exams.DeleteByExamType(ctx, tx, req.ExamType); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous session")
	}
	if err := s.exams.InsertSession(ctx, tx, session); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store exam session")
	}

	allocation := allocateExams(session.ID, candidates, slots, rooms, instructors, session.Mode, s.matchFallback, req.DurationMin)

	if err := s.exams.InsertBatch(ctx, tx, allocation.Exams); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store exams")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit exam session")
	}

	if s.metrics != nil {
		s.metrics.RecordExamRun(len(allocation.Exams), len(allocation.Unassigned))
	}
	s.logger.Info("exam allocation completed",
		zap.String("session_id", session.ID),
		zap.String("exam_type", req.ExamType),
		zap.String("mode", req.Mode),
		zap.Int("exams_created", len(allocation.Exams)),
		zap.Int("conflicts", len(allocation.Unassigned)))

	return &dto.GenerateExamSessionResponse{
		SessionID:    session.ID,
		ExamsCreated: len(allocation.Exams),
		Conflicts:    allocation.Unassigned,
	}, nil
}

// List returns scheduled exams.
func (s *ExamService) List(ctx context.Context, filter dto.ExamFilter) ([]models.Exam, error) {
	exams, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// loadCandidates joins every offering with its catalog rows and the teacher
// currently assigned to it in the block schedule.
func (s *ExamService) loadCandidates(ctx context.Context) ([]examCandidate, error) {
	offerings, err := s.offerings.ListOfferings(ctx, "", "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}
	courses, err := s.catalog.ListCourses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	sections, err := s.catalog.ListSections(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	blocks, err := s.blocks.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocks")
	}

	courseByID := make(map[string]models.Course, len(courses))
	for _, course := range courses {
		courseByID[course.ID] = course
	}
	sectionByID := make(map[string]models.Section, len(sections))
	for _, section := range sections {
		sectionByID[section.ID] = section
	}
	teacherByPair := make(map[string]string, len(blocks))
	for _, block := range blocks {
		key := offeringKey(block.CourseID, block.SectionID)
		if _, ok := teacherByPair[key]; !ok {
			teacherByPair[key] = block.InstructorID
		}
	}

	candidates := make([]examCandidate, 0, len(offerings))
	for _, offering := range offerings {
		course, ok := courseByID[offering.CourseID]
		if !ok {
			continue
		}
		section, ok := sectionByID[offering.SectionID]
		if !ok {
			continue
		}
		candidates = append(candidates, examCandidate{
			Course:    course,
			Section:   section,
			TeacherID: teacherByPair[offeringKey(offering.CourseID, offering.SectionID)],
		})
	}
	return candidates, nil
}
