package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
	"github.com/gux-htm/EmersonSched-sub000/pkg/config"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
	"github.com/gux-htm/EmersonSched-sub000/pkg/export"
	"github.com/gux-htm/EmersonSched-sub000/pkg/jobs"
	"github.com/gux-htm/EmersonSched-sub000/pkg/storage"
)

type exportJobStore interface {
	Insert(ctx context.Context, job *models.ExportJob) error
	UpdateStatus(ctx context.Context, id string, status models.ExportJobStatus, filePath, jobErr *string) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
}

type blockDetailReader interface {
	ListDetails(ctx context.Context, filter dto.BlockFilter) ([]models.BlockDetail, error)
}

type examReader interface {
	List(ctx context.Context, filter dto.ExamFilter) ([]models.Exam, error)
}

// ExportService renders timetable and exam-plan exports in the background and
// serves them through signed download URLs.
type ExportService struct {
	jobsRepo  exportJobStore
	blocks    blockDetailReader
	exams     examReader
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService wires the export pipeline and its worker queue. Call Start
// before enqueueing and Stop on shutdown.
func NewExportService(jobsRepo exportJobStore, blocks blockDetailReader, exams examReader, store *storage.LocalStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, cfg config.ExportsConfig) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		jobsRepo:  jobsRepo,
		blocks:    blocks,
		exams:     exams,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("exports", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Enqueue records a queued job and hands it to the worker pool.
func (s *ExportService) Enqueue(ctx context.Context, req dto.ExportRequest, requestedBy string) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "kind must be blocks or exams, format csv or pdf")
	}

	job := &models.ExportJob{
		Kind:        req.Kind,
		Format:      req.Format,
		Status:      models.ExportJobQueued,
		RequestedBy: requestedBy,
	}
	if err := s.jobsRepo.Insert(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: req.Kind, Payload: req}); err != nil {
		msg := err.Error()
		_ = s.jobsRepo.UpdateStatus(ctx, job.ID, models.ExportJobFailed, nil, &msg)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export job")
	}

	s.logger.Info("export queued",
		zap.String("job_id", job.ID),
		zap.String("kind", req.Kind),
		zap.String("format", req.Format))
	return &dto.ExportJobResponse{JobID: job.ID, Status: string(models.ExportJobQueued)}, nil
}

// Status reports a job's state and, once completed, a signed download URL.
func (s *ExportService) Status(ctx context.Context, jobID string) (*dto.ExportDownloadResponse, error) {
	job, err := s.jobsRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}

	resp := &dto.ExportDownloadResponse{JobID: job.ID, Status: string(job.Status)}
	if job.Status == models.ExportJobCompleted && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
		}
		resp.URL = "/api/v1/exports/download?token=" + token
		resp.ExpiresAt = expiresAt.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// Open validates a signed token and returns the rendered file path.
func (s *ExportService) Open(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return s.store.Path(relPath), nil
}

// Render produces an export inline, bypassing the job queue. Used by the
// direct timetable download endpoint.
func (s *ExportService) Render(ctx context.Context, kind, format string) ([]byte, string, error) {
	dataset, title, err := s.buildDataset(ctx, kind)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export data")
	}
	switch format {
	case "pdf":
		rendered, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return rendered, "application/pdf", nil
	case "", "csv":
		rendered, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return rendered, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.ExportRequest)
	if !ok {
		msg := "malformed export payload"
		_ = s.jobsRepo.UpdateStatus(ctx, job.ID, models.ExportJobFailed, nil, &msg)
		return nil
	}
	if err := s.jobsRepo.UpdateStatus(ctx, job.ID, models.ExportJobRunning, nil, nil); err != nil {
		return err
	}

	dataset, title, err := s.buildDataset(ctx, req.Kind)
	if err == nil {
		var rendered []byte
		switch req.Format {
		case "pdf":
			rendered, err = s.pdf.Render(dataset, title)
		default:
			rendered, err = s.csv.Render(dataset)
		}
		if err == nil {
			filename := fmt.Sprintf("%s-%s.%s", req.Kind, job.ID, req.Format)
			var relPath string
			relPath, err = s.store.Save(filename, rendered)
			if err == nil {
				if err := s.jobsRepo.UpdateStatus(ctx, job.ID, models.ExportJobCompleted, &relPath, nil); err != nil {
					return err
				}
				s.logger.Info("export completed", zap.String("job_id", job.ID), zap.String("file", relPath))
				return nil
			}
		}
	}

	msg := err.Error()
	if updateErr := s.jobsRepo.UpdateStatus(ctx, job.ID, models.ExportJobFailed, nil, &msg); updateErr != nil {
		return updateErr
	}
	s.logger.Error("export failed", zap.String("job_id", job.ID), zap.Error(err))
	return nil
}

func (s *ExportService) buildDataset(ctx context.Context, kind string) (export.Dataset, string, error) {
	switch kind {
	case "exams":
		exams, err := s.exams.List(ctx, dto.ExamFilter{})
		if err != nil {
			return export.Dataset{}, "", err
		}
		dataset := export.Dataset{
			Headers: []string{"Date", "Start", "End", "Course", "Section", "Room", "Invigilator"},
			Rows:    make([]map[string]string, 0, len(exams)),
		}
		for _, exam := range exams {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Date":        exam.ExamDate.Format("2006-01-02"),
				"Start":       exam.StartTime,
				"End":         exam.EndTime,
				"Course":      exam.CourseID,
				"Section":     exam.SectionID,
				"Room":        exam.RoomID,
				"Invigilator": exam.InvigilatorID,
			})
		}
		return dataset, "Exam Schedule", nil
	default:
		blocks, err := s.blocks.ListDetails(ctx, dto.BlockFilter{})
		if err != nil {
			return export.Dataset{}, "", err
		}
		dataset := export.Dataset{
			Headers: []string{"Day", "Slot", "Course", "Section", "Room", "Instructor", "Component"},
			Rows:    make([]map[string]string, 0, len(blocks)),
		}
		for _, block := range blocks {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Day":        strconv.Itoa(block.DayOfWeek),
				"Slot":       block.SlotLabel,
				"Course":     block.CourseCode + " " + block.CourseName,
				"Section":    block.SectionName,
				"Room":       block.RoomName,
				"Instructor": block.InstructorName,
				"Component":  string(block.Component),
			})
		}
		return dataset, "Class Timetable", nil
	}
}
