package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

// ExportJobRepository persists asynchronous export jobs.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Insert creates a queued job row.
func (r *ExportJobRepository) Insert(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO export_jobs (id, kind, format, status, file_path, error, requested_by, created_at, completed_at)
		VALUES (:id, :kind, :format, :status, :file_path, :error, :requested_by, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("insert export job: %w", err)
	}
	return nil
}

// UpdateStatus transitions a job and records its outcome.
func (r *ExportJobRepository) UpdateStatus(ctx context.Context, id string, status models.ExportJobStatus, filePath, jobErr *string) error {
	var completedAt *time.Time
	if status == models.ExportJobCompleted || status == models.ExportJobFailed {
		now := time.Now().UTC()
		completedAt = &now
	}
	const query = `UPDATE export_jobs SET status = $2, file_path = $3, error = $4, completed_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, filePath, jobErr, completedAt); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}

// FindByID returns one job.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, kind, format, status, file_path, error, requested_by, created_at, completed_at FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}
