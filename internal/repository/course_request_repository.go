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

// CourseRequestRepository persists the course-request lifecycle.
type CourseRequestRepository struct {
	db *sqlx.DB
}

// NewCourseRequestRepository constructs the repository.
func NewCourseRequestRepository(db *sqlx.DB) *CourseRequestRepository {
	return &CourseRequestRepository{db: db}
}

const courseRequestColumns = `id, course_id, section_id, shift, status, origin, instructor_id, preferences, accepted_at, undo_deadline, undo_count, created_at, updated_at`

// ListByStatus returns requests in one state ordered by id for deterministic
// allocation runs.
func (r *CourseRequestRepository) ListByStatus(ctx context.Context, status models.CourseRequestStatus) ([]models.CourseRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_requests WHERE status = $1 ORDER BY id`, courseRequestColumns)
	requests := []models.CourseRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, status); err != nil {
		return nil, fmt.Errorf("list course requests by status: %w", err)
	}
	return requests, nil
}

// ListActive returns pending and accepted requests. Used to keep Generate
// idempotent: offerings already covered are skipped.
func (r *CourseRequestRepository) ListActive(ctx context.Context) ([]models.CourseRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_requests WHERE status IN ('pending', 'accepted') ORDER BY id`, courseRequestColumns)
	requests := []models.CourseRequest{}
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list active course requests: %w", err)
	}
	return requests, nil
}

// FindByID returns one request.
func (r *CourseRequestRepository) FindByID(ctx context.Context, id string) (*models.CourseRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_requests WHERE id = $1`, courseRequestColumns)
	var request models.CourseRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByIDForUpdate re-reads a request inside a transaction with a row lock.
// Accept and undo must use this so concurrent mutations serialise instead of
// racing on a stale status.
func (r *CourseRequestRepository) FindByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.CourseRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_requests WHERE id = $1 FOR UPDATE`, courseRequestColumns)
	var request models.CourseRequest
	if err := tx.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// InsertBatch creates pending requests.
func (r *CourseRequestRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, requests []models.CourseRequest) error {
	if len(requests) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range requests {
		if requests[i].ID == "" {
			requests[i].ID = uuid.NewString()
		}
		if len(requests[i].Preferences) == 0 {
			requests[i].Preferences = []byte("{}")
		}
		requests[i].CreatedAt = now
		requests[i].UpdatedAt = now
	}
	const query = `INSERT INTO course_requests (id, course_id, section_id, shift, status, origin, instructor_id, preferences, accepted_at, undo_deadline, undo_count, created_at, updated_at)
		VALUES (:id, :course_id, :section_id, :shift, :status, :origin, :instructor_id, :preferences, :accepted_at, :undo_deadline, :undo_count, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, requests); err != nil {
		return fmt.Errorf("insert course requests: %w", err)
	}
	return nil
}

// UpdateAccept stores the acceptance fields.
func (r *CourseRequestRepository) UpdateAccept(ctx context.Context, exec sqlx.ExtContext, req *models.CourseRequest) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_requests
		SET status = :status, instructor_id = :instructor_id, preferences = :preferences,
		    accepted_at = :accepted_at, undo_deadline = :undo_deadline, updated_at = :updated_at
		WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, req); err != nil {
		return fmt.Errorf("update accepted course request: %w", err)
	}
	return nil
}

// UpdateUndo reverts an acceptance back to pending.
func (r *CourseRequestRepository) UpdateUndo(ctx context.Context, exec sqlx.ExtContext, req *models.CourseRequest) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_requests
		SET status = :status, instructor_id = NULL, preferences = '{}',
		    accepted_at = NULL, undo_deadline = NULL, undo_count = :undo_count, updated_at = :updated_at
		WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, req); err != nil {
		return fmt.Errorf("undo course request: %w", err)
	}
	return nil
}

// MarkCommitted flags requests consumed by a block allocation run.
func (r *CourseRequestRepository) MarkCommitted(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := exec.ExecContext(ctx, `UPDATE course_requests SET status = 'committed', updated_at = NOW() WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("mark course requests committed: %w", err)
	}
	return nil
}

// RevertNonPending returns accepted and committed requests to pending with
// preferences cleared (schedule reset, assignments scope).
func (r *CourseRequestRepository) RevertNonPending(ctx context.Context, exec sqlx.ExtContext) error {
	const query = `UPDATE course_requests
		SET status = 'pending', instructor_id = NULL, preferences = '{}',
		    accepted_at = NULL, undo_deadline = NULL, updated_at = NOW()
		WHERE status IN ('accepted', 'committed')`
	if _, err := exec.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("revert course requests: %w", err)
	}
	return nil
}

// DeleteAll clears the request table (schedule reset, full scope).
func (r *CourseRequestRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM course_requests`); err != nil {
		return fmt.Errorf("delete course requests: %w", err)
	}
	return nil
}
