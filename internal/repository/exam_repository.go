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

// ExamRepository persists exam sessions and their scheduled sittings.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// InsertSession stores one exam scheduling run's parameters.
func (r *ExamRepository) InsertSession(ctx context.Context, exec sqlx.ExtContext, session *models.ExamSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_sessions (id, exam_type, start_date, end_date, working_hours, duration_min, mode, created_at)
		VALUES (:id, :exam_type, :start_date, :end_date, :working_hours, :duration_min, :mode, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, session); err != nil {
		return fmt.Errorf("insert exam session: %w", err)
	}
	return nil
}

// DeleteByExamType removes prior sessions of the same type and their exams.
// Regeneration wholly replaces a session's output.
func (r *ExamRepository) DeleteByExamType(ctx context.Context, exec sqlx.ExtContext, examType string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM exams WHERE session_id IN (SELECT id FROM exam_sessions WHERE exam_type = $1)`, examType); err != nil {
		return fmt.Errorf("delete exams for type: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM exam_sessions WHERE exam_type = $1`, examType); err != nil {
		return fmt.Errorf("delete exam sessions for type: %w", err)
	}
	return nil
}

// InsertBatch stores the exams produced by a run.
func (r *ExamRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, exams []models.Exam) error {
	if len(exams) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range exams {
		if exams[i].ID == "" {
			exams[i].ID = uuid.NewString()
		}
		if exams[i].CreatedAt.IsZero() {
			exams[i].CreatedAt = now
		}
	}
	const query = `INSERT INTO exams (id, session_id, course_id, section_id, room_id, invigilator_id, exam_date, start_time, end_time, created_at)
		VALUES (:id, :session_id, :course_id, :section_id, :room_id, :invigilator_id, :exam_date, :start_time, :end_time, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, exams); err != nil {
		return fmt.Errorf("insert exams: %w", err)
	}
	return nil
}

// List returns exams matching the filter ordered by date and start time.
func (r *ExamRepository) List(ctx context.Context, filter dto.ExamFilter) ([]models.Exam, error) {
	query := `SELECT e.id, e.session_id, e.course_id, e.section_id, e.room_id, e.invigilator_id, e.exam_date, e.start_time, e.end_time, e.created_at
		FROM exams e`
	args := []interface{}{}
	where := ""
	if filter.ExamType != "" {
		args = append(args, filter.ExamType)
		query += ` JOIN exam_sessions s ON s.id = e.session_id`
		where = fmt.Sprintf(" WHERE s.exam_type = $%d", len(args))
	}
	if filter.SectionID != "" {
		args = append(args, filter.SectionID)
		if where == "" {
			where = fmt.Sprintf(" WHERE e.section_id = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND e.section_id = $%d", len(args))
		}
	}
	query += where + " ORDER BY e.exam_date, e.start_time, e.id"

	exams := []models.Exam{}
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}
