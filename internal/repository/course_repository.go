package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

// CourseRepository reads courses, sections and the offerings linking them.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListCourses returns every course ordered by semester, name, id. The order
// matters: the exam allocator processes courses in exactly this sequence.
func (r *CourseRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, code, name, semester, credit_hours, program, created_at, updated_at FROM courses ORDER BY semester, name, id`
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListSections returns every section ordered by id.
func (r *CourseRepository) ListSections(ctx context.Context) ([]models.Section, error) {
	const query = `SELECT id, name, size, shift, created_at, updated_at FROM sections ORDER BY id`
	sections := []models.Section{}
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// ListOfferings returns the course-section pairs that need staffing and
// scheduling, with the section's shift attached.
func (r *CourseRepository) ListOfferings(ctx context.Context, shift models.Shift, program string) ([]models.Offering, error) {
	query := `SELECT sc.course_id, sc.section_id, s.shift
		FROM section_courses sc
		JOIN sections s ON s.id = sc.section_id
		JOIN courses c ON c.id = sc.course_id`
	args := []interface{}{}
	where := ""
	if shift != "" {
		args = append(args, shift)
		where = fmt.Sprintf(" WHERE s.shift = $%d", len(args))
	}
	if program != "" {
		args = append(args, program)
		if where == "" {
			where = fmt.Sprintf(" WHERE c.program = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND c.program = $%d", len(args))
		}
	}
	query += where + " ORDER BY sc.course_id, sc.section_id"

	offerings := []models.Offering{}
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}
	return offerings, nil
}
