package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

// InstructorRepository reads the instructor directory.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs the repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// ListActive returns active instructors ordered by id for deterministic scans.
func (r *InstructorRepository) ListActive(ctx context.Context) ([]models.Instructor, error) {
	const query = `SELECT id, full_name, email, active, created_at, updated_at FROM instructors WHERE active ORDER BY id`
	instructors := []models.Instructor{}
	if err := r.db.SelectContext(ctx, &instructors, query); err != nil {
		return nil, fmt.Errorf("list active instructors: %w", err)
	}
	return instructors, nil
}

// FindByID returns one instructor.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	const query = `SELECT id, full_name, email, active, created_at, updated_at FROM instructors WHERE id = $1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}
