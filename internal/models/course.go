package models

import "time"

// Course describes a taught course. CreditHours uses the "theory+lab" contact
// hour encoding, e.g. "3+1" for three theory units and one lab unit.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Semester    int       `db:"semester" json:"semester"`
	CreditHours string    `db:"credit_hours" json:"credit_hours"`
	Program     string    `db:"program" json:"program"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Section is a student cohort taking courses within one shift.
type Section struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Size      int       `db:"size" json:"size"`
	Shift     Shift     `db:"shift" json:"shift"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Offering pairs a course with a section that must be staffed and scheduled.
type Offering struct {
	CourseID  string `db:"course_id" json:"course_id"`
	SectionID string `db:"section_id" json:"section_id"`
	Shift     Shift  `db:"shift" json:"shift"`
}
