package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// InvigilatorMode selects how exam invigilators are chosen.
type InvigilatorMode string

const (
	// InvigilatorModeMatch reuses the instructor already teaching the section.
	InvigilatorModeMatch InvigilatorMode = "match"
	// InvigilatorModeShuffle balances load across all eligible instructors.
	InvigilatorModeShuffle InvigilatorMode = "shuffle"
)

// WorkingWindow bounds exam starts within one weekday.
type WorkingWindow struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ExamSession captures the parameters of one exam scheduling run.
type ExamSession struct {
	ID           string          `db:"id" json:"id"`
	ExamType     string          `db:"exam_type" json:"exam_type"`
	StartDate    time.Time       `db:"start_date" json:"start_date"`
	EndDate      time.Time       `db:"end_date" json:"end_date"`
	WorkingHours types.JSONText  `db:"working_hours" json:"working_hours"`
	DurationMin  int             `db:"duration_min" json:"duration_min"`
	Mode         InvigilatorMode `db:"mode" json:"mode"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// DecodeWorkingHours unmarshals the per-weekday windows, keyed by lowercase
// weekday name ("monday".."friday").
func (s *ExamSession) DecodeWorkingHours() (map[string]WorkingWindow, error) {
	hours := make(map[string]WorkingWindow)
	if len(s.WorkingHours) == 0 {
		return hours, nil
	}
	if err := json.Unmarshal(s.WorkingHours, &hours); err != nil {
		return nil, err
	}
	return hours, nil
}

// Exam is one committed examination sitting.
type Exam struct {
	ID            string    `db:"id" json:"id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	SectionID     string    `db:"section_id" json:"section_id"`
	RoomID        string    `db:"room_id" json:"room_id"`
	InvigilatorID string    `db:"invigilator_id" json:"invigilator_id"`
	ExamDate      time.Time `db:"exam_date" json:"exam_date"`
	StartTime     string    `db:"start_time" json:"start_time"`
	EndTime       string    `db:"end_time" json:"end_time"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// UnassignedExam reports a course the exam allocator could not place.
type UnassignedExam struct {
	CourseID  string `json:"course_id"`
	SectionID string `json:"section_id"`
	Reason    string `json:"reason"`
}
