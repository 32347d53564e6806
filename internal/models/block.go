package models

import "time"

// BlockComponent distinguishes theory meetings from lab meetings.
type BlockComponent string

const (
	BlockComponentTheory BlockComponent = "theory"
	BlockComponentLab    BlockComponent = "lab"
)

// Block is one committed class meeting: a course section taught by an
// instructor in a room at a fixed (day, time slot).
type Block struct {
	ID           string         `db:"id" json:"id"`
	CourseID     string         `db:"course_id" json:"course_id"`
	SectionID    string         `db:"section_id" json:"section_id"`
	InstructorID string         `db:"instructor_id" json:"instructor_id"`
	RoomID       string         `db:"room_id" json:"room_id"`
	DayOfWeek    int            `db:"day_of_week" json:"day_of_week"`
	TimeSlotID   string         `db:"time_slot_id" json:"time_slot_id"`
	Shift        Shift          `db:"shift" json:"shift"`
	Component    BlockComponent `db:"component" json:"component"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// BlockDetail enriches a block with display names for list and export views.
type BlockDetail struct {
	Block
	CourseCode     string `db:"course_code" json:"course_code"`
	CourseName     string `db:"course_name" json:"course_name"`
	SectionName    string `db:"section_name" json:"section_name"`
	RoomName       string `db:"room_name" json:"room_name"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	SlotLabel      string `db:"slot_label" json:"slot_label"`
}

// UnassignedReason explains why the allocator rejected a request.
type UnassignedReason string

const (
	UnassignedNoRoom          UnassignedReason = "no_room"
	UnassignedNoSlot          UnassignedReason = "no_slot"
	UnassignedTeacherConflict UnassignedReason = "teacher_conflict"
	UnassignedBadCreditFormat UnassignedReason = "bad_credit_format"
)

// UnassignedRequest is a per-item allocation failure. It is report data,
// not an error: the run that produced it still succeeds.
type UnassignedRequest struct {
	RequestID string           `json:"request_id"`
	CourseID  string           `json:"course_id"`
	SectionID string           `json:"section_id"`
	Reason    UnassignedReason `json:"reason"`
	Detail    string           `json:"detail,omitempty"`
}
