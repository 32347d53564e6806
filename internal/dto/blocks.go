package dto

import "github.com/gux-htm/EmersonSched-sub000/internal/models"

// GenerateBlocksResponse summarises a block allocation run.
type GenerateBlocksResponse struct {
	BlocksCreated int                        `json:"blocksCreated"`
	Unassigned    []models.UnassignedRequest `json:"unassigned"`
}

// MoveBlockRequest relocates one committed block (manual admin override).
type MoveBlockRequest struct {
	RoomID     string `json:"roomId" validate:"required"`
	DayOfWeek  int    `json:"day" validate:"required,min=1,max=7"`
	TimeSlotID string `json:"timeSlotId" validate:"required"`
}

// BlockFilter narrows block listings.
type BlockFilter struct {
	Shift     string `form:"shift" json:"shift"`
	DayOfWeek int    `form:"day" json:"day"`
	SectionID string `form:"sectionId" json:"sectionId"`
	TeacherID string `form:"teacherId" json:"teacherId"`
}

// ResetScheduleRequest clears generated scheduling state.
type ResetScheduleRequest struct {
	Scope string `json:"scope" validate:"required,oneof=slots assignments full"`
}

// ResetScheduleResponse reports what was cleared.
type ResetScheduleResponse struct {
	Scope             string `json:"scope"`
	SlotsCleared      bool   `json:"slotsCleared"`
	BlocksCleared     bool   `json:"blocksCleared"`
	RequestsCleared   bool   `json:"requestsCleared"`
	ConfigDeactivated bool   `json:"configDeactivated"`
}
