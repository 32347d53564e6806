package dto

import "github.com/gux-htm/EmersonSched-sub000/internal/models"

// WorkingWindowPayload bounds exam starts within one weekday.
type WorkingWindowPayload struct {
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// GenerateExamSessionRequest drives one exam scheduling run. WorkingHours is
// keyed by lowercase weekday name; days absent from the map hold no exams.
type GenerateExamSessionRequest struct {
	ExamType     string                          `json:"examType" validate:"required"`
	StartDate    string                          `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate      string                          `json:"endDate" validate:"required,datetime=2006-01-02"`
	WorkingHours map[string]WorkingWindowPayload `json:"workingHours" validate:"required,min=1"`
	DurationMin  int                             `json:"durationMinutes" validate:"required,min=15,max=480"`
	Mode         string                          `json:"mode" validate:"required,oneof=match shuffle"`
}

// GenerateExamSessionResponse summarises an exam allocation run.
type GenerateExamSessionResponse struct {
	SessionID    string                  `json:"sessionId"`
	ExamsCreated int                     `json:"examsCreated"`
	Conflicts    []models.UnassignedExam `json:"conflicts"`
}

// ExamFilter narrows exam listings.
type ExamFilter struct {
	ExamType  string `form:"examType" json:"examType"`
	SectionID string `form:"sectionId" json:"sectionId"`
}
