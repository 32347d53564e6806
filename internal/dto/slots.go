package dto

import "github.com/gux-htm/EmersonSched-sub000/internal/models"

// GenerateSlotsRequest drives fixed-length slot generation for one shift.
// Fixed-length slots are shift-scoped: they apply to every working day.
type GenerateSlotsRequest struct {
	Shift        string `json:"shift" validate:"required,oneof=morning evening weekend"`
	OpenTime     string `json:"openTime" validate:"required"`
	CloseTime    string `json:"closeTime" validate:"required"`
	BreakStart   string `json:"breakStart" validate:"omitempty"`
	BreakMinutes int    `json:"breakMinutes" validate:"omitempty,min=0,max=480"`
	SlotMinutes  int    `json:"slotMinutes" validate:"required,min=5,max=480"`
}

// SlotGroup is one entry of a distribution: Count consecutive slots of
// LengthMin minutes each.
type SlotGroup struct {
	LengthMin int `json:"lengthMin" validate:"required,min=5,max=480"`
	Count     int `json:"count" validate:"required,min=1,max=32"`
}

// GenerateDistributionRequest drives distribution-based slot generation,
// producing day-scoped slots for each named working day.
type GenerateDistributionRequest struct {
	Shift     string      `json:"shift" validate:"required,oneof=morning evening weekend"`
	StartTime string      `json:"startTime" validate:"required"`
	EndTime   string      `json:"endTime" validate:"required"`
	Days      []int       `json:"days" validate:"required,min=1,dive,min=1,max=7"`
	Groups    []SlotGroup `json:"groups" validate:"required,min=1,dive"`
}

// GenerateSlotsResponse reports the replacement slot set.
type GenerateSlotsResponse struct {
	Slots    []models.TimeSlot `json:"slots"`
	Replaced int               `json:"replaced"`
}
