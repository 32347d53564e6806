package dto

import "time"

// GenerateRequestsFilter narrows which offerings receive pending requests.
type GenerateRequestsFilter struct {
	Shift   string `json:"shift" validate:"omitempty,oneof=morning evening weekend"`
	Program string `json:"program"`
	Origin  string `json:"origin" validate:"omitempty,oneof=admin instructor"`
}

// GenerateRequestsResponse reports idempotent request generation results.
type GenerateRequestsResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// PreferencePayload carries the day and slot choices an instructor submits
// when accepting a course request.
type PreferencePayload struct {
	Days    []int    `json:"days" validate:"required,min=1,dive,min=1,max=7"`
	SlotIDs []string `json:"slotIds" validate:"required,min=1,dive,required"`
}

// AcceptRequestPayload accepts a pending course request.
type AcceptRequestPayload struct {
	Preferences PreferencePayload `json:"preferences" validate:"required"`
}

// AcceptRequestResponse reports the new state and the undo deadline.
type AcceptRequestResponse struct {
	Status       string    `json:"status"`
	UndoDeadline time.Time `json:"undoDeadline"`
}

// UndoRequestResponse reports the reverted state.
type UndoRequestResponse struct {
	Status string `json:"status"`
}
