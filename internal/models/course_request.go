package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// CourseRequestStatus is the lifecycle state of a staffing request.
type CourseRequestStatus string

const (
	CourseRequestPending   CourseRequestStatus = "pending"
	CourseRequestAccepted  CourseRequestStatus = "accepted"
	CourseRequestCommitted CourseRequestStatus = "committed"
)

// RequestOrigin records which workflow created a request. It selects the
// undo window applied after acceptance.
type RequestOrigin string

const (
	RequestOriginAdmin      RequestOrigin = "admin"
	RequestOriginInstructor RequestOrigin = "instructor"
)

// RequestPreferences is the typed shape of an instructor's day and slot
// choices. Persisted as JSONB, decoded at the repository edge.
type RequestPreferences struct {
	Days    []int    `json:"days"`
	SlotIDs []string `json:"slot_ids"`
}

// IsEmpty reports whether no preference has been expressed.
func (p RequestPreferences) IsEmpty() bool {
	return len(p.Days) == 0 && len(p.SlotIDs) == 0
}

// CourseRequest tracks the staffing of one course-section offering.
type CourseRequest struct {
	ID           string              `db:"id" json:"id"`
	CourseID     string              `db:"course_id" json:"course_id"`
	SectionID    string              `db:"section_id" json:"section_id"`
	Shift        Shift               `db:"shift" json:"shift"`
	Status       CourseRequestStatus `db:"status" json:"status"`
	Origin       RequestOrigin       `db:"origin" json:"origin"`
	InstructorID *string             `db:"instructor_id" json:"instructor_id,omitempty"`
	Preferences  types.JSONText      `db:"preferences" json:"preferences"`
	AcceptedAt   *time.Time          `db:"accepted_at" json:"accepted_at,omitempty"`
	UndoDeadline *time.Time          `db:"undo_deadline" json:"undo_deadline,omitempty"`
	UndoCount    int                 `db:"undo_count" json:"undo_count"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// DecodePreferences unmarshals the stored preference payload.
func (r *CourseRequest) DecodePreferences() (RequestPreferences, error) {
	var prefs RequestPreferences
	if len(r.Preferences) == 0 {
		return prefs, nil
	}
	if err := json.Unmarshal(r.Preferences, &prefs); err != nil {
		return RequestPreferences{}, err
	}
	return prefs, nil
}

// EncodePreferences marshals typed preferences into the stored column shape.
func EncodePreferences(prefs RequestPreferences) (types.JSONText, error) {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw), nil
}
