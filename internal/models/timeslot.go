package models

import "time"

// Shift names a daily scheduling window with its own slot set.
type Shift string

const (
	ShiftMorning Shift = "morning"
	ShiftEvening Shift = "evening"
	ShiftWeekend Shift = "weekend"
)

// ValidShift reports whether the value is one of the known shifts.
func ValidShift(s Shift) bool {
	switch s {
	case ShiftMorning, ShiftEvening, ShiftWeekend:
		return true
	}
	return false
}

// TimeSlot is a discrete teaching window within a shift. DayOfWeek is nil for
// slots that apply to every working day of the shift.
type TimeSlot struct {
	ID          string    `db:"id" json:"id"`
	Shift       Shift     `db:"shift" json:"shift"`
	DayOfWeek   *int      `db:"day_of_week" json:"day_of_week,omitempty"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	DurationMin int       `db:"duration_min" json:"duration_min"`
	Label       string    `db:"label" json:"label"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TimingConfig stores the generator parameters a slot set was produced from.
// Reset deactivates rather than deletes so history stays auditable.
type TimingConfig struct {
	ID           string    `db:"id" json:"id"`
	Shift        Shift     `db:"shift" json:"shift"`
	OpenTime     string    `db:"open_time" json:"open_time"`
	CloseTime    string    `db:"close_time" json:"close_time"`
	BreakStart   string    `db:"break_start" json:"break_start"`
	BreakMinutes int       `db:"break_minutes" json:"break_minutes"`
	SlotMinutes  int       `db:"slot_minutes" json:"slot_minutes"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
