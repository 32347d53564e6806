package models

import (
	"time"

	"github.com/lib/pq"
)

// RoomType classifies rooms for allocation purposes.
type RoomType string

const (
	RoomTypeLecture RoomType = "lecture"
	RoomTypeLab     RoomType = "lab"
	RoomTypeSeminar RoomType = "seminar"
)

// Room is an allocatable venue. Rooms are treated as immutable during a run.
type Room struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Type      RoomType       `db:"type" json:"type"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Tags      pq.StringArray `db:"tags" json:"tags"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
