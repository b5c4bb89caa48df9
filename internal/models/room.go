package models

import "time"

// RoomStatus is the state of a dated room row.
type RoomStatus string

const (
	RoomBooked      RoomStatus = "booked"
	RoomAvailable   RoomStatus = "available"
	RoomMaintenance RoomStatus = "maintenance"
)

// Valid reports whether the status is known.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomBooked, RoomAvailable, RoomMaintenance:
		return true
	}
	return false
}

// RoomSchedule is a concrete dated booking or override for a room.
type RoomSchedule struct {
	ID        string     `db:"id" json:"id"`
	RoomID    string     `db:"room_id" json:"roomId"`
	Date      Date       `db:"date" json:"date"`
	StartTime ClockTime  `db:"start_time" json:"startTime"`
	EndTime   ClockTime  `db:"end_time" json:"endTime"`
	Status    RoomStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// RoomSlot is a dated interval for room lookups.
type RoomSlot struct {
	Date      Date      `json:"date"`
	StartTime ClockTime `json:"startTime"`
	EndTime   ClockTime `json:"endTime"`
}

// Validate checks the interval ordering.
func (s RoomSlot) Validate() error {
	if s.StartTime >= s.EndTime {
		return ErrInvalidTimeRange
	}
	return nil
}

// RoomConflict is a booked row colliding with a requested room slot.
type RoomConflict struct {
	RoomID   string       `json:"roomId"`
	Existing RoomSchedule `json:"existing"`
}
