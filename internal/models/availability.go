package models

import "time"

// AvailabilityStatus classifies a teacher availability row.
type AvailabilityStatus string

const (
	AvailabilityAvailable AvailabilityStatus = "available"
	AvailabilityBusy      AvailabilityStatus = "busy"
	AvailabilityPreferred AvailabilityStatus = "preferred"
)

// Valid reports whether the status is known.
func (s AvailabilityStatus) Valid() bool {
	switch s {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityPreferred:
		return true
	}
	return false
}

// RepeatPattern says whether an availability row recurs.
type RepeatPattern string

const (
	RepeatWeekly RepeatPattern = "weekly"
	RepeatOnce   RepeatPattern = "once"
)

// TeacherAvailability is a weekly or one-off interval declared for a teacher.
// Date is set for once rows; rows written before it existed fall back to the creation date.
type TeacherAvailability struct {
	ID            string             `db:"id" json:"id"`
	TeacherID     string             `db:"teacher_id" json:"teacherId"`
	DayOfWeek     int                `db:"day_of_week" json:"dayOfWeek"`
	StartTime     ClockTime          `db:"start_time" json:"startTime"`
	EndTime       ClockTime          `db:"end_time" json:"endTime"`
	Status        AvailabilityStatus `db:"status" json:"status"`
	RepeatPattern RepeatPattern      `db:"repeat_pattern" json:"repeatPattern"`
	Date          *Date              `db:"date" json:"date,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updatedAt"`
}

// EffectiveDate is the date a once row applies to.
func (a TeacherAvailability) EffectiveDate() Date {
	if a.Date != nil {
		return *a.Date
	}
	return DateOf(a.CreatedAt)
}

// AvailabilitySlot is one interval submitted in a bulk availability update.
type AvailabilitySlot struct {
	DayOfWeek int       `json:"dayOfWeek"`
	StartTime ClockTime `json:"startTime"`
	EndTime   ClockTime `json:"endTime"`
	Date      *Date     `json:"date,omitempty"`
}

// AvailabilityQuery is the interval checked against a teacher's availability.
// The date window only narrows once rows; weekly rows always apply.
type AvailabilityQuery struct {
	DayOfWeek int
	StartTime ClockTime
	EndTime   ClockTime
	StartDate *Date
	EndDate   *Date
}

// AvailabilityConflict is a busy row colliding with a requested interval.
type AvailabilityConflict struct {
	TeacherID     string              `json:"teacherId"`
	Existing      TeacherAvailability `json:"existing"`
	RequestedSlot AvailabilityQuery   `json:"-"`
}
