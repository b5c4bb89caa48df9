package models

import "time"

// ClassSchedule is the committed weekly slot of a class with its teacher and room.
type ClassSchedule struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"classId"`
	TeacherID string    `db:"teacher_id" json:"teacherId"`
	RoomID    string    `db:"room_id" json:"roomId"`
	DayOfWeek int       `db:"day_of_week" json:"dayOfWeek"`
	StartTime ClockTime `db:"start_time" json:"startTime"`
	EndTime   ClockTime `db:"end_time" json:"endTime"`
	StartDate Date      `db:"start_date" json:"startDate"`
	EndDate   Date      `db:"end_date" json:"endDate"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Slot returns the schedule's recurring slot.
func (s ClassSchedule) Slot() TimeSlot {
	return TimeSlot{
		DayOfWeek: s.DayOfWeek,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
}

// ScheduleUpdate carries the fields to overwrite; nil keeps the stored value.
type ScheduleUpdate struct {
	ClassID   *string
	TeacherID *string
	RoomID    *string
	DayOfWeek *int
	StartTime *ClockTime
	EndTime   *ClockTime
	StartDate *Date
	EndDate   *Date
}

// ConflictType tags the resource a conflict was raised for.
type ConflictType string

const (
	ConflictTeacher ConflictType = "teacher"
	ConflictRoom    ConflictType = "room"
	ConflictClass   ConflictType = "class"
)

// Interval is a concrete blocking row from the availability or room booking stores.
type Interval struct {
	DayOfWeek *int      `json:"dayOfWeek,omitempty"`
	Date      *Date     `json:"date,omitempty"`
	StartTime ClockTime `json:"startTime"`
	EndTime   ClockTime `json:"endTime"`
	Status    string    `json:"status"`
}

// ScheduleConflict describes why a requested slot cannot be committed. It is never persisted.
type ScheduleConflict struct {
	Type             ConflictType   `json:"type"`
	EntityID         string         `json:"entityId"`
	ExistingSchedule *ClassSchedule `json:"existingSchedule"`
	ExistingInterval *Interval      `json:"existingInterval,omitempty"`
	RequestedSlot    TimeSlot       `json:"requestedSlot"`
}

// ScheduleResult is either a persisted schedule or the conflicts that prevented it.
type ScheduleResult struct {
	Schedule  *ClassSchedule     `json:"schedule,omitempty"`
	Conflicts []ScheduleConflict `json:"conflicts,omitempty"`
}

// Succeeded reports whether a schedule was written.
func (r *ScheduleResult) Succeeded() bool {
	return r != nil && r.Schedule != nil && len(r.Conflicts) == 0
}

// ScheduleSuggestion is a scored candidate slot that has not been booked.
type ScheduleSuggestion struct {
	TeacherID string   `json:"teacherId"`
	RoomID    string   `json:"roomId"`
	TimeSlot  TimeSlot `json:"timeSlot"`
	Score     int      `json:"score"`
}

// ConflictQuery selects committed schedules that would collide with Slot. Only rows sharing the
// teacher, room or class are considered; ExcludeScheduleID skips the row being updated.
type ConflictQuery struct {
	Slot              TimeSlot
	ClassID           string
	TeacherID         string
	RoomID            string
	ExcludeScheduleID string
}

// Classify tags a colliding row by the first shared resource, teacher before room before class.
func (q ConflictQuery) Classify(existing ClassSchedule) (ConflictType, string) {
	switch {
	case q.TeacherID != "" && existing.TeacherID == q.TeacherID:
		return ConflictTeacher, existing.TeacherID
	case q.RoomID != "" && existing.RoomID == q.RoomID:
		return ConflictRoom, existing.RoomID
	default:
		return ConflictClass, existing.ClassID
	}
}
