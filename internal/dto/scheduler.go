package dto

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/class-scheduling-api/internal/models"
)

// CreateClassScheduleRequest books a recurring weekly slot for a class.
type CreateClassScheduleRequest struct {
	ClassID   string `json:"classId" validate:"required"`
	TeacherID string `json:"teacherId" validate:"required"`
	RoomID    string `json:"roomId" validate:"required"`
	DayOfWeek *int   `json:"dayOfWeek" validate:"required,min=0,max=6"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// Slot parses and validates the requested slot.
func (r CreateClassScheduleRequest) Slot() (models.TimeSlot, error) {
	if r.DayOfWeek == nil {
		return models.TimeSlot{}, models.ErrInvalidDayOfWeek
	}
	start, err := models.ParseClock(r.StartTime)
	if err != nil {
		return models.TimeSlot{}, err
	}
	end, err := models.ParseClock(r.EndTime)
	if err != nil {
		return models.TimeSlot{}, err
	}
	startDate, err := models.ParseDate(r.StartDate)
	if err != nil {
		return models.TimeSlot{}, err
	}
	endDate, err := models.ParseDate(r.EndDate)
	if err != nil {
		return models.TimeSlot{}, err
	}
	return models.NewTimeSlot(*r.DayOfWeek, start, end, startDate, endDate)
}

// UpdateClassScheduleRequest changes some fields of an existing schedule; omitted fields are kept.
type UpdateClassScheduleRequest struct {
	ClassID   *string `json:"classId" validate:"omitempty,min=1"`
	TeacherID *string `json:"teacherId" validate:"omitempty,min=1"`
	RoomID    *string `json:"roomId" validate:"omitempty,min=1"`
	DayOfWeek *int    `json:"dayOfWeek" validate:"omitempty,min=0,max=6"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	StartDate *string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

// ToUpdate parses the provided fields.
func (r UpdateClassScheduleRequest) ToUpdate() (models.ScheduleUpdate, error) {
	upd := models.ScheduleUpdate{
		ClassID:   r.ClassID,
		TeacherID: r.TeacherID,
		RoomID:    r.RoomID,
		DayOfWeek: r.DayOfWeek,
	}
	if r.StartTime != nil {
		c, err := models.ParseClock(*r.StartTime)
		if err != nil {
			return models.ScheduleUpdate{}, err
		}
		upd.StartTime = &c
	}
	if r.EndTime != nil {
		c, err := models.ParseClock(*r.EndTime)
		if err != nil {
			return models.ScheduleUpdate{}, err
		}
		upd.EndTime = &c
	}
	if r.StartDate != nil {
		d, err := models.ParseDate(*r.StartDate)
		if err != nil {
			return models.ScheduleUpdate{}, err
		}
		upd.StartDate = &d
	}
	if r.EndDate != nil {
		d, err := models.ParseDate(*r.EndDate)
		if err != nil {
			return models.ScheduleUpdate{}, err
		}
		upd.EndDate = &d
	}
	return upd, nil
}

// SuggestionQuery is the query string of the available-slots search.
type SuggestionQuery struct {
	TeacherID     string `form:"teacherId" validate:"required"`
	Rooms         string `form:"rooms" validate:"required"`
	StartDate     string `form:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string `form:"endDate" validate:"required,datetime=2006-01-02"`
	PreferredDays string `form:"preferredDays"`
}

// SuggestionRequest asks for the best free periods for a teacher across candidate rooms.
type SuggestionRequest struct {
	TeacherID     string
	RoomIDs       []string
	StartDate     models.Date
	EndDate       models.Date
	PreferredDays []int
}

// ToRequest parses the comma separated lists and dates.
func (q SuggestionQuery) ToRequest() (SuggestionRequest, error) {
	start, err := models.ParseDate(q.StartDate)
	if err != nil {
		return SuggestionRequest{}, err
	}
	end, err := models.ParseDate(q.EndDate)
	if err != nil {
		return SuggestionRequest{}, err
	}
	days, err := ParseDays(q.PreferredDays)
	if err != nil {
		return SuggestionRequest{}, err
	}
	return SuggestionRequest{
		TeacherID:     q.TeacherID,
		RoomIDs:       SplitList(q.Rooms),
		StartDate:     start,
		EndDate:       end,
		PreferredDays: days,
	}, nil
}

// DateRangeQuery is an optional startDate/endDate pair.
type DateRangeQuery struct {
	StartDate string `form:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

// Bounds parses the provided dates; missing values stay nil.
func (q DateRangeQuery) Bounds() (*models.Date, *models.Date, error) {
	var start, end *models.Date
	if q.StartDate != "" {
		d, err := models.ParseDate(q.StartDate)
		if err != nil {
			return nil, nil, err
		}
		start = &d
	}
	if q.EndDate != "" {
		d, err := models.ParseDate(q.EndDate)
		if err != nil {
			return nil, nil, err
		}
		end = &d
	}
	return start, end, nil
}

// OpenDaysQuery checks whole weekdays in a window for a teacher and room pair.
type OpenDaysQuery struct {
	TeacherID string `form:"teacherId" validate:"required"`
	RoomID    string `form:"roomId" validate:"required"`
	StartDate string `form:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `form:"endDate" validate:"required,datetime=2006-01-02"`
}

// AvailabilitySlotRequest is one interval of a bulk availability update. Date makes it a one-off row.
type AvailabilitySlotRequest struct {
	DayOfWeek *int   `json:"dayOfWeek" validate:"required,min=0,max=6"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateAvailabilityRequest replaces a teacher's availability for the given intervals.
type UpdateAvailabilityRequest struct {
	Status string                    `json:"status" validate:"required,oneof=available busy preferred"`
	Slots  []AvailabilitySlotRequest `json:"slots" validate:"required,min=1,dive"`
}

// ToSlots parses every interval.
func (r UpdateAvailabilityRequest) ToSlots() ([]models.AvailabilitySlot, error) {
	slots := make([]models.AvailabilitySlot, 0, len(r.Slots))
	for i, s := range r.Slots {
		if s.DayOfWeek == nil {
			return nil, fmt.Errorf("slot %d: %w", i, models.ErrInvalidDayOfWeek)
		}
		start, err := models.ParseClock(s.StartTime)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		end, err := models.ParseClock(s.EndTime)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		if start >= end {
			return nil, fmt.Errorf("slot %d: %w", i, models.ErrInvalidTimeRange)
		}
		slot := models.AvailabilitySlot{DayOfWeek: *s.DayOfWeek, StartTime: start, EndTime: end}
		if s.Date != "" {
			d, err := models.ParseDate(s.Date)
			if err != nil {
				return nil, fmt.Errorf("slot %d: %w", i, err)
			}
			slot.Date = &d
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// AvailableTeachersQuery looks up teachers free for an interval.
type AvailableTeachersQuery struct {
	DayOfWeek *int   `form:"dayOfWeek" validate:"required,min=0,max=6"`
	StartTime string `form:"startTime" validate:"required"`
	EndTime   string `form:"endTime" validate:"required"`
	Date      string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ToQuery parses the interval.
func (q AvailableTeachersQuery) ToQuery() (models.AvailabilityQuery, error) {
	if q.DayOfWeek == nil {
		return models.AvailabilityQuery{}, models.ErrInvalidDayOfWeek
	}
	start, err := models.ParseClock(q.StartTime)
	if err != nil {
		return models.AvailabilityQuery{}, err
	}
	end, err := models.ParseClock(q.EndTime)
	if err != nil {
		return models.AvailabilityQuery{}, err
	}
	if start >= end {
		return models.AvailabilityQuery{}, models.ErrInvalidTimeRange
	}
	query := models.AvailabilityQuery{DayOfWeek: *q.DayOfWeek, StartTime: start, EndTime: end}
	if q.Date != "" {
		d, err := models.ParseDate(q.Date)
		if err != nil {
			return models.AvailabilityQuery{}, err
		}
		query.StartDate, query.EndDate = &d, &d
	}
	return query, nil
}

// RoomSlotRequest is a dated interval for a room, used as JSON body and as query string.
type RoomSlotRequest struct {
	Date      string `json:"date" form:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" form:"startTime" validate:"required"`
	EndTime   string `json:"endTime" form:"endTime" validate:"required"`
}

// ToSlot parses and validates the interval.
func (r RoomSlotRequest) ToSlot() (models.RoomSlot, error) {
	date, err := models.ParseDate(r.Date)
	if err != nil {
		return models.RoomSlot{}, err
	}
	start, err := models.ParseClock(r.StartTime)
	if err != nil {
		return models.RoomSlot{}, err
	}
	end, err := models.ParseClock(r.EndTime)
	if err != nil {
		return models.RoomSlot{}, err
	}
	slot := models.RoomSlot{Date: date, StartTime: start, EndTime: end}
	if err := slot.Validate(); err != nil {
		return models.RoomSlot{}, err
	}
	return slot, nil
}

// RoomStatusRequest overrides the status of a room interval.
type RoomStatusRequest struct {
	RoomSlotRequest
	Status string `json:"status" validate:"required,oneof=booked available maintenance"`
}

// ImportRowStatus is the outcome of one spreadsheet row.
type ImportRowStatus string

const (
	ImportCreated   ImportRowStatus = "created"
	ImportConflicts ImportRowStatus = "conflicts"
	ImportInvalid   ImportRowStatus = "invalid"
)

// ImportRowResult reports what happened to one spreadsheet row.
type ImportRowResult struct {
	Row       int                       `json:"row"`
	Status    ImportRowStatus           `json:"status"`
	Schedule  *models.ClassSchedule     `json:"schedule,omitempty"`
	Conflicts []models.ScheduleConflict `json:"conflicts,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// ImportSummary aggregates a spreadsheet import.
type ImportSummary struct {
	Total      int               `json:"total"`
	Created    int               `json:"created"`
	Conflicted int               `json:"conflicted"`
	Invalid    int               `json:"invalid"`
	Rows       []ImportRowResult `json:"rows"`
}

// ExportFormat selects the timetable document type.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
)

// ExportQuery selects the format and optional window of a timetable export.
type ExportQuery struct {
	DateRangeQuery
	Format string `form:"format" validate:"omitempty,oneof=csv pdf xlsx"`
}

// SplitList splits a comma separated query value, dropping blanks.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseDays parses a comma separated list of weekday numbers.
func ParseDays(raw string) ([]int, error) {
	items := SplitList(raw)
	if len(items) == 0 {
		return nil, nil
	}
	days := make([]int, 0, len(items))
	for _, item := range items {
		d, err := strconv.Atoi(item)
		if err != nil || d < 0 || d > 6 {
			return nil, fmt.Errorf("%w: %q", models.ErrInvalidDayOfWeek, item)
		}
		days = append(days, d)
	}
	return days, nil
}
