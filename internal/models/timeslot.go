package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout       = "2006-01-02"
	secondsPerDay    = 24 * 60 * 60
	secondsPerHour   = 60 * 60
	secondsPerMinute = 60
)

var (
	// ErrInvalidClock is returned when a time-of-day string cannot be parsed.
	ErrInvalidClock = errors.New("invalid time of day")
	// ErrInvalidDate is returned when a calendar date cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidTimeRange is returned when a slot does not start before it ends.
	ErrInvalidTimeRange = errors.New("start time must be before end time")
	// ErrInvalidDateRange is returned when a window ends before it starts.
	ErrInvalidDateRange = errors.New("end date must not be before start date")
	// ErrInvalidDayOfWeek is returned for day numbers outside 0-6.
	ErrInvalidDayOfWeek = errors.New("day of week must be between 0 and 6")
)

// ClockTime is a local time of day stored as seconds after midnight.
type ClockTime int

// ParseClock parses "HH:MM" or "HH:MM:SS" (fractional seconds are dropped).
func ParseClock(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		raw = raw[:idx]
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	limits := []int{23, 59, 59}
	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] || len(part) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
		}
		switch i {
		case 0:
			total += n * secondsPerHour
		case 1:
			total += n * secondsPerMinute
		default:
			total += n
		}
	}
	return ClockTime(total), nil
}

// MustClock parses a time of day and panics on malformed input.
func MustClock(raw string) ClockTime {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Hour returns the hour component.
func (c ClockTime) Hour() int {
	return int(c) / secondsPerHour
}

// String renders the canonical HH:MM:SS form.
func (c ClockTime) String() string {
	s := int(c) % secondsPerDay
	return fmt.Sprintf("%02d:%02d:%02d", s/secondsPerHour, (s%secondsPerHour)/secondsPerMinute, s%secondsPerMinute)
}

// MarshalJSON encodes the clock as "HH:MM:SS".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "HH:MM" or "HH:MM:SS".
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan implements sql.Scanner for TIME columns.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseClock(v)
		if err != nil {
			return err
		}
		*c = parsed
	case []byte:
		parsed, err := ParseClock(string(v))
		if err != nil {
			return err
		}
		*c = parsed
	case time.Time:
		*c = ClockTime(v.Hour()*secondsPerHour + v.Minute()*secondsPerMinute + v.Second())
	default:
		return fmt.Errorf("scan clock time from %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}

// Date is a calendar date without time-of-day or zone.
type Date struct {
	time.Time
}

// NewDate builds a UTC calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD. A full RFC3339 timestamp is accepted and truncated.
func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// MustDate parses a date and panics on malformed input.
func MustDate(raw string) Date {
	d, err := ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// String renders YYYY-MM-DD.
func (d Date) String() string {
	return d.Time.Format(dateLayout)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Weekday returns the day number, Sunday=0.
func (d Date) Weekday() int {
	return int(d.Time.Weekday())
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD" or an RFC3339 timestamp.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
	default:
		return fmt.Errorf("scan date from %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// TimeRange is a half-open time-of-day interval.
type TimeRange struct {
	Start ClockTime `json:"startTime"`
	End   ClockTime `json:"endTime"`
}

// TimesOverlap reports a strict overlap: ranges that merely touch do not overlap.
func TimesOverlap(a, b TimeRange) bool {
	return a.Start < b.End && b.Start < a.End
}

// TimesTouch is the inclusive comparison used against availability and room booking rows:
// ranges sharing a boundary instant count as colliding.
func TimesTouch(a, b TimeRange) bool {
	return a.Start <= b.End && b.Start <= a.End
}

// DateRange is an inclusive calendar window.
type DateRange struct {
	Start Date `json:"startDate"`
	End   Date `json:"endDate"`
}

// DatesOverlap reports overlap with inclusive boundaries.
func DatesOverlap(a, b DateRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// Contains reports whether d falls inside the window.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// ValidateDateRange rejects inverted windows.
func ValidateDateRange(start, end Date) error {
	if end.Before(start) {
		return ErrInvalidDateRange
	}
	return nil
}

// TimeSlot is a recurring weekly interval bounded by a validity window:
// every DayOfWeek between StartDate and EndDate, from StartTime to EndTime.
type TimeSlot struct {
	DayOfWeek int       `json:"dayOfWeek"`
	StartTime ClockTime `json:"startTime"`
	EndTime   ClockTime `json:"endTime"`
	StartDate Date      `json:"startDate"`
	EndDate   Date      `json:"endDate"`
}

// NewTimeSlot builds a validated slot.
func NewTimeSlot(dayOfWeek int, start, end ClockTime, startDate, endDate Date) (TimeSlot, error) {
	slot := TimeSlot{DayOfWeek: dayOfWeek, StartTime: start, EndTime: end, StartDate: startDate, EndDate: endDate}
	if err := slot.Validate(); err != nil {
		return TimeSlot{}, err
	}
	return slot, nil
}

// Validate checks the slot invariants.
func (s TimeSlot) Validate() error {
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return ErrInvalidDayOfWeek
	}
	if s.StartTime >= s.EndTime {
		return ErrInvalidTimeRange
	}
	return ValidateDateRange(s.StartDate, s.EndDate)
}

// Times returns the time-of-day range.
func (s TimeSlot) Times() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

// Dates returns the validity window.
func (s TimeSlot) Dates() DateRange {
	return DateRange{Start: s.StartDate, End: s.EndDate}
}

// ConflictsWith requires the same weekday, overlapping windows and overlapping times.
func (s TimeSlot) ConflictsWith(other TimeSlot) bool {
	return s.DayOfWeek == other.DayOfWeek &&
		DatesOverlap(s.Dates(), other.Dates()) &&
		TimesOverlap(s.Times(), other.Times())
}

// StandardPeriods is the fixed catalog of class periods used by the slot search.
func StandardPeriods() []TimeRange {
	return []TimeRange{
		{Start: MustClock("08:00"), End: MustClock("09:30")},
		{Start: MustClock("09:45"), End: MustClock("11:15")},
		{Start: MustClock("13:30"), End: MustClock("15:00")},
		{Start: MustClock("15:15"), End: MustClock("16:45")},
	}
}

// DefaultWeekdays is Monday through Friday.
func DefaultWeekdays() []int {
	return []int{1, 2, 3, 4, 5}
}
