package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduling-api/internal/models"
)

var availabilityRowColumns = []string{"id", "teacher_id", "day_of_week", "start_time", "end_time", "status", "repeat_pattern", "date", "created_at", "updated_at"}

func TestTeacherAvailabilityRepositoryCheckConflicts(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewTeacherAvailabilityRepository(db)

	now := time.Now()
	start, end := models.MustDate("2025-01-24"), models.MustDate("2025-02-24")
	q := models.AvailabilityQuery{
		DayOfWeek: 1,
		StartTime: models.MustClock("09:30"),
		EndTime:   models.MustClock("10:00"),
		StartDate: &start,
		EndDate:   &end,
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_availability WHERE teacher_id = $1 AND day_of_week = $2 AND status = $3 AND start_time <= $4 AND end_time >= $5 AND (repeat_pattern = 'weekly' OR COALESCE(date, created_at::date) BETWEEN $6 AND $7)")).
		WithArgs("T", 1, "busy", q.EndTime, q.StartTime, start, end).
		WillReturnRows(sqlmock.NewRows(availabilityRowColumns).
			AddRow("a1", "T", 1, "09:00:00", "10:30:00", "busy", "weekly", nil, now, now))

	conflicts, err := repo.CheckConflicts(context.Background(), "T", q)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "T", conflicts[0].TeacherID)
	assert.Equal(t, models.MustClock("09:00"), conflicts[0].Existing.StartTime)
	assert.Nil(t, conflicts[0].Existing.Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAvailabilityRepositoryCheckConflictsWithoutWindow(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewTeacherAvailabilityRepository(db)

	q := models.AvailabilityQuery{DayOfWeek: 2, StartTime: models.MustClock("08:00"), EndTime: models.MustClock("09:00")}
	mock.ExpectQuery(regexp.QuoteMeta("end_time >= $5 ORDER BY start_time ASC")).
		WithArgs("T", 2, "busy", q.EndTime, q.StartTime).
		WillReturnRows(sqlmock.NewRows(availabilityRowColumns))

	conflicts, err := repo.CheckConflicts(context.Background(), "T", q)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAvailabilityRepositoryUpdateAvailabilityReplacesInTx(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewTeacherAvailabilityRepository(db)

	once := models.MustDate("2025-02-03")
	slots := []models.AvailabilitySlot{
		{DayOfWeek: 1, StartTime: models.MustClock("08:00"), EndTime: models.MustClock("12:00")},
		{DayOfWeek: 1, StartTime: models.MustClock("13:00"), EndTime: models.MustClock("14:00"), Date: &once},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM teacher_availability").
		WithArgs("T", 1, slots[0].StartTime, slots[0].EndTime, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO teacher_availability").
		WithArgs(sqlmock.AnyArg(), "T", 1, slots[0].StartTime, slots[0].EndTime, "preferred", "weekly", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM teacher_availability").
		WithArgs("T", 1, slots[1].StartTime, slots[1].EndTime, once).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO teacher_availability").
		WithArgs(sqlmock.AnyArg(), "T", 1, slots[1].StartTime, slots[1].EndTime, "preferred", "once", once, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	stored, err := repo.UpdateAvailability(context.Background(), "T", slots, models.AvailabilityPreferred)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, models.RepeatWeekly, stored[0].RepeatPattern)
	assert.Equal(t, models.RepeatOnce, stored[1].RepeatPattern)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAvailabilityRepositoryUpdateAvailabilityRollsBack(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewTeacherAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM teacher_availability").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := repo.UpdateAvailability(context.Background(), "T", []models.AvailabilitySlot{
		{DayOfWeek: 1, StartTime: models.MustClock("08:00"), EndTime: models.MustClock("09:00")},
	}, models.AvailabilityBusy)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAvailabilityRepositoryClearAvailability(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewTeacherAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_availability WHERE teacher_id = $1 AND day_of_week = ANY($2)")).
		WithArgs("T", pq.Array([]int{1, 2})).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ClearAvailability(context.Background(), "T", []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.ClearAvailability(context.Background(), "T", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAvailabilityRepositoryFindAvailableTeachers(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewTeacherAvailabilityRepository(db)

	date := models.MustDate("2025-02-03")
	q := models.AvailabilityQuery{DayOfWeek: 1, StartTime: models.MustClock("09:00"), EndTime: models.MustClock("10:00"), StartDate: &date, EndDate: &date}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT teacher_id FROM teacher_availability WHERE day_of_week = $1 AND status = $2 AND start_time <= $3 AND end_time >= $4 AND (repeat_pattern = 'weekly' OR (repeat_pattern = 'once' AND COALESCE(date, created_at::date) = $5))")).
		WithArgs(1, "available", q.StartTime, q.EndTime, date).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}).AddRow("T1").AddRow("T2"))

	ids, err := repo.FindAvailableTeachers(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherAvailabilityRepositoryHasPreferred(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewTeacherAvailabilityRepository(db)

	start, end := models.MustDate("2025-01-24"), models.MustDate("2025-02-24")
	mock.ExpectQuery(regexp.QuoteMeta("status = $3 AND (repeat_pattern = 'weekly' OR COALESCE(date, created_at::date) BETWEEN $4 AND $5))")).
		WithArgs("T", 2, "preferred", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasPreferred(context.Background(), "T", 2, start, end)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
