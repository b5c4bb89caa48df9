package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduling-api/internal/models"
)

var classScheduleRowColumns = []string{"id", "class_id", "teacher_id", "room_id", "day_of_week", "start_time", "end_time", "start_date", "end_date", "created_at", "updated_at"}

func newSchedulingMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func mondaySlot(start, end string) models.TimeSlot {
	return models.TimeSlot{
		DayOfWeek: 1,
		StartTime: models.MustClock(start),
		EndTime:   models.MustClock(end),
		StartDate: models.MustDate("2025-01-24"),
		EndDate:   models.MustDate("2025-02-24"),
	}
}

func TestClassScheduleRepositoryCreateSchedule(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	slot := mondaySlot("08:00", "10:00")
	mock.ExpectExec("INSERT INTO class_schedules").
		WithArgs(sqlmock.AnyArg(), "C1", "T1", "R1", 1, slot.StartTime, slot.EndTime, slot.StartDate, slot.EndDate, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := repo.CreateSchedule(context.Background(), "C1", "T1", "R1", slot)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "C1", created.ClassID)
	assert.Equal(t, slot, created.Slot())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleRepositoryFindConflictsClassifiesAndExcludes(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	now := time.Now()
	start, end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(classScheduleRowColumns).
		AddRow("s1", "C9", "T1", "R9", 1, "09:00:00", "10:00:00", start, end, now, now).
		AddRow("s2", "C9", "T9", "R1", 1, "09:00:00", "10:00:00", start, end, now, now).
		AddRow("s3", "C1", "T9", "R9", 1, "09:00:00", "10:00:00", start, end, now, now).
		AddRow("skip", "C1", "T1", "R1", 1, "09:00:00", "10:00:00", start, end, now, now)

	slot := mondaySlot("09:30", "11:00")
	mock.ExpectQuery(`FROM class_schedules WHERE day_of_week = \$1 AND start_time < \$2 AND end_time > \$3 AND start_date <= \$4 AND end_date >= \$5 AND \(teacher_id = \$6 OR room_id = \$7 OR class_id = \$8\) AND id <> \$9`).
		WithArgs(1, slot.EndTime, slot.StartTime, slot.EndDate, slot.StartDate, "T1", "R1", "C1", "skip").
		WillReturnRows(rows)

	conflicts, err := repo.FindConflicts(context.Background(), models.ConflictQuery{
		Slot: slot, ClassID: "C1", TeacherID: "T1", RoomID: "R1", ExcludeScheduleID: "skip",
	})
	require.NoError(t, err)
	require.Len(t, conflicts, 3)
	assert.Equal(t, models.ConflictTeacher, conflicts[0].Type)
	assert.Equal(t, "T1", conflicts[0].EntityID)
	assert.Equal(t, models.ConflictRoom, conflicts[1].Type)
	assert.Equal(t, "R1", conflicts[1].EntityID)
	assert.Equal(t, models.ConflictClass, conflicts[2].Type)
	assert.Equal(t, "C1", conflicts[2].EntityID)
	for _, c := range conflicts {
		assert.NotEqual(t, "skip", c.ExistingSchedule.ID)
		assert.Equal(t, slot, c.RequestedSlot)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleRepositoryTeacherScheduleRejectsInvertedRange(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	start, end := models.MustDate("2025-02-01"), models.MustDate("2025-01-01")
	_, err := repo.GetTeacherSchedule(context.Background(), "T1", start, end)
	assert.ErrorIs(t, err, models.ErrInvalidDateRange)

	_, err = repo.GetRoomSchedule(context.Background(), "R1", start, end)
	assert.ErrorIs(t, err, models.ErrInvalidDateRange)

	_, err = repo.FindAvailableSlots(context.Background(), "T1", "R1", start, end)
	assert.ErrorIs(t, err, models.ErrInvalidDateRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleRepositoryGetTeacherScheduleWindow(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	now := time.Now()
	start, end := models.MustDate("2025-01-01"), models.MustDate("2025-01-31")
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules WHERE teacher_id = $1 AND start_date <= $3 AND end_date >= $2 ORDER BY day_of_week ASC, start_time ASC")).
		WithArgs("T1", start, end).
		WillReturnRows(sqlmock.NewRows(classScheduleRowColumns).
			AddRow("s1", "C1", "T1", "R1", 1, "08:00:00", "09:30:00", now, now, now, now).
			AddRow("s2", "C2", "T1", "R2", 3, "13:30:00", "15:00:00", now, now, now, now))

	rows, err := repo.GetTeacherSchedule(context.Background(), "T1", start, end)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.MustClock("13:30"), rows[1].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const scheduleID = "8a6e0804-2bd0-4672-b79d-d97027f9071a"

func TestClassScheduleRepositoryUpdateScheduleMergesFields(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	room := "R2"
	endTime := models.MustClock("11:00")
	mock.ExpectExec("UPDATE class_schedules SET").
		WithArgs(scheduleID, nil, nil, room, nil, nil, endTime, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules WHERE id = $1")).
		WithArgs(scheduleID).
		WillReturnRows(sqlmock.NewRows(classScheduleRowColumns).
			AddRow(scheduleID, "C1", "T1", "R2", 1, "08:00:00", "11:00:00", now, now, now, now))

	updated, err := repo.UpdateSchedule(context.Background(), scheduleID, models.ScheduleUpdate{RoomID: &room, EndTime: &endTime})
	require.NoError(t, err)
	assert.Equal(t, "R2", updated.RoomID)
	assert.Equal(t, "T1", updated.TeacherID)
	assert.Equal(t, endTime, updated.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	mock.ExpectQuery("FROM class_schedules WHERE id = ").WithArgs(scheduleID).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), scheduleID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleRepositoryMalformedIDNeverQueries(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	room := "R2"
	_, err = repo.UpdateSchedule(context.Background(), "not-a-uuid", models.ScheduleUpdate{RoomID: &room})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	existed, err := repo.DeleteSchedule(context.Background(), "42")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleRepositoryDeleteSchedule(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	mock.ExpectExec("DELETE FROM class_schedules").WithArgs(scheduleID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM class_schedules").WithArgs(scheduleID).WillReturnResult(sqlmock.NewResult(0, 0))

	existed, err := repo.DeleteSchedule(context.Background(), scheduleID)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.DeleteSchedule(context.Background(), scheduleID)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassScheduleRepositoryFindAvailableSlotsKeepsFreeWeekdays(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	now := time.Now()
	start, end := models.MustDate("2025-01-24"), models.MustDate("2025-02-24")
	for day := 1; day <= 5; day++ {
		rows := sqlmock.NewRows(classScheduleRowColumns)
		if day == 3 {
			rows.AddRow("busy", "C1", "T1", "R9", 3, "10:00:00", "11:00:00", now, now, now, now)
		}
		mock.ExpectQuery("FROM class_schedules WHERE day_of_week").
			WithArgs(day, models.MustClock("17:00"), models.MustClock("08:00"), end, start, "T1", "R1", "").
			WillReturnRows(rows)
	}

	slots, err := repo.FindAvailableSlots(context.Background(), "T1", "R1", start, end)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	for _, s := range slots {
		assert.NotEqual(t, 3, s.DayOfWeek)
		assert.Equal(t, "08:00:00", s.StartTime.String())
		assert.Equal(t, "17:00:00", s.EndTime.String())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
