package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduling-api/internal/models"
)

var roomRowColumns = []string{"id", "room_id", "date", "start_time", "end_time", "status", "created_at", "updated_at"}

func roomSlot(date, start, end string) models.RoomSlot {
	return models.RoomSlot{Date: models.MustDate(date), StartTime: models.MustClock(start), EndTime: models.MustClock(end)}
}

func TestRoomScheduleRepositoryFindAvailableRoomsIncludesUnbookedCatalogRooms(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewRoomScheduleRepository(db, NewClassroomRepository(db))

	slot := roomSlot("2025-02-03", "09:00", "10:00")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT room_id FROM room_schedules WHERE date = $1")).
		WithArgs(slot.Date, slot.EndTime, slot.StartTime).
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow("R2").AddRow("R4"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM classrooms WHERE deleted_at IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("R1").AddRow("R2").AddRow("R3").AddRow("R4"))

	free, err := repo.FindAvailableRooms(context.Background(), slot)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R3"}, free)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomScheduleRepositoryCheckConflictsInclusive(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewRoomScheduleRepository(db, nil)

	now := time.Now()
	slot := roomSlot("2025-02-03", "10:00", "11:00")
	mock.ExpectQuery(regexp.QuoteMeta("FROM room_schedules WHERE room_id = $1 AND date = $2 AND status = $3 AND start_time <= $4 AND end_time >= $5")).
		WithArgs("R1", slot.Date, "booked", slot.EndTime, slot.StartTime).
		WillReturnRows(sqlmock.NewRows(roomRowColumns).AddRow("b1", "R1", now, "09:00:00", "10:00:00", "booked", now, now))

	conflicts, err := repo.CheckConflicts(context.Background(), "R1", slot)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "R1", conflicts[0].RoomID)
	assert.Equal(t, models.MustClock("10:00"), conflicts[0].Existing.EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomScheduleRepositoryBookAndCancel(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewRoomScheduleRepository(db, nil)

	slot := roomSlot("2025-02-03", "10:00", "11:00")
	mock.ExpectExec("INSERT INTO room_schedules").
		WithArgs(sqlmock.AnyArg(), "R1", slot.Date, slot.StartTime, slot.EndTime, "booked", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM room_schedules").
		WithArgs("R1", slot.Date, slot.StartTime, slot.EndTime, "booked").
		WillReturnResult(sqlmock.NewResult(0, 1))

	booked, err := repo.BookRoom(context.Background(), "R1", slot)
	require.NoError(t, err)
	assert.Equal(t, models.RoomBooked, booked.Status)

	existed, err := repo.CancelBooking(context.Background(), "R1", slot)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomScheduleRepositoryUpdateRoomStatusInsertsWhenMissing(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewRoomScheduleRepository(db, nil)

	slot := roomSlot("2025-02-03", "08:00", "17:00")
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE room_schedules SET status").
		WithArgs("maintenance", sqlmock.AnyArg(), "R1", slot.Date, slot.StartTime, slot.EndTime).
		WillReturnRows(sqlmock.NewRows(roomRowColumns))
	mock.ExpectExec("INSERT INTO room_schedules").
		WithArgs(sqlmock.AnyArg(), "R1", slot.Date, slot.StartTime, slot.EndTime, "maintenance", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	row, err := repo.UpdateRoomStatus(context.Background(), "R1", slot, models.RoomMaintenance)
	require.NoError(t, err)
	assert.Equal(t, models.RoomMaintenance, row.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomScheduleRepositoryUpdateRoomStatusUpdatesExisting(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewRoomScheduleRepository(db, nil)

	now := time.Now()
	slot := roomSlot("2025-02-03", "08:00", "17:00")
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE room_schedules SET status").
		WillReturnRows(sqlmock.NewRows(roomRowColumns).AddRow("x1", "R1", now, "08:00:00", "17:00:00", "available", now, now))
	mock.ExpectCommit()

	row, err := repo.UpdateRoomStatus(context.Background(), "R1", slot, models.RoomAvailable)
	require.NoError(t, err)
	assert.Equal(t, "x1", row.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomScheduleRepositoryGetRoomSchedulesRejectsInvertedRange(t *testing.T) {
	db, mock, cleanup := newSchedulingMock(t)
	defer cleanup()
	repo := NewRoomScheduleRepository(db, nil)

	_, err := repo.GetRoomSchedules(context.Background(), "R1", models.MustDate("2025-03-01"), models.MustDate("2025-02-01"))
	assert.ErrorIs(t, err, models.ErrInvalidDateRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}
