package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-scheduling-api/internal/dto"
	"github.com/noah-isme/class-scheduling-api/internal/models"
)

type roomStoreStub struct {
	available []string
	conflicts []models.RoomConflict
	booked    []models.RoomSlot
	cancelled bool
	status    models.RoomStatus
	rows      []models.RoomSchedule
}

func (s *roomStoreStub) FindAvailableRooms(ctx context.Context, slot models.RoomSlot) ([]string, error) {
	return s.available, nil
}

func (s *roomStoreStub) CheckConflicts(ctx context.Context, roomID string, slot models.RoomSlot) ([]models.RoomConflict, error) {
	return s.conflicts, nil
}

func (s *roomStoreStub) BookRoom(ctx context.Context, roomID string, slot models.RoomSlot) (*models.RoomSchedule, error) {
	s.booked = append(s.booked, slot)
	return &models.RoomSchedule{ID: "rb-1", RoomID: roomID, Date: slot.Date, StartTime: slot.StartTime, EndTime: slot.EndTime, Status: models.RoomBooked}, nil
}

func (s *roomStoreStub) CancelBooking(ctx context.Context, roomID string, slot models.RoomSlot) (bool, error) {
	return s.cancelled, nil
}

func (s *roomStoreStub) UpdateRoomStatus(ctx context.Context, roomID string, slot models.RoomSlot, status models.RoomStatus) (*models.RoomSchedule, error) {
	s.status = status
	return &models.RoomSchedule{RoomID: roomID, Date: slot.Date, StartTime: slot.StartTime, EndTime: slot.EndTime, Status: status}, nil
}

func (s *roomStoreStub) GetRoomSchedules(ctx context.Context, roomID string, start, end models.Date) ([]models.RoomSchedule, error) {
	return s.rows, nil
}

var roomSlot = dto.RoomSlotRequest{Date: "2025-02-03", StartTime: "09:00", EndTime: "10:00"}

func TestBookRoom(t *testing.T) {
	repo := &roomStoreStub{}
	svc := NewRoomBookingService(repo, nil, nil, nil)

	row, err := svc.BookRoom(context.Background(), "R1", roomSlot)
	require.NoError(t, err)
	assert.Equal(t, models.RoomBooked, row.Status)
	require.Len(t, repo.booked, 1)
	assert.Equal(t, "2025-02-03", repo.booked[0].Date.String())
}

func TestBookRoomRejectsDoubleBooking(t *testing.T) {
	repo := &roomStoreStub{conflicts: []models.RoomConflict{{RoomID: "R1"}}}
	svc := NewRoomBookingService(repo, nil, nil, nil)

	_, err := svc.BookRoom(context.Background(), "R1", roomSlot)
	requireAppError(t, err, http.StatusConflict)
	assert.Empty(t, repo.booked)
}

func TestBookRoomValidation(t *testing.T) {
	svc := NewRoomBookingService(&roomStoreStub{}, nil, nil, nil)

	_, err := svc.BookRoom(context.Background(), "R1", dto.RoomSlotRequest{Date: "2025-02-03", StartTime: "10:00", EndTime: "10:00"})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.BookRoom(context.Background(), "R1", dto.RoomSlotRequest{Date: "03/02/2025", StartTime: "09:00", EndTime: "10:00"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestBookRoomLockBusy(t *testing.T) {
	svc := NewRoomBookingService(&roomStoreStub{}, busyLocker{}, nil, nil)

	_, err := svc.BookRoom(context.Background(), "R1", roomSlot)
	requireAppError(t, err, http.StatusServiceUnavailable)
}

func TestCancelBooking(t *testing.T) {
	repo := &roomStoreStub{}
	svc := NewRoomBookingService(repo, nil, nil, nil)

	err := svc.CancelBooking(context.Background(), "R1", roomSlot)
	requireAppError(t, err, http.StatusNotFound)

	repo.cancelled = true
	require.NoError(t, svc.CancelBooking(context.Background(), "R1", roomSlot))
}

func TestUpdateRoomStatus(t *testing.T) {
	repo := &roomStoreStub{}
	svc := NewRoomBookingService(repo, nil, nil, nil)

	row, err := svc.UpdateRoomStatus(context.Background(), "R1", dto.RoomStatusRequest{RoomSlotRequest: roomSlot, Status: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, models.RoomMaintenance, row.Status)
	assert.Equal(t, models.RoomMaintenance, repo.status)

	_, err = svc.UpdateRoomStatus(context.Background(), "R1", dto.RoomStatusRequest{RoomSlotRequest: roomSlot, Status: "closed"})
	requireAppError(t, err, http.StatusBadRequest)
}

func TestGetBookingsRequiresBothBounds(t *testing.T) {
	repo := &roomStoreStub{rows: []models.RoomSchedule{{ID: "rb-1"}}}
	svc := NewRoomBookingService(repo, nil, nil, nil)

	_, err := svc.GetBookings(context.Background(), "R1", dto.DateRangeQuery{StartDate: "2025-02-01"})
	requireAppError(t, err, http.StatusBadRequest)

	_, err = svc.GetBookings(context.Background(), "R1", dto.DateRangeQuery{StartDate: "2025-02-10", EndDate: "2025-02-01"})
	requireAppError(t, err, http.StatusBadRequest)

	rows, err := svc.GetBookings(context.Background(), "R1", dto.DateRangeQuery{StartDate: "2025-02-01", EndDate: "2025-02-10"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFindAvailableRooms(t *testing.T) {
	svc := NewRoomBookingService(&roomStoreStub{available: []string{"R2"}}, nil, nil, nil)

	ids, err := svc.FindAvailableRooms(context.Background(), roomSlot)
	require.NoError(t, err)
	assert.Equal(t, []string{"R2"}, ids)
}
