package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduling-api/internal/dto"
	"github.com/noah-isme/class-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/class-scheduling-api/pkg/errors"
	"github.com/noah-isme/class-scheduling-api/pkg/lock"
)

type roomBookingStore interface {
	FindAvailableRooms(ctx context.Context, slot models.RoomSlot) ([]string, error)
	CheckConflicts(ctx context.Context, roomID string, slot models.RoomSlot) ([]models.RoomConflict, error)
	BookRoom(ctx context.Context, roomID string, slot models.RoomSlot) (*models.RoomSchedule, error)
	CancelBooking(ctx context.Context, roomID string, slot models.RoomSlot) (bool, error)
	UpdateRoomStatus(ctx context.Context, roomID string, slot models.RoomSlot, status models.RoomStatus) (*models.RoomSchedule, error)
	GetRoomSchedules(ctx context.Context, roomID string, start, end models.Date) ([]models.RoomSchedule, error)
}

// RoomBookingService manages dated room bookings and maintenance overrides.
type RoomBookingService struct {
	repo      roomBookingStore
	locker    lock.Locker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomBookingService instantiates RoomBookingService.
func NewRoomBookingService(repo roomBookingStore, locker lock.Locker, validate *validator.Validate, logger *zap.Logger) *RoomBookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewKeyedMutex(0)
	}
	return &RoomBookingService{repo: repo, locker: locker, validator: validate, logger: logger}
}

// FindAvailableRooms lists catalog rooms free for the interval.
func (s *RoomBookingService) FindAvailableRooms(ctx context.Context, req dto.RoomSlotRequest) ([]string, error) {
	slot, err := s.parseSlot(req)
	if err != nil {
		return nil, err
	}
	ids, err := s.repo.FindAvailableRooms(ctx, slot)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to find available rooms")
	}
	return ids, nil
}

// GetBookings lists a room's rows in a window; both bounds are required.
func (s *RoomBookingService) GetBookings(ctx context.Context, roomID string, q dto.DateRangeQuery) ([]models.RoomSchedule, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Validation(err, "invalid date range")
	}
	start, end, err := q.Bounds()
	if err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}
	if err := requireWindow(start, end); err != nil {
		return nil, err
	}
	rows, err := s.repo.GetRoomSchedules(ctx, roomID, *start, *end)
	if err != nil {
		return nil, storeError(err, "failed to load room bookings")
	}
	return rows, nil
}

// BookRoom reserves the interval unless a booked row already touches it.
func (s *RoomBookingService) BookRoom(ctx context.Context, roomID string, req dto.RoomSlotRequest) (*models.RoomSchedule, error) {
	slot, err := s.parseSlot(req)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, lock.RoomKey(roomID))
	if err != nil {
		return nil, lockError(err)
	}
	defer release()

	conflicts, err := s.repo.CheckConflicts(ctx, roomID, slot)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check room bookings")
	}
	if len(conflicts) > 0 {
		s.logger.Info("room booking rejected", zap.String("room_id", roomID), zap.String("date", slot.Date.String()), zap.Int("conflicts", len(conflicts)))
		return nil, appErrors.Clone(appErrors.ErrConflict, "room is already booked for the requested time")
	}

	row, err := s.repo.BookRoom(ctx, roomID, slot)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to book room")
	}
	return row, nil
}

// CancelBooking removes the exact booked interval. A missing booking is reported as not found.
func (s *RoomBookingService) CancelBooking(ctx context.Context, roomID string, req dto.RoomSlotRequest) error {
	slot, err := s.parseSlot(req)
	if err != nil {
		return err
	}

	release, err := s.locker.Acquire(ctx, lock.RoomKey(roomID))
	if err != nil {
		return lockError(err)
	}
	defer release()

	existed, err := s.repo.CancelBooking(ctx, roomID, slot)
	if err != nil {
		return appErrors.Internal(err, "failed to cancel room booking")
	}
	if !existed {
		return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	return nil
}

// UpdateRoomStatus overrides the status of an interval, e.g. to mark maintenance.
func (s *RoomBookingService) UpdateRoomStatus(ctx context.Context, roomID string, req dto.RoomStatusRequest) (*models.RoomSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid room status payload")
	}
	slot, err := req.ToSlot()
	if err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}

	release, err := s.locker.Acquire(ctx, lock.RoomKey(roomID))
	if err != nil {
		return nil, lockError(err)
	}
	defer release()

	row, err := s.repo.UpdateRoomStatus(ctx, roomID, slot, models.RoomStatus(req.Status))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update room status")
	}
	s.logger.Info("room status updated", zap.String("room_id", roomID), zap.String("date", slot.Date.String()), zap.String("status", req.Status))
	return row, nil
}

func (s *RoomBookingService) parseSlot(req dto.RoomSlotRequest) (models.RoomSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.RoomSlot{}, appErrors.Validation(err, "invalid room slot")
	}
	slot, err := req.ToSlot()
	if err != nil {
		return models.RoomSlot{}, appErrors.Validation(err, err.Error())
	}
	return slot, nil
}
