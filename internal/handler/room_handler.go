package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-scheduling-api/internal/dto"
	"github.com/noah-isme/class-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/class-scheduling-api/pkg/errors"
	"github.com/noah-isme/class-scheduling-api/pkg/response"
)

type roomService interface {
	FindAvailableRooms(ctx context.Context, req dto.RoomSlotRequest) ([]string, error)
	GetBookings(ctx context.Context, roomID string, q dto.DateRangeQuery) ([]models.RoomSchedule, error)
	BookRoom(ctx context.Context, roomID string, req dto.RoomSlotRequest) (*models.RoomSchedule, error)
	CancelBooking(ctx context.Context, roomID string, req dto.RoomSlotRequest) error
	UpdateRoomStatus(ctx context.Context, roomID string, req dto.RoomStatusRequest) (*models.RoomSchedule, error)
}

// RoomHandler exposes room booking endpoints.
type RoomHandler struct {
	service roomService
}

// NewRoomHandler constructs a RoomHandler.
func NewRoomHandler(service roomService) *RoomHandler {
	return &RoomHandler{service: service}
}

// Available godoc
// @Summary Find rooms free for an interval
// @Tags Rooms
// @Produce json
// @Param date query string true "YYYY-MM-DD"
// @Param startTime query string true "HH:MM"
// @Param endTime query string true "HH:MM"
// @Success 200 {object} response.Envelope
// @Router /rooms/available [get]
func (h *RoomHandler) Available(c *gin.Context) {
	var req dto.RoomSlotRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid query parameters"))
		return
	}
	ids, err := h.service.FindAvailableRooms(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids)
}

// Bookings godoc
// @Summary List room bookings
// @Tags Rooms
// @Produce json
// @Param roomId path string true "Room ID"
// @Param startDate query string true "YYYY-MM-DD"
// @Param endDate query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /rooms/{roomId}/bookings [get]
func (h *RoomHandler) Bookings(c *gin.Context) {
	var q dto.DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid query parameters"))
		return
	}
	rows, err := h.service.GetBookings(c.Request.Context(), c.Param("roomId"), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Book godoc
// @Summary Book a room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param roomId path string true "Room ID"
// @Param payload body dto.RoomSlotRequest true "Interval"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rooms/{roomId}/bookings [post]
func (h *RoomHandler) Book(c *gin.Context) {
	var req dto.RoomSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid booking payload"))
		return
	}
	row, err := h.service.BookRoom(c.Request.Context(), c.Param("roomId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

// Cancel godoc
// @Summary Cancel a room booking
// @Tags Rooms
// @Accept json
// @Param roomId path string true "Room ID"
// @Param payload body dto.RoomSlotRequest true "Booked interval"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /rooms/{roomId}/bookings [delete]
func (h *RoomHandler) Cancel(c *gin.Context) {
	var req dto.RoomSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid booking payload"))
		return
	}
	if err := h.service.CancelBooking(c.Request.Context(), c.Param("roomId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateStatus godoc
// @Summary Override a room interval status
// @Tags Rooms
// @Accept json
// @Produce json
// @Param roomId path string true "Room ID"
// @Param payload body dto.RoomStatusRequest true "Interval and status"
// @Success 200 {object} response.Envelope
// @Router /rooms/{roomId}/status [put]
func (h *RoomHandler) UpdateStatus(c *gin.Context) {
	var req dto.RoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid status payload"))
		return
	}
	row, err := h.service.UpdateRoomStatus(c.Request.Context(), c.Param("roomId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row)
}
