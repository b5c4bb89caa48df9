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

type availabilityService interface {
	GetAvailability(ctx context.Context, teacherID string, start, end *models.Date) ([]models.TeacherAvailability, error)
	UpdateAvailability(ctx context.Context, teacherID string, req dto.UpdateAvailabilityRequest) ([]models.TeacherAvailability, error)
	ClearAvailability(ctx context.Context, teacherID string, days []int) (int64, error)
	FindAvailableTeachers(ctx context.Context, q dto.AvailableTeachersQuery) ([]string, error)
}

// AvailabilityHandler exposes teacher availability endpoints.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Get godoc
// @Summary Get teacher availability
// @Tags Availability
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param startDate query string false "Window start (YYYY-MM-DD)"
// @Param endDate query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	start, end, ok := bindWindow(c)
	if !ok {
		return
	}
	rows, err := h.service.GetAvailability(c.Request.Context(), c.Param("teacherId"), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Update godoc
// @Summary Replace teacher availability intervals
// @Tags Availability
// @Accept json
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param payload body dto.UpdateAvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /teachers/{teacherId}/availability [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid availability payload"))
		return
	}
	rows, err := h.service.UpdateAvailability(c.Request.Context(), c.Param("teacherId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows)
}

// Clear godoc
// @Summary Clear teacher availability
// @Tags Availability
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param days query string true "Comma separated weekdays, 0=Sunday"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/availability [delete]
func (h *AvailabilityHandler) Clear(c *gin.Context) {
	days, err := dto.ParseDays(c.Query("days"))
	if err != nil {
		response.Error(c, appErrors.Validation(err, err.Error()))
		return
	}
	removed, err := h.service.ClearAvailability(c.Request.Context(), c.Param("teacherId"), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed})
}

// AvailableTeachers godoc
// @Summary Find teachers available for an interval
// @Tags Availability
// @Produce json
// @Param dayOfWeek query int true "Weekday, 0=Sunday"
// @Param startTime query string true "HH:MM"
// @Param endTime query string true "HH:MM"
// @Param date query string false "Restrict one-off rows to this date"
// @Success 200 {object} response.Envelope
// @Router /teachers/available [get]
func (h *AvailabilityHandler) AvailableTeachers(c *gin.Context) {
	var q dto.AvailableTeachersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid query parameters"))
		return
	}
	ids, err := h.service.FindAvailableTeachers(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids)
}
