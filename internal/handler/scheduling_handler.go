package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-scheduling-api/internal/dto"
	"github.com/noah-isme/class-scheduling-api/internal/models"
	"github.com/noah-isme/class-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/class-scheduling-api/pkg/errors"
	"github.com/noah-isme/class-scheduling-api/pkg/response"
)

type schedulingService interface {
	CreateClassSchedule(ctx context.Context, req dto.CreateClassScheduleRequest) (*models.ScheduleResult, error)
	UpdateClassSchedule(ctx context.Context, id string, req dto.UpdateClassScheduleRequest) (*models.ScheduleResult, error)
	DeleteClassSchedule(ctx context.Context, id string) error
	GetClassSchedule(ctx context.Context, classID string) ([]models.ClassSchedule, error)
	GetTeacherSchedule(ctx context.Context, teacherID string, start, end *models.Date) ([]models.ClassSchedule, error)
	GetRoomSchedule(ctx context.Context, roomID string, start, end *models.Date) ([]models.ClassSchedule, error)
	FindAvailableSlots(ctx context.Context, req dto.SuggestionRequest) ([]models.ScheduleSuggestion, error)
	FindOpenDays(ctx context.Context, q dto.OpenDaysQuery) ([]models.TimeSlot, error)
}

type timetableExporter interface {
	Export(ctx context.Context, owner, id string, q dto.ExportQuery) (*service.ExportedFile, error)
}

type scheduleImporter interface {
	Import(ctx context.Context, file io.Reader, size int64) (*dto.ImportSummary, error)
}

const conflictMessage = "scheduling conflicts detected"

// SchedulingHandler exposes class schedule booking, lookup, suggestion, export and import endpoints.
type SchedulingHandler struct {
	scheduling schedulingService
	exporter   timetableExporter
	importer   scheduleImporter
}

// NewSchedulingHandler constructs a SchedulingHandler.
func NewSchedulingHandler(scheduling schedulingService, exporter timetableExporter, importer scheduleImporter) *SchedulingHandler {
	return &SchedulingHandler{scheduling: scheduling, exporter: exporter, importer: importer}
}

// Create godoc
// @Summary Book a class schedule
// @Description Commits the slot when no teacher, room or class conflict exists. Conflicts are reported with success=false.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateClassScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "conflicts"
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /schedules/class [post]
func (h *SchedulingHandler) Create(c *gin.Context) {
	var req dto.CreateClassScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid schedule payload"))
		return
	}
	result, err := h.scheduling.CreateClassSchedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Succeeded() {
		response.Conflicts(c, result.Conflicts, conflictMessage)
		return
	}
	response.Created(c, result.Schedule)
}

// Update godoc
// @Summary Update a class schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.UpdateClassScheduleRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *SchedulingHandler) Update(c *gin.Context) {
	var req dto.UpdateClassScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid schedule payload"))
		return
	}
	result, err := h.scheduling.UpdateClassSchedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Succeeded() {
		response.Conflicts(c, result.Conflicts, conflictMessage)
		return
	}
	response.JSON(c, http.StatusOK, result.Schedule)
}

// Delete godoc
// @Summary Delete a class schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *SchedulingHandler) Delete(c *gin.Context) {
	if err := h.scheduling.DeleteClassSchedule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClassSchedule godoc
// @Summary List a class's schedule
// @Tags Schedules
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/class/{classId} [get]
func (h *SchedulingHandler) ClassSchedule(c *gin.Context) {
	rows, err := h.scheduling.GetClassSchedule(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"total": len(rows)})
}

// TeacherSchedule godoc
// @Summary List a teacher's schedule
// @Tags Schedules
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param startDate query string true "Window start (YYYY-MM-DD)"
// @Param endDate query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/teacher/{teacherId} [get]
func (h *SchedulingHandler) TeacherSchedule(c *gin.Context) {
	start, end, ok := bindWindow(c)
	if !ok {
		return
	}
	rows, err := h.scheduling.GetTeacherSchedule(c.Request.Context(), c.Param("teacherId"), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"total": len(rows)})
}

// RoomSchedule godoc
// @Summary List a room's schedule
// @Tags Schedules
// @Produce json
// @Param roomId path string true "Room ID"
// @Param startDate query string true "Window start (YYYY-MM-DD)"
// @Param endDate query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/room/{roomId} [get]
func (h *SchedulingHandler) RoomSchedule(c *gin.Context) {
	start, end, ok := bindWindow(c)
	if !ok {
		return
	}
	rows, err := h.scheduling.GetRoomSchedule(c.Request.Context(), c.Param("roomId"), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"total": len(rows)})
}

// AvailableSlots godoc
// @Summary Suggest free periods for a teacher
// @Description Returns at most five conflict-free standard periods, best score first.
// @Tags Schedules
// @Produce json
// @Param teacherId query string true "Teacher ID"
// @Param rooms query string true "Comma separated room IDs"
// @Param startDate query string true "Window start (YYYY-MM-DD)"
// @Param endDate query string true "Window end (YYYY-MM-DD)"
// @Param preferredDays query string false "Comma separated weekdays, 0=Sunday"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/available-slots [get]
func (h *SchedulingHandler) AvailableSlots(c *gin.Context) {
	var q dto.SuggestionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid query parameters"))
		return
	}
	req, err := q.ToRequest()
	if err != nil {
		response.Error(c, appErrors.Validation(err, err.Error()))
		return
	}
	suggestions, err := h.scheduling.FindAvailableSlots(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(suggestions) == 0 {
		response.Empty(c, "no available slots in the requested window")
		return
	}
	response.JSON(c, http.StatusOK, suggestions)
}

// OpenDays godoc
// @Summary List weekdays free for a whole teaching day
// @Tags Schedules
// @Produce json
// @Param teacherId query string true "Teacher ID"
// @Param roomId query string true "Room ID"
// @Param startDate query string true "Window start (YYYY-MM-DD)"
// @Param endDate query string true "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedules/open-days [get]
func (h *SchedulingHandler) OpenDays(c *gin.Context) {
	var q dto.OpenDaysQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid query parameters"))
		return
	}
	slots, err := h.scheduling.FindOpenDays(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots)
}

// ExportTeacher godoc
// @Summary Export a teacher timetable
// @Tags Exports
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param teacherId path string true "Teacher ID"
// @Param format query string false "csv (default), pdf or xlsx"
// @Param startDate query string true "Window start (YYYY-MM-DD)"
// @Param endDate query string true "Window end (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /schedules/teacher/{teacherId}/export [get]
func (h *SchedulingHandler) ExportTeacher(c *gin.Context) {
	h.export(c, service.TimetableTeacher, c.Param("teacherId"))
}

// ExportRoom godoc
// @Summary Export a room timetable
// @Tags Exports
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param roomId path string true "Room ID"
// @Param format query string false "csv (default), pdf or xlsx"
// @Param startDate query string true "Window start (YYYY-MM-DD)"
// @Param endDate query string true "Window end (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /schedules/room/{roomId}/export [get]
func (h *SchedulingHandler) ExportRoom(c *gin.Context) {
	h.export(c, service.TimetableRoom, c.Param("roomId"))
}

// ExportClass godoc
// @Summary Export a class timetable
// @Tags Exports
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param classId path string true "Class ID"
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} file
// @Router /schedules/class/{classId}/export [get]
func (h *SchedulingHandler) ExportClass(c *gin.Context) {
	h.export(c, service.TimetableClass, c.Param("classId"))
}

func (h *SchedulingHandler) export(c *gin.Context, owner, id string) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid query parameters"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), owner, id, q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// Import godoc
// @Summary Import class schedules from a spreadsheet
// @Description Books every row of the first sheet independently and reports the outcome per row.
// @Tags Schedules
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "XLSX workbook"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /schedules/import [post]
func (h *SchedulingHandler) Import(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Validation(err, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to open upload"))
		return
	}
	defer file.Close()

	summary, err := h.importer.Import(c.Request.Context(), file, header.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// bindWindow parses the optional startDate/endDate query pair, writing the error response itself.
func bindWindow(c *gin.Context) (*models.Date, *models.Date, bool) {
	q := dto.DateRangeQuery{
		StartDate: strings.TrimSpace(c.Query("startDate")),
		EndDate:   strings.TrimSpace(c.Query("endDate")),
	}
	start, end, err := q.Bounds()
	if err != nil {
		response.Error(c, appErrors.Validation(err, err.Error()))
		return nil, nil, false
	}
	return start, end, true
}
