package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduling-api/internal/dto"
	"github.com/noah-isme/class-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/class-scheduling-api/pkg/errors"
)

type scheduleBooker interface {
	CreateClassSchedule(ctx context.Context, req dto.CreateClassScheduleRequest) (*models.ScheduleResult, error)
}

// importColumns maps normalised header text to request fields.
var importColumns = map[string]string{
	"classid":   "classId",
	"class":     "classId",
	"teacherid": "teacherId",
	"teacher":   "teacherId",
	"roomid":    "roomId",
	"room":      "roomId",
	"dayofweek": "dayOfWeek",
	"day":       "dayOfWeek",
	"starttime": "startTime",
	"start":     "startTime",
	"endtime":   "endTime",
	"end":       "endTime",
	"startdate": "startDate",
	"validfrom": "startDate",
	"enddate":   "endDate",
	"validto":   "endDate",
}

var requiredImportColumns = []string{"classId", "teacherId", "roomId", "dayOfWeek", "startTime", "endTime", "startDate", "endDate"}

// ScheduleImportService books class schedules listed in a spreadsheet. Each row goes through the
// regular booking path on its own, so one bad row never blocks the rest.
type ScheduleImportService struct {
	booker  scheduleBooker
	maxSize int64
	logger  *zap.Logger
}

// NewScheduleImportService instantiates ScheduleImportService. maxSize <= 0 disables the size check.
func NewScheduleImportService(booker scheduleBooker, maxSize int64, logger *zap.Logger) *ScheduleImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleImportService{booker: booker, maxSize: maxSize, logger: logger}
}

// Import reads the first sheet of an XLSX workbook: a header row followed by one schedule per row.
func (s *ScheduleImportService) Import(ctx context.Context, file io.Reader, size int64) (*dto.ImportSummary, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}
	if s.maxSize > 0 {
		// size may be unknown or understated by the client
		file = io.LimitReader(file, s.maxSize+1)
	}
	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.Validation(err, "failed to read upload")
	}
	if s.maxSize > 0 && int64(len(raw)) > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, appErrors.Validation(err, "invalid xlsx file")
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, appErrors.Validation(err, "failed to read sheet")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sheet is empty")
	}

	columns, err := mapImportHeader(rows[0])
	if err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}

	summary := &dto.ImportSummary{Rows: make([]dto.ImportRowResult, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		line := i + 2
		result, err := s.importRow(ctx, line, columns, row)
		if err != nil {
			s.logger.Error("schedule import aborted", zap.Int("row", line), zap.Error(err))
			return nil, err
		}
		summary.Total++
		switch result.Status {
		case dto.ImportCreated:
			summary.Created++
		case dto.ImportConflicts:
			summary.Conflicted++
		default:
			summary.Invalid++
		}
		summary.Rows = append(summary.Rows, result)
	}

	s.logger.Info("schedule import finished",
		zap.Int("total", summary.Total),
		zap.Int("created", summary.Created),
		zap.Int("conflicted", summary.Conflicted),
		zap.Int("invalid", summary.Invalid),
	)
	return summary, nil
}

// importRow books one row. Only store or lock failures are returned as errors.
func (s *ScheduleImportService) importRow(ctx context.Context, line int, columns map[string]int, row []string) (dto.ImportRowResult, error) {
	result := dto.ImportRowResult{Row: line}

	req, err := buildImportRequest(columns, row)
	if err != nil {
		result.Status = dto.ImportInvalid
		result.Error = err.Error()
		return result, nil
	}

	outcome, err := s.booker.CreateClassSchedule(ctx, req)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrValidation.Code {
			result.Status = dto.ImportInvalid
			result.Error = appErr.Message
			return result, nil
		}
		return result, err
	}
	if outcome.Succeeded() {
		result.Status = dto.ImportCreated
		result.Schedule = outcome.Schedule
		return result, nil
	}
	result.Status = dto.ImportConflicts
	result.Conflicts = outcome.Conflicts
	return result, nil
}

func mapImportHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(requiredImportColumns))
	for i, cell := range header {
		key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(cell)))
		if field, ok := importColumns[key]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
		}
	}
	var missing []string
	for _, field := range requiredImportColumns {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func buildImportRequest(columns map[string]int, row []string) (dto.CreateClassScheduleRequest, error) {
	cell := func(field string) string {
		idx := columns[field]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	day, err := parseWeekday(cell("dayOfWeek"))
	if err != nil {
		return dto.CreateClassScheduleRequest{}, err
	}
	return dto.CreateClassScheduleRequest{
		ClassID:   cell("classId"),
		TeacherID: cell("teacherId"),
		RoomID:    cell("roomId"),
		DayOfWeek: &day,
		StartTime: cell("startTime"),
		EndTime:   cell("endTime"),
		StartDate: cell("startDate"),
		EndDate:   cell("endDate"),
	}, nil
}

// parseWeekday accepts 0-6 or an English day name or its three letter prefix.
func parseWeekday(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 || n > 6 {
			return 0, models.ErrInvalidDayOfWeek
		}
		return n, nil
	}
	lower := strings.ToLower(raw)
	if len(lower) >= 3 {
		for i, name := range weekdayNames {
			if strings.HasPrefix(strings.ToLower(name), lower) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", models.ErrInvalidDayOfWeek, raw)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
