package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduling-api/internal/dto"
	"github.com/noah-isme/class-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/class-scheduling-api/pkg/errors"
	"github.com/noah-isme/class-scheduling-api/pkg/export"
)

// Timetable owners that can be exported.
const (
	TimetableTeacher = "teacher"
	TimetableRoom    = "room"
	TimetableClass   = "class"
)

var weekdayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var timetableHeaders = []string{"Day", "Start", "End", "Class", "Teacher", "Room", "Valid From", "Valid To"}

type timetableReader interface {
	GetClassSchedule(ctx context.Context, classID string) ([]models.ClassSchedule, error)
	GetTeacherSchedule(ctx context.Context, teacherID string, start, end *models.Date) ([]models.ClassSchedule, error)
	GetRoomSchedule(ctx context.Context, roomID string, start, end *models.Date) ([]models.ClassSchedule, error)
}

// ExportedFile is a rendered timetable document.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TimetableExportService renders a teacher, room or class timetable as CSV, PDF or XLSX.
type TimetableExportService struct {
	reader    timetableReader
	renderers map[dto.ExportFormat]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewTimetableExportService instantiates TimetableExportService with the standard renderers.
func NewTimetableExportService(reader timetableReader, logger *zap.Logger) *TimetableExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableExportService{
		reader: reader,
		renderers: map[dto.ExportFormat]export.Renderer{
			dto.ExportCSV:  export.NewCSVExporter(),
			dto.ExportPDF:  export.NewPDFExporter(),
			dto.ExportXLSX: export.NewXLSXExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Export renders the timetable of the owner. The format defaults to CSV.
func (s *TimetableExportService) Export(ctx context.Context, owner, id string, q dto.ExportQuery) (*ExportedFile, error) {
	format := dto.ExportFormat(strings.ToLower(q.Format))
	if format == "" {
		format = dto.ExportCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", q.Format))
	}
	start, end, err := q.Bounds()
	if err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}

	var rows []models.ClassSchedule
	switch owner {
	case TimetableTeacher:
		rows, err = s.reader.GetTeacherSchedule(ctx, id, start, end)
	case TimetableRoom:
		rows, err = s.reader.GetRoomSchedule(ctx, id, start, end)
	case TimetableClass:
		rows, err = s.reader.GetClassSchedule(ctx, id)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown timetable owner %q", owner))
	}
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s%s %s timetable", strings.ToUpper(owner[:1]), owner[1:], id)
	body, err := renderer.Render(timetableDataset(rows), title)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render timetable")
	}

	s.logger.Info("timetable exported", zap.String("owner", owner), zap.String("id", id), zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return &ExportedFile{
		Filename:    fmt.Sprintf("%s-%s-%s.%s", owner, id, s.now().UTC().Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func timetableDataset(rows []models.ClassSchedule) export.Dataset {
	data := export.Dataset{Headers: timetableHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, r := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Day":        weekdayName(r.DayOfWeek),
			"Start":      r.StartTime.String(),
			"End":        r.EndTime.String(),
			"Class":      r.ClassID,
			"Teacher":    r.TeacherID,
			"Room":       r.RoomID,
			"Valid From": r.StartDate.String(),
			"Valid To":   r.EndDate.String(),
		})
	}
	return data
}

func weekdayName(day int) string {
	if day < 0 || day >= len(weekdayNames) {
		return fmt.Sprintf("%d", day)
	}
	return weekdayNames[day]
}
