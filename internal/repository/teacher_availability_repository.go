package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/class-scheduling-api/internal/models"
)

const availabilityColumns = "id, teacher_id, day_of_week, start_time, end_time, status, repeat_pattern, date, created_at, updated_at"

// once rows apply on their explicit date, or the day they were recorded when none was stored.
const onceDateExpr = "COALESCE(date, created_at::date)"

// TeacherAvailabilityRepository persists declared teacher intervals.
type TeacherAvailabilityRepository struct {
	db *sqlx.DB
}

// NewTeacherAvailabilityRepository creates a new repository.
func NewTeacherAvailabilityRepository(db *sqlx.DB) *TeacherAvailabilityRepository {
	return &TeacherAvailabilityRepository{db: db}
}

// CheckConflicts returns busy rows on the same weekday whose range touches the requested interval.
// Weekly rows always apply; once rows only when their date is inside the query window, if one is given.
func (r *TeacherAvailabilityRepository) CheckConflicts(ctx context.Context, teacherID string, q models.AvailabilityQuery) ([]models.AvailabilityConflict, error) {
	args := []interface{}{teacherID, q.DayOfWeek, string(models.AvailabilityBusy), q.EndTime, q.StartTime}
	query := "SELECT " + availabilityColumns + " FROM teacher_availability WHERE teacher_id = $1 AND day_of_week = $2 AND status = $3 AND start_time <= $4 AND end_time >= $5"
	if q.StartDate != nil && q.EndDate != nil {
		query += fmt.Sprintf(" AND (repeat_pattern = 'weekly' OR %s BETWEEN $6 AND $7)", onceDateExpr)
		args = append(args, *q.StartDate, *q.EndDate)
	}
	query += " ORDER BY start_time ASC"

	var rows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("check teacher availability conflicts: %w", err)
	}

	conflicts := make([]models.AvailabilityConflict, 0, len(rows))
	for _, row := range rows {
		conflicts = append(conflicts, models.AvailabilityConflict{TeacherID: teacherID, Existing: row, RequestedSlot: q})
	}
	return conflicts, nil
}

// GetTeacherAvailability lists a teacher's rows. With both bounds, once rows outside the window are dropped.
func (r *TeacherAvailabilityRepository) GetTeacherAvailability(ctx context.Context, teacherID string, start, end *models.Date) ([]models.TeacherAvailability, error) {
	args := []interface{}{teacherID}
	query := "SELECT " + availabilityColumns + " FROM teacher_availability WHERE teacher_id = $1"
	if start != nil && end != nil {
		query += fmt.Sprintf(" AND (repeat_pattern = 'weekly' OR %s BETWEEN $2 AND $3)", onceDateExpr)
		args = append(args, *start, *end)
	}
	query += " ORDER BY day_of_week ASC, start_time ASC"

	var rows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get teacher availability: %w", err)
	}
	return rows, nil
}

// UpdateAvailability stores the intervals with the given status, replacing rows for the same interval.
func (r *TeacherAvailabilityRepository) UpdateAvailability(ctx context.Context, teacherID string, slots []models.AvailabilitySlot, status models.AvailabilityStatus) (stored []models.TeacherAvailability, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update availability: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const deleteQuery = `DELETE FROM teacher_availability WHERE teacher_id = $1 AND day_of_week = $2 AND start_time = $3 AND end_time = $4 AND date IS NOT DISTINCT FROM $5`
	const insertQuery = `INSERT INTO teacher_availability (id, teacher_id, day_of_week, start_time, end_time, status, repeat_pattern, date, created_at, updated_at) VALUES (:id, :teacher_id, :day_of_week, :start_time, :end_time, :status, :repeat_pattern, :date, :created_at, :updated_at)`

	now := time.Now().UTC()
	stored = make([]models.TeacherAvailability, 0, len(slots))
	for _, slot := range slots {
		if _, err = tx.ExecContext(ctx, deleteQuery, teacherID, slot.DayOfWeek, slot.StartTime, slot.EndTime, slot.Date); err != nil {
			return nil, fmt.Errorf("replace teacher availability: %w", err)
		}

		row := models.TeacherAvailability{
			ID:            uuid.NewString(),
			TeacherID:     teacherID,
			DayOfWeek:     slot.DayOfWeek,
			StartTime:     slot.StartTime,
			EndTime:       slot.EndTime,
			Status:        status,
			RepeatPattern: models.RepeatWeekly,
			Date:          slot.Date,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if slot.Date != nil {
			row.RepeatPattern = models.RepeatOnce
		}
		if _, err = tx.NamedExecContext(ctx, insertQuery, row); err != nil {
			return nil, fmt.Errorf("insert teacher availability: %w", err)
		}
		stored = append(stored, row)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update availability: %w", err)
	}
	return stored, nil
}

// ClearAvailability deletes a teacher's rows on the given weekdays. No days deletes nothing.
func (r *TeacherAvailabilityRepository) ClearAvailability(ctx context.Context, teacherID string, days []int) (int64, error) {
	if len(days) == 0 {
		return 0, nil
	}
	const query = `DELETE FROM teacher_availability WHERE teacher_id = $1 AND day_of_week = ANY($2)`
	res, err := r.db.ExecContext(ctx, query, teacherID, pq.Array(days))
	if err != nil {
		return 0, fmt.Errorf("clear teacher availability: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear teacher availability rows affected: %w", err)
	}
	return affected, nil
}

// FindAvailableTeachers returns teachers with an available row covering the whole interval.
// When the query carries a date, once rows for that date also count.
func (r *TeacherAvailabilityRepository) FindAvailableTeachers(ctx context.Context, q models.AvailabilityQuery) ([]string, error) {
	conditions := []string{"day_of_week = $1", "status = $2", "start_time <= $3", "end_time >= $4"}
	args := []interface{}{q.DayOfWeek, string(models.AvailabilityAvailable), q.StartTime, q.EndTime}
	if q.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("(repeat_pattern = 'weekly' OR (repeat_pattern = 'once' AND %s = $5))", onceDateExpr))
		args = append(args, *q.StartDate)
	}
	query := "SELECT DISTINCT teacher_id FROM teacher_availability WHERE " + strings.Join(conditions, " AND ") + " ORDER BY teacher_id ASC"

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("find available teachers: %w", err)
	}
	return ids, nil
}

// HasPreferred reports whether the teacher marked any interval on the weekday as preferred within
// [start, end]. Weekly rows always count; once rows only when their date is inside the window.
func (r *TeacherAvailabilityRepository) HasPreferred(ctx context.Context, teacherID string, dayOfWeek int, start, end models.Date) (bool, error) {
	query := "SELECT EXISTS (SELECT 1 FROM teacher_availability WHERE teacher_id = $1 AND day_of_week = $2 AND status = $3" +
		fmt.Sprintf(" AND (repeat_pattern = 'weekly' OR %s BETWEEN $4 AND $5))", onceDateExpr)
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, teacherID, dayOfWeek, string(models.AvailabilityPreferred), start, end); err != nil {
		return false, fmt.Errorf("check preferred availability: %w", err)
	}
	return exists, nil
}
