package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/class-scheduling-api/internal/models"
)

const classScheduleColumns = "id, class_id, teacher_id, room_id, day_of_week, start_time, end_time, start_date, end_date, created_at, updated_at"

// ClassScheduleRepository persists committed class slots.
type ClassScheduleRepository struct {
	db *sqlx.DB
}

// NewClassScheduleRepository creates a new class schedule repository.
func NewClassScheduleRepository(db *sqlx.DB) *ClassScheduleRepository {
	return &ClassScheduleRepository{db: db}
}

// CreateSchedule inserts a schedule without checking for conflicts.
func (r *ClassScheduleRepository) CreateSchedule(ctx context.Context, classID, teacherID, roomID string, slot models.TimeSlot) (*models.ClassSchedule, error) {
	now := time.Now().UTC()
	schedule := models.ClassSchedule{
		ID:        uuid.NewString(),
		ClassID:   classID,
		TeacherID: teacherID,
		RoomID:    roomID,
		DayOfWeek: slot.DayOfWeek,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		StartDate: slot.StartDate,
		EndDate:   slot.EndDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	const query = `INSERT INTO class_schedules (id, class_id, teacher_id, room_id, day_of_week, start_time, end_time, start_date, end_date, created_at, updated_at) VALUES (:id, :class_id, :teacher_id, :room_id, :day_of_week, :start_time, :end_time, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return nil, fmt.Errorf("create class schedule: %w", err)
	}
	return &schedule, nil
}

// FindConflicts returns rows on the same weekday with a strictly overlapping time range and an
// overlapping validity window that share the query's teacher, room or class.
func (r *ClassScheduleRepository) FindConflicts(ctx context.Context, q models.ConflictQuery) ([]models.ScheduleConflict, error) {
	query := "SELECT " + classScheduleColumns + " FROM class_schedules WHERE day_of_week = $1 AND start_time < $2 AND end_time > $3 AND start_date <= $4 AND end_date >= $5 AND (teacher_id = $6 OR room_id = $7 OR class_id = $8)"
	args := []interface{}{q.Slot.DayOfWeek, q.Slot.EndTime, q.Slot.StartTime, q.Slot.EndDate, q.Slot.StartDate, q.TeacherID, q.RoomID, q.ClassID}
	if q.ExcludeScheduleID != "" {
		query += " AND id <> $9"
		args = append(args, q.ExcludeScheduleID)
	}
	query += " ORDER BY start_time ASC, id ASC"

	var rows []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find class schedule conflicts: %w", err)
	}

	conflicts := make([]models.ScheduleConflict, 0, len(rows))
	for i := range rows {
		existing := rows[i]
		if q.ExcludeScheduleID != "" && existing.ID == q.ExcludeScheduleID {
			continue
		}
		kind, entity := q.Classify(existing)
		conflicts = append(conflicts, models.ScheduleConflict{
			Type:             kind,
			EntityID:         entity,
			ExistingSchedule: &existing,
			RequestedSlot:    q.Slot,
		})
	}
	return conflicts, nil
}

// FindByID loads a schedule by id. Ids that are not UUIDs cannot exist and report sql.ErrNoRows.
func (r *ClassScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	if !isScheduleID(id) {
		return nil, sql.ErrNoRows
	}
	const query = "SELECT " + classScheduleColumns + " FROM class_schedules WHERE id = $1"
	var schedule models.ClassSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// GetClassSchedule lists a class's schedules ordered by day and start time.
func (r *ClassScheduleRepository) GetClassSchedule(ctx context.Context, classID string) ([]models.ClassSchedule, error) {
	const query = "SELECT " + classScheduleColumns + " FROM class_schedules WHERE class_id = $1 ORDER BY day_of_week ASC, start_time ASC"
	var rows []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("get class schedule: %w", err)
	}
	return rows, nil
}

// GetTeacherSchedule lists a teacher's schedules active at some point in [start, end].
func (r *ClassScheduleRepository) GetTeacherSchedule(ctx context.Context, teacherID string, start, end models.Date) ([]models.ClassSchedule, error) {
	rows, err := r.listByResource(ctx, "teacher_id", teacherID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get teacher schedule: %w", err)
	}
	return rows, nil
}

// GetRoomSchedule lists a room's schedules active at some point in [start, end].
func (r *ClassScheduleRepository) GetRoomSchedule(ctx context.Context, roomID string, start, end models.Date) ([]models.ClassSchedule, error) {
	rows, err := r.listByResource(ctx, "room_id", roomID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get room schedule: %w", err)
	}
	return rows, nil
}

func (r *ClassScheduleRepository) listByResource(ctx context.Context, column, id string, start, end models.Date) ([]models.ClassSchedule, error) {
	if err := models.ValidateDateRange(start, end); err != nil {
		return nil, err
	}
	query := "SELECT " + classScheduleColumns + " FROM class_schedules WHERE " + column +
		" = $1 AND start_date <= $3 AND end_date >= $2 ORDER BY day_of_week ASC, start_time ASC"

	var rows []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &rows, query, id, start, end); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateSchedule overwrites the provided fields and returns the stored row.
func (r *ClassScheduleRepository) UpdateSchedule(ctx context.Context, id string, upd models.ScheduleUpdate) (*models.ClassSchedule, error) {
	const query = `UPDATE class_schedules SET
		class_id = COALESCE($2, class_id),
		teacher_id = COALESCE($3, teacher_id),
		room_id = COALESCE($4, room_id),
		day_of_week = COALESCE($5, day_of_week),
		start_time = COALESCE($6, start_time),
		end_time = COALESCE($7, end_time),
		start_date = COALESCE($8, start_date),
		end_date = COALESCE($9, end_date),
		updated_at = $10
	WHERE id = $1`
	if !isScheduleID(id) {
		return nil, sql.ErrNoRows
	}
	if _, err := r.db.ExecContext(ctx, query, id, upd.ClassID, upd.TeacherID, upd.RoomID, upd.DayOfWeek, upd.StartTime, upd.EndTime, upd.StartDate, upd.EndDate, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("update class schedule: %w", err)
	}
	return r.FindByID(ctx, id)
}

// DeleteSchedule removes a schedule and reports whether it existed.
func (r *ClassScheduleRepository) DeleteSchedule(ctx context.Context, id string) (bool, error) {
	if !isScheduleID(id) {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_schedules WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete class schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete class schedule rows affected: %w", err)
	}
	return affected > 0, nil
}

// isScheduleID guards the UUID primary key so malformed path ids never reach postgres as a cast error.
func isScheduleID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// FindAvailableSlots checks each weekday Monday to Friday as a whole 08:00-17:00 block across the window
// and keeps the days on which neither the teacher nor the room has a committed schedule.
func (r *ClassScheduleRepository) FindAvailableSlots(ctx context.Context, teacherID, roomID string, start, end models.Date) ([]models.TimeSlot, error) {
	if err := models.ValidateDateRange(start, end); err != nil {
		return nil, err
	}
	dayStart, dayEnd := models.MustClock("08:00"), models.MustClock("17:00")

	slots := make([]models.TimeSlot, 0, 5)
	for _, day := range models.DefaultWeekdays() {
		slot := models.TimeSlot{DayOfWeek: day, StartTime: dayStart, EndTime: dayEnd, StartDate: start, EndDate: end}
		conflicts, err := r.FindConflicts(ctx, models.ConflictQuery{Slot: slot, TeacherID: teacherID, RoomID: roomID})
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}
