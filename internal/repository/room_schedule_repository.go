package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/class-scheduling-api/internal/models"
)

const roomScheduleColumns = "id, room_id, date, start_time, end_time, status, created_at, updated_at"

type roomCatalog interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

// RoomScheduleRepository persists dated room bookings and status overrides.
type RoomScheduleRepository struct {
	db      *sqlx.DB
	catalog roomCatalog
}

// NewRoomScheduleRepository creates a new repository. The catalog supplies rooms that have no rows yet.
func NewRoomScheduleRepository(db *sqlx.DB, catalog roomCatalog) *RoomScheduleRepository {
	return &RoomScheduleRepository{db: db, catalog: catalog}
}

// FindAvailableRooms returns catalog rooms with no overlapping booking and no maintenance on the date.
func (r *RoomScheduleRepository) FindAvailableRooms(ctx context.Context, slot models.RoomSlot) ([]string, error) {
	const query = `SELECT DISTINCT room_id FROM room_schedules WHERE date = $1 AND ((status = 'booked' AND start_time < $2 AND end_time > $3) OR status = 'maintenance')`
	var blocked []string
	if err := r.db.SelectContext(ctx, &blocked, query, slot.Date, slot.EndTime, slot.StartTime); err != nil {
		return nil, fmt.Errorf("find blocked rooms: %w", err)
	}

	if r.catalog == nil {
		return []string{}, nil
	}
	all, err := r.catalog.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(blocked))
	for _, id := range blocked {
		skip[id] = struct{}{}
	}
	free := make([]string, 0, len(all))
	for _, id := range all {
		if _, ok := skip[id]; !ok {
			free = append(free, id)
		}
	}
	return free, nil
}

// CheckConflicts returns booked rows for the room and date whose range touches the request.
func (r *RoomScheduleRepository) CheckConflicts(ctx context.Context, roomID string, slot models.RoomSlot) ([]models.RoomConflict, error) {
	const query = "SELECT " + roomScheduleColumns + " FROM room_schedules WHERE room_id = $1 AND date = $2 AND status = $3 AND start_time <= $4 AND end_time >= $5 ORDER BY start_time ASC"
	var rows []models.RoomSchedule
	if err := r.db.SelectContext(ctx, &rows, query, roomID, slot.Date, string(models.RoomBooked), slot.EndTime, slot.StartTime); err != nil {
		return nil, fmt.Errorf("check room conflicts: %w", err)
	}
	conflicts := make([]models.RoomConflict, 0, len(rows))
	for _, row := range rows {
		conflicts = append(conflicts, models.RoomConflict{RoomID: roomID, Existing: row})
	}
	return conflicts, nil
}

// BookRoom inserts a booked row. Callers check conflicts first.
func (r *RoomScheduleRepository) BookRoom(ctx context.Context, roomID string, slot models.RoomSlot) (*models.RoomSchedule, error) {
	now := time.Now().UTC()
	row := models.RoomSchedule{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Date:      slot.Date,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Status:    models.RoomBooked,
		CreatedAt: now,
		UpdatedAt: now,
	}
	const query = `INSERT INTO room_schedules (id, room_id, date, start_time, end_time, status, created_at, updated_at) VALUES (:id, :room_id, :date, :start_time, :end_time, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return nil, fmt.Errorf("book room: %w", err)
	}
	return &row, nil
}

// CancelBooking deletes the booked row matching the interval exactly. It reports whether one existed.
func (r *RoomScheduleRepository) CancelBooking(ctx context.Context, roomID string, slot models.RoomSlot) (bool, error) {
	const query = `DELETE FROM room_schedules WHERE room_id = $1 AND date = $2 AND start_time = $3 AND end_time = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, roomID, slot.Date, slot.StartTime, slot.EndTime, string(models.RoomBooked))
	if err != nil {
		return false, fmt.Errorf("cancel room booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel room booking rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateRoomStatus sets the status of the interval, creating the row if needed.
func (r *RoomScheduleRepository) UpdateRoomStatus(ctx context.Context, roomID string, slot models.RoomSlot, status models.RoomStatus) (*models.RoomSchedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update room status: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const updateQuery = "UPDATE room_schedules SET status = $1, updated_at = $2 WHERE room_id = $3 AND date = $4 AND start_time = $5 AND end_time = $6 RETURNING " + roomScheduleColumns
	var rows []models.RoomSchedule
	if err = tx.SelectContext(ctx, &rows, updateQuery, string(status), now, roomID, slot.Date, slot.StartTime, slot.EndTime); err != nil {
		return nil, fmt.Errorf("update room status: %w", err)
	}

	var row models.RoomSchedule
	if len(rows) > 0 {
		row = rows[0]
	} else {
		row = models.RoomSchedule{
			ID:        uuid.NewString(),
			RoomID:    roomID,
			Date:      slot.Date,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		const insertQuery = `INSERT INTO room_schedules (id, room_id, date, start_time, end_time, status, created_at, updated_at) VALUES (:id, :room_id, :date, :start_time, :end_time, :status, :created_at, :updated_at)`
		if _, err = tx.NamedExecContext(ctx, insertQuery, row); err != nil {
			return nil, fmt.Errorf("insert room status: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update room status: %w", err)
	}
	return &row, nil
}

// GetRoomSchedules lists a room's rows in the inclusive window ordered by date and start time.
func (r *RoomScheduleRepository) GetRoomSchedules(ctx context.Context, roomID string, start, end models.Date) ([]models.RoomSchedule, error) {
	if err := models.ValidateDateRange(start, end); err != nil {
		return nil, err
	}
	const query = "SELECT " + roomScheduleColumns + " FROM room_schedules WHERE room_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date ASC, start_time ASC"
	var rows []models.RoomSchedule
	if err := r.db.SelectContext(ctx, &rows, query, roomID, start, end); err != nil {
		return nil, fmt.Errorf("get room schedules: %w", err)
	}
	return rows, nil
}
