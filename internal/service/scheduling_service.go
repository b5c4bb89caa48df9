package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduling-api/internal/dto"
	"github.com/noah-isme/class-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/class-scheduling-api/pkg/errors"
	"github.com/noah-isme/class-scheduling-api/pkg/jobs"
	"github.com/noah-isme/class-scheduling-api/pkg/lock"
	"github.com/noah-isme/class-scheduling-api/pkg/middleware/requestid"
)

type availabilityChecker interface {
	CheckConflicts(ctx context.Context, teacherID string, q models.AvailabilityQuery) ([]models.AvailabilityConflict, error)
	HasPreferred(ctx context.Context, teacherID string, dayOfWeek int, start, end models.Date) (bool, error)
}

type roomConflictChecker interface {
	CheckConflicts(ctx context.Context, roomID string, slot models.RoomSlot) ([]models.RoomConflict, error)
}

type classScheduleStore interface {
	CreateSchedule(ctx context.Context, classID, teacherID, roomID string, slot models.TimeSlot) (*models.ClassSchedule, error)
	FindConflicts(ctx context.Context, q models.ConflictQuery) ([]models.ScheduleConflict, error)
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
	GetClassSchedule(ctx context.Context, classID string) ([]models.ClassSchedule, error)
	GetTeacherSchedule(ctx context.Context, teacherID string, start, end models.Date) ([]models.ClassSchedule, error)
	GetRoomSchedule(ctx context.Context, roomID string, start, end models.Date) ([]models.ClassSchedule, error)
	UpdateSchedule(ctx context.Context, id string, upd models.ScheduleUpdate) (*models.ClassSchedule, error)
	DeleteSchedule(ctx context.Context, id string) (bool, error)
	FindAvailableSlots(ctx context.Context, teacherID, roomID string, start, end models.Date) ([]models.TimeSlot, error)
}

const (
	opCreate  = "create"
	opUpdate  = "update"
	opDelete  = "delete"
	opSuggest = "suggest"

	maxUpdateAttempts = 3
)

// SchedulingService books class slots against teacher availability, room bookings and committed schedules.
type SchedulingService struct {
	availability availabilityChecker
	rooms        roomConflictChecker
	schedules    classScheduleStore
	locker       lock.Locker
	search       *jobs.Pool
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewSchedulingService instantiates SchedulingService. A nil locker falls back to an in-process one.
func NewSchedulingService(availability availabilityChecker, rooms roomConflictChecker, schedules classScheduleStore, locker lock.Locker, search *jobs.Pool, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewKeyedMutex(0)
	}
	if search == nil {
		search = jobs.NewPool("slot-search", jobs.PoolConfig{Workers: 4, Logger: logger})
	}
	return &SchedulingService{
		availability: availability,
		rooms:        rooms,
		schedules:    schedules,
		locker:       locker,
		search:       search,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// CreateClassSchedule books the slot if no teacher, room or class conflict exists.
// Conflicts are returned in the result, not as an error, and nothing is written.
func (s *SchedulingService) CreateClassSchedule(ctx context.Context, req dto.CreateClassScheduleRequest) (*models.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordOperation(opCreate, OutcomeInvalid)
		return nil, appErrors.Validation(err, "invalid schedule payload")
	}
	slot, err := req.Slot()
	if err != nil {
		s.metrics.RecordOperation(opCreate, OutcomeInvalid)
		return nil, appErrors.Validation(err, err.Error())
	}

	release, err := s.acquire(ctx, opCreate, []string{req.TeacherID}, []string{req.RoomID})
	if err != nil {
		return nil, err
	}
	defer release()

	query := models.ConflictQuery{Slot: slot, ClassID: req.ClassID, TeacherID: req.TeacherID, RoomID: req.RoomID}
	conflicts, err := s.detectConflicts(ctx, query)
	if err != nil {
		s.metrics.RecordOperation(opCreate, OutcomeFailed)
		return nil, err
	}
	if len(conflicts) > 0 {
		s.reportConflicts(ctx, opCreate, query, conflicts)
		return &models.ScheduleResult{Conflicts: conflicts}, nil
	}

	schedule, err := s.schedules.CreateSchedule(ctx, req.ClassID, req.TeacherID, req.RoomID, slot)
	if err != nil {
		s.metrics.RecordOperation(opCreate, OutcomeFailed)
		s.logger.Error("create class schedule failed", zap.String("request_id", requestid.FromContext(ctx)), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to create class schedule")
	}

	s.metrics.RecordOperation(opCreate, OutcomeCreated)
	s.logger.Info("class schedule created",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("schedule_id", schedule.ID),
		zap.String("class_id", schedule.ClassID),
		zap.String("teacher_id", schedule.TeacherID),
		zap.String("room_id", schedule.RoomID),
	)
	return &models.ScheduleResult{Schedule: schedule}, nil
}

// UpdateClassSchedule merges the provided fields onto the stored schedule and re-runs every
// conflict check against the merged slot, ignoring the schedule itself.
func (s *SchedulingService) UpdateClassSchedule(ctx context.Context, id string, req dto.UpdateClassScheduleRequest) (*models.ScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordOperation(opUpdate, OutcomeInvalid)
		return nil, appErrors.Validation(err, "invalid schedule payload")
	}
	upd, err := req.ToUpdate()
	if err != nil {
		s.metrics.RecordOperation(opUpdate, OutcomeInvalid)
		return nil, appErrors.Validation(err, err.Error())
	}

	merged, release, err := s.lockForUpdate(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	defer release()

	query := models.ConflictQuery{
		Slot:              merged.Slot(),
		ClassID:           merged.ClassID,
		TeacherID:         merged.TeacherID,
		RoomID:            merged.RoomID,
		ExcludeScheduleID: id,
	}
	conflicts, err := s.detectConflicts(ctx, query)
	if err != nil {
		s.metrics.RecordOperation(opUpdate, OutcomeFailed)
		return nil, err
	}
	if len(conflicts) > 0 {
		s.reportConflicts(ctx, opUpdate, query, conflicts)
		return &models.ScheduleResult{Conflicts: conflicts}, nil
	}

	updated, err := s.schedules.UpdateSchedule(ctx, id, fullUpdate(merged))
	if err != nil {
		s.metrics.RecordOperation(opUpdate, OutcomeFailed)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Internal(err, "failed to update class schedule")
	}

	s.metrics.RecordOperation(opUpdate, OutcomeUpdated)
	s.logger.Info("class schedule updated", zap.String("request_id", requestid.FromContext(ctx)), zap.String("schedule_id", id))
	return &models.ScheduleResult{Schedule: updated}, nil
}

// lockForUpdate locks the teacher and room the schedule holds now and the ones the update moves it to,
// then re-reads the row under those locks. If another writer moved the row in between, the locks no
// longer cover it and the attempt starts over.
func (s *SchedulingService) lockForUpdate(ctx context.Context, id string, upd models.ScheduleUpdate) (models.ClassSchedule, func(), error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		snapshot, err := s.loadSchedule(ctx, id)
		if err != nil {
			return models.ClassSchedule{}, nil, err
		}
		target := mergeSchedule(*snapshot, upd)
		release, err := s.acquire(ctx, opUpdate, []string{snapshot.TeacherID, target.TeacherID}, []string{snapshot.RoomID, target.RoomID})
		if err != nil {
			return models.ClassSchedule{}, nil, err
		}

		current, err := s.loadSchedule(ctx, id)
		if err != nil {
			release()
			return models.ClassSchedule{}, nil, err
		}
		if current.TeacherID != snapshot.TeacherID || current.RoomID != snapshot.RoomID {
			release()
			s.logger.Debug("schedule moved while waiting for locks", zap.String("schedule_id", id), zap.Int("attempt", attempt+1))
			continue
		}

		merged := mergeSchedule(*current, upd)
		if err := merged.Slot().Validate(); err != nil {
			release()
			s.metrics.RecordOperation(opUpdate, OutcomeInvalid)
			return models.ClassSchedule{}, nil, appErrors.Validation(err, err.Error())
		}
		return merged, release, nil
	}
	s.metrics.RecordOperation(opUpdate, OutcomeLockBusy)
	return models.ClassSchedule{}, nil, appErrors.Clone(appErrors.ErrLockUnavailable, "schedule keeps changing, retry later")
}

func (s *SchedulingService) loadSchedule(ctx context.Context, id string) (*models.ClassSchedule, error) {
	row, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Internal(err, "failed to load class schedule")
	}
	return row, nil
}

// DeleteClassSchedule removes a schedule. Deleting an unknown id succeeds.
func (s *SchedulingService) DeleteClassSchedule(ctx context.Context, id string) error {
	existed, err := s.schedules.DeleteSchedule(ctx, id)
	if err != nil {
		s.metrics.RecordOperation(opDelete, OutcomeFailed)
		return appErrors.Internal(err, "failed to delete class schedule")
	}
	s.metrics.RecordOperation(opDelete, OutcomeDeleted)
	s.logger.Info("class schedule deleted", zap.String("schedule_id", id), zap.Bool("existed", existed))
	return nil
}

// GetClassSchedule lists a class's weekly slots.
func (s *SchedulingService) GetClassSchedule(ctx context.Context, classID string) ([]models.ClassSchedule, error) {
	rows, err := s.schedules.GetClassSchedule(ctx, classID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load class schedule")
	}
	return rows, nil
}

// GetTeacherSchedule lists the teacher's slots active in the window. Both bounds are required.
func (s *SchedulingService) GetTeacherSchedule(ctx context.Context, teacherID string, start, end *models.Date) ([]models.ClassSchedule, error) {
	if err := requireWindow(start, end); err != nil {
		return nil, err
	}
	rows, err := s.schedules.GetTeacherSchedule(ctx, teacherID, *start, *end)
	if err != nil {
		return nil, storeError(err, "failed to load teacher schedule")
	}
	return rows, nil
}

// GetRoomSchedule lists the room's slots active in the window. Both bounds are required.
func (s *SchedulingService) GetRoomSchedule(ctx context.Context, roomID string, start, end *models.Date) ([]models.ClassSchedule, error) {
	if err := requireWindow(start, end); err != nil {
		return nil, err
	}
	rows, err := s.schedules.GetRoomSchedule(ctx, roomID, *start, *end)
	if err != nil {
		return nil, storeError(err, "failed to load room schedule")
	}
	return rows, nil
}

// FindOpenDays returns the weekdays on which teacher and room are both free for the whole teaching day.
func (s *SchedulingService) FindOpenDays(ctx context.Context, q dto.OpenDaysQuery) ([]models.TimeSlot, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Validation(err, "invalid open days query")
	}
	start, err := models.ParseDate(q.StartDate)
	if err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}
	end, err := models.ParseDate(q.EndDate)
	if err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}
	if err := models.ValidateDateRange(start, end); err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}
	slots, err := s.schedules.FindAvailableSlots(ctx, q.TeacherID, q.RoomID, start, end)
	if err != nil {
		return nil, storeError(err, "failed to find open days")
	}
	return slots, nil
}

// detectConflicts runs the teacher, room and class checks in that order and stops at the first
// check that reports anything.
func (s *SchedulingService) detectConflicts(ctx context.Context, q models.ConflictQuery) ([]models.ScheduleConflict, error) {
	slot := q.Slot
	conflicts := make([]models.ScheduleConflict, 0)

	busy, err := s.availability.CheckConflicts(ctx, q.TeacherID, models.AvailabilityQuery{
		DayOfWeek: slot.DayOfWeek,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		StartDate: &slot.StartDate,
		EndDate:   &slot.EndDate,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check teacher availability")
	}
	for _, b := range busy {
		day := b.Existing.DayOfWeek
		conflicts = append(conflicts, models.ScheduleConflict{
			Type:     models.ConflictTeacher,
			EntityID: q.TeacherID,
			ExistingInterval: &models.Interval{
				DayOfWeek: &day,
				Date:      b.Existing.Date,
				StartTime: b.Existing.StartTime,
				EndTime:   b.Existing.EndTime,
				Status:    string(b.Existing.Status),
			},
			RequestedSlot: slot,
		})
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	booked, err := s.rooms.CheckConflicts(ctx, q.RoomID, models.RoomSlot{Date: slot.StartDate, StartTime: slot.StartTime, EndTime: slot.EndTime})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check room bookings")
	}
	for _, b := range booked {
		date := b.Existing.Date
		conflicts = append(conflicts, models.ScheduleConflict{
			Type:     models.ConflictRoom,
			EntityID: q.RoomID,
			ExistingInterval: &models.Interval{
				Date:      &date,
				StartTime: b.Existing.StartTime,
				EndTime:   b.Existing.EndTime,
				Status:    string(b.Existing.Status),
			},
			RequestedSlot: slot,
		})
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	committed, err := s.schedules.FindConflicts(ctx, q)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check class schedules")
	}
	return append(conflicts, committed...), nil
}

func (s *SchedulingService) acquire(ctx context.Context, operation string, teacherIDs, roomIDs []string) (func(), error) {
	keys := make([]string, 0, len(teacherIDs)+len(roomIDs))
	for _, id := range teacherIDs {
		keys = append(keys, lock.TeacherKey(id))
	}
	for _, id := range roomIDs {
		keys = append(keys, lock.RoomKey(id))
	}

	started := time.Now()
	release, err := s.locker.Acquire(ctx, keys...)
	s.metrics.ObserveLockWait(time.Since(started))
	if err != nil {
		if errors.Is(err, lock.ErrUnavailable) {
			s.metrics.RecordOperation(operation, OutcomeLockBusy)
			s.logger.Warn("scheduling resources busy", zap.Strings("keys", keys), zap.String("operation", operation))
		} else {
			s.metrics.RecordOperation(operation, OutcomeFailed)
		}
		return nil, lockError(err)
	}
	return release, nil
}

func (s *SchedulingService) reportConflicts(ctx context.Context, operation string, q models.ConflictQuery, conflicts []models.ScheduleConflict) {
	s.metrics.RecordOperation(operation, OutcomeConflict)
	s.metrics.RecordConflicts(conflicts)
	s.logger.Info("scheduling conflicts detected",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("operation", operation),
		zap.String("class_id", q.ClassID),
		zap.String("teacher_id", q.TeacherID),
		zap.String("room_id", q.RoomID),
		zap.Int("conflicts", len(conflicts)),
	)
}

func mergeSchedule(existing models.ClassSchedule, upd models.ScheduleUpdate) models.ClassSchedule {
	merged := existing
	if upd.ClassID != nil {
		merged.ClassID = *upd.ClassID
	}
	if upd.TeacherID != nil {
		merged.TeacherID = *upd.TeacherID
	}
	if upd.RoomID != nil {
		merged.RoomID = *upd.RoomID
	}
	if upd.DayOfWeek != nil {
		merged.DayOfWeek = *upd.DayOfWeek
	}
	if upd.StartTime != nil {
		merged.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		merged.EndTime = *upd.EndTime
	}
	if upd.StartDate != nil {
		merged.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		merged.EndDate = *upd.EndDate
	}
	return merged
}

// fullUpdate writes every column of the checked row so the stored schedule is exactly what was validated.
func fullUpdate(row models.ClassSchedule) models.ScheduleUpdate {
	return models.ScheduleUpdate{
		ClassID:   &row.ClassID,
		TeacherID: &row.TeacherID,
		RoomID:    &row.RoomID,
		DayOfWeek: &row.DayOfWeek,
		StartTime: &row.StartTime,
		EndTime:   &row.EndTime,
		StartDate: &row.StartDate,
		EndDate:   &row.EndDate,
	}
}

// requireWindow rejects range queries missing either bound.
func requireWindow(start, end *models.Date) error {
	if start == nil || end == nil {
		return appErrors.Clone(appErrors.ErrValidation, "startDate and endDate are required")
	}
	return checkWindow(start, end)
}

func checkWindow(start, end *models.Date) error {
	if start == nil || end == nil {
		return nil
	}
	if err := models.ValidateDateRange(*start, *end); err != nil {
		return appErrors.Validation(err, err.Error())
	}
	return nil
}

func storeError(err error, message string) error {
	if errors.Is(err, models.ErrInvalidDateRange) {
		return appErrors.Validation(err, err.Error())
	}
	return appErrors.Internal(err, message)
}
