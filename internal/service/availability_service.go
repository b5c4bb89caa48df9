package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduling-api/internal/dto"
	"github.com/noah-isme/class-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/class-scheduling-api/pkg/errors"
	"github.com/noah-isme/class-scheduling-api/pkg/lock"
)

type teacherAvailabilityStore interface {
	GetTeacherAvailability(ctx context.Context, teacherID string, start, end *models.Date) ([]models.TeacherAvailability, error)
	UpdateAvailability(ctx context.Context, teacherID string, slots []models.AvailabilitySlot, status models.AvailabilityStatus) ([]models.TeacherAvailability, error)
	ClearAvailability(ctx context.Context, teacherID string, days []int) (int64, error)
	FindAvailableTeachers(ctx context.Context, q models.AvailabilityQuery) ([]string, error)
}

// TeacherAvailabilityService manages the intervals teachers declare as available, busy or preferred.
type TeacherAvailabilityService struct {
	repo      teacherAvailabilityStore
	locker    lock.Locker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherAvailabilityService instantiates TeacherAvailabilityService.
func NewTeacherAvailabilityService(repo teacherAvailabilityStore, locker lock.Locker, validate *validator.Validate, logger *zap.Logger) *TeacherAvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewKeyedMutex(0)
	}
	return &TeacherAvailabilityService{repo: repo, locker: locker, validator: validate, logger: logger}
}

// GetAvailability lists a teacher's rows; with a window, one-off rows outside it are left out.
func (s *TeacherAvailabilityService) GetAvailability(ctx context.Context, teacherID string, start, end *models.Date) ([]models.TeacherAvailability, error) {
	if err := checkWindow(start, end); err != nil {
		return nil, err
	}
	rows, err := s.repo.GetTeacherAvailability(ctx, teacherID, start, end)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load teacher availability")
	}
	return rows, nil
}

// UpdateAvailability stores the submitted intervals. It holds the teacher's booking lock so a
// concurrent booking never checks against a half-written set.
func (s *TeacherAvailabilityService) UpdateAvailability(ctx context.Context, teacherID string, req dto.UpdateAvailabilityRequest) ([]models.TeacherAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid availability payload")
	}
	slots, err := req.ToSlots()
	if err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}

	release, err := s.locker.Acquire(ctx, lock.TeacherKey(teacherID))
	if err != nil {
		return nil, lockError(err)
	}
	defer release()

	rows, err := s.repo.UpdateAvailability(ctx, teacherID, slots, models.AvailabilityStatus(req.Status))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update teacher availability")
	}
	s.logger.Info("teacher availability updated", zap.String("teacher_id", teacherID), zap.Int("slots", len(rows)), zap.String("status", req.Status))
	return rows, nil
}

// ClearAvailability removes the teacher's rows on the given weekdays. At least one day is required.
func (s *TeacherAvailabilityService) ClearAvailability(ctx context.Context, teacherID string, days []int) (int64, error) {
	if len(days) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "at least one day is required")
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return 0, appErrors.Validation(models.ErrInvalidDayOfWeek, models.ErrInvalidDayOfWeek.Error())
		}
	}
	release, err := s.locker.Acquire(ctx, lock.TeacherKey(teacherID))
	if err != nil {
		return 0, lockError(err)
	}
	defer release()

	removed, err := s.repo.ClearAvailability(ctx, teacherID, days)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to clear teacher availability")
	}
	s.logger.Info("teacher availability cleared", zap.String("teacher_id", teacherID), zap.Ints("days", days), zap.Int64("removed", removed))
	return removed, nil
}

// FindAvailableTeachers lists teachers whose available rows cover the whole interval.
func (s *TeacherAvailabilityService) FindAvailableTeachers(ctx context.Context, q dto.AvailableTeachersQuery) ([]string, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Validation(err, "invalid availability query")
	}
	query, err := q.ToQuery()
	if err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}
	ids, err := s.repo.FindAvailableTeachers(ctx, query)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to find available teachers")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func lockError(err error) error {
	if errors.Is(err, lock.ErrUnavailable) {
		return appErrors.Wrap(err, appErrors.ErrLockUnavailable.Code, appErrors.ErrLockUnavailable.Status, appErrors.ErrLockUnavailable.Message)
	}
	return appErrors.Internal(err, "failed to lock scheduling resources")
}
