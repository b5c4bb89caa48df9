package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduling-api/internal/dto"
	"github.com/noah-isme/class-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/class-scheduling-api/pkg/errors"
)

// MaxSuggestions caps the suggestion list.
const MaxSuggestions = 5

type slotCandidate struct {
	roomID string
	slot   models.TimeSlot
}

// FindAvailableSlots proposes up to MaxSuggestions conflict-free standard periods for the teacher,
// trying every requested room on every preferred weekday. Candidates are checked in parallel but
// ranked as if checked room by room, day by day, period by period: ties keep that order.
func (s *SchedulingService) FindAvailableSlots(ctx context.Context, req dto.SuggestionRequest) ([]models.ScheduleSuggestion, error) {
	if req.TeacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacherId is required")
	}
	if len(req.RoomIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one room is required")
	}
	if err := models.ValidateDateRange(req.StartDate, req.EndDate); err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}
	days := req.PreferredDays
	if len(days) == 0 {
		days = models.DefaultWeekdays()
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, appErrors.Validation(models.ErrInvalidDayOfWeek, fmt.Sprintf("invalid preferred day %d", d))
		}
	}

	started := time.Now()
	defer func() { s.metrics.ObserveSlotSearch(time.Since(started)) }()

	preferred := make(map[int]bool, len(days))
	for _, d := range days {
		if _, seen := preferred[d]; seen {
			continue
		}
		ok, err := s.availability.HasPreferred(ctx, req.TeacherID, d, req.StartDate, req.EndDate)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load teacher preferences")
		}
		preferred[d] = ok
	}

	periods := models.StandardPeriods()
	candidates := make([]slotCandidate, 0, len(req.RoomIDs)*len(days)*len(periods))
	for _, roomID := range req.RoomIDs {
		for _, d := range days {
			for _, p := range periods {
				candidates = append(candidates, slotCandidate{
					roomID: roomID,
					slot: models.TimeSlot{
						DayOfWeek: d,
						StartTime: p.Start,
						EndTime:   p.End,
						StartDate: req.StartDate,
						EndDate:   req.EndDate,
					},
				})
			}
		}
	}

	found := make([]*models.ScheduleSuggestion, len(candidates))
	err := s.search.Run(ctx, len(candidates), func(ctx context.Context, i int) error {
		c := candidates[i]
		conflicts, err := s.detectConflicts(ctx, models.ConflictQuery{Slot: c.slot, TeacherID: req.TeacherID, RoomID: c.roomID})
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return nil
		}
		found[i] = &models.ScheduleSuggestion{
			TeacherID: req.TeacherID,
			RoomID:    c.roomID,
			TimeSlot:  c.slot,
			Score:     scoreSlot(c.slot, preferred[c.slot.DayOfWeek]),
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordOperation(opSuggest, OutcomeFailed)
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Internal(err, "failed to search available slots")
	}

	suggestions := make([]models.ScheduleSuggestion, 0, len(found))
	for _, f := range found {
		if f != nil {
			suggestions = append(suggestions, *f)
		}
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}

	s.metrics.RecordOperation(opSuggest, OutcomeSuggested)
	s.logger.Debug("slot search finished",
		zap.String("teacher_id", req.TeacherID),
		zap.Int("candidates", len(candidates)),
		zap.Int("suggestions", len(suggestions)),
	)
	return suggestions, nil
}

// scoreSlot favours morning starts, midweek days and days the teacher prefers.
func scoreSlot(slot models.TimeSlot, preferredDay bool) int {
	score := 0
	if h := slot.StartTime.Hour(); h >= 8 && h <= 11 {
		score += 2
	}
	if slot.DayOfWeek >= 2 && slot.DayOfWeek <= 4 {
		score++
	}
	if preferredDay {
		score += 3
	}
	return score
}
