package timeslots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fairway/backend/internal/domain"
	"fairway/backend/internal/events"
	"fairway/backend/internal/store"
)

type GenerateMode int

const (
	// SkipConflicts persists every clean draft and reports the rest.
	SkipConflicts GenerateMode = iota
	// RejectOnConflict persists nothing when any draft conflicts.
	RejectOnConflict
)

type SkippedSlot struct {
	Draft     domain.TimeSlot
	Conflicts []domain.Conflict
}

type GenerationResult struct {
	Created []domain.TimeSlot
	Skipped []SkippedSlot
}

// GenerateSlots expands cfg into drafts and persists the ones that do not conflict.
// Created and Skipped keep the generation order. With SkipConflicts each draft is inserted
// in its own course-day transaction, so a failure part way through leaves earlier inserts
// in place and the partial result is returned together with the error. RejectOnConflict
// inserts the whole batch in one transaction and persists nothing on any conflict.
func (s *Service) GenerateSlots(ctx context.Context, cfg domain.GenerationConfig, mode GenerateMode) (res GenerationResult, err error) {
	ctx, span := s.startSpan(ctx, "GenerateSlots")
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveSince("generate", time.Now())

	if cfg.MaxDays <= 0 || cfg.MaxDays > s.maxDays {
		cfg.MaxDays = s.maxDays
	}
	if err := cfg.Validate(); err != nil {
		return GenerationResult{}, err
	}
	if err := s.checkCourses(ctx, cfg.Course); err != nil {
		return GenerationResult{}, err
	}

	cal, err := s.loadCalendar(ctx, cfg)
	if err != nil {
		return GenerationResult{}, err
	}
	drafts, err := domain.GenerateSlots(cfg, cal)
	if err != nil {
		return GenerationResult{}, err
	}
	if len(drafts) == 0 {
		return GenerationResult{}, nil
	}

	from, to := domain.DateOf(cfg.StartDate), domain.DateOf(cfg.EndDate)
	closures := s.closures(ctx, cfg.Course, from, to)

	var existing []domain.TimeSlot
	err = s.withRetry(ctx, func() error {
		var err error
		existing, err = s.repo.FindByCourseAndDateRange(ctx, cfg.Course, from, to)
		return err
	})
	if err != nil {
		return GenerationResult{}, err
	}

	conflicts := domain.FindConflicts(drafts, existing, closures)
	s.recordConflicts(conflicts)
	if mode == RejectOnConflict {
		if len(conflicts) > 0 {
			return GenerationResult{}, &ConflictError{Conflicts: conflicts}
		}
		return s.insertBatch(ctx, cfg, drafts, closures)
	}
	byCandidate := domain.GroupByCandidate(conflicts)

	for i, draft := range drafts {
		if cs := byCandidate[i]; len(cs) > 0 {
			res.skip(draft, cs)
			s.metrics.GenerationSkipped(string(cs[0].Type))
			continue
		}

		var created domain.TimeSlot
		err := s.withRetry(ctx, func() error {
			return s.repo.InCourseTransaction(ctx, []domain.CourseRef{draft.Courses()}, []time.Time{draft.Date}, func(ctx context.Context, tx store.SlotTx) error {
				var txErr error
				created, _, txErr = insertChecked(ctx, tx, draft, closures, false)
				return txErr
			})
		})
		if err != nil {
			// Lost a race with a concurrent writer: report it like any other conflict.
			var cErr *ConflictError
			if errors.As(err, &cErr) {
				s.recordConflicts(cErr.Conflicts)
				for j := range cErr.Conflicts {
					cErr.Conflicts[j].CandidateIndex = i
				}
				res.skip(draft, cErr.Conflicts)
				s.metrics.GenerationSkipped(string(cErr.Conflicts[0].Type))
				continue
			}
			s.metrics.SlotsCreated(len(res.Created))
			return res, fmt.Errorf("generate: persisted %d of %d slots: %w", len(res.Created), len(drafts), err)
		}
		res.Created = append(res.Created, created)
		s.publish(ctx, events.NewEvent(events.SlotCreated, created))
	}

	s.metrics.SlotsCreated(len(res.Created))
	s.logger.Info("slots generated",
		"course", cfg.Course.Key(),
		"pattern", cfg.Pattern,
		"created", len(res.Created),
		"skipped", len(res.Skipped),
	)
	return res, nil
}

// insertBatch writes every draft inside one transaction locking all generated days. A
// conflict lost to a concurrent writer rolls the whole batch back.
func (s *Service) insertBatch(ctx context.Context, cfg domain.GenerationConfig, drafts []domain.TimeSlot, closures domain.ClosureSet) (GenerationResult, error) {
	dates := make([]time.Time, 0, len(drafts))
	for _, d := range drafts {
		if len(dates) == 0 || !domain.SameDate(dates[len(dates)-1], d.Date) {
			dates = append(dates, d.Date)
		}
	}

	var created []domain.TimeSlot
	err := s.withRetry(ctx, func() error {
		created = created[:0]
		return s.repo.InCourseTransaction(ctx, []domain.CourseRef{cfg.Course}, dates, func(ctx context.Context, tx store.SlotTx) error {
			for i, draft := range drafts {
				out, _, err := insertChecked(ctx, tx, draft, closures, false)
				if err != nil {
					var cErr *ConflictError
					if errors.As(err, &cErr) {
						for j := range cErr.Conflicts {
							cErr.Conflicts[j].CandidateIndex = i
						}
					}
					return err
				}
				created = append(created, out)
			}
			return nil
		})
	})
	if err != nil {
		var cErr *ConflictError
		if errors.As(err, &cErr) {
			s.recordConflicts(cErr.Conflicts)
			return GenerationResult{}, err
		}
		return GenerationResult{}, fmt.Errorf("generate: %w", err)
	}

	for _, slot := range created {
		s.publish(ctx, events.NewEvent(events.SlotCreated, slot))
	}
	s.metrics.SlotsCreated(len(created))
	s.logger.Info("slots generated",
		"course", cfg.Course.Key(),
		"pattern", cfg.Pattern,
		"created", len(created),
		"skipped", 0,
	)
	return GenerationResult{Created: created}, nil
}

func (r *GenerationResult) skip(draft domain.TimeSlot, conflicts []domain.Conflict) {
	r.Skipped = append(r.Skipped, SkippedSlot{Draft: draft, Conflicts: conflicts})
}

// loadCalendar only fails when cfg actually depends on calendar data.
func (s *Service) loadCalendar(ctx context.Context, cfg domain.GenerationConfig) (domain.Calendar, error) {
	needed := cfg.ExcludeHolidays || cfg.Pattern == domain.PatternPeakHours
	if s.calendar == nil {
		if needed {
			s.logger.Warn("no calendar source configured", "pattern", cfg.Pattern, "exclude_holidays", cfg.ExcludeHolidays)
		}
		return domain.Calendar{}, nil
	}
	cal, err := s.calendar.Calendar(ctx, cfg.StartDate, cfg.EndDate)
	if err != nil {
		if needed {
			return domain.Calendar{}, fmt.Errorf("%w: calendar: %v", store.ErrUnavailable, err)
		}
		s.logger.Warn("calendar unavailable", "error", err)
		return domain.Calendar{}, nil
	}
	return cal, nil
}

type AvailabilityQuery struct {
	Course    domain.CourseRef
	From      time.Time
	To        time.Time
	StartTime domain.ClockTime
	EndTime   domain.ClockTime
}

type AvailabilityResult struct {
	Available bool
	Conflicts []domain.Conflict
}

// CheckAvailability reports whether [StartTime, EndTime) is free on every date of the range.
// It never writes.
func (s *Service) CheckAvailability(ctx context.Context, q AvailabilityQuery) (res AvailabilityResult, err error) {
	ctx, span := s.startSpan(ctx, "CheckAvailability")
	defer func() { endSpan(span, err) }()

	if err := q.Course.Validate(); err != nil {
		return AvailabilityResult{}, err
	}
	if err := s.validateRange(q.From, q.To); err != nil {
		return AvailabilityResult{}, err
	}
	from, to := domain.DateOf(q.From), domain.DateOf(q.To)
	if _, err := domain.NewInterval(from, q.StartTime, q.EndTime); err != nil {
		return AvailabilityResult{}, err
	}

	var candidates []domain.TimeSlot
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		c := domain.TimeSlot{Date: d, StartTime: q.StartTime, EndTime: q.EndTime}
		c.SetCourses(q.Course)
		candidates = append(candidates, c)
	}

	var existing []domain.TimeSlot
	err = s.withRetry(ctx, func() error {
		var err error
		existing, err = s.repo.FindByCourseAndDateRange(ctx, q.Course, from, to)
		return err
	})
	if err != nil {
		return AvailabilityResult{}, err
	}

	conflicts := domain.FindConflicts(candidates, existing, s.closures(ctx, q.Course, from, to))
	return AvailabilityResult{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// SlotAdjustments override fields of the source slot on every duplicate.
type SlotAdjustments struct {
	StartTime    *domain.ClockTime
	EndTime      *domain.ClockTime
	BreakMinutes *int
	MaxSlots     *int
	Price        *int64
}

type DuplicateFailure struct {
	Date time.Time
	Err  error
}

type DuplicateResult struct {
	Created []domain.TimeSlot
	Failed  []DuplicateFailure
}

// DuplicateSlot copies the source slot onto each target date through CreateSlot. Dates
// succeed or fail independently.
func (s *Service) DuplicateSlot(ctx context.Context, id uuid.UUID, targetDates []time.Time, adj *SlotAdjustments) (res DuplicateResult, err error) {
	ctx, span := s.startSpan(ctx, "DuplicateSlot")
	defer func() { endSpan(span, err) }()

	if len(targetDates) == 0 {
		return DuplicateResult{}, validationError("target_dates are required")
	}
	if len(targetDates) > s.maxDays {
		return DuplicateResult{}, validationError("at most %d target_dates are allowed", s.maxDays)
	}

	src, err := s.GetSlot(ctx, id)
	if err != nil {
		return DuplicateResult{}, err
	}

	seen := make(map[string]struct{}, len(targetDates))
	for _, raw := range targetDates {
		date := domain.DateOf(raw)
		k := domain.FormatDate(date)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		draft := src.Draft()
		draft.Date = date
		draft.IsRecurring = false
		draft.RecurringPattern = nil
		if adj != nil {
			adj.apply(&draft)
		}

		out, err := s.CreateSlot(ctx, draft, CreateOptions{})
		if err != nil {
			res.Failed = append(res.Failed, DuplicateFailure{Date: date, Err: err})
			continue
		}
		res.Created = append(res.Created, out)
	}
	return res, nil
}

func (a *SlotAdjustments) apply(s *domain.TimeSlot) {
	if a.StartTime != nil {
		s.StartTime = *a.StartTime
	}
	if a.EndTime != nil {
		s.EndTime = *a.EndTime
	}
	if a.BreakMinutes != nil {
		s.BreakMinutes = *a.BreakMinutes
	}
	if a.MaxSlots != nil {
		s.MaxSlots = *a.MaxSlots
	}
	if a.Price != nil {
		s.Price = *a.Price
	}
}
