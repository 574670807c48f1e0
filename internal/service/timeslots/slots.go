package timeslots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fairway/backend/internal/domain"
	"fairway/backend/internal/events"
	"fairway/backend/internal/store"
)

type CreateOptions struct {
	// Force replaces conflicting slots that hold no bookings.
	Force          bool
	IdempotencyKey string
}

// CreateSlot validates draft, checks it against the persisted slots of its courses and date,
// and persists it. A blocked create returns *ConflictError.
func (s *Service) CreateSlot(ctx context.Context, draft domain.TimeSlot, opts CreateOptions) (out domain.TimeSlot, err error) {
	ctx, span := s.startSpan(ctx, "CreateSlot")
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveSince("create", time.Now())

	slot, err := prepareDraft(draft)
	if err != nil {
		return domain.TimeSlot{}, err
	}

	key := strings.TrimSpace(opts.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.TimeSlot{}, validationError("idempotency_key too long")
		}
		slot.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("fairway:create_timeslot:"+key))
	}

	if err := s.checkCourses(ctx, slot.Courses()); err != nil {
		return domain.TimeSlot{}, err
	}
	closures := s.closures(ctx, slot.Courses(), slot.Date, slot.Date)

	var replaced []uuid.UUID
	err = s.withRetry(ctx, func() error {
		return s.repo.InCourseTransaction(ctx, []domain.CourseRef{slot.Courses()}, []time.Time{slot.Date}, func(ctx context.Context, tx store.SlotTx) error {
			var txErr error
			out, replaced, txErr = insertChecked(ctx, tx, slot, closures, opts.Force)
			return txErr
		})
	})
	if err != nil {
		var cErr *ConflictError
		if errors.As(err, &cErr) {
			s.recordConflicts(cErr.Conflicts)
		}
		return domain.TimeSlot{}, err
	}

	for _, id := range replaced {
		s.logger.Info("slot replaced by forced create", "replaced_id", id, "slot_id", out.ID)
	}
	s.metrics.SlotsCreated(1)
	s.publish(ctx, events.NewEvent(events.SlotCreated, out))
	return out, nil
}

// prepareDraft normalizes a caller-supplied slot into an unsaved, unbooked draft.
func prepareDraft(draft domain.TimeSlot) (domain.TimeSlot, error) {
	slot := draft
	slot.Date = domain.DateOf(slot.Date)
	slot.BookedSlots = 0
	slot.CreatedAt = time.Time{}
	slot.UpdatedAt = time.Time{}
	slot.SetCourses(draft.Courses())
	switch slot.Status {
	case "":
		slot.Status = domain.StatusAvailable
	case domain.StatusAvailable, domain.StatusBlocked:
	default:
		return domain.TimeSlot{}, validationError("new slots must be AVAILABLE or BLOCKED")
	}
	if slot.Date.IsZero() {
		return domain.TimeSlot{}, validationError("date is required")
	}
	if err := slot.Validate(); err != nil {
		return domain.TimeSlot{}, err
	}
	return slot, nil
}

// insertChecked runs conflict detection against the locked course-day and inserts slot.
// With force, unbooked conflicting slots are cancelled first and their ids returned.
func insertChecked(ctx context.Context, tx store.SlotTx, slot domain.TimeSlot, closures domain.ClosureSet, force bool) (domain.TimeSlot, []uuid.UUID, error) {
	existing, err := tx.FindByCourseAndDateRange(ctx, slot.Courses(), slot.Date, slot.Date)
	if err != nil {
		return domain.TimeSlot{}, nil, err
	}

	var replaced []uuid.UUID
	conflicts := domain.FindConflicts([]domain.TimeSlot{slot}, existing, closures)
	if len(conflicts) > 0 {
		cErr := &ConflictError{Conflicts: conflicts}
		if !force || !cErr.Overridable() {
			return domain.TimeSlot{}, nil, cErr
		}
		for _, c := range conflicts {
			if c.ExistingSlotID == uuid.Nil {
				continue
			}
			if err := tx.Cancel(ctx, c.ExistingSlotID); err != nil {
				if errors.Is(err, store.ErrHasBookings) {
					c.BookingExists = true
					return domain.TimeSlot{}, nil, &ConflictError{Conflicts: []domain.Conflict{c}}
				}
				return domain.TimeSlot{}, nil, err
			}
			replaced = append(replaced, c.ExistingSlotID)
		}
	}

	out, err := tx.Insert(ctx, slot)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateSlot):
			return domain.TimeSlot{}, nil, &ConflictError{Conflicts: []domain.Conflict{{
				Type:      domain.ConflictDuplicate,
				Message:   fmt.Sprintf("slot %s-%s on %s already exists for course %s", slot.StartTime, slot.EndTime, domain.FormatDate(slot.Date), slot.Courses()),
				Candidate: slot,
			}}}
		case errors.Is(err, store.ErrConflict):
			return domain.TimeSlot{}, nil, &ConflictError{Conflicts: []domain.Conflict{{
				Type:      domain.ConflictOverlap,
				Message:   fmt.Sprintf("%s-%s on %s overlaps an existing slot for course %s", slot.StartTime, slot.EndTime, domain.FormatDate(slot.Date), slot.Courses()),
				Candidate: slot,
			}}}
		}
		return domain.TimeSlot{}, nil, err
	}
	return out, replaced, nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (domain.TimeSlot, error) {
	if id == uuid.Nil {
		return domain.TimeSlot{}, validationError("id is required")
	}
	var out domain.TimeSlot
	err := s.withRetry(ctx, func() error {
		var err error
		out, err = s.repo.Get(ctx, id)
		return err
	})
	return out, err
}

func (s *Service) ListSlots(ctx context.Context, filter store.SlotFilter) ([]domain.TimeSlot, error) {
	if filter.Course != nil {
		if err := filter.Course.Validate(); err != nil {
			return nil, err
		}
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && domain.DateOf(filter.From).After(domain.DateOf(filter.To)) {
		return nil, validationError("date_from must not be after date_to")
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, validationError("limit and offset must not be negative")
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, validationError("unknown status %q", st)
		}
	}

	var out []domain.TimeSlot
	err := s.withRetry(ctx, func() error {
		var err error
		out, err = s.repo.List(ctx, filter)
		return err
	})
	return out, err
}

// SlotPatch lists the fields UpdateSlot may change. Nil fields are left alone.
type SlotPatch struct {
	Date         *time.Time
	StartTime    *domain.ClockTime
	EndTime      *domain.ClockTime
	BreakMinutes *int
	MaxSlots     *int
	Price        *int64
	Status       *domain.Status
}

type UpdateResult struct {
	Slot domain.TimeSlot
	// Warning is set when a forced change left existing bookings attached to moved times.
	Warning *StaleBookingsWarning
}

func (p SlotPatch) apply(s domain.TimeSlot) domain.TimeSlot {
	if p.Date != nil {
		s.Date = domain.DateOf(*p.Date)
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		s.EndTime = *p.EndTime
	}
	if p.BreakMinutes != nil {
		s.BreakMinutes = *p.BreakMinutes
	}
	if p.MaxSlots != nil {
		s.MaxSlots = *p.MaxSlots
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	return s
}

// UpdateSlot applies patch under the course-day lock of both the old and the new date.
func (s *Service) UpdateSlot(ctx context.Context, id uuid.UUID, patch SlotPatch, force bool) (res UpdateResult, err error) {
	ctx, span := s.startSpan(ctx, "UpdateSlot")
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveSince("update", time.Now())

	if id == uuid.Nil {
		return UpdateResult{}, validationError("id is required")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return UpdateResult{}, validationError("unknown status %q", *patch.Status)
	}

	current, err := s.GetSlot(ctx, id)
	if err != nil {
		return UpdateResult{}, err
	}
	dates := []time.Time{current.Date}
	if patch.Date != nil {
		dates = append(dates, domain.DateOf(*patch.Date))
	}
	from, to := dateSpan(dates)
	closures := s.closures(ctx, current.Courses(), from, to)

	err = s.withRetry(ctx, func() error {
		return s.repo.InCourseTransaction(ctx, []domain.CourseRef{current.Courses()}, dates, func(ctx context.Context, tx store.SlotTx) error {
			res = UpdateResult{}
			cur, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if !domain.SameDate(cur.Date, current.Date) {
				// Moved by a concurrent update; the locks held do not cover it.
				return fmt.Errorf("%w: slot %s moved concurrently", store.ErrUnavailable, id)
			}

			next := patch.apply(cur)
			if next.MaxSlots < cur.BookedSlots {
				return validationError("max_slots cannot be below booked_slots (%d)", cur.BookedSlots)
			}
			if next.Status.Bookable() {
				next.Status = domain.StatusAvailable
				if next.IsFull() {
					next.Status = domain.StatusBooked
				}
			}

			if next.Status == domain.StatusCancelled && cur.Status != domain.StatusCancelled && cur.BookedSlots > 0 && !force {
				return &HasBookingsError{SlotID: id, Booked: cur.BookedSlots}
			}

			timeChanged := !domain.SameDate(next.Date, cur.Date) || next.StartTime != cur.StartTime || next.EndTime != cur.EndTime
			if timeChanged && cur.BookedSlots > 0 {
				if !force {
					return &HasBookingsError{SlotID: id, Booked: cur.BookedSlots}
				}
				res.Warning = &StaleBookingsWarning{SlotID: id, Booked: cur.BookedSlots}
			}
			if err := next.Validate(); err != nil {
				return err
			}

			reopened := cur.Status == domain.StatusCancelled && next.Status != domain.StatusCancelled
			if (timeChanged || reopened) && next.Status != domain.StatusCancelled {
				existing, err := tx.FindByCourseAndDateRange(ctx, next.Courses(), next.Date, next.Date)
				if err != nil {
					return err
				}
				if conflicts := domain.FindConflicts([]domain.TimeSlot{next}, existing, closures); len(conflicts) > 0 {
					return &ConflictError{Conflicts: conflicts}
				}
			}

			out, err := tx.Update(ctx, next)
			if err != nil {
				return err
			}
			res.Slot = out
			return nil
		})
	})
	if err != nil {
		var cErr *ConflictError
		if errors.As(err, &cErr) {
			s.recordConflicts(cErr.Conflicts)
		}
		return UpdateResult{}, err
	}

	if res.Warning != nil {
		s.logger.Warn("slot moved with bookings attached", "slot_id", id, "booked", res.Warning.Booked)
	}
	s.publish(ctx, events.NewEvent(events.SlotUpdated, res.Slot))
	return res, nil
}

// DeleteSlot removes a slot. Slots holding bookings are only removed with force.
func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID, force bool) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteSlot")
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveSince("delete", time.Now())

	current, err := s.GetSlot(ctx, id)
	if err != nil {
		return err
	}

	var deleted domain.TimeSlot
	err = s.withRetry(ctx, func() error {
		return s.repo.InCourseTransaction(ctx, []domain.CourseRef{current.Courses()}, []time.Time{current.Date}, func(ctx context.Context, tx store.SlotTx) error {
			cur, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if cur.BookedSlots > 0 && !force {
				return &HasBookingsError{SlotID: id, Booked: cur.BookedSlots}
			}
			deleted = cur
			return tx.Delete(ctx, id)
		})
	})
	if err != nil {
		return err
	}

	if deleted.BookedSlots > 0 {
		s.logger.Warn("slot deleted with bookings attached", "slot_id", id, "booked", deleted.BookedSlots)
	}
	s.publish(ctx, events.NewEvent(events.SlotDeleted, deleted))
	return nil
}

func dateSpan(ts []time.Time) (from, to time.Time) {
	from, to = ts[0], ts[0]
	for _, t := range ts[1:] {
		if t.Before(from) {
			from = t
		}
		if t.After(to) {
			to = t
		}
	}
	return from, to
}
