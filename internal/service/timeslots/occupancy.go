package timeslots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fairway/backend/internal/domain"
	"fairway/backend/internal/events"
	"fairway/backend/internal/store"
)

// Reserve adds partySize players to a slot. The capacity check and the write happen in
// one conditional update, so concurrent reservations never overbook.
func (s *Service) Reserve(ctx context.Context, id uuid.UUID, partySize int) (out domain.TimeSlot, err error) {
	ctx, span := s.startSpan(ctx, "Reserve")
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveSince("reserve", time.Now())
	defer func() { s.metrics.Occupancy("reserve", occupancyResult(err)) }()

	if partySize <= 0 {
		return domain.TimeSlot{}, domain.ErrInvalidPartySize
	}
	current, err := s.GetSlot(ctx, id)
	if err != nil {
		return domain.TimeSlot{}, err
	}
	// Fail fast on the snapshot; the conditional update below is authoritative.
	if _, err := domain.Reserve(current, partySize); err != nil {
		return domain.TimeSlot{}, err
	}

	err = s.withRetry(ctx, func() error {
		var err error
		out, err = s.repo.AdjustOccupancy(ctx, id, partySize)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrCapacityExceeded):
			return domain.TimeSlot{}, &domain.CapacityExceededError{
				SlotID:    id,
				Requested: partySize,
				Available: max(out.Available(), 0),
			}
		case errors.Is(err, store.ErrNotBookable):
			return domain.TimeSlot{}, domain.ErrSlotNotBookable
		}
		return domain.TimeSlot{}, err
	}

	ev := events.NewEvent(events.SlotReserved, out)
	ev.PartySize = partySize
	s.publish(ctx, ev)
	return out, nil
}

// Release removes partySize players from a slot. Releasing more than is booked is
// reported as *domain.InconsistentStateError and nothing is written.
func (s *Service) Release(ctx context.Context, id uuid.UUID, partySize int) (out domain.TimeSlot, err error) {
	ctx, span := s.startSpan(ctx, "Release")
	defer func() { endSpan(span, err) }()
	defer s.metrics.ObserveSince("release", time.Now())
	defer func() { s.metrics.Occupancy("release", occupancyResult(err)) }()

	if partySize <= 0 {
		return domain.TimeSlot{}, domain.ErrInvalidPartySize
	}
	current, err := s.GetSlot(ctx, id)
	if err != nil {
		return domain.TimeSlot{}, err
	}
	if _, err := domain.Release(current, partySize); err != nil {
		s.logInconsistent(err)
		return domain.TimeSlot{}, err
	}

	err = s.withRetry(ctx, func() error {
		var err error
		out, err = s.repo.AdjustOccupancy(ctx, id, -partySize)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrInsufficientBookings) {
			iErr := &domain.InconsistentStateError{SlotID: id, Booked: out.BookedSlots, Delta: partySize}
			s.logInconsistent(iErr)
			return domain.TimeSlot{}, iErr
		}
		return domain.TimeSlot{}, err
	}

	ev := events.NewEvent(events.SlotReleased, out)
	ev.PartySize = partySize
	s.publish(ctx, ev)
	return out, nil
}

func (s *Service) logInconsistent(err error) {
	var iErr *domain.InconsistentStateError
	if errors.As(err, &iErr) {
		s.logger.Error("release exceeds booked places", "slot_id", iErr.SlotID, "booked", iErr.Booked, "party_size", iErr.Delta)
	}
}

func occupancyResult(err error) string {
	var (
		capErr *domain.CapacityExceededError
		incErr *domain.InconsistentStateError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &capErr):
		return "capacity_exceeded"
	case errors.As(err, &incErr):
		return "inconsistent"
	case errors.Is(err, domain.ErrSlotNotBookable):
		return "not_bookable"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
