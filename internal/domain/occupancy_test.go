package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func openSlot(capacity, booked int) TimeSlot {
	return TimeSlot{ID: uuid.New(), MaxSlots: capacity, BookedSlots: booked, Status: StatusAvailable}
}

func TestReserve_FillsAndMarksBooked(t *testing.T) {
	s := openSlot(4, 1)

	ch, err := Reserve(s, 2)
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if ch.Booked != 3 || ch.Available != 1 || ch.StatusChanged {
		t.Fatalf("unexpected change: %+v", ch)
	}
	s = ch.Apply(s)

	ch, err = Reserve(s, 1)
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if ch.Status != StatusBooked || !ch.StatusChanged || ch.Available != 0 {
		t.Fatalf("unexpected change: %+v", ch)
	}
	s = ch.Apply(s)

	_, err = Reserve(s, 1)
	var capErr *CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("error = %v, want *CapacityExceededError", err)
	}
	if capErr.Available != 0 || capErr.Requested != 1 || capErr.SlotID != s.ID {
		t.Fatalf("unexpected error detail: %+v", capErr)
	}
}

func TestReserve_Rejects(t *testing.T) {
	if _, err := Reserve(openSlot(4, 0), 0); !errors.Is(err, ErrInvalidPartySize) {
		t.Fatalf("error = %v, want ErrInvalidPartySize", err)
	}
	blocked := openSlot(4, 0)
	blocked.Status = StatusBlocked
	if _, err := Reserve(blocked, 1); !errors.Is(err, ErrSlotNotBookable) {
		t.Fatalf("error = %v, want ErrSlotNotBookable", err)
	}
	cancelled := openSlot(4, 0)
	cancelled.Status = StatusCancelled
	if _, err := Reserve(cancelled, 1); !errors.Is(err, ErrSlotNotBookable) {
		t.Fatalf("error = %v, want ErrSlotNotBookable", err)
	}
}

func TestRelease_RevertsBookedStatus(t *testing.T) {
	s := openSlot(4, 4)
	s.Status = StatusBooked

	ch, err := Release(s, 1)
	if err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if ch.Booked != 3 || ch.Status != StatusAvailable || !ch.StatusChanged {
		t.Fatalf("unexpected change: %+v", ch)
	}

	blocked := openSlot(4, 2)
	blocked.Status = StatusBlocked
	ch, err = Release(blocked, 2)
	if err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if ch.Status != StatusBlocked || ch.StatusChanged {
		t.Fatalf("release must not reopen a blocked slot: %+v", ch)
	}
}

func TestRelease_MoreThanBookedIsInconsistent(t *testing.T) {
	_, err := Release(openSlot(4, 1), 2)
	var incErr *InconsistentStateError
	if !errors.As(err, &incErr) {
		t.Fatalf("error = %v, want *InconsistentStateError", err)
	}
	if _, err := Release(openSlot(4, 1), -1); !errors.Is(err, ErrInvalidPartySize) {
		t.Fatalf("error = %v, want ErrInvalidPartySize", err)
	}
}

func TestOccupancy_SequenceKeepsInvariant(t *testing.T) {
	s := openSlot(5, 0)
	ops := []struct {
		reserve bool
		n       int
	}{
		{true, 2}, {true, 3}, {true, 1}, {false, 4}, {true, 2}, {false, 6}, {false, 1}, {true, 3},
	}
	for i, op := range ops {
		var (
			ch  OccupancyChange
			err error
		)
		if op.reserve {
			ch, err = Reserve(s, op.n)
		} else {
			ch, err = Release(s, op.n)
		}
		if err == nil {
			s = ch.Apply(s)
		}
		if s.BookedSlots < 0 || s.BookedSlots > s.MaxSlots {
			t.Fatalf("step %d: booked_slots = %d out of range", i, s.BookedSlots)
		}
		if s.Available() != s.MaxSlots-s.BookedSlots {
			t.Fatalf("step %d: available mismatch", i)
		}
		if (s.BookedSlots == s.MaxSlots) != (s.Status == StatusBooked) {
			t.Fatalf("step %d: status %s with %d/%d booked", i, s.Status, s.BookedSlots, s.MaxSlots)
		}
	}
	if s.BookedSlots != 5 {
		t.Fatalf("final booked_slots = %d, want 5", s.BookedSlots)
	}
}
