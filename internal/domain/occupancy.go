package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidPartySize = errors.New("party_size must be positive")
	ErrSlotNotBookable  = errors.New("slot is not open for booking")
)

type CapacityExceededError struct {
	SlotID    uuid.UUID
	Requested int
	Available int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("slot %s has %d places left, %d requested", e.SlotID, e.Available, e.Requested)
}

// InconsistentStateError means persisted data already violates an occupancy invariant.
// It is never corrected automatically.
type InconsistentStateError struct {
	SlotID uuid.UUID
	Booked int
	Delta  int
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("slot %s: cannot release %d of %d booked places", e.SlotID, e.Delta, e.Booked)
}

type OccupancyChange struct {
	Booked    int
	Available int
	Status    Status
	// StatusChanged is set when the caller must persist Status.
	StatusChanged bool
}

// Reserve computes the occupancy after adding partySize players.
func Reserve(slot TimeSlot, partySize int) (OccupancyChange, error) {
	if partySize <= 0 {
		return OccupancyChange{}, ErrInvalidPartySize
	}
	if !slot.Status.Bookable() {
		return OccupancyChange{}, ErrSlotNotBookable
	}
	if slot.BookedSlots+partySize > slot.MaxSlots {
		return OccupancyChange{}, &CapacityExceededError{
			SlotID:    slot.ID,
			Requested: partySize,
			Available: max(slot.Available(), 0),
		}
	}

	booked := slot.BookedSlots + partySize
	ch := OccupancyChange{
		Booked:    booked,
		Available: slot.MaxSlots - booked,
		Status:    slot.Status,
	}
	if booked == slot.MaxSlots && slot.Status != StatusBooked {
		ch.Status = StatusBooked
		ch.StatusChanged = true
	}
	return ch, nil
}

// Release computes the occupancy after removing partySize players.
func Release(slot TimeSlot, partySize int) (OccupancyChange, error) {
	if partySize <= 0 {
		return OccupancyChange{}, ErrInvalidPartySize
	}
	if partySize > slot.BookedSlots {
		return OccupancyChange{}, &InconsistentStateError{SlotID: slot.ID, Booked: slot.BookedSlots, Delta: partySize}
	}

	booked := slot.BookedSlots - partySize
	ch := OccupancyChange{
		Booked:    booked,
		Available: slot.MaxSlots - booked,
		Status:    slot.Status,
	}
	if slot.Status == StatusBooked && booked < slot.MaxSlots {
		ch.Status = StatusAvailable
		ch.StatusChanged = true
	}
	return ch, nil
}

// Apply copies the change onto slot.
func (ch OccupancyChange) Apply(slot TimeSlot) TimeSlot {
	slot.BookedSlots = ch.Booked
	slot.Status = ch.Status
	return slot
}
