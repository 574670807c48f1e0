package timeslots

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fairway/backend/internal/domain"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// ConflictError is the expected outcome of a blocked create or update. Callers inspect
// Conflicts to decide whether to force, adjust or abandon.
type ConflictError struct {
	Conflicts []domain.Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		return "slot conflict: " + e.Conflicts[0].Message
	}
	msgs := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Message)
	}
	return fmt.Sprintf("%d slot conflicts: %s", len(e.Conflicts), strings.Join(msgs, "; "))
}

// Overridable reports whether a forced retry could succeed.
func (e *ConflictError) Overridable() bool {
	for _, c := range e.Conflicts {
		if !c.Overridable() {
			return false
		}
	}
	return true
}

type HasBookingsError struct {
	SlotID uuid.UUID
	Booked int
}

func (e *HasBookingsError) Error() string {
	return fmt.Sprintf("slot %s has %d booked places", e.SlotID, e.Booked)
}

// StaleBookingsWarning reports a forced change that moved a slot out from under its
// existing bookings. The change was applied; the bookings need reconciliation.
type StaleBookingsWarning struct {
	SlotID uuid.UUID
	Booked int
}

func (w *StaleBookingsWarning) Error() string {
	return fmt.Sprintf("slot %s was changed with %d booked places left attached", w.SlotID, w.Booked)
}
