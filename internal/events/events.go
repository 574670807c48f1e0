package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fairway/backend/internal/domain"
)

type Type string

const (
	SlotCreated  Type = "timeslot.created"
	SlotUpdated  Type = "timeslot.updated"
	SlotDeleted  Type = "timeslot.deleted"
	SlotReserved Type = "timeslot.reserved"
	SlotReleased Type = "timeslot.released"
)

type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Slot       SlotView  `json:"slot"`
	// PartySize is set for reserve and release events.
	PartySize int `json:"party_size,omitempty"`
}

type SlotView struct {
	ID            uuid.UUID     `json:"id"`
	CourseID      int64         `json:"course_id,omitempty"`
	FrontCourseID int64         `json:"front_course_id,omitempty"`
	BackCourseID  int64         `json:"back_course_id,omitempty"`
	Date          string        `json:"date"`
	StartTime     string        `json:"start_time"`
	EndTime       string        `json:"end_time"`
	MaxSlots      int           `json:"max_slots"`
	BookedSlots   int           `json:"booked_slots"`
	Status        domain.Status `json:"status"`
}

func NewEvent(t Type, slot domain.TimeSlot) Event {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Event{
		ID:         id,
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Slot: SlotView{
			ID:            slot.ID,
			CourseID:      slot.CourseID,
			FrontCourseID: slot.FrontCourseID,
			BackCourseID:  slot.BackCourseID,
			Date:          domain.FormatDate(slot.Date),
			StartTime:     slot.StartTime.String(),
			EndTime:       slot.EndTime.String(),
			MaxSlots:      slot.MaxSlots,
			BookedSlots:   slot.BookedSlots,
			Status:        slot.Status,
		},
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Noop struct{}

func (Noop) Publish(ctx context.Context, ev Event) error { return nil }
