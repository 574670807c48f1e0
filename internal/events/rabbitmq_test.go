package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"fairway/backend/internal/domain"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestRabbitPublisher_RoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := &RabbitPublisher{ch: ch, exchange: "fairway.timeslots"}

	slot := domain.TimeSlot{
		ID:          uuid.MustParse("00000000-0000-0000-0000-000000000042"),
		Date:        domain.Date(2024, 6, 1),
		StartTime:   domain.Clock(9, 0),
		EndTime:     domain.Clock(10, 0),
		MaxSlots:    4,
		BookedSlots: 4,
		Status:      domain.StatusBooked,
	}
	slot.SetCourses(domain.SingleCourse(5))

	ev := NewEvent(SlotReserved, slot)
	ev.PartySize = 2
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	if ch.exchange != "fairway.timeslots" || ch.key != "timeslot.reserved" {
		t.Fatalf("published to %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.ContentType != "application/json" || ch.msg.MessageId != ev.ID.String() {
		t.Fatalf("unexpected publishing: %+v", ch.msg)
	}

	var got Event
	if err := json.Unmarshal(ch.msg.Body, &got); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if got.Slot.StartTime != "09:00" || got.Slot.Date != "2024-06-01" || got.PartySize != 2 || got.Slot.CourseID != 5 {
		t.Fatalf("body = %+v", got)
	}
}
