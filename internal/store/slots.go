package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fairway/backend/internal/domain"
)

// SlotFilter narrows List. Zero fields are ignored.
type SlotFilter struct {
	// Course matches every slot that shares at least one course id with it.
	Course        *domain.CourseRef
	From          time.Time
	To            time.Time
	Statuses      []domain.Status
	OnlyAvailable bool
	Limit         int
	Offset        int
}

type SlotRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.TimeSlot, error)
	List(ctx context.Context, filter SlotFilter) ([]domain.TimeSlot, error)
	// FindByCourseAndDateRange returns every slot, cancelled ones included, whose course set
	// intersects ref on a date in [from, to].
	FindByCourseAndDateRange(ctx context.Context, ref domain.CourseRef, from, to time.Time) ([]domain.TimeSlot, error)
	// AdjustOccupancy applies delta to booked_slots in a single capacity-checked statement.
	AdjustOccupancy(ctx context.Context, id uuid.UUID, delta int) (domain.TimeSlot, error)

	// InCourseTransaction serializes writers touching any of the given courses on any of the
	// given dates, then runs fn inside one transaction.
	InCourseTransaction(ctx context.Context, refs []domain.CourseRef, dates []time.Time, fn func(ctx context.Context, tx SlotTx) error) error
}

type SlotTx interface {
	FindByCourseAndDateRange(ctx context.Context, ref domain.CourseRef, from, to time.Time) ([]domain.TimeSlot, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.TimeSlot, error)
	Insert(ctx context.Context, slot domain.TimeSlot) (domain.TimeSlot, error)
	Update(ctx context.Context, slot domain.TimeSlot) (domain.TimeSlot, error)
	// Cancel marks an unbooked slot CANCELLED. It returns ErrHasBookings when the slot holds reservations.
	Cancel(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CourseDirectory is read-only course master data. Lookups are best-effort.
type CourseDirectory interface {
	CourseExists(ctx context.Context, courseID int64) (bool, error)
	Closures(ctx context.Context, courseIDs []int64, from, to time.Time) (domain.ClosureSet, error)
}
