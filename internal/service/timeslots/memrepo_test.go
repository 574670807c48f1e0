package timeslots

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fairway/backend/internal/domain"
	"fairway/backend/internal/store"
)

// memRepo is an in-memory SlotRepository. One mutex stands in for the course-day locks,
// and a failed transaction restores the snapshot taken when it started.
type memRepo struct {
	mu    sync.Mutex
	slots map[uuid.UUID]domain.TimeSlot
	// unavailable makes the next n InCourseTransaction calls fail with store.ErrUnavailable.
	unavailable int
	txCalls     int
}

func newMemRepo(seed ...domain.TimeSlot) *memRepo {
	r := &memRepo{slots: make(map[uuid.UUID]domain.TimeSlot)}
	for _, s := range seed {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		s.SetCourses(s.Courses())
		r.slots[s.ID] = s
	}
	return r
}

func (r *memRepo) Get(ctx context.Context, id uuid.UUID) (domain.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return domain.TimeSlot{}, store.ErrNotFound
	}
	return s, nil
}

func (r *memRepo) List(ctx context.Context, filter store.SlotFilter) ([]domain.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TimeSlot
	for _, s := range r.slots {
		if filter.Course != nil && !domain.CourseSetsIntersect(*filter.Course, s.Courses()) {
			continue
		}
		if !filter.From.IsZero() && s.Date.Before(domain.DateOf(filter.From)) {
			continue
		}
		if !filter.To.IsZero() && s.Date.After(domain.DateOf(filter.To)) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, s.Status) {
			continue
		}
		if filter.OnlyAvailable && (!s.Status.Bookable() || s.IsFull()) {
			continue
		}
		out = append(out, s)
	}
	sortSlots(out)
	return out, nil
}

func (r *memRepo) FindByCourseAndDateRange(ctx context.Context, ref domain.CourseRef, from, to time.Time) ([]domain.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(ref, from, to), nil
}

func (r *memRepo) find(ref domain.CourseRef, from, to time.Time) []domain.TimeSlot {
	from, to = domain.DateOf(from), domain.DateOf(to)
	var out []domain.TimeSlot
	for _, s := range r.slots {
		if !domain.CourseSetsIntersect(ref, s.Courses()) {
			continue
		}
		if s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		out = append(out, s)
	}
	sortSlots(out)
	return out
}

func (r *memRepo) AdjustOccupancy(ctx context.Context, id uuid.UUID, delta int) (domain.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return domain.TimeSlot{}, store.ErrNotFound
	}
	booked := s.BookedSlots + delta
	switch {
	case delta > 0 && !s.Status.Bookable():
		return s, store.ErrNotBookable
	case booked > s.MaxSlots:
		return s, store.ErrCapacityExceeded
	case booked < 0:
		return s, store.ErrInsufficientBookings
	}
	s.BookedSlots = booked
	if delta > 0 && booked >= s.MaxSlots {
		s.Status = domain.StatusBooked
	} else if s.Status == domain.StatusBooked && booked < s.MaxSlots {
		s.Status = domain.StatusAvailable
	}
	r.slots[id] = s
	return s, nil
}

func (r *memRepo) InCourseTransaction(ctx context.Context, refs []domain.CourseRef, dates []time.Time, fn func(ctx context.Context, tx store.SlotTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txCalls++
	if r.unavailable > 0 {
		r.unavailable--
		return store.ErrUnavailable
	}

	snapshot := make(map[uuid.UUID]domain.TimeSlot, len(r.slots))
	for k, v := range r.slots {
		snapshot[k] = v
	}
	if err := fn(ctx, memTx{r}); err != nil {
		r.slots = snapshot
		return err
	}
	return nil
}

func (r *memRepo) all() []domain.TimeSlot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TimeSlot, 0, len(r.slots))
	for _, s := range r.slots {
		out = append(out, s)
	}
	sortSlots(out)
	return out
}

// memTx runs with memRepo.mu already held.
type memTx struct {
	r *memRepo
}

func (t memTx) FindByCourseAndDateRange(ctx context.Context, ref domain.CourseRef, from, to time.Time) ([]domain.TimeSlot, error) {
	return t.r.find(ref, from, to), nil
}

func (t memTx) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.TimeSlot, error) {
	s, ok := t.r.slots[id]
	if !ok {
		return domain.TimeSlot{}, store.ErrNotFound
	}
	return s, nil
}

func (t memTx) Insert(ctx context.Context, slot domain.TimeSlot) (domain.TimeSlot, error) {
	if slot.ID != uuid.Nil {
		if existing, ok := t.r.slots[slot.ID]; ok {
			if existing.Courses().Key() != slot.Courses().Key() || !domain.SameDate(existing.Date, slot.Date) ||
				existing.StartTime != slot.StartTime || existing.EndTime != slot.EndTime ||
				existing.MaxSlots != slot.MaxSlots || existing.Price != slot.Price {
				return domain.TimeSlot{}, store.ErrIdempotencyConflict
			}
			return existing, nil
		}
	}
	slot.SetCourses(slot.Courses())
	for _, ex := range t.r.slots {
		if ex.Status == domain.StatusCancelled || ex.CourseKey != slot.CourseKey || !domain.SameDate(ex.Date, slot.Date) {
			continue
		}
		if ex.StartTime == slot.StartTime && ex.EndTime == slot.EndTime {
			return domain.TimeSlot{}, store.ErrDuplicateSlot
		}
		if domain.Overlaps(ex.Interval(), slot.Interval()) {
			return domain.TimeSlot{}, store.ErrConflict
		}
	}
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	now := time.Now().UTC()
	slot.CreatedAt, slot.UpdatedAt = now, now
	t.r.slots[slot.ID] = slot
	return slot, nil
}

func (t memTx) Update(ctx context.Context, slot domain.TimeSlot) (domain.TimeSlot, error) {
	cur, ok := t.r.slots[slot.ID]
	if !ok {
		return domain.TimeSlot{}, store.ErrNotFound
	}
	slot.BookedSlots = cur.BookedSlots
	slot.CreatedAt = cur.CreatedAt
	slot.UpdatedAt = time.Now().UTC()
	t.r.slots[slot.ID] = slot
	return slot, nil
}

func (t memTx) Cancel(ctx context.Context, id uuid.UUID) error {
	s, ok := t.r.slots[id]
	if !ok {
		return store.ErrNotFound
	}
	if s.BookedSlots > 0 {
		return store.ErrHasBookings
	}
	s.Status = domain.StatusCancelled
	t.r.slots[id] = s
	return nil
}

func (t memTx) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.r.slots[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.r.slots, id)
	return nil
}

func sortSlots(s []domain.TimeSlot) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].Date.Equal(s[j].Date) {
			return s[i].Date.Before(s[j].Date)
		}
		if s[i].StartTime != s[j].StartTime {
			return s[i].StartTime < s[j].StartTime
		}
		return s[i].CourseKey < s[j].CourseKey
	})
}

func containsStatus(list []domain.Status, st domain.Status) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}
