package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type TimeSlot struct {
	bun.BaseModel `bun:"table:time_slots"`

	ID               uuid.UUID         `bun:"id,pk,type:uuid"`
	CourseID         int64             `bun:"course_id,nullzero"`
	FrontCourseID    int64             `bun:"front_course_id,nullzero"`
	BackCourseID     int64             `bun:"back_course_id,nullzero"`
	IsDualCourse     bool              `bun:"is_dual_course,notnull"`
	CourseKey        string            `bun:"course_key,notnull"`
	CourseIDs        []int64           `bun:"course_ids,array,notnull"`
	Date             time.Time         `bun:"slot_date,type:date,notnull"`
	StartTime        ClockTime         `bun:"start_minute,notnull"`
	EndTime          ClockTime         `bun:"end_minute,notnull"`
	BreakMinutes     int               `bun:"break_minutes,notnull"`
	MaxSlots         int               `bun:"max_slots,notnull"`
	BookedSlots      int               `bun:"booked_slots,notnull"`
	Price            int64             `bun:"price,notnull"`
	Status           Status            `bun:"status,notnull"`
	IsRecurring      bool              `bun:"is_recurring,notnull"`
	RecurringPattern *RecurringPattern `bun:"recurring_pattern,type:jsonb"`
	CreatedAt        time.Time         `bun:"created_at,notnull"`
	UpdatedAt        time.Time         `bun:"updated_at,notnull"`
}

func (s *TimeSlot) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	s.syncDerived()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

func (s *TimeSlot) syncDerived() {
	ref := s.Courses()
	s.IsDualCourse = ref.IsDual()
	s.CourseKey = ref.Key()
	s.CourseIDs = ref.IDs()
	s.Date = DateOf(s.Date)
	if s.Status == "" {
		s.Status = StatusAvailable
	}
}

func (s TimeSlot) Courses() CourseRef {
	if s.FrontCourseID != 0 || s.BackCourseID != 0 {
		return DualCourse(s.FrontCourseID, s.BackCourseID)
	}
	return SingleCourse(s.CourseID)
}

func (s *TimeSlot) SetCourses(ref CourseRef) {
	s.CourseID = ref.CourseID
	s.FrontCourseID = ref.FrontCourseID
	s.BackCourseID = ref.BackCourseID
	s.IsDualCourse = ref.IsDual()
	s.CourseKey = ref.Key()
	s.CourseIDs = ref.IDs()
}

func (s TimeSlot) Interval() Interval {
	return Interval{Date: DateOf(s.Date), Start: s.StartTime, End: s.EndTime}
}

// Available is always derived from capacity and bookings; it is never stored.
func (s TimeSlot) Available() int {
	return s.MaxSlots - s.BookedSlots
}

func (s TimeSlot) IsFull() bool {
	return s.BookedSlots >= s.MaxSlots
}

// DurationMinutes is the playing time: the slot length minus the break between nines.
func (s TimeSlot) DurationMinutes() int {
	d := int(s.EndTime - s.StartTime)
	if s.Courses().IsDual() {
		d -= s.BreakMinutes
	}
	return d
}

// Validate checks the structural invariants of a slot. It performs no I/O.
func (s TimeSlot) Validate() error {
	if err := s.Courses().Validate(); err != nil {
		return err
	}
	if _, err := NewInterval(s.Date, s.StartTime, s.EndTime); err != nil {
		return err
	}
	if s.BreakMinutes < 0 {
		return invalidInterval("break_time must not be negative")
	}
	if s.BreakMinutes > 0 {
		if !s.Courses().IsDual() {
			return invalidInterval("break_time only applies to dual-course slots")
		}
		if s.BreakMinutes >= int(s.EndTime-s.StartTime) {
			return invalidInterval("break_time must be shorter than the slot")
		}
	}
	if s.MaxSlots <= 0 {
		return invalidInterval("max_slots must be positive")
	}
	if s.BookedSlots < 0 || s.BookedSlots > s.MaxSlots {
		return invalidInterval("booked_slots must be between 0 and max_slots")
	}
	if s.Price < 0 {
		return invalidInterval("price must not be negative")
	}
	return nil
}

// Draft returns a copy of s reset to an unsaved, unbooked slot.
func (s TimeSlot) Draft() TimeSlot {
	d := s
	d.ID = uuid.Nil
	d.BookedSlots = 0
	d.Status = StatusAvailable
	d.CreatedAt = time.Time{}
	d.UpdatedAt = time.Time{}
	if s.RecurringPattern != nil {
		p := *s.RecurringPattern
		p.DaysOfWeek = append([]time.Weekday(nil), s.RecurringPattern.DaysOfWeek...)
		d.RecurringPattern = &p
	}
	d.CourseIDs = append([]int64(nil), s.CourseIDs...)
	return d
}
