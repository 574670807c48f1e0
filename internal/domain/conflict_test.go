package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func existingSlot(t *testing.T, ref CourseRef, start, end ClockTime, booked int) TimeSlot {
	t.Helper()
	s := TimeSlot{
		ID:          uuid.New(),
		Date:        Date(2024, 6, 1),
		StartTime:   start,
		EndTime:     end,
		MaxSlots:    4,
		BookedSlots: booked,
		Status:      StatusAvailable,
	}
	s.SetCourses(ref)
	return s
}

func candidateSlot(ref CourseRef, start, end ClockTime) TimeSlot {
	s := TimeSlot{
		Date:      Date(2024, 6, 1),
		StartTime: start,
		EndTime:   end,
		MaxSlots:  4,
		Status:    StatusAvailable,
	}
	s.SetCourses(ref)
	return s
}

func TestFindConflicts_OverlapWithBookedSlot(t *testing.T) {
	ex := existingSlot(t, SingleCourse(5), Clock(9, 0), Clock(10, 0), 2)
	cand := candidateSlot(SingleCourse(5), Clock(9, 30), Clock(10, 30))

	got := FindConflicts([]TimeSlot{cand}, []TimeSlot{ex}, nil)
	if len(got) != 1 {
		t.Fatalf("len(conflicts) = %d, want 1", len(got))
	}
	c := got[0]
	if c.Type != ConflictOverlap {
		t.Fatalf("type = %s, want OVERLAP", c.Type)
	}
	if c.ExistingSlotID != ex.ID || c.ExistingBooked != 2 {
		t.Fatalf("unexpected conflict: %+v", c)
	}
	if !c.BookingExists || c.Overridable() {
		t.Fatalf("conflict against a booked slot must not be overridable")
	}
	if types := c.Types(); len(types) != 2 || types[1] != ConflictBookingExists {
		t.Fatalf("Types() = %v", types)
	}
	if !strings.Contains(c.Message, "(2 booked)") {
		t.Fatalf("message = %q", c.Message)
	}

	other := candidateSlot(SingleCourse(7), Clock(9, 30), Clock(10, 30))
	if got := FindConflicts([]TimeSlot{other}, []TimeSlot{ex}, nil); len(got) != 0 {
		t.Fatalf("expected no conflicts on another course, got %+v", got)
	}
}

func TestFindConflicts_Duplicate(t *testing.T) {
	ex := existingSlot(t, DualCourse(3, 8), Clock(7, 0), Clock(11, 0), 0)
	cand := candidateSlot(DualCourse(8, 3), Clock(7, 0), Clock(11, 0))

	got := FindConflicts([]TimeSlot{cand}, []TimeSlot{ex}, nil)
	if len(got) != 1 || got[0].Type != ConflictDuplicate {
		t.Fatalf("conflicts = %+v, want one DUPLICATE", got)
	}
	if !got[0].Overridable() {
		t.Fatalf("duplicate of an unbooked slot must be overridable")
	}
}

func TestFindConflicts_DualCourseSharesOneNine(t *testing.T) {
	ex := existingSlot(t, SingleCourse(3), Clock(8, 0), Clock(9, 0), 0)
	cand := candidateSlot(DualCourse(3, 8), Clock(7, 0), Clock(11, 0))

	got := FindConflicts([]TimeSlot{cand}, []TimeSlot{ex}, nil)
	if len(got) != 1 || got[0].Type != ConflictOverlap {
		t.Fatalf("conflicts = %+v, want one OVERLAP", got)
	}
}

func TestFindConflicts_IgnoresCancelledTouchingAndSelf(t *testing.T) {
	cancelled := existingSlot(t, SingleCourse(5), Clock(9, 0), Clock(10, 0), 0)
	cancelled.Status = StatusCancelled
	touching := existingSlot(t, SingleCourse(5), Clock(10, 0), Clock(11, 0), 1)
	self := existingSlot(t, SingleCourse(5), Clock(9, 0), Clock(10, 0), 0)

	cand := candidateSlot(SingleCourse(5), Clock(9, 0), Clock(10, 0))
	cand.ID = self.ID

	got := FindConflicts([]TimeSlot{cand}, []TimeSlot{cancelled, touching, self}, nil)
	if len(got) != 0 {
		t.Fatalf("expected no conflicts, got %+v", got)
	}
}

func TestFindConflicts_CourseClosed(t *testing.T) {
	closures := ClosureSet{}
	closures.Close(8, Date(2024, 6, 1), "aeration")

	cand := candidateSlot(DualCourse(3, 8), Clock(7, 0), Clock(11, 0))
	got := FindConflicts([]TimeSlot{cand}, nil, closures)
	if len(got) != 1 {
		t.Fatalf("len(conflicts) = %d, want 1", len(got))
	}
	if got[0].Type != ConflictCourseClosed || got[0].ClosedCourse != 8 {
		t.Fatalf("unexpected conflict: %+v", got[0])
	}
	if !strings.HasSuffix(got[0].Message, ": aeration") {
		t.Fatalf("message = %q", got[0].Message)
	}

	next := candidateSlot(DualCourse(3, 8), Clock(7, 0), Clock(11, 0))
	next.Date = Date(2024, 6, 2)
	if got := FindConflicts([]TimeSlot{next}, nil, closures); len(got) != 0 {
		t.Fatalf("expected no conflicts the day after, got %+v", got)
	}
}

func TestFindConflicts_OrderAndGrouping(t *testing.T) {
	a := existingSlot(t, SingleCourse(5), Clock(9, 0), Clock(10, 0), 0)
	b := existingSlot(t, SingleCourse(5), Clock(10, 0), Clock(11, 0), 0)

	cands := []TimeSlot{
		candidateSlot(SingleCourse(5), Clock(6, 0), Clock(7, 0)),
		candidateSlot(SingleCourse(5), Clock(9, 30), Clock(10, 30)),
		candidateSlot(SingleCourse(5), Clock(10, 0), Clock(11, 0)),
	}
	got := FindConflicts(cands, []TimeSlot{a, b}, nil)
	if len(got) != 3 {
		t.Fatalf("len(conflicts) = %d, want 3", len(got))
	}
	if got[0].CandidateIndex != 1 || got[0].ExistingSlotID != a.ID {
		t.Fatalf("first conflict = %+v", got[0])
	}
	if got[1].CandidateIndex != 1 || got[1].ExistingSlotID != b.ID {
		t.Fatalf("second conflict = %+v", got[1])
	}
	if got[2].CandidateIndex != 2 || got[2].Type != ConflictDuplicate {
		t.Fatalf("third conflict = %+v", got[2])
	}

	grouped := GroupByCandidate(got)
	if len(grouped[0]) != 0 || len(grouped[1]) != 2 || len(grouped[2]) != 1 {
		t.Fatalf("grouped = %+v", grouped)
	}
}
