package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ConflictType string

const (
	ConflictOverlap       ConflictType = "OVERLAP"
	ConflictDuplicate     ConflictType = "DUPLICATE"
	ConflictCourseClosed  ConflictType = "COURSE_CLOSED"
	ConflictBookingExists ConflictType = "BOOKING_EXISTS"
)

// Conflict describes why a candidate slot cannot be created cleanly. It is a value,
// returned as data, never persisted.
type Conflict struct {
	Type    ConflictType
	Message string
	// CandidateIndex is the position of the offending candidate in the input list.
	CandidateIndex int
	Candidate      TimeSlot
	// ExistingSlotID is set for OVERLAP and DUPLICATE conflicts.
	ExistingSlotID uuid.UUID
	ExistingBooked int
	// BookingExists marks a conflict against a slot that already holds reservations.
	// Such conflicts cannot be forced through.
	BookingExists bool
	ClosedCourse  int64
}

// Types lists every conflict kind this conflict carries, including BOOKING_EXISTS.
func (c Conflict) Types() []ConflictType {
	if c.BookingExists && c.Type != ConflictBookingExists {
		return []ConflictType{c.Type, ConflictBookingExists}
	}
	return []ConflictType{c.Type}
}

// Overridable reports whether a forced create may proceed despite this conflict.
func (c Conflict) Overridable() bool {
	return !c.BookingExists
}

// ClosureSet records course closures by course id and calendar day. A nil set means
// course status is unknown and closure checks are skipped.
type ClosureSet map[closureKey]string

type closureKey struct {
	courseID int64
	date     string
}

func (c ClosureSet) Close(courseID int64, date time.Time, reason string) {
	c[closureKey{courseID: courseID, date: FormatDate(DateOf(date))}] = reason
}

func (c ClosureSet) Closed(courseID int64, date time.Time) (string, bool) {
	if c == nil {
		return "", false
	}
	reason, ok := c[closureKey{courseID: courseID, date: FormatDate(DateOf(date))}]
	return reason, ok
}

// FindConflicts compares every candidate against the existing slots and the known course
// closures. Cancelled existing slots never conflict. The result is ordered by candidate,
// then by the order of existing. It performs no mutation.
func FindConflicts(candidates, existing []TimeSlot, closures ClosureSet) []Conflict {
	var out []Conflict
	for i, cand := range candidates {
		ref := cand.Courses()
		for _, id := range ref.IDs() {
			if reason, closed := closures.Closed(id, cand.Date); closed {
				msg := fmt.Sprintf("course %d is closed on %s", id, FormatDate(cand.Date))
				if reason != "" {
					msg += ": " + reason
				}
				out = append(out, Conflict{
					Type:           ConflictCourseClosed,
					Message:        msg,
					CandidateIndex: i,
					Candidate:      cand,
					ClosedCourse:   id,
				})
			}
		}

		ci := cand.Interval()
		for _, ex := range existing {
			if ex.Status == StatusCancelled {
				continue
			}
			if cand.ID != uuid.Nil && cand.ID == ex.ID {
				continue
			}
			if !CourseSetsIntersect(ref, ex.Courses()) {
				continue
			}
			ei := ex.Interval()
			if !Overlaps(ci, ei) {
				continue
			}

			c := Conflict{
				Type:           ConflictOverlap,
				CandidateIndex: i,
				Candidate:      cand,
				ExistingSlotID: ex.ID,
				ExistingBooked: ex.BookedSlots,
				BookingExists:  ex.BookedSlots > 0,
			}
			if sameCourseSet(ref, ex.Courses()) && ci.Start == ei.Start && ci.End == ei.End {
				c.Type = ConflictDuplicate
				c.Message = fmt.Sprintf("slot %s-%s on %s already exists for course %s",
					ei.Start, ei.End, FormatDate(ei.Date), ex.Courses())
			} else {
				c.Message = fmt.Sprintf("%s-%s overlaps existing slot %s-%s on %s for course %s",
					ci.Start, ci.End, ei.Start, ei.End, FormatDate(ei.Date), ex.Courses())
			}
			if c.BookingExists {
				c.Message += fmt.Sprintf(" (%d booked)", ex.BookedSlots)
			}
			out = append(out, c)
		}
	}
	return out
}

// GroupByCandidate indexes conflicts by CandidateIndex.
func GroupByCandidate(conflicts []Conflict) map[int][]Conflict {
	out := make(map[int][]Conflict, len(conflicts))
	for _, c := range conflicts {
		out[c.CandidateIndex] = append(out[c.CandidateIndex], c)
	}
	return out
}
