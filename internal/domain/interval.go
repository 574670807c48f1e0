package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	MinutesPerDay = 24 * 60
	Noon          = ClockTime(12 * 60)
)

// ClockTime is a local wall-clock time expressed in minutes since midnight.
// 24:00 is representable so a slot may end exactly at midnight.
type ClockTime int

func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return Clock(h, m), nil
}

func (c ClockTime) Valid() bool {
	return c >= 0 && c <= MinutesPerDay
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

// DateOf strips the clock and location from t, keeping the calendar day as seen in t's location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type InvalidIntervalError struct {
	msg string
}

func (e *InvalidIntervalError) Error() string {
	return e.msg
}

func invalidInterval(format string, args ...any) error {
	return &InvalidIntervalError{msg: fmt.Sprintf(format, args...)}
}

// Interval is a half-open [Start, End) range of clock time on a single calendar day.
type Interval struct {
	Date  time.Time
	Start ClockTime
	End   ClockTime
}

func NewInterval(date time.Time, start, end ClockTime) (Interval, error) {
	if !start.Valid() || !end.Valid() {
		return Interval{}, invalidInterval("clock times must be between 00:00 and 24:00")
	}
	if start >= end {
		return Interval{}, invalidInterval("end_time must be after start_time")
	}
	return Interval{Date: DateOf(date), Start: start, End: end}, nil
}

func (i Interval) Minutes() int {
	return int(i.End - i.Start)
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return SameDate(a.Date, b.Date) && a.Start < b.End && b.Start < a.End
}

// CourseRef identifies the course(s) a slot occupies: either a single course or a
// front-nine/back-nine pair forming an 18-hole round.
type CourseRef struct {
	CourseID      int64
	FrontCourseID int64
	BackCourseID  int64
}

func SingleCourse(id int64) CourseRef {
	return CourseRef{CourseID: id}
}

func DualCourse(front, back int64) CourseRef {
	return CourseRef{FrontCourseID: front, BackCourseID: back}
}

func (c CourseRef) IsDual() bool {
	return c.FrontCourseID != 0 || c.BackCourseID != 0
}

func (c CourseRef) Validate() error {
	if c.IsDual() {
		if c.CourseID != 0 {
			return invalidInterval("course_id must be empty for a dual-course slot")
		}
		if c.FrontCourseID <= 0 || c.BackCourseID <= 0 {
			return invalidInterval("front_course_id and back_course_id are required for a dual-course slot")
		}
		if c.FrontCourseID == c.BackCourseID {
			return invalidInterval("front_course_id and back_course_id must differ")
		}
		return nil
	}
	if c.CourseID <= 0 {
		return invalidInterval("course_id is required")
	}
	return nil
}

// IDs returns the distinct course ids in ascending order.
func (c CourseRef) IDs() []int64 {
	if !c.IsDual() {
		if c.CourseID == 0 {
			return nil
		}
		return []int64{c.CourseID}
	}
	ids := []int64{c.FrontCourseID, c.BackCourseID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if ids[0] == ids[1] {
		return ids[:1]
	}
	return ids
}

// Key is a canonical text form of the course set, e.g. "5" or "3+8".
func (c CourseRef) Key() string {
	ids := c.IDs()
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, "+")
}

func (c CourseRef) String() string {
	if c.IsDual() {
		return fmt.Sprintf("%d/%d", c.FrontCourseID, c.BackCourseID)
	}
	return strconv.FormatInt(c.CourseID, 10)
}

// CourseSetsIntersect reports whether a and b share at least one course id.
func CourseSetsIntersect(a, b CourseRef) bool {
	for _, x := range a.IDs() {
		for _, y := range b.IDs() {
			if x == y {
				return true
			}
		}
	}
	return false
}

func sameCourseSet(a, b CourseRef) bool {
	return a.Key() == b.Key()
}
