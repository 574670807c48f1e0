package grpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/timestamppb"

	timeslotsv1 "fairway/backend/internal/api/timeslotsv1"
	"fairway/backend/internal/domain"
	"fairway/backend/internal/service/timeslots"
)

// badRequest is a request that could not be decoded into domain values.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, badRequestf("%s must be a UUID", field)
	}
	return id, nil
}

func parseCourse(ref *timeslotsv1.CourseRef) (domain.CourseRef, error) {
	if ref == nil {
		return domain.CourseRef{}, badRequestf("course is required")
	}
	if ref.FrontCourseId != 0 || ref.BackCourseId != 0 {
		if ref.CourseId != 0 {
			return domain.CourseRef{}, badRequestf("course_id cannot be combined with front_course_id/back_course_id")
		}
		return domain.DualCourse(ref.FrontCourseId, ref.BackCourseId), nil
	}
	return domain.SingleCourse(ref.CourseId), nil
}

func parseDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, badRequestf("%s is required", field)
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, badRequestf("%s must be YYYY-MM-DD", field)
	}
	return d, nil
}

func parseOptionalDate(field, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return parseDate(field, raw)
}

func parseClock(field, raw string) (domain.ClockTime, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, badRequestf("%s is required", field)
	}
	c, err := domain.ParseClock(raw)
	if err != nil {
		return 0, badRequestf("%s must be HH:MM", field)
	}
	return c, nil
}

func parseStatus(raw string) (domain.Status, error) {
	st, err := domain.ParseStatus(raw)
	if err != nil {
		return "", badRequestf("%s", err.Error())
	}
	return st, nil
}

func parseRecurrence(r *timeslotsv1.Recurrence) (*domain.RecurringPattern, error) {
	if r == nil {
		return nil, nil
	}
	p := &domain.RecurringPattern{
		Type:      domain.RecurrenceType(strings.ToUpper(strings.TrimSpace(r.Type))),
		Frequency: int(r.Frequency),
	}
	for _, name := range r.DaysOfWeek {
		wd, err := domain.ParseWeekday(name)
		if err != nil {
			return nil, badRequestf("recurrence.days_of_week: %s", err.Error())
		}
		p.DaysOfWeek = append(p.DaysOfWeek, wd)
	}
	if r.EndDate != "" {
		d, err := parseDate("recurrence.end_date", r.EndDate)
		if err != nil {
			return nil, err
		}
		p.EndDate = &d
	}
	if r.MaxOccurrences != nil {
		n := int(*r.MaxOccurrences)
		p.MaxOccurrences = &n
	}
	return p, nil
}

func generationConfig(req *timeslotsv1.GenerateSlotsRequest) (domain.GenerationConfig, error) {
	course, err := parseCourse(req.Course)
	if err != nil {
		return domain.GenerationConfig{}, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return domain.GenerationConfig{}, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return domain.GenerationConfig{}, err
	}

	cfg := domain.GenerationConfig{
		Course:          course,
		StartDate:       start,
		EndDate:         end,
		Pattern:         domain.Pattern(strings.ToUpper(strings.TrimSpace(req.Pattern))),
		IntervalMinutes: int(req.IntervalMinutes),
		BreakMinutes:    int(req.BreakMinutes),
		MaxPlayers:      int(req.MaxPlayers),
		Price:           req.Price,
		ExcludeWeekends: req.ExcludeWeekends,
		ExcludeHolidays: req.ExcludeHolidays,
	}
	if cfg.Pattern != domain.PatternCustomIntervals {
		if cfg.StartTime, err = parseClock("start_time", req.StartTime); err != nil {
			return domain.GenerationConfig{}, err
		}
		if cfg.EndTime, err = parseClock("end_time", req.EndTime); err != nil {
			return domain.GenerationConfig{}, err
		}
	}
	for i, ci := range req.CustomIntervals {
		if ci == nil {
			continue
		}
		s, err := parseClock(fmt.Sprintf("custom_intervals[%d].start_time", i), ci.StartTime)
		if err != nil {
			return domain.GenerationConfig{}, err
		}
		e, err := parseClock(fmt.Sprintf("custom_intervals[%d].end_time", i), ci.EndTime)
		if err != nil {
			return domain.GenerationConfig{}, err
		}
		out := domain.CustomInterval{Start: s, End: e, Price: ci.Price}
		if ci.MaxPlayers != nil {
			n := int(*ci.MaxPlayers)
			out.MaxPlayers = &n
		}
		cfg.CustomIntervals = append(cfg.CustomIntervals, out)
	}
	if cfg.Recurrence, err = parseRecurrence(req.Recurrence); err != nil {
		return domain.GenerationConfig{}, err
	}
	return cfg, nil
}

func slotPatch(req *timeslotsv1.UpdateSlotRequest) (timeslots.SlotPatch, error) {
	var p timeslots.SlotPatch
	if req.Date != nil {
		d, err := parseDate("date", *req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if req.StartTime != nil {
		c, err := parseClock("start_time", *req.StartTime)
		if err != nil {
			return p, err
		}
		p.StartTime = &c
	}
	if req.EndTime != nil {
		c, err := parseClock("end_time", *req.EndTime)
		if err != nil {
			return p, err
		}
		p.EndTime = &c
	}
	if req.BreakMinutes != nil {
		n := int(*req.BreakMinutes)
		p.BreakMinutes = &n
	}
	if req.MaxSlots != nil {
		n := int(*req.MaxSlots)
		p.MaxSlots = &n
	}
	p.Price = req.Price
	if req.Status != nil {
		st, err := parseStatus(*req.Status)
		if err != nil {
			return p, err
		}
		p.Status = &st
	}
	return p, nil
}

func slotAdjustments(req *timeslotsv1.DuplicateSlotRequest) (*timeslots.SlotAdjustments, error) {
	if req.StartTime == nil && req.EndTime == nil && req.BreakMinutes == nil && req.MaxSlots == nil && req.Price == nil {
		return nil, nil
	}
	adj := &timeslots.SlotAdjustments{Price: req.Price}
	if req.StartTime != nil {
		c, err := parseClock("start_time", *req.StartTime)
		if err != nil {
			return nil, err
		}
		adj.StartTime = &c
	}
	if req.EndTime != nil {
		c, err := parseClock("end_time", *req.EndTime)
		if err != nil {
			return nil, err
		}
		adj.EndTime = &c
	}
	if req.BreakMinutes != nil {
		n := int(*req.BreakMinutes)
		adj.BreakMinutes = &n
	}
	if req.MaxSlots != nil {
		n := int(*req.MaxSlots)
		adj.MaxSlots = &n
	}
	return adj, nil
}

func toWireSlot(s domain.TimeSlot) *timeslotsv1.TimeSlot {
	out := &timeslotsv1.TimeSlot{
		CourseId:       s.CourseID,
		FrontCourseId:  s.FrontCourseID,
		BackCourseId:   s.BackCourseID,
		IsDualCourse:   s.Courses().IsDual(),
		Date:           domain.FormatDate(s.Date),
		StartTime:      s.StartTime.String(),
		EndTime:        s.EndTime.String(),
		BreakMinutes:   int32(s.BreakMinutes),
		MaxSlots:       int32(s.MaxSlots),
		BookedSlots:    int32(s.BookedSlots),
		AvailableSlots: int32(max(s.Available(), 0)),
		Price:          s.Price,
		Status:         string(s.Status),
		IsRecurring:    s.IsRecurring,
	}
	if s.ID != uuid.Nil {
		out.Id = s.ID.String()
	}
	if !s.CreatedAt.IsZero() {
		out.CreatedAt = timestamppb.New(s.CreatedAt)
	}
	if !s.UpdatedAt.IsZero() {
		out.UpdatedAt = timestamppb.New(s.UpdatedAt)
	}
	return out
}

func toWireSlots(in []domain.TimeSlot) []*timeslotsv1.TimeSlot {
	out := make([]*timeslotsv1.TimeSlot, 0, len(in))
	for _, s := range in {
		out = append(out, toWireSlot(s))
	}
	return out
}

func toWireConflicts(in []domain.Conflict) []*timeslotsv1.Conflict {
	out := make([]*timeslotsv1.Conflict, 0, len(in))
	for _, c := range in {
		wc := &timeslotsv1.Conflict{
			Type:           string(c.Type),
			Message:        c.Message,
			CandidateIndex: int32(c.CandidateIndex),
			Date:           domain.FormatDate(c.Candidate.Date),
			StartTime:      c.Candidate.StartTime.String(),
			EndTime:        c.Candidate.EndTime.String(),
			ExistingBooked: int32(c.ExistingBooked),
			BookingExists:  c.BookingExists,
			ClosedCourseId: c.ClosedCourse,
			Overridable:    c.Overridable(),
		}
		for _, t := range c.Types() {
			wc.Types = append(wc.Types, string(t))
		}
		if c.ExistingSlotID != uuid.Nil {
			wc.ExistingSlotId = c.ExistingSlotID.String()
		}
		out = append(out, wc)
	}
	return out
}
