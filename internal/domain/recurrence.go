package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "DAILY"
	RecurrenceWeekly  RecurrenceType = "WEEKLY"
	RecurrenceMonthly RecurrenceType = "MONTHLY"
)

// RecurringPattern is kept on generated slots for provenance. It is consumed once,
// at generation time, and never re-evaluated afterwards.
type RecurringPattern struct {
	Type           RecurrenceType `json:"type"`
	Frequency      int            `json:"frequency"`
	DaysOfWeek     []time.Weekday `json:"days_of_week,omitempty"`
	EndDate        *time.Time     `json:"end_date,omitempty"`
	MaxOccurrences *int           `json:"max_occurrences,omitempty"`
}

// ExpandDates enumerates the calendar days in [start, end] selected by p.
// A nil pattern selects every day.
func ExpandDates(start, end time.Time, p *RecurringPattern) ([]time.Time, error) {
	return expandDates(start, end, p, nil)
}

// expandDates is ExpandDates restricted to days accepted by keep. Rejected days do not
// count towards MaxOccurrences. A nil keep accepts every day.
func expandDates(start, end time.Time, p *RecurringPattern, keep func(time.Time) bool) ([]time.Time, error) {
	if keep == nil {
		keep = func(time.Time) bool { return true }
	}
	start = DateOf(start)
	end = DateOf(end)
	if start.After(end) {
		return nil, invalidGenerationConfig("start_date must not be after end_date")
	}

	if p == nil {
		out := make([]time.Time, 0, daysBetween(start, end)+1)
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if keep(d) {
				out = append(out, d)
			}
		}
		return out, nil
	}

	freq := p.Frequency
	if freq == 0 {
		freq = 1
	}
	if freq < 1 {
		return nil, invalidGenerationConfig("recurrence frequency must be at least 1")
	}
	if p.MaxOccurrences != nil && *p.MaxOccurrences < 1 {
		return nil, invalidGenerationConfig("max_occurrences must be at least 1")
	}
	if p.EndDate != nil {
		until := DateOf(*p.EndDate)
		if until.Before(start) {
			return nil, invalidGenerationConfig("recurrence end_date must not be before start_date")
		}
		if until.Before(end) {
			end = until
		}
	}

	var match func(d time.Time) bool
	switch p.Type {
	case RecurrenceDaily:
		match = func(d time.Time) bool {
			return daysBetween(start, d)%freq == 0
		}
	case RecurrenceWeekly:
		weekdays, err := normalizeWeekdays(p.DaysOfWeek, start.Weekday())
		if err != nil {
			return nil, err
		}
		firstMonday := mondayOf(start)
		match = func(d time.Time) bool {
			weekIndex := daysBetween(firstMonday, mondayOf(d)) / 7
			if weekIndex%freq != 0 {
				return false
			}
			_, ok := weekdays[d.Weekday()]
			return ok
		}
	case RecurrenceMonthly:
		match = func(d time.Time) bool {
			monthIndex := (d.Year()-start.Year())*12 + int(d.Month()-start.Month())
			return monthIndex%freq == 0 && d.Day() == start.Day()
		}
	default:
		return nil, invalidGenerationConfig("unsupported recurrence type")
	}

	out := make([]time.Time, 0, 16)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !match(d) || !keep(d) {
			continue
		}
		if p.MaxOccurrences != nil && len(out) >= *p.MaxOccurrences {
			break
		}
		out = append(out, d)
	}
	return out, nil
}

func normalizeWeekdays(days []time.Weekday, fallback time.Weekday) (map[time.Weekday]struct{}, error) {
	if len(days) == 0 {
		days = []time.Weekday{fallback}
	}
	set := make(map[time.Weekday]struct{}, len(days))
	for _, wd := range days {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, invalidGenerationConfig("invalid weekday")
		}
		set[wd] = struct{}{}
	}
	return set, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekday accepts English day names and their three-letter prefixes, in any case.
func ParseWeekday(name string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if len(key) > 3 {
		key = key[:3]
	}
	wd, ok := weekdayNames[key]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}

// SortedWeekdays returns the distinct weekdays Monday-first, the order admins read a week in.
func SortedWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return weekdayOffsetFromMonday(out[i]) < weekdayOffsetFromMonday(out[j])
	})
	return out
}

func mondayOf(t time.Time) time.Time {
	d := DateOf(t)
	return d.AddDate(0, 0, -weekdayOffsetFromMonday(d.Weekday()))
}

func weekdayOffsetFromMonday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

func daysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)) / (24 * time.Hour))
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
