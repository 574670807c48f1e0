package domain

import (
	"fmt"
	"sort"
	"time"
)

type Pattern string

const (
	PatternHourly          Pattern = "HOURLY"
	PatternCustomIntervals Pattern = "CUSTOM_INTERVALS"
	PatternAMPM            Pattern = "AM_PM"
	PatternPeakHours       Pattern = "PEAK_HOURS"
)

const (
	DefaultIntervalMinutes   = 60
	DefaultMaxGenerationDays = 366
)

type InvalidGenerationConfigError struct {
	msg string
}

func (e *InvalidGenerationConfigError) Error() string {
	return e.msg
}

func invalidGenerationConfig(format string, args ...any) error {
	return &InvalidGenerationConfigError{msg: fmt.Sprintf(format, args...)}
}

type CustomInterval struct {
	Start      ClockTime
	End        ClockTime
	MaxPlayers *int
	Price      *int64
}

type GenerationConfig struct {
	Course          CourseRef
	StartDate       time.Time
	EndDate         time.Time
	Pattern         Pattern
	StartTime       ClockTime
	EndTime         ClockTime
	IntervalMinutes int
	BreakMinutes    int
	MaxPlayers      int
	Price           int64
	ExcludeWeekends bool
	ExcludeHolidays bool
	CustomIntervals []CustomInterval
	Recurrence      *RecurringPattern
	// MaxDays bounds the inclusive date range; zero means DefaultMaxGenerationDays.
	MaxDays int
}

// PeakWindow is a collaborator-supplied band of high-demand tee times.
// An empty Weekdays list applies the window to every day.
type PeakWindow struct {
	Start    ClockTime
	End      ClockTime
	Weekdays []time.Weekday
}

func (w PeakWindow) AppliesOn(d time.Time) bool {
	if len(w.Weekdays) == 0 {
		return true
	}
	for _, wd := range w.Weekdays {
		if wd == d.Weekday() {
			return true
		}
	}
	return false
}

type HolidaySet map[string]struct{}

func NewHolidaySet(dates ...time.Time) HolidaySet {
	hs := make(HolidaySet, len(dates))
	for _, d := range dates {
		hs.Add(d)
	}
	return hs
}

func (h HolidaySet) Add(d time.Time) {
	h[FormatDate(DateOf(d))] = struct{}{}
}

func (h HolidaySet) Contains(d time.Time) bool {
	if h == nil {
		return false
	}
	_, ok := h[FormatDate(DateOf(d))]
	return ok
}

// Calendar carries the externally supplied inputs the generator needs. The zero
// value excludes no holidays and defines no peak windows.
type Calendar struct {
	Holidays    HolidaySet
	PeakWindows []PeakWindow
}

func (c GenerationConfig) interval() int {
	if c.IntervalMinutes == 0 {
		return DefaultIntervalMinutes
	}
	return c.IntervalMinutes
}

func (c GenerationConfig) Validate() error {
	if err := c.Course.Validate(); err != nil {
		return invalidGenerationConfig("%s", err.Error())
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return invalidGenerationConfig("start_date and end_date are required")
	}
	start := DateOf(c.StartDate)
	end := DateOf(c.EndDate)
	if start.After(end) {
		return invalidGenerationConfig("start_date must not be after end_date")
	}
	maxDays := c.MaxDays
	if maxDays <= 0 {
		maxDays = DefaultMaxGenerationDays
	}
	if daysBetween(start, end)+1 > maxDays {
		return invalidGenerationConfig("date range must not exceed %d days", maxDays)
	}
	if c.IntervalMinutes < 0 || c.IntervalMinutes > MinutesPerDay {
		return invalidGenerationConfig("interval_minutes must be between 1 and %d", MinutesPerDay)
	}
	if c.MaxPlayers <= 0 {
		return invalidGenerationConfig("max_players must be positive")
	}
	if c.Price < 0 {
		return invalidGenerationConfig("price must not be negative")
	}
	if c.BreakMinutes < 0 {
		return invalidGenerationConfig("break_time must not be negative")
	}

	switch c.Pattern {
	case PatternCustomIntervals:
		if len(c.CustomIntervals) == 0 {
			return invalidGenerationConfig("custom_intervals are required for CUSTOM_INTERVALS")
		}
		for _, ci := range c.CustomIntervals {
			if _, err := NewInterval(start, ci.Start, ci.End); err != nil {
				return invalidGenerationConfig("custom interval %s-%s: %s", ci.Start, ci.End, err.Error())
			}
			if ci.MaxPlayers != nil && *ci.MaxPlayers <= 0 {
				return invalidGenerationConfig("custom interval %s-%s: max_players must be positive", ci.Start, ci.End)
			}
			if ci.Price != nil && *ci.Price < 0 {
				return invalidGenerationConfig("custom interval %s-%s: price must not be negative", ci.Start, ci.End)
			}
		}
		sorted := sortedCustomIntervals(c.CustomIntervals)
		for i := 1; i < len(sorted); i++ {
			if sorted[i].Start < sorted[i-1].End {
				return invalidGenerationConfig("custom intervals %s-%s and %s-%s overlap",
					sorted[i-1].Start, sorted[i-1].End, sorted[i].Start, sorted[i].End)
			}
		}
	case PatternHourly, PatternAMPM, PatternPeakHours:
		if !c.StartTime.Valid() || !c.EndTime.Valid() {
			return invalidGenerationConfig("clock times must be between 00:00 and 24:00")
		}
		if c.StartTime >= c.EndTime {
			return invalidGenerationConfig("end_time must be after start_time")
		}
		if c.Pattern == PatternAMPM && (c.StartTime >= Noon || c.EndTime <= Noon) {
			return invalidGenerationConfig("AM_PM requires start_time before 12:00 and end_time after 12:00")
		}
	default:
		return invalidGenerationConfig("unsupported pattern %q", c.Pattern)
	}
	return nil
}

// GenerateSlots expands cfg into unsaved slot drafts ordered by date, then start time.
// It is deterministic: the same cfg and cal always produce the same output.
func GenerateSlots(cfg GenerationConfig, cal Calendar) ([]TimeSlot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Excluded days are dropped before max_occurrences is counted.
	dates, err := expandDates(cfg.StartDate, cfg.EndDate, cfg.Recurrence, func(d time.Time) bool {
		if cfg.ExcludeWeekends && isWeekend(d) {
			return false
		}
		return !cfg.ExcludeHolidays || !cal.Holidays.Contains(d)
	})
	if err != nil {
		return nil, err
	}

	var pattern *RecurringPattern
	if cfg.Recurrence != nil {
		p := *cfg.Recurrence
		if p.Frequency == 0 {
			p.Frequency = 1
		}
		p.DaysOfWeek = SortedWeekdays(p.DaysOfWeek)
		pattern = &p
	}

	breakMinutes := 0
	if cfg.Course.IsDual() {
		breakMinutes = cfg.BreakMinutes
	}

	out := make([]TimeSlot, 0, len(dates)*4)
	for _, d := range dates {
		for _, sub := range dayIntervals(cfg, cal, d) {
			if breakMinutes >= int(sub.End-sub.Start) {
				return nil, invalidGenerationConfig("break_time must be shorter than every generated slot")
			}
			slot := TimeSlot{
				Date:         d,
				StartTime:    sub.Start,
				EndTime:      sub.End,
				BreakMinutes: breakMinutes,
				MaxSlots:     sub.maxPlayers,
				BookedSlots:  0,
				Price:        sub.price,
				Status:       StatusAvailable,
				IsRecurring:  pattern != nil,
			}
			if pattern != nil {
				p := *pattern
				slot.RecurringPattern = &p
			}
			slot.SetCourses(cfg.Course)
			out = append(out, slot)
		}
	}
	return out, nil
}

type subInterval struct {
	Start      ClockTime
	End        ClockTime
	maxPlayers int
	price      int64
}

func dayIntervals(cfg GenerationConfig, cal Calendar, d time.Time) []subInterval {
	switch cfg.Pattern {
	case PatternHourly:
		return splitEvenly(cfg.StartTime, cfg.EndTime, cfg.interval(), cfg.MaxPlayers, cfg.Price)
	case PatternAMPM:
		return []subInterval{
			{Start: cfg.StartTime, End: Noon, maxPlayers: cfg.MaxPlayers, price: cfg.Price},
			{Start: Noon, End: cfg.EndTime, maxPlayers: cfg.MaxPlayers, price: cfg.Price},
		}
	case PatternPeakHours:
		windows := make([]PeakWindow, 0, len(cal.PeakWindows))
		for _, w := range cal.PeakWindows {
			if w.AppliesOn(d) {
				windows = append(windows, w)
			}
		}
		sort.SliceStable(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })

		var out []subInterval
		lastEnd := ClockTime(-1)
		for _, w := range windows {
			start := max(w.Start, cfg.StartTime, lastEnd)
			end := min(w.End, cfg.EndTime)
			if start >= end {
				continue
			}
			parts := splitEvenly(start, end, cfg.interval(), cfg.MaxPlayers, cfg.Price)
			if len(parts) > 0 {
				lastEnd = parts[len(parts)-1].End
			}
			out = append(out, parts...)
		}
		return out
	case PatternCustomIntervals:
		sorted := sortedCustomIntervals(cfg.CustomIntervals)
		out := make([]subInterval, 0, len(sorted))
		for _, ci := range sorted {
			sub := subInterval{Start: ci.Start, End: ci.End, maxPlayers: cfg.MaxPlayers, price: cfg.Price}
			if ci.MaxPlayers != nil {
				sub.maxPlayers = *ci.MaxPlayers
			}
			if ci.Price != nil {
				sub.price = *ci.Price
			}
			out = append(out, sub)
		}
		return out
	}
	return nil
}

// splitEvenly cuts [start, end) into step-minute pieces; a trailing remainder shorter than step is dropped.
func splitEvenly(start, end ClockTime, step, maxPlayers int, price int64) []subInterval {
	var out []subInterval
	for s := start; s.Add(step) <= end; s = s.Add(step) {
		out = append(out, subInterval{Start: s, End: s.Add(step), maxPlayers: maxPlayers, price: price})
	}
	return out
}

func sortedCustomIntervals(in []CustomInterval) []CustomInterval {
	out := append([]CustomInterval(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}
