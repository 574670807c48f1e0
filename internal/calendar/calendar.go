package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fairway/backend/internal/domain"
)

// Source supplies the holidays and peak windows the slot generator consults.
type Source interface {
	Calendar(ctx context.Context, from, to time.Time) (domain.Calendar, error)
}

// Static serves a calendar fixed at startup.
type Static struct {
	cal domain.Calendar
}

func NewStatic(holidays, peakWindows []string) (*Static, error) {
	hs := domain.NewHolidaySet()
	for _, h := range holidays {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		d, err := domain.ParseDate(h)
		if err != nil {
			return nil, fmt.Errorf("holiday: %w", err)
		}
		hs.Add(d)
	}

	windows := make([]domain.PeakWindow, 0, len(peakWindows))
	for _, raw := range peakWindows {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		w, err := ParsePeakWindow(raw)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return &Static{cal: domain.Calendar{Holidays: hs, PeakWindows: windows}}, nil
}

func (s *Static) Calendar(ctx context.Context, from, to time.Time) (domain.Calendar, error) {
	return s.cal, nil
}

// ParsePeakWindow parses "HH:MM-HH:MM" with an optional "@Mon,Tue" weekday restriction.
func ParsePeakWindow(s string) (domain.PeakWindow, error) {
	raw := strings.TrimSpace(s)
	span, days, hasDays := strings.Cut(raw, "@")

	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return domain.PeakWindow{}, fmt.Errorf("invalid peak window %q", s)
	}
	start, err := domain.ParseClock(startStr)
	if err != nil {
		return domain.PeakWindow{}, fmt.Errorf("invalid peak window %q: %w", s, err)
	}
	end, err := domain.ParseClock(endStr)
	if err != nil {
		return domain.PeakWindow{}, fmt.Errorf("invalid peak window %q: %w", s, err)
	}
	if start >= end {
		return domain.PeakWindow{}, fmt.Errorf("invalid peak window %q: end must be after start", s)
	}

	w := domain.PeakWindow{Start: start, End: end}
	if hasDays {
		for _, name := range strings.Split(days, ",") {
			wd, err := domain.ParseWeekday(name)
			if err != nil {
				return domain.PeakWindow{}, fmt.Errorf("invalid peak window %q: %w", s, err)
			}
			w.Weekdays = append(w.Weekdays, wd)
		}
		w.Weekdays = domain.SortedWeekdays(w.Weekdays)
	}
	return w, nil
}
