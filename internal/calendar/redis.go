package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"fairway/backend/internal/domain"
)

const (
	KeyHolidays    = "fairway:calendar:holidays"     // SET of YYYY-MM-DD
	KeyPeakWindows = "fairway:calendar:peak_windows" // LIST of HH:MM-HH:MM[@Mon,Tue]
)

type redisReader interface {
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisSource reads the calendar maintained by the course administration service.
type RedisSource struct {
	client redisReader
	logger *slog.Logger
}

func NewRedisSource(client redisReader, logger *slog.Logger) *RedisSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSource{client: client, logger: logger.With("component", "calendar.redis")}
}

func (s *RedisSource) Calendar(ctx context.Context, from, to time.Time) (domain.Calendar, error) {
	days, err := s.client.SMembers(ctx, KeyHolidays).Result()
	if err != nil {
		return domain.Calendar{}, fmt.Errorf("read holidays: %w", err)
	}
	windows, err := s.client.LRange(ctx, KeyPeakWindows, 0, -1).Result()
	if err != nil {
		return domain.Calendar{}, fmt.Errorf("read peak windows: %w", err)
	}

	from, to = domain.DateOf(from), domain.DateOf(to)
	cal := domain.Calendar{Holidays: domain.NewHolidaySet()}
	for _, raw := range days {
		d, err := domain.ParseDate(raw)
		if err != nil {
			s.logger.Warn("skipping malformed holiday", "value", raw)
			continue
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		cal.Holidays.Add(d)
	}
	for _, raw := range windows {
		w, err := ParsePeakWindow(raw)
		if err != nil {
			s.logger.Warn("skipping malformed peak window", "value", raw, "error", err)
			continue
		}
		cal.PeakWindows = append(cal.PeakWindows, w)
	}
	return cal, nil
}

// Fallback serves from primary and switches to secondary when primary fails.
type Fallback struct {
	Primary   Source
	Secondary Source
	Logger    *slog.Logger
}

func (f Fallback) Calendar(ctx context.Context, from, to time.Time) (domain.Calendar, error) {
	cal, err := f.Primary.Calendar(ctx, from, to)
	if err == nil {
		return cal, nil
	}
	if f.Logger != nil {
		f.Logger.Warn("calendar source unavailable, using fallback", "error", err)
	}
	return f.Secondary.Calendar(ctx, from, to)
}
