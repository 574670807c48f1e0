package timeslots

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fairway/backend/internal/calendar"
	"fairway/backend/internal/domain"
	"fairway/backend/internal/events"
	"fairway/backend/internal/store"
	"fairway/backend/internal/telemetry"
)

const tracerName = "fairway/backend/internal/service/timeslots"

type RetryPolicy struct {
	InitialInterval time.Duration
	// MaxElapsed bounds all attempts of one repository call. Zero disables retries.
	MaxElapsed time.Duration
}

type Service struct {
	repo      store.SlotRepository
	courses   store.CourseDirectory
	calendar  calendar.Source
	publisher events.Publisher
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	retry     RetryPolicy
	maxDays   int
}

type Option func(*Service)

func WithCourseDirectory(d store.CourseDirectory) Option {
	return func(s *Service) { s.courses = d }
}

func WithCalendar(c calendar.Source) Option {
	return func(s *Service) { s.calendar = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithRetry(p RetryPolicy) Option {
	return func(s *Service) { s.retry = p }
}

// WithMaxGenerationDays caps the date range of generation and availability queries.
func WithMaxGenerationDays(n int) Option {
	return func(s *Service) { s.maxDays = n }
}

func NewService(repo store.SlotRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: events.Noop{},
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		maxDays:   domain.DefaultMaxGenerationDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "timeslots")
	return s
}

// withRetry runs op again while it fails with store.ErrUnavailable. Any other error ends
// the loop immediately.
func (s *Service) withRetry(ctx context.Context, op func() error) error {
	if s.retry.MaxElapsed <= 0 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	if s.retry.InitialInterval > 0 {
		b.InitialInterval = s.retry.InitialInterval
	}
	b.MaxElapsedTime = s.retry.MaxElapsed

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrUnavailable) {
			return backoff.Permanent(err)
		}
		s.logger.Warn("transient repository failure", "attempt", attempt, "error", err)
		return err
	}, backoff.WithContext(b, ctx))
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish slot event failed", "type", ev.Type, "slot_id", ev.Slot.ID, "error", err)
	}
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "timeslots."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// checkCourses rejects unknown course ids. Directory failures skip the check.
func (s *Service) checkCourses(ctx context.Context, ref domain.CourseRef) error {
	if s.courses == nil {
		return nil
	}
	for _, id := range ref.IDs() {
		ok, err := s.courses.CourseExists(ctx, id)
		if err != nil {
			s.logger.Warn("course lookup failed, skipping existence check", "course_id", id, "error", err)
			return nil
		}
		if !ok {
			return validationError("course %d does not exist", id)
		}
	}
	return nil
}

// closures returns nil, meaning unknown, when no directory is configured or the lookup fails.
func (s *Service) closures(ctx context.Context, ref domain.CourseRef, from, to time.Time) domain.ClosureSet {
	if s.courses == nil {
		return nil
	}
	set, err := s.courses.Closures(ctx, ref.IDs(), from, to)
	if err != nil {
		s.logger.Warn("course closure lookup failed, skipping closure check", "course", ref.Key(), "error", err)
		return nil
	}
	return set
}

func (s *Service) recordConflicts(conflicts []domain.Conflict) {
	for _, c := range conflicts {
		for _, t := range c.Types() {
			s.metrics.Conflict(string(t))
		}
	}
}

func (s *Service) validateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return validationError("date range is required")
	}
	from, to = domain.DateOf(from), domain.DateOf(to)
	if from.After(to) {
		return validationError("date_from must not be after date_to")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > s.maxDays {
		return validationError("date range must not exceed %d days", s.maxDays)
	}
	return nil
}
