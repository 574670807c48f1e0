package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	timeslotsv1 "fairway/backend/internal/api/timeslotsv1"
	"fairway/backend/internal/domain"
	"fairway/backend/internal/service/timeslots"
	"fairway/backend/internal/store"
)

type TimeSlotsServer struct {
	timeslotsv1.UnimplementedTimeSlotsServiceServer

	svc timeSlotsService
	log *slog.Logger
}

type timeSlotsService interface {
	CreateSlot(ctx context.Context, draft domain.TimeSlot, opts timeslots.CreateOptions) (domain.TimeSlot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (domain.TimeSlot, error)
	ListSlots(ctx context.Context, filter store.SlotFilter) ([]domain.TimeSlot, error)
	UpdateSlot(ctx context.Context, id uuid.UUID, patch timeslots.SlotPatch, force bool) (timeslots.UpdateResult, error)
	DeleteSlot(ctx context.Context, id uuid.UUID, force bool) error
	GenerateSlots(ctx context.Context, cfg domain.GenerationConfig, mode timeslots.GenerateMode) (timeslots.GenerationResult, error)
	CheckAvailability(ctx context.Context, q timeslots.AvailabilityQuery) (timeslots.AvailabilityResult, error)
	DuplicateSlot(ctx context.Context, id uuid.UUID, targetDates []time.Time, adj *timeslots.SlotAdjustments) (timeslots.DuplicateResult, error)
	Reserve(ctx context.Context, id uuid.UUID, partySize int) (domain.TimeSlot, error)
	Release(ctx context.Context, id uuid.UUID, partySize int) (domain.TimeSlot, error)
}

func NewTimeSlotsServer(svc timeSlotsService, log *slog.Logger) *TimeSlotsServer {
	if log == nil {
		log = slog.Default()
	}
	return &TimeSlotsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.timeslots")),
	}
}

func (s *TimeSlotsServer) CreateSlot(ctx context.Context, req *timeslotsv1.CreateSlotRequest) (*timeslotsv1.CreateSlotResponse, error) {
	log := s.log.With(slog.String("rpc", "CreateSlot"))
	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	draft, err := createDraft(req)
	if err != nil {
		return nil, statusError(log, err)
	}

	slot, err := s.svc.CreateSlot(ctx, draft, timeslots.CreateOptions{
		Force:          req.Force,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, statusError(log.With(slog.String("course", draft.Courses().String()), slog.String("date", domain.FormatDate(draft.Date))), err)
	}

	log.Info(
		"slot created",
		slog.String("slot_id", slot.ID.String()),
		slog.String("course", slot.Courses().String()),
		slog.String("date", domain.FormatDate(slot.Date)),
		slog.String("start_time", slot.StartTime.String()),
		slog.String("end_time", slot.EndTime.String()),
	)
	return &timeslotsv1.CreateSlotResponse{Slot: toWireSlot(slot)}, nil
}

func createDraft(req *timeslotsv1.CreateSlotRequest) (domain.TimeSlot, error) {
	course, err := parseCourse(req.Course)
	if err != nil {
		return domain.TimeSlot{}, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return domain.TimeSlot{}, err
	}
	start, err := parseClock("start_time", req.StartTime)
	if err != nil {
		return domain.TimeSlot{}, err
	}
	end, err := parseClock("end_time", req.EndTime)
	if err != nil {
		return domain.TimeSlot{}, err
	}

	draft := domain.TimeSlot{
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		BreakMinutes: int(req.BreakMinutes),
		MaxSlots:     int(req.MaxSlots),
		Price:        req.Price,
	}
	if req.Status != "" {
		if draft.Status, err = parseStatus(req.Status); err != nil {
			return domain.TimeSlot{}, err
		}
	}
	draft.SetCourses(course)
	return draft, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (s *TimeSlotsServer) GetSlot(ctx context.Context, req *timeslotsv1.GetSlotRequest) (*timeslotsv1.GetSlotResponse, error) {
	log := s.log.With(slog.String("rpc", "GetSlot"))
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, statusError(log, err)
	}

	slot, err := s.svc.GetSlot(ctx, id)
	if err != nil {
		return nil, statusError(log.With(slog.String("slot_id", id.String())), err)
	}
	return &timeslotsv1.GetSlotResponse{Slot: toWireSlot(slot)}, nil
}

func (s *TimeSlotsServer) ListSlots(ctx context.Context, req *timeslotsv1.ListSlotsRequest) (*timeslotsv1.ListSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListSlots"))
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	filter := store.SlotFilter{
		OnlyAvailable: req.OnlyAvailable,
		Limit:         int(req.Limit),
		Offset:        int(req.Offset),
	}
	var err error
	if req.Course != nil {
		ref, err := parseCourse(req.Course)
		if err != nil {
			return nil, statusError(log, err)
		}
		filter.Course = &ref
	}
	if filter.From, err = parseOptionalDate("date_from", req.DateFrom); err != nil {
		return nil, statusError(log, err)
	}
	if filter.To, err = parseOptionalDate("date_to", req.DateTo); err != nil {
		return nil, statusError(log, err)
	}
	for _, raw := range req.Statuses {
		st, err := parseStatus(raw)
		if err != nil {
			return nil, statusError(log, err)
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	slots, err := s.svc.ListSlots(ctx, filter)
	if err != nil {
		return nil, statusError(log, err)
	}

	log.Debug("slots listed", slog.Int("count", len(slots)))
	return &timeslotsv1.ListSlotsResponse{Slots: toWireSlots(slots)}, nil
}

func (s *TimeSlotsServer) UpdateSlot(ctx context.Context, req *timeslotsv1.UpdateSlotRequest) (*timeslotsv1.UpdateSlotResponse, error) {
	log := s.log.With(slog.String("rpc", "UpdateSlot"))
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, statusError(log, err)
	}
	patch, err := slotPatch(req)
	if err != nil {
		return nil, statusError(log, err)
	}

	log = log.With(slog.String("slot_id", id.String()))
	res, err := s.svc.UpdateSlot(ctx, id, patch, req.Force)
	if err != nil {
		return nil, statusError(log, err)
	}

	out := &timeslotsv1.UpdateSlotResponse{Slot: toWireSlot(res.Slot)}
	if res.Warning != nil {
		out.Warning = res.Warning.Error()
		log.Warn("slot updated with stale bookings", slog.Int("booked", res.Warning.Booked))
	} else {
		log.Info("slot updated")
	}
	return out, nil
}

func (s *TimeSlotsServer) DeleteSlot(ctx context.Context, req *timeslotsv1.DeleteSlotRequest) (*timeslotsv1.DeleteSlotResponse, error) {
	log := s.log.With(slog.String("rpc", "DeleteSlot"))
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, statusError(log, err)
	}

	log = log.With(slog.String("slot_id", id.String()))
	if err := s.svc.DeleteSlot(ctx, id, req.Force); err != nil {
		return nil, statusError(log, err)
	}

	log.Info("slot deleted", slog.Bool("force", req.Force))
	return &timeslotsv1.DeleteSlotResponse{}, nil
}

func (s *TimeSlotsServer) GenerateSlots(ctx context.Context, req *timeslotsv1.GenerateSlotsRequest) (*timeslotsv1.GenerateSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "GenerateSlots"))
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	cfg, err := generationConfig(req)
	if err != nil {
		return nil, statusError(log, err)
	}

	mode := timeslots.SkipConflicts
	if req.RejectOnConflict {
		mode = timeslots.RejectOnConflict
	}
	log = log.With(slog.String("course", cfg.Course.String()), slog.String("pattern", string(cfg.Pattern)))

	res, err := s.svc.GenerateSlots(ctx, cfg, mode)
	if err != nil {
		if len(res.Created) > 0 {
			log.Error("generation stopped part way", slog.Int("created", len(res.Created)), slog.Any("err", err))
		}
		return nil, statusError(log, err)
	}

	out := &timeslotsv1.GenerateSlotsResponse{
		Created: toWireSlots(res.Created),
		Skipped: make([]*timeslotsv1.SkippedSlot, 0, len(res.Skipped)),
	}
	for _, sk := range res.Skipped {
		out.Skipped = append(out.Skipped, &timeslotsv1.SkippedSlot{
			Slot:      toWireSlot(sk.Draft),
			Conflicts: toWireConflicts(sk.Conflicts),
		})
	}

	log.Info("slots generated", slog.Int("created", len(out.Created)), slog.Int("skipped", len(out.Skipped)))
	return out, nil
}

func (s *TimeSlotsServer) CheckAvailability(ctx context.Context, req *timeslotsv1.CheckAvailabilityRequest) (*timeslotsv1.CheckAvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "CheckAvailability"))
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	q, err := availabilityQuery(req)
	if err != nil {
		return nil, statusError(log, err)
	}
	res, err := s.svc.CheckAvailability(ctx, q)
	if err != nil {
		return nil, statusError(log, err)
	}

	log.Debug("availability checked", slog.Bool("available", res.Available), slog.Int("conflicts", len(res.Conflicts)))
	return &timeslotsv1.CheckAvailabilityResponse{
		Available: res.Available,
		Conflicts: toWireConflicts(res.Conflicts),
	}, nil
}

func availabilityQuery(req *timeslotsv1.CheckAvailabilityRequest) (timeslots.AvailabilityQuery, error) {
	var (
		q   timeslots.AvailabilityQuery
		err error
	)
	if q.Course, err = parseCourse(req.Course); err != nil {
		return q, err
	}
	if q.From, err = parseDate("date_from", req.DateFrom); err != nil {
		return q, err
	}
	if q.To, err = parseDate("date_to", req.DateTo); err != nil {
		return q, err
	}
	if q.StartTime, err = parseClock("start_time", req.StartTime); err != nil {
		return q, err
	}
	if q.EndTime, err = parseClock("end_time", req.EndTime); err != nil {
		return q, err
	}
	return q, nil
}

func (s *TimeSlotsServer) DuplicateSlot(ctx context.Context, req *timeslotsv1.DuplicateSlotRequest) (*timeslotsv1.DuplicateSlotResponse, error) {
	log := s.log.With(slog.String("rpc", "DuplicateSlot"))
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, statusError(log, err)
	}
	dates := make([]time.Time, 0, len(req.TargetDates))
	for _, raw := range req.TargetDates {
		d, err := parseDate("target_dates", raw)
		if err != nil {
			return nil, statusError(log, err)
		}
		dates = append(dates, d)
	}
	adj, err := slotAdjustments(req)
	if err != nil {
		return nil, statusError(log, err)
	}

	log = log.With(slog.String("slot_id", id.String()))
	res, err := s.svc.DuplicateSlot(ctx, id, dates, adj)
	if err != nil {
		return nil, statusError(log, err)
	}

	out := &timeslotsv1.DuplicateSlotResponse{
		Created: toWireSlots(res.Created),
		Failed:  make([]*timeslotsv1.DuplicateFailure, 0, len(res.Failed)),
	}
	for _, f := range res.Failed {
		st, _ := status.FromError(statusError(log.With(slog.String("date", domain.FormatDate(f.Date))), f.Err))
		failure := &timeslotsv1.DuplicateFailure{
			Date:    domain.FormatDate(f.Date),
			Code:    st.Code().String(),
			Message: st.Message(),
		}
		var cErr *timeslots.ConflictError
		if errors.As(f.Err, &cErr) {
			failure.Conflicts = toWireConflicts(cErr.Conflicts)
		}
		out.Failed = append(out.Failed, failure)
	}

	log.Info("slot duplicated", slog.Int("created", len(out.Created)), slog.Int("failed", len(out.Failed)))
	return out, nil
}

func (s *TimeSlotsServer) Reserve(ctx context.Context, req *timeslotsv1.OccupancyRequest) (*timeslotsv1.OccupancyResponse, error) {
	return s.adjust(ctx, "Reserve", req, s.svc.Reserve)
}

func (s *TimeSlotsServer) Release(ctx context.Context, req *timeslotsv1.OccupancyRequest) (*timeslotsv1.OccupancyResponse, error) {
	return s.adjust(ctx, "Release", req, s.svc.Release)
}

func (s *TimeSlotsServer) adjust(ctx context.Context, rpc string, req *timeslotsv1.OccupancyRequest, op func(context.Context, uuid.UUID, int) (domain.TimeSlot, error)) (*timeslotsv1.OccupancyResponse, error) {
	log := s.log.With(slog.String("rpc", rpc))
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := parseID("id", req.Id)
	if err != nil {
		return nil, statusError(log, err)
	}

	log = log.With(slog.String("slot_id", id.String()), slog.Int("party_size", int(req.PartySize)))
	slot, err := op(ctx, id, int(req.PartySize))
	if err != nil {
		return nil, statusError(log, err)
	}

	log.Info("occupancy changed", slog.Int("booked", slot.BookedSlots), slog.String("status", string(slot.Status)))
	return &timeslotsv1.OccupancyResponse{Slot: toWireSlot(slot)}, nil
}
