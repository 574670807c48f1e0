package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"fairway/backend/internal/authz"
	"fairway/backend/internal/domain"
	"fairway/backend/internal/service/timeslots"
	"fairway/backend/internal/store"
)

// statusError converts a service error into a gRPC status and logs it at the level its
// class deserves. Conflicts carry their details as a structpb.Struct.
func statusError(log *slog.Logger, err error) error {
	var (
		badReq   *badRequest
		vErr     *timeslots.ValidationError
		ivErr    *domain.InvalidIntervalError
		gcErr    *domain.InvalidGenerationConfigError
		cErr     *timeslots.ConflictError
		hbErr    *timeslots.HasBookingsError
		capErr   *domain.CapacityExceededError
		incErr   *domain.InconsistentStateError
		stateErr interface{ GRPCStatus() *status.Status }
	)

	switch {
	case errors.As(err, &badReq), errors.As(err, &vErr), errors.As(err, &ivErr), errors.As(err, &gcErr),
		errors.Is(err, domain.ErrInvalidPartySize):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.As(err, &cErr):
		log.Info("slot conflict", slog.Int("conflicts", len(cErr.Conflicts)), slog.Bool("overridable", cErr.Overridable()))
		return conflictStatus(cErr)

	case errors.As(err, &hbErr):
		log.Info("slot has bookings", slog.String("slot_id", hbErr.SlotID.String()), slog.Int("booked", hbErr.Booked))
		return status.Error(codes.FailedPrecondition, hbErr.Error()+"; retry with force to override")

	case errors.As(err, &capErr):
		log.Info("capacity exceeded", slog.String("slot_id", capErr.SlotID.String()), slog.Int("requested", capErr.Requested), slog.Int("available", capErr.Available))
		return status.Errorf(codes.FailedPrecondition, "Slot no longer available: %d places left.", capErr.Available)

	case errors.Is(err, domain.ErrSlotNotBookable):
		log.Info("slot not bookable", slog.Any("err", err))
		return status.Error(codes.FailedPrecondition, "Slot is not open for booking.")

	case errors.Is(err, store.ErrIdempotencyConflict):
		log.Info("idempotency conflict")
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different slot. Try again.")

	case errors.Is(err, store.ErrHasBookings):
		return status.Error(codes.FailedPrecondition, "slot has bookings")

	case errors.Is(err, store.ErrNotFound):
		log.Info("slot not found")
		return status.Error(codes.NotFound, "slot not found")

	case errors.As(err, &incErr):
		log.Error("inconsistent occupancy", slog.String("slot_id", incErr.SlotID.String()), slog.Int("booked", incErr.Booked), slog.Int("delta", incErr.Delta))
		return status.Error(codes.Internal, "slot occupancy is inconsistent; operator reconciliation required")

	case errors.Is(err, authz.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "authentication required")

	case errors.Is(err, authz.ErrForbidden):
		log.Warn("permission denied", slog.Any("err", err))
		return status.Error(codes.PermissionDenied, "not allowed to perform this operation")

	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", slog.Any("err", err))
		return status.Error(codes.DeadlineExceeded, "request timed out. Try again.")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")

	case errors.Is(err, store.ErrUnavailable):
		log.Warn("storage unavailable", slog.Any("err", err))
		return status.Error(codes.Unavailable, "Service temporarily unavailable. Try again.")

	case errors.As(err, &stateErr):
		return err
	}

	log.Error("request failed", slog.Any("err", err))
	return status.Error(codes.Internal, "internal error")
}

func conflictStatus(cErr *timeslots.ConflictError) error {
	st := status.New(codes.FailedPrecondition, cErr.Error())

	items := make([]any, 0, len(cErr.Conflicts))
	for _, c := range toWireConflicts(cErr.Conflicts) {
		item := map[string]any{
			"type":            c.Type,
			"message":         c.Message,
			"candidate_index": c.CandidateIndex,
			"date":            c.Date,
			"start_time":      c.StartTime,
			"end_time":        c.EndTime,
			"booking_exists":  c.BookingExists,
			"overridable":     c.Overridable,
		}
		if c.ExistingSlotId != "" {
			item["existing_slot_id"] = c.ExistingSlotId
		}
		if c.ClosedCourseId != 0 {
			item["closed_course_id"] = c.ClosedCourseId
		}
		items = append(items, item)
	}
	detail, err := structpb.NewStruct(map[string]any{
		"conflicts":   items,
		"overridable": cErr.Overridable(),
	})
	if err != nil {
		return st.Err()
	}
	withDetails, err := st.WithDetails(detail)
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}
