package store

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrDuplicateSlot       = errors.New("duplicate slot")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	ErrHasBookings         = errors.New("slot has bookings")

	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrInsufficientBookings = errors.New("release exceeds booked places")
	ErrNotBookable          = errors.New("slot not bookable")

	// ErrUnavailable wraps transient failures that are safe to retry.
	ErrUnavailable = errors.New("store unavailable")
)
