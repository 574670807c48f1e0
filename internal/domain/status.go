package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusBooked    Status = "BOOKED"
	StatusBlocked   Status = "BLOCKED"
	StatusCancelled Status = "CANCELLED"
)

// legacyStatuses maps the older ACTIVE/INACTIVE/FULL vocabulary onto the
// authoritative one. It is only consulted when parsing input.
var legacyStatuses = map[string]Status{
	"ACTIVE":    StatusAvailable,
	"INACTIVE":  StatusBlocked,
	"FULL":      StatusBooked,
	"CANCELLED": StatusCancelled,
}

func ParseStatus(s string) (Status, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch Status(v) {
	case StatusAvailable, StatusBooked, StatusBlocked, StatusCancelled:
		return Status(v), nil
	}
	if st, ok := legacyStatuses[v]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown slot status %q", s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusBooked, StatusBlocked, StatusCancelled:
		return true
	}
	return false
}

// Bookable reports whether reservations may be taken against a slot in this status.
// BOOKED still admits releases and, once headroom exists, reservations.
func (s Status) Bookable() bool {
	return s == StatusAvailable || s == StatusBooked
}
