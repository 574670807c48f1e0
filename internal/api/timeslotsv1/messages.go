package timeslotsv1

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Dates are YYYY-MM-DD and clock times HH:MM; money is in minor units.

type CourseRef struct {
	CourseId      int64 `json:"course_id,omitempty"`
	FrontCourseId int64 `json:"front_course_id,omitempty"`
	BackCourseId  int64 `json:"back_course_id,omitempty"`
}

type TimeSlot struct {
	Id             string                 `json:"id,omitempty"`
	CourseId       int64                  `json:"course_id,omitempty"`
	FrontCourseId  int64                  `json:"front_course_id,omitempty"`
	BackCourseId   int64                  `json:"back_course_id,omitempty"`
	IsDualCourse   bool                   `json:"is_dual_course"`
	Date           string                 `json:"date"`
	StartTime      string                 `json:"start_time"`
	EndTime        string                 `json:"end_time"`
	BreakMinutes   int32                  `json:"break_minutes"`
	MaxSlots       int32                  `json:"max_slots"`
	BookedSlots    int32                  `json:"booked_slots"`
	AvailableSlots int32                  `json:"available_slots"`
	Price          int64                  `json:"price"`
	Status         string                 `json:"status"`
	IsRecurring    bool                   `json:"is_recurring"`
	CreatedAt      *timestamppb.Timestamp `json:"created_at,omitempty"`
	UpdatedAt      *timestamppb.Timestamp `json:"updated_at,omitempty"`
}

type Conflict struct {
	Type           string   `json:"type"`
	Types          []string `json:"types"`
	Message        string   `json:"message"`
	CandidateIndex int32    `json:"candidate_index"`
	Date           string   `json:"date"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	ExistingSlotId string   `json:"existing_slot_id,omitempty"`
	ExistingBooked int32    `json:"existing_booked,omitempty"`
	BookingExists  bool     `json:"booking_exists"`
	ClosedCourseId int64    `json:"closed_course_id,omitempty"`
	Overridable    bool     `json:"overridable"`
}

type CreateSlotRequest struct {
	Course       *CourseRef `json:"course"`
	Date         string     `json:"date"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	BreakMinutes int32      `json:"break_minutes,omitempty"`
	MaxSlots     int32      `json:"max_slots"`
	Price        int64      `json:"price"`
	Status       string     `json:"status,omitempty"`
	// Force replaces conflicting slots that hold no bookings.
	Force bool `json:"force,omitempty"`
}

type CreateSlotResponse struct {
	Slot *TimeSlot `json:"slot"`
}

type GetSlotRequest struct {
	Id string `json:"id"`
}

type GetSlotResponse struct {
	Slot *TimeSlot `json:"slot"`
}

type ListSlotsRequest struct {
	Course        *CourseRef `json:"course,omitempty"`
	DateFrom      string     `json:"date_from,omitempty"`
	DateTo        string     `json:"date_to,omitempty"`
	Statuses      []string   `json:"statuses,omitempty"`
	OnlyAvailable bool       `json:"only_available,omitempty"`
	Limit         int32      `json:"limit,omitempty"`
	Offset        int32      `json:"offset,omitempty"`
}

type ListSlotsResponse struct {
	Slots []*TimeSlot `json:"slots"`
}

// UpdateSlotRequest changes only the fields that are set.
type UpdateSlotRequest struct {
	Id           string  `json:"id"`
	Date         *string `json:"date,omitempty"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	BreakMinutes *int32  `json:"break_minutes,omitempty"`
	MaxSlots     *int32  `json:"max_slots,omitempty"`
	Price        *int64  `json:"price,omitempty"`
	Status       *string `json:"status,omitempty"`
	Force        bool    `json:"force,omitempty"`
}

type UpdateSlotResponse struct {
	Slot *TimeSlot `json:"slot"`
	// Warning is set when bookings were left attached to moved times.
	Warning string `json:"warning,omitempty"`
}

type DeleteSlotRequest struct {
	Id    string `json:"id"`
	Force bool   `json:"force,omitempty"`
}

type DeleteSlotResponse struct{}

type CustomInterval struct {
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	MaxPlayers *int32 `json:"max_players,omitempty"`
	Price      *int64 `json:"price,omitempty"`
}

type Recurrence struct {
	Type           string   `json:"type"`
	Frequency      int32    `json:"frequency,omitempty"`
	DaysOfWeek     []string `json:"days_of_week,omitempty"`
	EndDate        string   `json:"end_date,omitempty"`
	MaxOccurrences *int32   `json:"max_occurrences,omitempty"`
}

type GenerateSlotsRequest struct {
	Course           *CourseRef        `json:"course"`
	StartDate        string            `json:"start_date"`
	EndDate          string            `json:"end_date"`
	Pattern          string            `json:"pattern"`
	StartTime        string            `json:"start_time,omitempty"`
	EndTime          string            `json:"end_time,omitempty"`
	IntervalMinutes  int32             `json:"interval_minutes,omitempty"`
	BreakMinutes     int32             `json:"break_minutes,omitempty"`
	MaxPlayers       int32             `json:"max_players"`
	Price            int64             `json:"price"`
	ExcludeWeekends  bool              `json:"exclude_weekends,omitempty"`
	ExcludeHolidays  bool              `json:"exclude_holidays,omitempty"`
	CustomIntervals  []*CustomInterval `json:"custom_intervals,omitempty"`
	Recurrence       *Recurrence       `json:"recurrence,omitempty"`
	RejectOnConflict bool              `json:"reject_on_conflict,omitempty"`
}

type SkippedSlot struct {
	Slot      *TimeSlot   `json:"slot"`
	Conflicts []*Conflict `json:"conflicts"`
}

type GenerateSlotsResponse struct {
	Created []*TimeSlot    `json:"created"`
	Skipped []*SkippedSlot `json:"skipped"`
}

type CheckAvailabilityRequest struct {
	Course    *CourseRef `json:"course"`
	DateFrom  string     `json:"date_from"`
	DateTo    string     `json:"date_to"`
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
}

type CheckAvailabilityResponse struct {
	Available bool        `json:"available"`
	Conflicts []*Conflict `json:"conflicts"`
}

type DuplicateSlotRequest struct {
	Id           string   `json:"id"`
	TargetDates  []string `json:"target_dates"`
	StartTime    *string  `json:"start_time,omitempty"`
	EndTime      *string  `json:"end_time,omitempty"`
	BreakMinutes *int32   `json:"break_minutes,omitempty"`
	MaxSlots     *int32   `json:"max_slots,omitempty"`
	Price        *int64   `json:"price,omitempty"`
}

type DuplicateFailure struct {
	Date      string      `json:"date"`
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Conflicts []*Conflict `json:"conflicts,omitempty"`
}

type DuplicateSlotResponse struct {
	Created []*TimeSlot         `json:"created"`
	Failed  []*DuplicateFailure `json:"failed"`
}

type OccupancyRequest struct {
	Id        string `json:"id"`
	PartySize int32  `json:"party_size"`
}

type OccupancyResponse struct {
	Slot *TimeSlot `json:"slot"`
}
