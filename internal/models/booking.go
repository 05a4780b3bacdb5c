package models

import "time"

// DaysPerWeek is the number of weekday slots on every listing.
const DaysPerWeek = 7

// Weekday is a recurring weekly slot, Sunday=0 through Saturday=6.
type Weekday int

// Valid reports whether d is one of the seven weekday slots.
func (d Weekday) Valid() bool {
	return d >= 0 && d < DaysPerWeek
}

// Booking is a recurring weekly hold on one weekday of one listing.
type Booking struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	UserID    string    `json:"userId"`
	Day       Weekday   `json:"dayOfWeek"`
	CreatedAt time.Time `json:"createdAt"`
}

// Hold identifies who currently occupies a weekday slot.
type Hold struct {
	BookingID string `json:"bookingId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
}

// Availability is the seven-slot view of a listing. A nil slot is open.
type Availability struct {
	ListingID string             `json:"listingId"`
	Host      UserSummary        `json:"host"`
	Slots     [DaysPerWeek]*Hold `json:"slots"`
}

// BookingStatus is the per-day result of a batch booking request.
type BookingStatus string

const (
	BookingStatusBooked   BookingStatus = "booked"
	BookingStatusConflict BookingStatus = "conflict"
	BookingStatusError    BookingStatus = "error"
)

// DayOutcome reports what happened to one weekday of a batch request.
type DayOutcome struct {
	Day     Weekday       `json:"dayOfWeek"`
	Status  BookingStatus `json:"status"`
	Booking *Booking      `json:"booking,omitempty"`
	HeldBy  *Hold         `json:"heldBy,omitempty"`

	// Set when Status is BookingStatusError.
	ErrorCode string `json:"errorCode,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BookingReport aggregates the per-day outcomes of a batch request, ordered by weekday.
type BookingReport struct {
	ListingID string       `json:"listingId"`
	Outcomes  []DayOutcome `json:"outcomes"`
}

// Booked returns the number of days that were successfully reserved.
func (r BookingReport) Booked() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == BookingStatusBooked {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that ended in an error rather than a booking or conflict.
func (r BookingReport) Failed() []DayOutcome {
	var failed []DayOutcome
	for _, o := range r.Outcomes {
		if o.Status == BookingStatusError {
			failed = append(failed, o)
		}
	}
	return failed
}
