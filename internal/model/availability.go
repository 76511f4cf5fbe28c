package model

import "time"

// AvailabilityRange is one contiguous interval of a unit's calendar. Ranges
// for a unit live in a per-unit sorted set scored by start time and must not
// overlap; together they cover the unit's known horizon. A day is bookable
// iff it falls inside a stored range with Bookable set.
type AvailabilityRange struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Bookable    bool      `json:"bookable"`
	BlockReason string    `json:"block_reason,omitempty"`
}

// ContainsDay reports whether day (interpreted as a calendar date) falls in
// [Start, End).
func (r AvailabilityRange) ContainsDay(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(r.Start)) && d.Before(DateOnly(r.End))
}

// Covers reports whether the stay [checkIn, checkOut) fits entirely inside
// this range.
func (r AvailabilityRange) Covers(checkIn, checkOut time.Time) bool {
	in, out := DateOnly(checkIn), DateOnly(checkOut)
	return !in.Before(DateOnly(r.Start)) && !out.After(DateOnly(r.End))
}

// BookedRange is the auxiliary record written when a booking commits. It is
// not part of the availability sorted set.
type BookedRange struct {
	BookingID string    `json:"booking_id"`
	UnitID    string    `json:"unit_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Status    string    `json:"status"`
}

// DateOnly truncates t to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights returns the number of nights in [checkIn, checkOut); zero or
// negative when the pair is not a valid stay.
func Nights(checkIn, checkOut time.Time) int {
	return int(DateOnly(checkOut).Sub(DateOnly(checkIn)).Hours() / 24)
}
