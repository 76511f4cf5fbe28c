package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestNights(t *testing.T) {
	assert.Equal(t, 3, Nights(d(2026, 9, 10), d(2026, 9, 13)))
	assert.Equal(t, 0, Nights(d(2026, 9, 10), d(2026, 9, 10)))
	assert.Equal(t, -2, Nights(d(2026, 9, 12), d(2026, 9, 10)))
	// Time-of-day does not change the night count.
	assert.Equal(t, 1, Nights(
		time.Date(2026, 9, 10, 23, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 11, 1, 0, 0, 0, time.UTC)))
}

func TestRangeCoversStay(t *testing.T) {
	r := AvailabilityRange{Start: d(2026, 9, 1), End: d(2026, 9, 30), Bookable: true}

	assert.True(t, r.Covers(d(2026, 9, 1), d(2026, 9, 30)))
	assert.True(t, r.Covers(d(2026, 9, 10), d(2026, 9, 13)))
	// Check-out on the range end is allowed; the last night is the 29th.
	assert.True(t, r.Covers(d(2026, 9, 29), d(2026, 9, 30)))
	assert.False(t, r.Covers(d(2026, 8, 31), d(2026, 9, 2)))
	assert.False(t, r.Covers(d(2026, 9, 29), d(2026, 10, 1)))
}

func TestRangeContainsDay(t *testing.T) {
	r := AvailabilityRange{Start: d(2026, 9, 10), End: d(2026, 9, 13)}

	assert.True(t, r.ContainsDay(d(2026, 9, 10)))
	assert.True(t, r.ContainsDay(d(2026, 9, 12)))
	// End is exclusive.
	assert.False(t, r.ContainsDay(d(2026, 9, 13)))
	assert.False(t, r.ContainsDay(d(2026, 9, 9)))
}
