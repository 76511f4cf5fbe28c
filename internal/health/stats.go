// Package health tracks service throughput and error counters for the
// health probe. Stats is an owned, injected instance; components receive a
// pointer rather than touching globals.
package health

import (
	"sync/atomic"
	"time"
)

// Stats accumulates operation counters since process start.
type Stats struct {
	start time.Time

	searches         atomic.Int64
	indexed          atomic.Int64
	indexFailures    atomic.Int64
	bookings         atomic.Int64
	bookingConflicts atomic.Int64
	errors           atomic.Int64
}

// NewStats returns a zeroed Stats anchored at now.
func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

func (s *Stats) RecordSearch()          { s.searches.Add(1) }
func (s *Stats) RecordIndexed()         { s.indexed.Add(1) }
func (s *Stats) RecordIndexFailure()    { s.indexFailures.Add(1) }
func (s *Stats) RecordBooking()         { s.bookings.Add(1) }
func (s *Stats) RecordBookingConflict() { s.bookingConflicts.Add(1) }
func (s *Stats) RecordError()           { s.errors.Add(1) }

// Report is the snapshot served by the health endpoint.
type Report struct {
	UptimeSeconds     int64   `json:"uptime_seconds"`
	Searches          int64   `json:"searches"`
	SearchesPerMinute float64 `json:"searches_per_minute"`
	Indexed           int64   `json:"indexed"`
	IndexedPerMinute  float64 `json:"indexed_per_minute"`
	IndexFailures     int64   `json:"index_failures"`
	Bookings          int64   `json:"bookings"`
	BookingConflicts  int64   `json:"booking_conflicts"`
	Errors            int64   `json:"errors"`
	ErrorRate         float64 `json:"error_rate"`
}

// Snapshot computes the current report. Rates are averaged over the process
// lifetime, which is enough signal for a probe.
func (s *Stats) Snapshot() Report {
	uptime := time.Since(s.start)
	minutes := uptime.Minutes()
	if minutes <= 0 {
		minutes = 1.0 / 60
	}
	searches := s.searches.Load()
	indexed := s.indexed.Load()
	errs := s.errors.Load()
	total := searches + indexed + s.bookings.Load()
	var rate float64
	if total > 0 {
		rate = float64(errs) / float64(total)
	}
	return Report{
		UptimeSeconds:     int64(uptime.Seconds()),
		Searches:          searches,
		SearchesPerMinute: float64(searches) / minutes,
		Indexed:           indexed,
		IndexedPerMinute:  float64(indexed) / minutes,
		IndexFailures:     s.indexFailures.Load(),
		Bookings:          s.bookings.Load(),
		BookingConflicts:  s.bookingConflicts.Load(),
		Errors:            errs,
		ErrorRate:         rate,
	}
}
