// Package headway computes per-stop trip frequency statistics over a time
// of day window: number of trips, trips per hour, the longest wait a rider
// arriving at a random moment could face, and the average headway.
package headway

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrEmptyWindow       = errors.New("window end must be after window start")
	ErrReadingSchedule   = errors.New("failed to read stop schedule")
	ErrInvalidSchedule   = errors.New("invalid stop schedule")
	ErrNegativeDeparture = errors.New("departure before midnight")
)

// NullSentinel is written in place of a missing wait time by sinks that
// cannot store nulls.
const NullSentinel = -1

// Window is a time of day range, both ends inclusive.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// Hours returns the window length in hours.
func (w Window) Hours() float64 { return (w.End - w.Start).Hours() }

func (w Window) contains(d time.Duration) bool { return d >= w.Start && d <= w.End }

// Minutes is an optional duration in minutes.
type Minutes struct {
	Value float64
	Valid bool
}

func minutes(d time.Duration) Minutes { return Minutes{Value: d.Minutes(), Valid: true} }

// Field renders m for output: the value, or nil / NullSentinel when missing.
func (m Minutes) Field(nullSentinel bool) any {
	if m.Valid {
		return m.Value
	}
	if nullSentinel {
		return float64(NullSentinel)
	}
	return nil
}

// Stats summarises the departures of one stop within a window.
// A stop with no trips has NumTrips == 0; a stop with a single trip has
// trips but no computable wait time or headway.
type Stats struct {
	NumTrips     int
	TripsPerHour float64
	MaxWaitTime  Minutes
	AvgHeadway   Minutes
}

// StopStats computes Stats for departures, given as offsets from midnight,
// counting only those with window.Start <= d <= window.End.
func StopStats(departures []time.Duration, window Window) (Stats, error) {
	if window.End <= window.Start {
		return Stats{}, fmt.Errorf("%w: %s..%s", ErrEmptyWindow, window.Start, window.End)
	}

	in := make([]time.Duration, 0, len(departures))
	for _, d := range departures {
		if d < 0 {
			return Stats{}, fmt.Errorf("%w: %s", ErrNegativeDeparture, d)
		}
		if window.contains(d) {
			in = append(in, d)
		}
	}
	sort.Slice(in, func(i, j int) bool { return in[i] < in[j] })

	st := Stats{
		NumTrips:     len(in),
		TripsPerHour: float64(len(in)) / window.Hours(),
	}
	if len(in) < 2 {
		return st, nil
	}

	maxWait := max(in[0]-window.Start, window.End-in[len(in)-1])
	for i := 1; i < len(in); i++ {
		maxWait = max(maxWait, in[i]-in[i-1])
	}
	st.MaxWaitTime = minutes(maxWait)
	st.AvgHeadway = minutes((in[len(in)-1] - in[0]) / time.Duration(len(in)-1))
	return st, nil
}
