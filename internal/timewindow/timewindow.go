// Package timewindow enumerates the discrete analysis times of a day/time window.
package timewindow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp is one analysis instant: a day plus a time of day.
type Timestamp struct {
	instant time.Time
	generic bool
}

// At builds a Timestamp on day d at offset since midnight. Offsets of 24h or
// more roll over onto the following day(s).
func At(d Day, sinceMidnight time.Duration) Timestamp {
	return Timestamp{instant: d.Midnight().Add(sinceMidnight), generic: d.IsGeneric()}
}

// Time returns the anchored instant. Generic weekdays resolve into the reference week.
func (t Timestamp) Time() time.Time { return t.instant }

// Day returns the day the timestamp falls on after rollover.
func (t Timestamp) Day() Day { return dayOf(t.instant, t.generic) }

// Weekday returns the weekday the timestamp falls on after rollover.
func (t Timestamp) Weekday() time.Weekday { return t.instant.Weekday() }

// IsGeneric reports whether the timestamp uses generic weekday semantics.
func (t Timestamp) IsGeneric() bool { return t.generic }

// SinceMidnight returns the time of day, always below 24h.
func (t Timestamp) SinceMidnight() time.Duration {
	h, m, s := t.instant.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

// Sub returns t-u.
func (t Timestamp) Sub(u Timestamp) time.Duration { return t.instant.Sub(u.instant) }

// Equal reports whether both timestamps name the same instant.
func (t Timestamp) Equal(u Timestamp) bool { return t.instant.Equal(u.instant) }

func (t Timestamp) String() string {
	return t.Day().String() + " " + FormatClock(t.SinceMidnight())
}

// MaxTimestamps bounds the length of an enumerated window.
const MaxTimestamps = 1 << 20

// Window is the user-facing description of an analysis time window.
type Window struct {
	StartDay  string
	StartTime string
	EndDay    string
	EndTime   string
	Increment time.Duration
}

// Timestamps parses the window and enumerates its analysis times.
func (w Window) Timestamps() ([]Timestamp, error) {
	startDay, err := ParseDay(w.StartDay)
	if err != nil {
		return nil, fmt.Errorf("start day: %w", err)
	}
	endDay, err := ParseDay(w.EndDay)
	if err != nil {
		return nil, fmt.Errorf("end day: %w", err)
	}
	startTime, err := ParseClock(w.StartTime)
	if err != nil {
		return nil, fmt.Errorf("start time: %w", err)
	}
	endTime, err := ParseClock(w.EndTime)
	if err != nil {
		return nil, fmt.Errorf("end time: %w", err)
	}
	return MakeTimeList(startDay, startTime, endDay, endTime, w.Increment)
}

// MakeTimeList returns the ordered analysis times from start to end inclusive,
// stepping by increment. The last element never passes end.
func MakeTimeList(startDay Day, startTime time.Duration, endDay Day, endTime time.Duration, increment time.Duration) ([]Timestamp, error) {
	if increment <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrNonPositiveIncrement, increment)
	}
	if startDay.IsGeneric() != endDay.IsGeneric() {
		return nil, fmt.Errorf("%w: start %s, end %s", ErrMixedDayKinds, startDay, endDay)
	}
	if startDay.IsGeneric() && startDay.Weekday() != endDay.Weekday() {
		return nil, fmt.Errorf("%w: start %s, end %s", ErrWeekdayMismatch, startDay, endDay)
	}

	start := At(startDay, startTime)
	end := At(endDay, endTime)
	span := end.Sub(start)
	if span < 0 {
		return nil, fmt.Errorf("%w: start %s, end %s", ErrEndBeforeStart, start, end)
	}

	steps := span / increment
	if steps >= MaxTimestamps {
		return nil, fmt.Errorf("%w: %d steps of %s between %s and %s", ErrTooManyTimestamps, int64(steps)+1, increment, start, end)
	}
	n := int(steps) + 1
	times := make([]Timestamp, 0, n)
	for i := 0; i < n; i++ {
		times = append(times, Timestamp{
			instant: start.instant.Add(time.Duration(i) * increment),
			generic: start.generic,
		})
	}
	return times, nil
}

// Split cuts ts into at most n contiguous, non-empty chunks of near-equal size.
func Split(ts []Timestamp, n int) [][]Timestamp {
	if n <= 0 || len(ts) == 0 {
		return nil
	}
	if n > len(ts) {
		n = len(ts)
	}
	chunks := make([][]Timestamp, 0, n)
	size, rem := len(ts)/n, len(ts)%n
	for i, lo := 0, 0; i < n; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		chunks = append(chunks, ts[lo:hi])
		lo = hi
	}
	return chunks
}

// ParseClock parses HH:MM or HH:MM:SS. Hours above 23 express times past
// midnight of the same service day.
func ParseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	fields := make([]int, len(parts))
	for i, p := range parts {
		if p == "" || len(p) > 3 || (i > 0 && len(p) != 2) {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
			}
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
		}
		if i > 0 && v > 59 {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
		}
		fields[i] = v
	}

	d := time.Duration(fields[0])*time.Hour + time.Duration(fields[1])*time.Minute
	if len(fields) == 3 {
		d += time.Duration(fields[2]) * time.Second
	}
	return d, nil
}

// FormatClock renders a time of day as HH:MM, or HH:MM:SS when seconds are set.
func FormatClock(d time.Duration) string {
	total := int64(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}
