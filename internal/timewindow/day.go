package timewindow

import (
	"fmt"
	"strings"
	"time"
)

// Generic weekdays use the transit-scheduling reference week in which
// Sunday is 1899-12-31 and Monday..Saturday are 1900-01-01..1900-01-06.
var genericSunday = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Day is either a generic weekday or a specific calendar date.
type Day struct {
	generic bool
	weekday time.Weekday
	date    time.Time // midnight UTC; only meaningful when !generic
}

// Weekday returns a generic weekday Day.
func Weekday(wd time.Weekday) Day {
	return Day{generic: true, weekday: wd}
}

// Date returns a calendar-date Day. Only the year, month and day of t are used.
func Date(t time.Time) Day {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Day{weekday: midnight.Weekday(), date: midnight}
}

// ParseDay accepts a weekday name (any case) or a date as YYYY-MM-DD or YYYYMMDD.
func ParseDay(s string) (Day, error) {
	trimmed := strings.TrimSpace(s)
	if wd, ok := weekdayNames[strings.ToLower(trimmed)]; ok {
		return Weekday(wd), nil
	}
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Date(t), nil
		}
	}
	return Day{}, fmt.Errorf("%w: %q", ErrMalformedDay, s)
}

// IsGeneric reports whether d is a generic weekday rather than a date.
func (d Day) IsGeneric() bool { return d.generic }

// Weekday returns the day of the week.
func (d Day) Weekday() time.Weekday { return d.weekday }

// Midnight returns the instant the day starts. Generic weekdays are anchored
// to the reference week.
func (d Day) Midnight() time.Time {
	if d.generic {
		return genericSunday.AddDate(0, 0, int(d.weekday))
	}
	return d.date
}

func (d Day) String() string {
	if d.generic {
		return d.weekday.String()
	}
	return d.date.Format("2006-01-02")
}

// dayOf maps an instant back to the Day it falls on.
func dayOf(t time.Time, generic bool) Day {
	if generic {
		return Weekday(t.Weekday())
	}
	return Date(t)
}
