package timewindow

import (
	"errors"
	"testing"
	"time"
)

func TestMakeTimeListWednesdayMorning(t *testing.T) {
	w := Window{StartDay: "Wednesday", StartTime: "08:00", EndDay: "Wednesday", EndTime: "09:00", Increment: 20 * time.Minute}

	times, err := w.Timestamps()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"08:00", "08:20", "08:40", "09:00"}
	if len(times) != len(want) {
		t.Fatalf("expected %d timestamps, got %d", len(want), len(times))
	}
	for i, ts := range times {
		if got := FormatClock(ts.SinceMidnight()); got != want[i] {
			t.Fatalf("timestamp %d: expected %s, got %s", i, want[i], got)
		}
		if ts.Weekday() != time.Wednesday || !ts.IsGeneric() {
			t.Fatalf("timestamp %d: expected generic Wednesday, got %s", i, ts)
		}
	}
}

func TestMakeTimeListLengthAndSpacing(t *testing.T) {
	cases := []struct {
		name      string
		start     string
		end       string
		increment time.Duration
	}{
		{"exact multiple", "06:00", "10:00", 15 * time.Minute},
		{"clipped tail", "06:00", "06:50", 20 * time.Minute},
		{"single instant", "12:00", "12:00", time.Minute},
		{"increment larger than span", "12:00", "12:05", time.Hour},
		{"past midnight", "22:30", "25:10", 7 * time.Minute},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, _ := ParseClock(tc.start)
			end, _ := ParseClock(tc.end)
			times, err := MakeTimeList(Weekday(time.Friday), start, Weekday(time.Friday), end, tc.increment)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			wantLen := int((end-start)/tc.increment) + 1
			if len(times) != wantLen {
				t.Fatalf("expected %d timestamps, got %d", wantLen, len(times))
			}
			for i := 1; i < len(times); i++ {
				if d := times[i].Sub(times[i-1]); d != tc.increment {
					t.Fatalf("gap %d: expected %s, got %s", i, tc.increment, d)
				}
			}
			last := times[len(times)-1]
			if last.Sub(At(Weekday(time.Friday), end)) > 0 {
				t.Fatalf("last timestamp %s passes end %s", last, tc.end)
			}
		})
	}
}

func TestMakeTimeListRollsPastMidnight(t *testing.T) {
	start, _ := ParseClock("23:30")
	end, _ := ParseClock("24:30")

	times, err := MakeTimeList(Weekday(time.Saturday), start, Weekday(time.Saturday), end, 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(times) != 3 {
		t.Fatalf("expected 3 timestamps, got %d", len(times))
	}
	last := times[2]
	if last.Weekday() != time.Sunday {
		t.Fatalf("expected rollover to Sunday, got %s", last.Weekday())
	}
	if got := FormatClock(last.SinceMidnight()); got != "00:30" {
		t.Fatalf("expected 00:30, got %s", got)
	}
	if !last.Time().After(times[1].Time()) {
		t.Fatalf("expected rolled timestamp to sort after its predecessor")
	}
}

func TestMakeTimeListAcrossDates(t *testing.T) {
	w := Window{StartDay: "2024-03-01", StartTime: "23:00", EndDay: "2024-03-02", EndTime: "01:00", Increment: time.Hour}

	times, err := w.Timestamps()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2024-03-01 23:00", "2024-03-02 00:00", "2024-03-02 01:00"}
	if len(times) != len(want) {
		t.Fatalf("expected %d timestamps, got %d", len(want), len(times))
	}
	for i, ts := range times {
		if ts.String() != want[i] {
			t.Fatalf("timestamp %d: expected %s, got %s", i, want[i], ts)
		}
	}
}

func TestMakeTimeListErrors(t *testing.T) {
	cases := []struct {
		name string
		w    Window
		want error
	}{
		{"zero increment", Window{"Monday", "08:00", "Monday", "09:00", 0}, ErrNonPositiveIncrement},
		{"negative increment", Window{"Monday", "08:00", "Monday", "09:00", -time.Minute}, ErrNonPositiveIncrement},
		{"end before start", Window{"Monday", "09:00", "Monday", "08:00", time.Minute}, ErrEndBeforeStart},
		{"date end before start", Window{"2024-03-02", "08:00", "2024-03-01", "09:00", time.Minute}, ErrEndBeforeStart},
		{"weekday mismatch", Window{"Monday", "08:00", "Tuesday", "09:00", time.Minute}, ErrWeekdayMismatch},
		{"mixed kinds", Window{"Monday", "08:00", "2024-03-01", "09:00", time.Minute}, ErrMixedDayKinds},
		{"malformed time", Window{"Monday", "8h", "Monday", "09:00", time.Minute}, ErrMalformedTime},
		{"minutes out of range", Window{"Monday", "08:75", "Monday", "09:00", time.Minute}, ErrMalformedTime},
		{"malformed day", Window{"Someday", "08:00", "Monday", "09:00", time.Minute}, ErrMalformedDay},
		{"centuries at 1ns", Window{"1900-01-01", "00:00", "2150-01-01", "00:00", time.Nanosecond}, ErrTooManyTimestamps},
		{"one day at 1ms", Window{"Monday", "00:00", "Monday", "23:59", time.Millisecond}, ErrTooManyTimestamps},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.w.Timestamps()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]time.Duration{
		"00:00":    0,
		"8:05":     8*time.Hour + 5*time.Minute,
		"25:00":    25 * time.Hour,
		"07:30:15": 7*time.Hour + 30*time.Minute + 15*time.Second,
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}

	for _, bad := range []string{"", "08", "-1:00", "+8:00", "08:5", "08:00:60", "aa:bb"} {
		if _, err := ParseClock(bad); !errors.Is(err, ErrMalformedTime) {
			t.Fatalf("%q: expected ErrMalformedTime, got %v", bad, err)
		}
	}
}

func TestGenericWeekAnchors(t *testing.T) {
	if got := Weekday(time.Monday).Midnight(); !got.Equal(time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected Monday anchored at 1900-01-01, got %s", got)
	}
	if got := Weekday(time.Sunday).Midnight(); !got.Equal(time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected Sunday anchored at 1899-12-31, got %s", got)
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if got := Weekday(wd).Midnight().Weekday(); got != wd {
			t.Fatalf("anchor for %s falls on %s", wd, got)
		}
	}
}

func TestSplitCoversAllTimestamps(t *testing.T) {
	times, err := MakeTimeList(Weekday(time.Monday), 0, Weekday(time.Monday), 10*time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks := Split(times, 3)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		if len(c) == 0 {
			t.Fatalf("unexpected empty chunk")
		}
		total += len(c)
	}
	if total != len(times) {
		t.Fatalf("expected %d timestamps across chunks, got %d", len(times), total)
	}
	if got := Split(times[:2], 5); len(got) != 2 {
		t.Fatalf("expected chunk count capped at 2, got %d", len(got))
	}
}

func TestMakeTimeListCapIsInclusive(t *testing.T) {
	monday := Weekday(time.Monday)
	last := time.Duration(MaxTimestamps-1) * time.Millisecond

	times, err := MakeTimeList(monday, 0, monday, last, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(times) != MaxTimestamps {
		t.Fatalf("expected %d timestamps, got %d", MaxTimestamps, len(times))
	}
	if _, err := MakeTimeList(monday, 0, monday, last+time.Millisecond, time.Millisecond); !errors.Is(err, ErrTooManyTimestamps) {
		t.Fatalf("expected ErrTooManyTimestamps, got %v", err)
	}
}
