package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func units(n int) []Unit[int] {
	out := make([]Unit[int], n)
	for i := range out {
		out[i] = Unit[int]{ID: UnitID("unit", i, n), Payload: i}
	}
	return out
}

func TestRunCollectsPartialFailures(t *testing.T) {
	boom := errors.New("solver crashed")
	report, err := Run(context.Background(), units(5), 3, func(_ context.Context, u Unit[int]) (int, error) {
		if u.Payload == 2 {
			return 0, boom
		}
		return u.Payload * 10, nil
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(report.Results))
	}
	if len(report.Failures) != 1 || report.Failures[0].UnitID != "unit-2" || !errors.Is(report.Failures[0].Err, boom) {
		t.Fatalf("unexpected failures %+v", report.Failures)
	}
	want := []int{0, 10, 30, 40}
	for i, o := range report.Results {
		if o.Value != want[i] {
			t.Fatalf("result %d: expected %d, got %d", i, want[i], o.Value)
		}
	}
}

func TestRunOrdersResultsByUnitID(t *testing.T) {
	us := units(12)
	report, err := Run(context.Background(), us, 4, func(_ context.Context, u Unit[int]) (string, error) {
		// Later units finish first.
		time.Sleep(time.Duration(12-u.Payload) * time.Millisecond)
		return u.ID, nil
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, o := range report.Results {
		if o.UnitID != us[i].ID || o.Value != us[i].ID {
			t.Fatalf("position %d: expected %s, got %s", i, us[i].ID, o.UnitID)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak int64
	_, err := Run(context.Background(), units(20), 3, func(_ context.Context, _ Unit[int]) (struct{}, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return struct{}{}, nil
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak > 3 {
		t.Fatalf("expected at most 3 units in flight, saw %d", peak)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	report, err := Run(context.Background(), units(3), 2, func(_ context.Context, u Unit[int]) (int, error) {
		if u.Payload == 1 {
			panic("index out of range")
		}
		return u.Payload, nil
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Results) != 2 || len(report.Failures) != 1 {
		t.Fatalf("expected 2 results and 1 failure, got %d/%d", len(report.Results), len(report.Failures))
	}
	if !errors.Is(report.Failures[0].Err, ErrUnitPanicked) {
		t.Fatalf("expected ErrUnitPanicked, got %v", report.Failures[0].Err)
	}
}

func TestRunRejectsInvalidWorkerCount(t *testing.T) {
	for _, n := range []int{0, -1, MaxWorkersCap + 1} {
		var called int64
		_, err := Run(context.Background(), units(2), n, func(_ context.Context, _ Unit[int]) (int, error) {
			atomic.AddInt64(&called, 1)
			return 0, nil
		}, zap.NewNop())
		if !errors.Is(err, ErrInvalidWorkerCount) {
			t.Fatalf("workers=%d: expected ErrInvalidWorkerCount, got %v", n, err)
		}
		if called != 0 {
			t.Fatalf("workers=%d: no unit may run after validation fails", n)
		}
	}
}

func TestRunRejectsDuplicateUnits(t *testing.T) {
	us := []Unit[int]{{ID: "a"}, {ID: "a"}}
	if _, err := Run(context.Background(), us, 1, func(_ context.Context, _ Unit[int]) (int, error) { return 0, nil }, zap.NewNop()); !errors.Is(err, ErrDuplicateUnit) {
		t.Fatalf("expected ErrDuplicateUnit, got %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, units(3), 1, func(_ context.Context, u Unit[int]) (int, error) { return u.Payload, nil }, zap.NewNop()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestChunk(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	chunks, err := Chunk(items, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fmt.Sprint(chunks); got != "[[a b] [c d] [e]]" {
		t.Fatalf("unexpected chunks %s", got)
	}
	chunks[0] = append(chunks[0], "z")
	if items[2] != "c" {
		t.Fatalf("appending to a chunk must not overwrite the input")
	}
	if _, err := Chunk(items, 0); !errors.Is(err, ErrInvalidChunkSize) {
		t.Fatalf("expected ErrInvalidChunkSize, got %v", err)
	}
}

func TestUnitIDSortsNumerically(t *testing.T) {
	if got := UnitID("chunk", 3, 12); got != "chunk-03" {
		t.Fatalf("expected chunk-03, got %s", got)
	}
	if got := UnitID("chunk", 0, 1); got != "chunk-0" {
		t.Fatalf("expected chunk-0, got %s", got)
	}
}
