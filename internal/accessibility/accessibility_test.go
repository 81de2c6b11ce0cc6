package accessibility

import (
	"errors"
	"math"
	"testing"

	"github.com/sanspareilsmyn/transitlens/internal/solver"
)

func pair(o, d string) solver.ODPair { return solver.ODPair{Origin: o, Destination: d} }

func TestDecileBoundaryIsInclusive(t *testing.T) {
	counts := map[solver.ODPair]int{pair("o", "d"): 7}

	results, err := Compute(counts, 10, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := results["o"]
	for i, d := range Thresholds {
		want := 0.0
		if d <= 70 {
			want = 1
		}
		if r.ReachedAtThreshold[i] != want {
			t.Fatalf("threshold %d%%: expected %v, got %v", d, want, r.ReachedAtThreshold[i])
		}
	}
	if r.PercentAtThreshold[6] != 100 || r.PercentAtThreshold[7] != 0 {
		t.Fatalf("expected 70%% bucket at 100 and 80%% bucket at 0, got %v / %v", r.PercentAtThreshold[6], r.PercentAtThreshold[7])
	}
}

func TestWeightedReachable(t *testing.T) {
	weights := Weights{"A": 1, "B": 5, "C": 4}
	counts := map[solver.ODPair]int{
		pair("o", "A"): 1,
		pair("o", "B"): 3,
		pair("o", "C"): 0,
	}
	total := 10.0

	results, err := Compute(counts, 4, total, weights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := results["o"]
	if r.Reachable != 6 {
		t.Fatalf("expected reachable 6, got %v", r.Reachable)
	}
	if math.Abs(r.PercentDests-100*6/total) > 1e-12 {
		t.Fatalf("expected percent %v, got %v", 100*6/total, r.PercentDests)
	}
	// B reached 75% of the time, A 25%.
	if r.ReachedAtThreshold[1] != 6 || r.ReachedAtThreshold[2] != 5 || r.ReachedAtThreshold[6] != 5 || r.ReachedAtThreshold[7] != 0 {
		t.Fatalf("unexpected weighted buckets %v", r.ReachedAtThreshold)
	}
}

func TestComputeSeparatesOrigins(t *testing.T) {
	counts := map[solver.ODPair]int{
		pair("o1", "d1"): 2,
		pair("o1", "d2"): 2,
		pair("o2", "d1"): 1,
	}
	results, err := Compute(counts, 2, 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results["o1"].Reachable != 2 || results["o1"].PercentDests != 100 {
		t.Fatalf("unexpected o1 result %+v", results["o1"])
	}
	if results["o2"].Reachable != 1 || results["o2"].PercentAtThreshold[4] != 50 || results["o2"].PercentAtThreshold[5] != 0 {
		t.Fatalf("unexpected o2 result %+v", results["o2"])
	}

	sorted := SortedResults(results, []string{"o3", "o1"})
	if len(sorted) != 3 || sorted[0].Origin != "o1" || sorted[2].Origin != "o3" || sorted[2].Reachable != 0 {
		t.Fatalf("unexpected sorted results %+v", sorted)
	}
}

func TestComputeErrors(t *testing.T) {
	counts := map[solver.ODPair]int{pair("o", "d"): 1}
	if _, err := Compute(counts, 5, 0, nil); !errors.Is(err, ErrNoTargets) {
		t.Fatalf("expected ErrNoTargets, got %v", err)
	}
	if _, err := Compute(counts, 0, 1, nil); !errors.Is(err, ErrNoTimestamps) {
		t.Fatalf("expected ErrNoTimestamps, got %v", err)
	}
	if _, err := Compute(map[solver.ODPair]int{pair("o", "d"): 6}, 5, 1, nil); !errors.Is(err, ErrInconsistentCounts) {
		t.Fatalf("expected ErrInconsistentCounts, got %v", err)
	}
}

func TestWeightsTotal(t *testing.T) {
	w := Weights{"a": 2.5, "b": 0}
	if got := w.Total([]string{"a", "b", "c"}); got != 3.5 {
		t.Fatalf("expected 3.5, got %v", got)
	}
	var none Weights
	if got := none.Total([]string{"x", "y"}); got != 2 {
		t.Fatalf("expected unweighted total 2, got %v", got)
	}
}
