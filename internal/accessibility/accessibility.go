// Package accessibility turns per origin-destination reach counts into
// accessibility metrics: how many destinations each origin reaches, and how
// many it reaches in at least a given share of the analysis times.
package accessibility

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sanspareilsmyn/transitlens/internal/solver"
)

var (
	ErrNoTargets          = errors.New("total targets must be positive to compute percentages")
	ErrNoTimestamps       = errors.New("total timestamps must be positive")
	ErrInconsistentCounts = errors.New("reach count outside [0, total timestamps]")
)

// Thresholds are the percent-of-time buckets reported per origin.
var Thresholds = [9]int{10, 20, 30, 40, 50, 60, 70, 80, 90}

// Result holds the accessibility metrics of one origin. Reachable and the
// ReachedAtThreshold buckets are weighted sums; every weight defaults to 1.
type Result struct {
	Origin       string
	Reachable    float64
	PercentDests float64
	// ReachedAtThreshold[i] sums destinations reached in at least Thresholds[i] percent of times.
	ReachedAtThreshold [9]float64
	PercentAtThreshold [9]float64
}

// Weights maps destination ids to accessibility weights. A nil map or a
// missing id weighs 1.
type Weights map[string]float64

// Of returns the weight of dest.
func (w Weights) Of(dest string) float64 {
	if v, ok := w[dest]; ok {
		return v
	}
	return 1
}

// Total sums the weights of destinations in sorted order.
func (w Weights) Total(destinations []string) float64 {
	ids := append([]string(nil), destinations...)
	sort.Strings(ids)
	total := 0.0
	for _, id := range ids {
		total += w.Of(id)
	}
	return total
}

// Compute derives per-origin accessibility from reach counts. totalTargets is
// the (weighted) number of destinations percentages refer to. weights may be
// nil; missing destinations weigh 1.
func Compute(counts map[solver.ODPair]int, totalTimestamps int, totalTargets float64, weights Weights) (map[string]Result, error) {
	if totalTimestamps <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNoTimestamps, totalTimestamps)
	}
	if !(totalTargets > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrNoTargets, totalTargets)
	}

	byOrigin := make(map[string][]solver.ODPair)
	for pair, n := range counts {
		if n < 0 || n > totalTimestamps {
			return nil, fmt.Errorf("%w: %s reached %d of %d times", ErrInconsistentCounts, pair, n, totalTimestamps)
		}
		byOrigin[pair.Origin] = append(byOrigin[pair.Origin], pair)
	}

	out := make(map[string]Result, len(byOrigin))
	for origin, pairs := range byOrigin {
		// Fixed summation order keeps weighted totals identical across runs.
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].Destination < pairs[j].Destination })

		res := Result{Origin: origin}
		for _, pair := range pairs {
			n := counts[pair]
			if n == 0 {
				continue
			}
			w := weights.Of(pair.Destination)
			res.Reachable += w
			for i, d := range Thresholds {
				if n*100 >= d*totalTimestamps {
					res.ReachedAtThreshold[i] += w
				}
			}
		}
		res.PercentDests = 100 * res.Reachable / totalTargets
		for i := range Thresholds {
			res.PercentAtThreshold[i] = 100 * res.ReachedAtThreshold[i] / totalTargets
		}
		out[origin] = res
	}
	return out, nil
}

// SortedResults returns results ordered by origin, adding zero results for any of
// origins that reached nothing.
func SortedResults(results map[string]Result, origins []string) []Result {
	all := make(map[string]Result, len(results)+len(origins))
	for _, o := range origins {
		all[o] = Result{Origin: o}
	}
	for o, r := range results {
		all[o] = r
	}
	out := make([]Result, 0, len(all))
	for _, r := range all {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Origin < out[j].Origin })
	return out
}
