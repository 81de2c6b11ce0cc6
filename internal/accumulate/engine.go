// Package accumulate keeps per-key running statistics across a sweep of analysis times.
package accumulate

import (
	"math"
	"sort"
)

// Stats is the finalized view of one key.
type Stats struct {
	TimesObserved int
	Min           float64
	Max           float64
	Mean          float64
}

// Row pairs a key with its finalized statistics.
type Row[K comparable] struct {
	Key K
	Stats
}

// running holds the O(1) state kept per key. The sum is Neumaier-compensated
// so the final mean does not depend on update order beyond rounding.
type running struct {
	count int
	min   float64
	max   float64
	sum   float64
	comp  float64
}

func (r *running) add(x float64) {
	if r.count == 0 {
		r.min, r.max = x, x
	} else {
		r.min = math.Min(r.min, x)
		r.max = math.Max(r.max, x)
	}
	r.count++
	r.addSum(x)
}

func (r *running) addSum(x float64) {
	t := r.sum + x
	if math.Abs(r.sum) >= math.Abs(x) {
		r.comp += (r.sum - t) + x
	} else {
		r.comp += (x - t) + r.sum
	}
	r.sum = t
}

func (r *running) merge(o *running) {
	if o.count == 0 {
		return
	}
	if r.count == 0 {
		*r = *o
		return
	}
	r.min = math.Min(r.min, o.min)
	r.max = math.Max(r.max, o.max)
	r.count += o.count
	r.addSum(o.sum)
	r.addSum(o.comp)
}

func (r *running) stats() Stats {
	return Stats{
		TimesObserved: r.count,
		Min:           r.min,
		Max:           r.max,
		Mean:          (r.sum + r.comp) / float64(r.count),
	}
}

// Engine accumulates observations keyed by K.
//
// Lifecycle: Update repeatedly, then Finalize. An Engine is not safe for
// concurrent use; give each worker its own and Merge them afterwards.
type Engine[K comparable] struct {
	keys map[K]*running
}

// New returns an empty Engine.
func New[K comparable]() *Engine[K] {
	return &Engine[K]{keys: make(map[K]*running)}
}

// Update records one observation of key.
func (e *Engine[K]) Update(key K, value float64) {
	r, ok := e.keys[key]
	if !ok {
		r = &running{}
		e.keys[key] = r
	}
	r.add(value)
}

// Len returns the number of distinct keys seen.
func (e *Engine[K]) Len() int { return len(e.keys) }

// Merge folds other into e. Counts add, extremes compare and means combine
// weighted by count. other is left untouched.
func (e *Engine[K]) Merge(other *Engine[K]) {
	for k, o := range other.keys {
		r, ok := e.keys[k]
		if !ok {
			cp := *o
			e.keys[k] = &cp
			continue
		}
		r.merge(o)
	}
}

// Finalize returns the statistics for every key seen so far.
func (e *Engine[K]) Finalize() map[K]Stats {
	out := make(map[K]Stats, len(e.keys))
	for k, r := range e.keys {
		out[k] = r.stats()
	}
	return out
}

// Counts returns how many times each key was observed.
func (e *Engine[K]) Counts() map[K]int {
	out := make(map[K]int, len(e.keys))
	for k, r := range e.keys {
		out[k] = r.count
	}
	return out
}

// Rows returns finalized statistics ordered by less.
func (e *Engine[K]) Rows(less func(a, b K) bool) []Row[K] {
	rows := make([]Row[K], 0, len(e.keys))
	for k, r := range e.keys {
		rows = append(rows, Row[K]{Key: k, Stats: r.stats()})
	}
	sort.Slice(rows, func(i, j int) bool { return less(rows[i].Key, rows[j].Key) })
	return rows
}
