// Package dispatch fans independent units of work out over a bounded pool of
// goroutines and collects their results in a deterministic order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// MaxWorkersCap bounds the worker count accepted by Run.
const MaxWorkersCap = 256

var (
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidChunkSize   = errors.New("chunk size must be positive")
	ErrDuplicateUnit      = errors.New("duplicate unit id")
	ErrUnitPanicked       = errors.New("unit panicked")
)

// Unit is one independent piece of work, e.g. a chunk of origins or one
// facility group.
type Unit[T any] struct {
	ID      string
	Payload T
}

// Failure records a unit that did not complete.
type Failure struct {
	UnitID string
	Err    error
}

// Outcome is the result of one successful unit.
type Outcome[R any] struct {
	UnitID string
	Value  R
}

// Report collects what every unit produced. Results and Failures are both
// ordered by unit id, independent of completion order.
type Report[R any] struct {
	Results  []Outcome[R]
	Failures []Failure
}

// Failed reports whether any unit failed.
func (r Report[R]) Failed() bool { return len(r.Failures) > 0 }

type taskResult[R any] struct {
	id    string
	value R
	err   error
}

// Run executes fn for every unit with at most maxWorkers units in flight. A
// unit error or panic is recorded as a Failure and never stops the other
// units. Run itself only fails on invalid input, which is checked before any
// unit starts, or when ctx is cancelled.
func Run[T, R any](ctx context.Context, units []Unit[T], maxWorkers int, fn func(ctx context.Context, u Unit[T]) (R, error), logger *zap.Logger) (Report[R], error) {
	if maxWorkers <= 0 || maxWorkers > MaxWorkersCap {
		return Report[R]{}, fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidWorkerCount, maxWorkers, MaxWorkersCap)
	}
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if _, dup := seen[u.ID]; dup {
			return Report[R]{}, fmt.Errorf("%w: %q", ErrDuplicateUnit, u.ID)
		}
		seen[u.ID] = struct{}{}
	}

	sugar := logger.Sugar()
	sugar.Debugw("Dispatching units", "units", len(units), "max_workers", maxWorkers)

	p := pool.NewWithResults[taskResult[R]]().WithMaxGoroutines(maxWorkers)
	for _, u := range units {
		u := u
		p.Go(func() taskResult[R] {
			return runUnit(ctx, u, fn)
		})
	}
	collected := p.Wait()

	if err := ctx.Err(); err != nil {
		return Report[R]{}, err
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].id < collected[j].id })

	var report Report[R]
	for _, tr := range collected {
		if tr.err != nil {
			sugar.Warnw("Unit failed", "unit", tr.id, zap.Error(tr.err))
			report.Failures = append(report.Failures, Failure{UnitID: tr.id, Err: tr.err})
			continue
		}
		report.Results = append(report.Results, Outcome[R]{UnitID: tr.id, Value: tr.value})
	}
	sugar.Infow("Dispatch finished", "succeeded", len(report.Results), "failed", len(report.Failures))
	return report, nil
}

func runUnit[T, R any](ctx context.Context, u Unit[T], fn func(context.Context, Unit[T]) (R, error)) (tr taskResult[R]) {
	tr.id = u.ID
	defer func() {
		if rec := recover(); rec != nil {
			tr.err = fmt.Errorf("%w: %v\n%s", ErrUnitPanicked, rec, debug.Stack())
		}
	}()
	if err := ctx.Err(); err != nil {
		tr.err = err
		return tr
	}
	tr.value, tr.err = fn(ctx, u)
	return tr
}

// Chunk partitions items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks, nil
}

// UnitID formats a zero-padded unit id so lexical order matches index order.
func UnitID(prefix string, i, total int) string {
	width := len(fmt.Sprint(max(total-1, 0)))
	return fmt.Sprintf("%s-%0*d", prefix, width, i)
}
