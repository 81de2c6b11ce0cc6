// Package solver defines the boundary to the external network-analysis engine.
//
// The engine itself is a black box: it is asked to solve at one analysis time
// and answers with the keys it reached and their impedance. Absence of a key in
// an answer means the key was not reached at that time.
package solver

import (
	"context"

	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

// Observation is one reached key and its value (travel time, cost, ...).
type Observation[K comparable] struct {
	Key   K
	Value float64
}

// Solver answers one solve per analysis time. Implementations return
// ErrNoSolution (possibly wrapped) when nothing could be solved at that time;
// any other error is treated as fatal for the run.
//
// A Solver is not assumed reentrant: callers solve successive times sequentially.
type Solver[K comparable] interface {
	Solve(ctx context.Context, at timewindow.Timestamp) ([]Observation[K], error)
}

// Factory builds an independent Solver for one unit of work over ds.
type Factory[K comparable] func(ds *Dataset) (Solver[K], error)

// PolygonSolver produces service-area polygons for one analysis time.
type PolygonSolver interface {
	SolvePolygons(ctx context.Context, at timewindow.Timestamp) ([]coverage.Slice, error)
}

// PolygonFactory builds an independent PolygonSolver for the given facility groups.
type PolygonFactory func(groups []coverage.GroupKey) (PolygonSolver, error)
