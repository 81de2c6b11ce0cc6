package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/transitlens/internal/accumulate"
	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/solver"
	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

// SweepSummary lists which timestamps produced a solution.
type SweepSummary struct {
	Solved  int
	Skipped []timewindow.Timestamp
}

// Sweep solves every timestamp in order and feeds the observations into
// engine. A timestamp without a solution is logged and skipped; any other
// solver error stops the sweep.
//
// A key reported more than once in one solve is counted once, with its
// smallest value.
func Sweep[K comparable](ctx context.Context, s solver.Solver[K], timestamps []timewindow.Timestamp, engine *accumulate.Engine[K], logger *zap.Logger) (SweepSummary, error) {
	var summary SweepSummary
	for _, at := range timestamps {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		obs, err := s.Solve(ctx, at)
		if errors.Is(err, solver.ErrNoSolution) {
			logger.Warn("No solution, skipping timestamp", zap.Stringer("at", at), zap.Error(err))
			summary.Skipped = append(summary.Skipped, at)
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("%w at %s: %w", ErrSolveFailed, at, err)
		}

		best := make(map[K]float64, len(obs))
		order := make([]K, 0, len(obs))
		for _, o := range obs {
			v, seen := best[o.Key]
			if !seen {
				order = append(order, o.Key)
				best[o.Key] = o.Value
				continue
			}
			best[o.Key] = min(v, o.Value)
		}
		for _, k := range order {
			engine.Update(k, best[k])
		}
		summary.Solved++
	}
	return summary, nil
}

// SweepPolygons collects the polygons solved at every timestamp. Timestamps
// without a solution are skipped as in Sweep.
func SweepPolygons(ctx context.Context, s solver.PolygonSolver, timestamps []timewindow.Timestamp, logger *zap.Logger) ([]coverage.Slice, SweepSummary, error) {
	var (
		slices  []coverage.Slice
		summary SweepSummary
	)
	for _, at := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, summary, err
		}
		got, err := s.SolvePolygons(ctx, at)
		if errors.Is(err, solver.ErrNoSolution) {
			logger.Warn("No service area, skipping timestamp", zap.Stringer("at", at), zap.Error(err))
			summary.Skipped = append(summary.Skipped, at)
			continue
		}
		if err != nil {
			return nil, summary, fmt.Errorf("%w at %s: %w", ErrSolveFailed, at, err)
		}
		slices = append(slices, got...)
		summary.Solved++
	}
	return slices, summary, nil
}
