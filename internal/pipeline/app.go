package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/sanspareilsmyn/transitlens/internal/config"
	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/headway"
	"github.com/sanspareilsmyn/transitlens/internal/solver"
	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

// Run loads the inputs named by cfg and executes the configured tool.
func (r *Runner) Run(ctx context.Context, cfg config.RunConfig) (Result, error) {
	sugar := r.logger.Sugar()
	sugar.Infow("Starting run", "run_id", r.runID, "tool", cfg.Tool)

	switch cfg.Tool {
	case config.ToolAccessibility, config.ToolTravelTimeStats:
		log, err := solver.LoadReplay(cfg.Inputs.Replay)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrLoadingInput, err)
		}
		if log.Kind != solver.ODCostMatrix {
			return Result{}, fmt.Errorf("%w: %s needs an %s replay, got %s", ErrLoadingInput, cfg.Tool, solver.ODCostMatrix.Name(), log.Kind.Name())
		}
		timestamps, err := cfg.Window.Window().Timestamps()
		if err != nil {
			return Result{}, err
		}
		sugar.Infow("Inputs loaded",
			"origins", len(log.Dataset.Origins()),
			"destinations", len(log.Dataset.Destinations()),
			"timestamps", len(timestamps),
		)
		if cfg.Tool == config.ToolAccessibility {
			return r.Accessibility(ctx, log.Dataset, solver.ODFactory(log), timestamps)
		}
		return r.TravelTimeStats(ctx, log.Dataset, solver.ODFactory(log), timestamps)

	case config.ToolPercentAccess:
		slices, err := solver.LoadTimeLapsePolygons(cfg.Inputs.Polygons)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrLoadingInput, err)
		}
		timestamps := distinctTimestamps(slices)
		if cfg.Window.StartTime != "" {
			if timestamps, err = cfg.Window.Window().Timestamps(); err != nil {
				return Result{}, err
			}
		}
		groups := make([]coverage.GroupKey, 0)
		for g := range coverage.GroupSlices(slices) {
			groups = append(groups, g)
		}
		sugar.Infow("Inputs loaded", "polygons", len(slices), "groups", len(groups), "timestamps", len(timestamps))
		return r.PercentAccess(ctx, groups, solver.PolygonReplayFactory(slices), timestamps, coverage.Options{
			CellSize:    cfg.CellSize,
			Thresholds:  cfg.Thresholds,
			TotalSlices: cfg.TotalSlices,
		})

	case config.ToolStopHeadways:
		schedule, err := headway.LoadSchedule(cfg.Inputs.Schedule)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrLoadingInput, err)
		}
		start, err := timewindow.ParseClock(cfg.Window.StartTime)
		if err != nil {
			return Result{}, err
		}
		end, err := timewindow.ParseClock(cfg.Window.EndTime)
		if err != nil {
			return Result{}, err
		}
		sugar.Infow("Inputs loaded", "stops", len(schedule))
		return r.StopHeadways(ctx, schedule, headway.Window{Start: start, End: end})
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownTool, cfg.Tool)
}

func distinctTimestamps(slices []coverage.Slice) []timewindow.Timestamp {
	seen := make(map[int64]timewindow.Timestamp)
	for _, s := range slices {
		seen[s.Time.Time().Unix()] = s.Time
	}
	out := make([]timewindow.Timestamp, 0, len(seen))
	for _, at := range seen {
		out = append(out, at)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time().Before(out[j].Time()) })
	return out
}
