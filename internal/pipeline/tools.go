package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/transitlens/internal/accessibility"
	"github.com/sanspareilsmyn/transitlens/internal/accumulate"
	"github.com/sanspareilsmyn/transitlens/internal/config"
	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/dispatch"
	"github.com/sanspareilsmyn/transitlens/internal/headway"
	"github.com/sanspareilsmyn/transitlens/internal/metrics"
	"github.com/sanspareilsmyn/transitlens/internal/sink"
	"github.com/sanspareilsmyn/transitlens/internal/solver"
	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

type odWork struct {
	origins []string
	times   []timewindow.Timestamp
}

type odOutput struct {
	engine  *accumulate.Engine[solver.ODPair]
	summary SweepSummary
}

// Accessibility counts, per origin, the destinations reached and how often
// they were reached across timestamps, and writes one row per origin.
func (r *Runner) Accessibility(ctx context.Context, ds *solver.Dataset, factory solver.Factory[solver.ODPair], timestamps []timewindow.Timestamp) (Result, error) {
	started := time.Now()
	res := r.newResult(config.ToolAccessibility, len(timestamps))

	weights := accessibility.Weights(ds.Weights())
	dests := ds.Destinations()
	ids := make([]string, len(dests))
	for i, d := range dests {
		ids[i] = d.ID
	}
	totalTargets := weights.Total(ids)
	if !(totalTargets > 0) {
		return res, fmt.Errorf("%w: %w: weighted destination total is %v", ErrComputingMetrics, accessibility.ErrNoTargets, totalTargets)
	}

	engine, origins, err := r.sweepOD(ctx, &res, ds, factory, timestamps)
	if err != nil {
		return res, err
	}

	byOrigin, err := accessibility.Compute(engine.Counts(), len(timestamps), totalTargets, weights)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrComputingMetrics, err)
	}
	rows := accessibility.SortedResults(byOrigin, origins)
	if err := r.sink.WriteAccessibility(ctx, rows); err != nil {
		return res, fmt.Errorf("%w: %w", ErrWritingOutput, err)
	}
	res.RowsWritten = len(rows)
	r.finish(&res, started)
	return res, nil
}

// TravelTimeStats writes the min, max and mean travel time of every OD pair
// reached at least once.
func (r *Runner) TravelTimeStats(ctx context.Context, ds *solver.Dataset, factory solver.Factory[solver.ODPair], timestamps []timewindow.Timestamp) (Result, error) {
	started := time.Now()
	res := r.newResult(config.ToolTravelTimeStats, len(timestamps))

	engine, _, err := r.sweepOD(ctx, &res, ds, factory, timestamps)
	if err != nil {
		return res, err
	}
	rows := engine.Rows(solver.LessODPair)
	if err := r.sink.WriteTravelTimes(ctx, rows); err != nil {
		return res, fmt.Errorf("%w: %w", ErrWritingOutput, err)
	}
	res.RowsWritten = len(rows)
	r.finish(&res, started)
	return res, nil
}

// sweepOD solves every (origin chunk, time range) unit with its own solver
// and engine, then merges the engines in unit order. It returns the merged
// engine and the origins whose units all succeeded.
func (r *Runner) sweepOD(ctx context.Context, res *Result, ds *solver.Dataset, factory solver.Factory[solver.ODPair], timestamps []timewindow.Timestamp) (*accumulate.Engine[solver.ODPair], []string, error) {
	if len(timestamps) == 0 {
		return nil, nil, ErrNoTimestamps
	}
	originChunks, err := dispatch.Chunk(ds.Origins(), r.opts.ChunkSize)
	if err != nil {
		return nil, nil, err
	}
	timeChunks := timewindow.Split(timestamps, r.opts.TimeChunks)

	units := make([]dispatch.Unit[odWork], 0, len(originChunks)*len(timeChunks))
	for i, origins := range originChunks {
		for j, times := range timeChunks {
			units = append(units, dispatch.Unit[odWork]{
				ID:      dispatch.UnitID("o", i, len(originChunks)) + "/" + dispatch.UnitID("t", j, len(timeChunks)),
				Payload: odWork{origins: origins, times: times},
			})
		}
	}

	tool := res.Tool
	report, err := dispatch.Run(ctx, units, r.opts.MaxWorkers, func(ctx context.Context, u dispatch.Unit[odWork]) (odOutput, error) {
		s, err := factory(ds.Subset(u.Payload.origins))
		if err != nil {
			return odOutput{}, err
		}
		engine := accumulate.New[solver.ODPair]()
		summary, err := Sweep(ctx, s, u.Payload.times, engine, r.logger.With(zap.String("unit", u.ID)))
		recordSolves(tool, summary)
		if err != nil {
			metrics.Solves.WithLabelValues(tool, metrics.OutcomeFatal).Inc()
			return odOutput{}, err
		}
		return odOutput{engine: engine, summary: summary}, nil
	}, r.logger)
	if err != nil {
		return nil, nil, err
	}
	res.FailedUnits = report.Failures
	if err := recordUnits(tool, report, len(units)); err != nil {
		return nil, nil, err
	}

	// An origin with any failed time range is dropped entirely; its counts
	// would be partial.
	payloads := make(map[string]odWork, len(units))
	for _, u := range units {
		payloads[u.ID] = u.Payload
	}
	dropped := make(map[string]bool)
	for _, f := range report.Failures {
		for _, o := range payloads[f.UnitID].origins {
			dropped[o] = true
		}
	}

	merged := accumulate.New[solver.ODPair]()
	skipped := make([][]timewindow.Timestamp, 0, len(report.Results))
	for _, o := range report.Results {
		if dropped[payloads[o.UnitID].origins[0]] {
			continue
		}
		merged.Merge(o.Value.engine)
		skipped = append(skipped, o.Value.summary.Skipped)
	}
	res.Skipped = unionSkipped(skipped...)

	var kept []string
	for _, o := range ds.Origins() {
		if !dropped[o] {
			kept = append(kept, o)
		}
	}
	if len(dropped) > 0 {
		r.logger.Sugar().Warnw("Origins left out after unit failures", "origins", len(dropped))
	}
	return merged, kept, nil
}

type groupOutput struct {
	polygons []coverage.ThresholdPolygon
	summary  SweepSummary
}

// PercentAccess solves the service area of every facility group at each
// timestamp, rasterizes the polygons and writes the percent access
// threshold polygons. A group that fails is reported and left out.
func (r *Runner) PercentAccess(ctx context.Context, groups []coverage.GroupKey, factory solver.PolygonFactory, timestamps []timewindow.Timestamp, opts coverage.Options) (Result, error) {
	started := time.Now()
	res := r.newResult(config.ToolPercentAccess, len(timestamps))

	if len(timestamps) == 0 {
		return res, ErrNoTimestamps
	}
	if opts.CellSize <= 0 {
		return res, fmt.Errorf("%w: got %v", coverage.ErrNonPositiveCellSize, opts.CellSize)
	}
	if err := coverage.ValidateThresholds(opts.Thresholds); err != nil {
		return res, err
	}
	if opts.TotalSlices == 0 {
		opts.TotalSlices = len(timestamps)
	}

	sorted := append([]coverage.GroupKey(nil), groups...)
	sort.Slice(sorted, func(i, j int) bool { return coverage.LessGroupKey(sorted[i], sorted[j]) })
	units := make([]dispatch.Unit[coverage.GroupKey], len(sorted))
	for i, g := range sorted {
		units[i] = dispatch.Unit[coverage.GroupKey]{ID: dispatch.UnitID("g", i, len(sorted)), Payload: g}
	}

	tool := res.Tool
	report, err := dispatch.Run(ctx, units, r.opts.MaxWorkers, func(ctx context.Context, u dispatch.Unit[coverage.GroupKey]) (groupOutput, error) {
		ps, err := factory([]coverage.GroupKey{u.Payload})
		if err != nil {
			return groupOutput{}, err
		}
		slices, summary, err := SweepPolygons(ctx, ps, timestamps, r.logger.With(zap.String("group", u.Payload.String())))
		recordSolves(tool, summary)
		if err != nil {
			metrics.Solves.WithLabelValues(tool, metrics.OutcomeFatal).Inc()
			return groupOutput{}, err
		}
		polys, err := coverage.BuildGroup(u.Payload, slices, opts)
		if err != nil {
			metrics.GroupsSkipped.Inc()
			return groupOutput{}, fmt.Errorf("group %s: %w", u.Payload, err)
		}
		return groupOutput{polygons: polys, summary: summary}, nil
	}, r.logger)
	if err != nil {
		return res, err
	}
	res.FailedUnits = report.Failures
	if err := recordUnits(tool, report, len(units)); err != nil {
		return res, err
	}

	var polys []coverage.ThresholdPolygon
	skipped := make([][]timewindow.Timestamp, 0, len(report.Results))
	for _, o := range report.Results {
		polys = append(polys, o.Value.polygons...)
		skipped = append(skipped, o.Value.summary.Skipped)
	}
	res.Skipped = unionSkipped(skipped...)

	if err := r.sink.WriteThresholdPolygons(ctx, polys); err != nil {
		return res, fmt.Errorf("%w: %w", ErrWritingOutput, err)
	}
	res.RowsWritten = len(polys)
	r.finish(&res, started)
	return res, nil
}

// StopHeadways computes trip frequency statistics for every stop in schedule.
func (r *Runner) StopHeadways(ctx context.Context, schedule headway.Schedule, window headway.Window) (Result, error) {
	started := time.Now()
	res := r.newResult(config.ToolStopHeadways, 0)

	if window.End <= window.Start {
		return res, fmt.Errorf("%w: %s..%s", headway.ErrEmptyWindow, window.Start, window.End)
	}
	chunks, err := dispatch.Chunk(schedule.StopIDs(), r.opts.ChunkSize)
	if err != nil {
		return res, err
	}
	units := make([]dispatch.Unit[[]string], len(chunks))
	for i, c := range chunks {
		units[i] = dispatch.Unit[[]string]{ID: dispatch.UnitID("s", i, len(chunks)), Payload: c}
	}

	report, err := dispatch.Run(ctx, units, r.opts.MaxWorkers, func(ctx context.Context, u dispatch.Unit[[]string]) ([]sink.StopRow, error) {
		rows := make([]sink.StopRow, 0, len(u.Payload))
		for _, id := range u.Payload {
			st, err := headway.StopStats(schedule[id], window)
			if err != nil {
				return nil, fmt.Errorf("stop %s: %w", id, err)
			}
			rows = append(rows, sink.StopRow{StopID: id, Stats: st})
		}
		return rows, nil
	}, r.logger)
	if err != nil {
		return res, err
	}
	res.FailedUnits = report.Failures
	if err := recordUnits(res.Tool, report, len(units)); err != nil {
		return res, err
	}

	var rows []sink.StopRow
	for _, o := range report.Results {
		rows = append(rows, o.Value...)
	}
	if err := r.sink.WriteStopStats(ctx, rows); err != nil {
		return res, fmt.Errorf("%w: %w", ErrWritingOutput, err)
	}
	res.RowsWritten = len(rows)
	r.finish(&res, started)
	return res, nil
}
