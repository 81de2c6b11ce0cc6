// Package pipeline runs the analysis tools: it fans solves out over the
// worker pool, merges the per-unit results and hands them to a sink.
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/transitlens/internal/dispatch"
	"github.com/sanspareilsmyn/transitlens/internal/metrics"
	"github.com/sanspareilsmyn/transitlens/internal/sink"
	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

// Options control how a Runner splits its work.
type Options struct {
	MaxWorkers int
	// ChunkSize is the number of origins (or stops) per unit.
	ChunkSize int
	// TimeChunks splits the timestamps of every origin chunk into that many
	// contiguous ranges, each solved as its own unit. Zero means one.
	TimeChunks int
}

// Result summarises one tool run. Skipped timestamps and failed units are
// warnings: the written output covers everything else.
type Result struct {
	RunID       string
	Tool        string
	Timestamps  int
	Skipped     []timewindow.Timestamp
	FailedUnits []dispatch.Failure
	RowsWritten int
	Duration    time.Duration
}

// Runner executes analysis tools against one sink.
type Runner struct {
	runID  string
	opts   Options
	sink   sink.Sink
	logger *zap.Logger
}

// New creates a Runner with a fresh run id.
func New(opts Options, snk sink.Sink, logger *zap.Logger) *Runner {
	if opts.TimeChunks <= 0 {
		opts.TimeChunks = 1
	}
	return &Runner{
		runID:  uuid.NewString(),
		opts:   opts,
		sink:   snk,
		logger: logger.Named("pipeline"),
	}
}

// NewWithRunID is New with a caller supplied run id, used when the sink was
// built for that id already.
func NewWithRunID(runID string, opts Options, snk sink.Sink, logger *zap.Logger) *Runner {
	r := New(opts, snk, logger)
	r.runID = runID
	return r
}

// RunID identifies the rows this runner writes.
func (r *Runner) RunID() string { return r.runID }

func (r *Runner) newResult(tool string, timestamps int) Result {
	return Result{RunID: r.runID, Tool: tool, Timestamps: timestamps}
}

// finish records metrics and surfaces warnings collected during the run.
func (r *Runner) finish(res *Result, started time.Time) {
	res.Duration = time.Since(started)
	metrics.RunDuration.WithLabelValues(res.Tool).Observe(res.Duration.Seconds())

	sugar := r.logger.Sugar()
	if len(res.Skipped) > 0 {
		sugar.Warnw("Timestamps without a solution were skipped",
			"tool", res.Tool,
			"skipped", len(res.Skipped),
			"times", joinTimestamps(res.Skipped),
		)
	}
	if len(res.FailedUnits) > 0 {
		ids := make([]string, len(res.FailedUnits))
		for i, f := range res.FailedUnits {
			ids[i] = f.UnitID
		}
		sugar.Warnw("Some units failed and were left out of the output",
			"tool", res.Tool,
			"failed_units", strings.Join(ids, ","),
		)
	}
	sugar.Infow("Run finished",
		"run_id", res.RunID,
		"tool", res.Tool,
		"timestamps", res.Timestamps,
		"rows_written", res.RowsWritten,
		"duration", res.Duration,
	)
}

// recordUnits counts unit outcomes and fails the run when nothing succeeded.
func recordUnits[R any](tool string, report dispatch.Report[R], total int) error {
	metrics.Units.WithLabelValues(tool, metrics.OutcomeSucceeded).Add(float64(len(report.Results)))
	metrics.Units.WithLabelValues(tool, metrics.OutcomeFailed).Add(float64(len(report.Failures)))
	if total > 0 && len(report.Results) == 0 {
		return fmt.Errorf("%w: %d of %d units, first: %w", ErrAllUnitsFailed, len(report.Failures), total, report.Failures[0].Err)
	}
	return nil
}

func recordSolves(tool string, summary SweepSummary) {
	metrics.Solves.WithLabelValues(tool, metrics.OutcomeSolved).Add(float64(summary.Solved))
	metrics.Solves.WithLabelValues(tool, metrics.OutcomeNoSolution).Add(float64(len(summary.Skipped)))
}

// unionSkipped merges per-unit skip lists into one sorted list without duplicates.
func unionSkipped(lists ...[]timewindow.Timestamp) []timewindow.Timestamp {
	seen := make(map[int64]timewindow.Timestamp)
	for _, l := range lists {
		for _, at := range l {
			seen[at.Time().Unix()] = at
		}
	}
	out := make([]timewindow.Timestamp, 0, len(seen))
	for _, at := range seen {
		out = append(out, at)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time().Before(out[j].Time()) })
	return out
}

func joinTimestamps(ts []timewindow.Timestamp) string {
	parts := make([]string, len(ts))
	for i, at := range ts {
		parts[i] = at.String()
	}
	return strings.Join(parts, ", ")
}
