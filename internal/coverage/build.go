package coverage

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/transitlens/internal/metrics"
)

// Options controls percent-access polygon building.
type Options struct {
	CellSize   float64
	Thresholds []float64
	// TotalSlices is the number of analysis times the percentages refer to.
	// Zero means the number of distinct times present in the input.
	TotalSlices int
}

// GroupFailure records a group that could not be processed.
type GroupFailure struct {
	Group GroupKey
	Err   error
}

// Report is the outcome of BuildAll.
type Report struct {
	Polygons []ThresholdPolygon
	Skipped  []GroupFailure
}

// BuildGroup rasterizes one group and dissolves its threshold polygons.
func BuildGroup(group GroupKey, slices []Slice, opts Options) ([]ThresholdPolygon, error) {
	cov, err := CountGroup(group, slices, opts.CellSize)
	if err != nil {
		return nil, err
	}
	return BuildThresholdPolygons(cov, opts.TotalSlices, opts.Thresholds)
}

// BuildAll processes every group independently. A group that fails is logged
// and reported in Skipped; the remaining groups are still built.
func BuildAll(ctx context.Context, slices []Slice, opts Options, logger *zap.Logger) (Report, error) {
	if opts.CellSize <= 0 {
		return Report{}, fmt.Errorf("%w: got %v", ErrNonPositiveCellSize, opts.CellSize)
	}
	if err := ValidateThresholds(opts.Thresholds); err != nil {
		return Report{}, err
	}
	if opts.TotalSlices == 0 {
		opts.TotalSlices = DistinctTimes(slices)
	}
	if opts.TotalSlices <= 0 {
		return Report{}, fmt.Errorf("%w: got %d", ErrNoTimeSlices, opts.TotalSlices)
	}

	groups := GroupSlices(slices)
	keys := make([]GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return LessGroupKey(keys[i], keys[j]) })

	var report Report
	for _, group := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		polys, err := BuildGroup(group, groups[group], opts)
		if err != nil {
			logger.Warn("Skipping facility group after geometry failure",
				zap.String("group", group.String()),
				zap.Error(err),
			)
			metrics.GroupsSkipped.Inc()
			report.Skipped = append(report.Skipped, GroupFailure{Group: group, Err: err})
			continue
		}
		logger.Debug("Built percent access polygons",
			zap.String("group", group.String()),
			zap.Int("slices", len(groups[group])),
			zap.Int("thresholds", len(polys)),
		)
		report.Polygons = append(report.Polygons, polys...)
	}
	return report, nil
}
