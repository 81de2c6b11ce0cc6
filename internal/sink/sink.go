// Package sink writes analysis results to their destinations: a SQL
// database, a Kafka topic or GeoJSON files.
package sink

import (
	"context"

	"go.uber.org/multierr"

	"github.com/sanspareilsmyn/transitlens/internal/accessibility"
	"github.com/sanspareilsmyn/transitlens/internal/accumulate"
	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/solver"
)

// Sink receives the finished output of a run. Writes happen after all
// parallel work has been merged, from a single goroutine.
type Sink interface {
	WriteAccessibility(ctx context.Context, results []accessibility.Result) error
	WriteTravelTimes(ctx context.Context, rows []accumulate.Row[solver.ODPair]) error
	WriteThresholdPolygons(ctx context.Context, polys []coverage.ThresholdPolygon) error
	WriteStopStats(ctx context.Context, rows []StopRow) error
	Close() error
}

// Multi writes to every sink in order and stops at the first failing write.
type Multi struct {
	sinks []Sink
}

// NewMulti combines sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) each(fn func(Sink) error) error {
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) WriteAccessibility(ctx context.Context, results []accessibility.Result) error {
	return m.each(func(s Sink) error { return s.WriteAccessibility(ctx, results) })
}

func (m *Multi) WriteTravelTimes(ctx context.Context, rows []accumulate.Row[solver.ODPair]) error {
	return m.each(func(s Sink) error { return s.WriteTravelTimes(ctx, rows) })
}

func (m *Multi) WriteThresholdPolygons(ctx context.Context, polys []coverage.ThresholdPolygon) error {
	return m.each(func(s Sink) error { return s.WriteThresholdPolygons(ctx, polys) })
}

func (m *Multi) WriteStopStats(ctx context.Context, rows []StopRow) error {
	return m.each(func(s Sink) error { return s.WriteStopStats(ctx, rows) })
}

// Close closes every sink, even when some fail.
func (m *Multi) Close() error {
	var err error
	for _, s := range m.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}
