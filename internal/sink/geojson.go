package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/transitlens/internal/accessibility"
	"github.com/sanspareilsmyn/transitlens/internal/accumulate"
	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/metrics"
	"github.com/sanspareilsmyn/transitlens/internal/solver"
)

// GeoJSON writes one FeatureCollection file per output table into a
// directory. Non-spatial rows become features with a null geometry.
type GeoJSON struct {
	dir    string
	enc    encoder
	logger *zap.Logger
}

// NewGeoJSON creates dir if needed.
func NewGeoJSON(dir, runID string, nullSentinel bool, logger *zap.Logger) (*GeoJSON, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWritingFile, err)
	}
	return &GeoJSON{dir: dir, enc: encoder{runID: runID, nullSentinel: nullSentinel}, logger: logger.Named("geojson")}, nil
}

// Path returns the file a table is written to.
func (g *GeoJSON) Path(tableName string) string {
	return filepath.Join(g.dir, tableName+".geojson")
}

func (g *GeoJSON) WriteAccessibility(ctx context.Context, results []accessibility.Result) error {
	return g.write(ctx, g.enc.accessibility(results))
}

func (g *GeoJSON) WriteTravelTimes(ctx context.Context, rows []accumulate.Row[solver.ODPair]) error {
	return g.write(ctx, g.enc.travelTimes(rows))
}

func (g *GeoJSON) WriteThresholdPolygons(ctx context.Context, polys []coverage.ThresholdPolygon) error {
	return g.write(ctx, g.enc.thresholdPolygons(polys))
}

func (g *GeoJSON) WriteStopStats(ctx context.Context, rows []StopRow) error {
	return g.write(ctx, g.enc.stopStats(rows))
}

func (g *GeoJSON) Close() error { return nil }

func (g *GeoJSON) write(ctx context.Context, b batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fc := geojson.NewFeatureCollection()
	for _, r := range b.records {
		var geom *geojson.Geometry
		if b.table.spatial {
			geom = geometryOf(r.geometry)
		}
		f := geojson.NewFeature(geom)
		f.ID = r.key
		for _, name := range b.table.columnNames() {
			if v, ok := r.values[name]; ok {
				f.SetProperty(name, v)
			}
		}
		fc.AddFeature(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWritingFile, b.table.name, err)
	}
	path := g.Path(b.table.name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWritingFile, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %w", ErrWritingFile, err)
	}

	metrics.RowsWritten.WithLabelValues("geojson", b.table.name).Add(float64(len(b.records)))
	g.logger.Debug("Feature collection written", zap.String("path", path), zap.Int("features", len(b.records)))
	return nil
}
