package sink

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"

	"github.com/sanspareilsmyn/transitlens/internal/accessibility"
	"github.com/sanspareilsmyn/transitlens/internal/accumulate"
	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/headway"
	"github.com/sanspareilsmyn/transitlens/internal/solver"
)

// Column types are portable between sqlite and postgres.
const (
	colText    = "TEXT"
	colInteger = "INTEGER"
	colReal    = "DOUBLE PRECISION"
)

type column struct {
	name string
	typ  string
}

type table struct {
	name    string
	columns []column
	// spatial tables carry a geometry column filled from record.geometry.
	spatial bool
}

func (t table) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// record is one output row. key identifies the analysis entity it describes
// and is used as the Kafka message key.
type record struct {
	key      string
	values   map[string]any
	geometry orb.MultiPolygon
}

type batch struct {
	table   table
	records []record
}

const (
	tableAccessibility = "accessibility"
	tableStops         = "stops"
)

var (
	accessibilityTable = table{name: tableAccessibility, columns: accessibilityColumns()}
	travelTimeTable    = table{name: solver.ODCostMatrix.OutputSublayer(), columns: []column{
		{"run_id", colText},
		{"origin", colText},
		{"destination", colText},
		{"times_observed", colInteger},
		{"min_value", colReal},
		{"max_value", colReal},
		{"mean_value", colReal},
	}}
	polygonTable = table{name: solver.ServiceArea.OutputSublayer(), columns: []column{
		{"run_id", colText},
		{"facility_id", colText},
		{"from_break", colReal},
		{"to_break", colReal},
		{"threshold", colReal},
		{"cell_count", colInteger},
		{"area", colReal},
		{"geometry", colText},
	}, spatial: true}
	stopTable = table{name: tableStops, columns: []column{
		{"run_id", colText},
		{"stop_id", colText},
		{"num_trips", colInteger},
		{"trips_per_hour", colReal},
		{"max_wait_time", colReal},
		{"avg_headway", colReal},
	}}
)

func accessibilityColumns() []column {
	cols := []column{
		{"run_id", colText},
		{"origin", colText},
		{"reachable", colReal},
		{"percent_dests", colReal},
	}
	for _, d := range accessibility.Thresholds {
		cols = append(cols, column{reachedColumn(d), colReal})
	}
	for _, d := range accessibility.Thresholds {
		cols = append(cols, column{percentColumn(d), colReal})
	}
	return cols
}

func reachedColumn(d int) string { return "reached_" + strconv.Itoa(d) }
func percentColumn(d int) string { return "percent_" + strconv.Itoa(d) }

// StopRow is the headway summary of one stop.
type StopRow struct {
	StopID string
	Stats  headway.Stats
}

// encoder turns domain results into output records tagged with a run id.
type encoder struct {
	runID        string
	nullSentinel bool
}

func (e encoder) accessibility(results []accessibility.Result) batch {
	b := batch{table: accessibilityTable, records: make([]record, 0, len(results))}
	for _, r := range results {
		v := map[string]any{
			"run_id":        e.runID,
			"origin":        r.Origin,
			"reachable":     r.Reachable,
			"percent_dests": r.PercentDests,
		}
		for i, d := range accessibility.Thresholds {
			v[reachedColumn(d)] = r.ReachedAtThreshold[i]
			v[percentColumn(d)] = r.PercentAtThreshold[i]
		}
		b.records = append(b.records, record{key: r.Origin, values: v})
	}
	return b
}

func (e encoder) travelTimes(rows []accumulate.Row[solver.ODPair]) batch {
	b := batch{table: travelTimeTable, records: make([]record, 0, len(rows))}
	for _, r := range rows {
		b.records = append(b.records, record{key: r.Key.String(), values: map[string]any{
			"run_id":         e.runID,
			"origin":         r.Key.Origin,
			"destination":    r.Key.Destination,
			"times_observed": r.TimesObserved,
			"min_value":      r.Min,
			"max_value":      r.Max,
			"mean_value":     r.Mean,
		}})
	}
	return b
}

func (e encoder) thresholdPolygons(polys []coverage.ThresholdPolygon) batch {
	b := batch{table: polygonTable, records: make([]record, 0, len(polys))}
	for _, p := range polys {
		b.records = append(b.records, record{
			key: fmt.Sprintf("%s@%g", p.Group, p.Threshold),
			values: map[string]any{
				"run_id":      e.runID,
				"facility_id": p.Group.FacilityID,
				"from_break":  p.Group.FromBreak,
				"to_break":    p.Group.ToBreak,
				"threshold":   p.Threshold,
				"cell_count":  p.CellCount,
				"area":        p.Area,
			},
			geometry: p.Geometry,
		})
	}
	return b
}

func (e encoder) stopStats(rows []StopRow) batch {
	b := batch{table: stopTable, records: make([]record, 0, len(rows))}
	for _, r := range rows {
		b.records = append(b.records, record{key: r.StopID, values: map[string]any{
			"run_id":         e.runID,
			"stop_id":        r.StopID,
			"num_trips":      r.Stats.NumTrips,
			"trips_per_hour": r.Stats.TripsPerHour,
			"max_wait_time":  r.Stats.MaxWaitTime.Field(e.nullSentinel),
			"avg_headway":    r.Stats.AvgHeadway.Field(e.nullSentinel),
		}})
	}
	return b
}

func geometryOf(mp orb.MultiPolygon) *geojson.Geometry {
	coords := make([][][][]float64, 0, len(mp))
	for _, poly := range mp {
		rings := make([][][]float64, 0, len(poly))
		for _, ring := range poly {
			pts := make([][]float64, 0, len(ring))
			for _, p := range ring {
				pts = append(pts, []float64{p[0], p[1]})
			}
			rings = append(rings, pts)
		}
		coords = append(coords, rings)
	}
	return geojson.NewMultiPolygonGeometry(coords...)
}

// geometryText renders mp as a GeoJSON geometry string.
func geometryText(mp orb.MultiPolygon) (string, error) {
	raw, err := geometryOf(mp).MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
