package solver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"

	"github.com/sanspareilsmyn/transitlens/internal/coverage"
	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

// Feature properties of a time lapse polygon.
const (
	PropFacilityID = "FacilityID"
	PropFromBreak  = "FromBreak"
	PropToBreak    = "ToBreak"
	PropDay        = "Day"
	PropTimeOfDay  = "TimeOfDay"
)

// LoadTimeLapsePolygons reads service-area polygons from a GeoJSON
// FeatureCollection. Each feature needs FacilityID, FromBreak, ToBreak, Day
// and TimeOfDay properties and a Polygon or MultiPolygon geometry.
func LoadTimeLapsePolygons(path string) ([]coverage.Slice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadingPolygons, err)
	}
	return ParseTimeLapsePolygons(data)
}

// ParseTimeLapsePolygons decodes a GeoJSON FeatureCollection of time lapse polygons.
func ParseTimeLapsePolygons(data []byte) ([]coverage.Slice, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadingPolygons, err)
	}

	slices := make([]coverage.Slice, 0, len(fc.Features))
	for i, f := range fc.Features {
		s, err := sliceFromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %w", ErrInvalidPolygonInput, i, err)
		}
		slices = append(slices, s)
	}
	return slices, nil
}

func sliceFromFeature(f *geojson.Feature) (coverage.Slice, error) {
	facility, ok := f.Properties[PropFacilityID]
	if !ok || facility == nil {
		return coverage.Slice{}, fmt.Errorf("missing %s", PropFacilityID)
	}
	from, err := f.PropertyFloat64(PropFromBreak)
	if err != nil {
		return coverage.Slice{}, err
	}
	to, err := f.PropertyFloat64(PropToBreak)
	if err != nil {
		return coverage.Slice{}, err
	}
	day, err := f.PropertyString(PropDay)
	if err != nil {
		return coverage.Slice{}, err
	}
	clock, err := f.PropertyString(PropTimeOfDay)
	if err != nil {
		return coverage.Slice{}, err
	}
	at, err := parseInstant(day, clock)
	if err != nil {
		return coverage.Slice{}, err
	}

	geom, err := toMultiPolygon(f.Geometry)
	if err != nil {
		return coverage.Slice{}, err
	}
	return coverage.Slice{
		Group: coverage.GroupKey{
			FacilityID: strings.TrimSpace(fmt.Sprint(facility)),
			FromBreak:  from,
			ToBreak:    to,
		},
		Time:     at,
		Geometry: geom,
	}, nil
}

func toMultiPolygon(g *geojson.Geometry) (orb.MultiPolygon, error) {
	switch {
	case g == nil:
		return nil, fmt.Errorf("missing geometry")
	case g.IsPolygon():
		return orb.MultiPolygon{toPolygon(g.Polygon)}, nil
	case g.IsMultiPolygon():
		mp := make(orb.MultiPolygon, 0, len(g.MultiPolygon))
		for _, p := range g.MultiPolygon {
			mp = append(mp, toPolygon(p))
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %s", g.Type)
	}
}

func toPolygon(rings [][][]float64) orb.Polygon {
	poly := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		ring := make(orb.Ring, 0, len(r))
		for _, p := range r {
			if len(p) >= 2 {
				ring = append(ring, orb.Point{p[0], p[1]})
			}
		}
		poly = append(poly, ring)
	}
	return poly
}

// PolygonReplay serves previously generated time lapse polygons as a PolygonSolver.
type PolygonReplay struct {
	byTime map[int64][]coverage.Slice
}

// NewPolygonReplay indexes slices by analysis time, keeping only the given
// groups. A nil groups slice keeps everything.
func NewPolygonReplay(slices []coverage.Slice, groups []coverage.GroupKey) *PolygonReplay {
	var keep map[coverage.GroupKey]struct{}
	if groups != nil {
		keep = make(map[coverage.GroupKey]struct{}, len(groups))
		for _, g := range groups {
			keep[g] = struct{}{}
		}
	}
	r := &PolygonReplay{byTime: make(map[int64][]coverage.Slice)}
	for _, s := range slices {
		if keep != nil {
			if _, ok := keep[s.Group]; !ok {
				continue
			}
		}
		unix := s.Time.Time().Unix()
		r.byTime[unix] = append(r.byTime[unix], s)
	}
	return r
}

// SolvePolygons returns the polygons recorded at the given time.
func (r *PolygonReplay) SolvePolygons(ctx context.Context, at timewindow.Timestamp) ([]coverage.Slice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slices, ok := r.byTime[at.Time().Unix()]
	if !ok || len(slices) == 0 {
		return nil, fmt.Errorf("%w at %s", ErrNoSolution, at)
	}
	return append([]coverage.Slice(nil), slices...), nil
}

// PolygonReplayFactory builds per-unit replays over a shared slice list.
func PolygonReplayFactory(slices []coverage.Slice) PolygonFactory {
	return func(groups []coverage.GroupKey) (PolygonSolver, error) {
		return NewPolygonReplay(slices, groups), nil
	}
}
