package coverage

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

func square(x0, y0, x1, y1 float64) orb.MultiPolygon {
	return orb.MultiPolygon{{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}}
}

func at(minute int) timewindow.Timestamp {
	return timewindow.At(timewindow.Weekday(time.Monday), 8*time.Hour+time.Duration(minute)*time.Minute)
}

var facilityA = GroupKey{FacilityID: "A", FromBreak: 0, ToBreak: 30}

func TestNewGridTilesBound(t *testing.T) {
	g, err := NewGrid(orb.Bound{Min: orb.Point{10, 20}, Max: orb.Point{35, 40}}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Cols != 3 || g.Rows != 2 {
		t.Fatalf("expected 3x2 grid, got %dx%d", g.Cols, g.Rows)
	}
	if c := g.Centroid(Cell{Col: 0, Row: 0}); c != (orb.Point{15, 25}) {
		t.Fatalf("unexpected centroid %v", c)
	}
	if b := g.CellBound(Cell{Col: 2, Row: 1}); b.Max != (orb.Point{40, 40}) {
		t.Fatalf("unexpected cell bound %v", b)
	}

	for _, size := range []float64{0, -1} {
		if _, err := NewGrid(orb.Bound{Max: orb.Point{1, 1}}, size); !errors.Is(err, ErrNonPositiveCellSize) {
			t.Fatalf("size %v: expected ErrNonPositiveCellSize, got %v", size, err)
		}
	}
	if _, err := NewGrid(orb.Bound{Max: orb.Point{1e6, 1e6}}, 0.01); !errors.Is(err, ErrGridTooLarge) {
		t.Fatalf("expected ErrGridTooLarge, got %v", err)
	}
}

func TestCountGroupUsesCellCentroids(t *testing.T) {
	slices := []Slice{
		{Group: facilityA, Time: at(0), Geometry: square(0, 0, 4, 4)},
		{Group: facilityA, Time: at(10), Geometry: square(0, 0, 2, 4)},
		// Covers only the left half of column 2, so its centroids stay outside.
		{Group: facilityA, Time: at(20), Geometry: square(0, 0, 2.4, 1)},
	}

	cov, err := CountGroup(facilityA, slices, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := map[Cell]int{
		{Col: 0, Row: 0}: 3,
		{Col: 1, Row: 0}: 3,
		{Col: 2, Row: 0}: 1,
		{Col: 1, Row: 3}: 2,
		{Col: 3, Row: 3}: 1,
	}
	for cell, want := range cases {
		if got := cov.TimesCovered(cell); got != want {
			t.Fatalf("cell %+v: expected %d, got %d", cell, want, got)
		}
	}
	if got := cov.Percent(Cell{Col: 1, Row: 3}, 3); got < 66.66 || got > 66.67 {
		t.Fatalf("expected ~66.67 percent, got %v", got)
	}
	if cov.TimesCovered(Cell{Col: 99, Row: 0}) != 0 {
		t.Fatalf("expected off-grid cell to report 0")
	}
}

func TestGroupSlicesMergesPartsAndSeparatesGroups(t *testing.T) {
	facilityB := GroupKey{FacilityID: "B", FromBreak: 0, ToBreak: 30}
	slices := []Slice{
		{Group: facilityA, Time: at(0), Geometry: square(0, 0, 1, 1)},
		{Group: facilityA, Time: at(0), Geometry: square(5, 5, 6, 6)},
		{Group: facilityB, Time: at(0), Geometry: square(0, 0, 1, 1)},
		{Group: facilityA, Time: at(10), Geometry: square(0, 0, 1, 1)},
	}

	groups := GroupSlices(slices)
	if len(groups[facilityA]) != 2 || len(groups[facilityB]) != 1 {
		t.Fatalf("unexpected grouping %v", groups)
	}
	if len(groups[facilityA][0].Geometry) != 2 {
		t.Fatalf("expected parts at the same time to merge, got %d polygons", len(groups[facilityA][0].Geometry))
	}

	covs, err := CountCoverage(slices, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := covs[facilityA].TimesCovered(Cell{Col: 0, Row: 0}); got != 2 {
		t.Fatalf("expected facility A counted twice, got %d", got)
	}
	if got := covs[facilityB].TimesCovered(Cell{Col: 0, Row: 0}); got != 1 {
		t.Fatalf("expected facility B counted once, got %d", got)
	}
	if DistinctTimes(slices) != 2 {
		t.Fatalf("expected 2 distinct times, got %d", DistinctTimes(slices))
	}
}

func TestThresholdBoundaryIsInclusive(t *testing.T) {
	var slices []Slice
	for i := 0; i < 10; i++ {
		geom := square(0, 0, 1, 1)
		if i < 7 {
			geom = square(0, 0, 2, 1)
		}
		slices = append(slices, Slice{Group: facilityA, Time: at(i), Geometry: geom})
	}

	polys, err := BuildGroup(facilityA, slices, Options{CellSize: 1, Thresholds: []float64{70, 80}, TotalSlices: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if polys[0].CellCount != 2 {
		t.Fatalf("expected both cells at 70%%, got %d", polys[0].CellCount)
	}
	if polys[1].CellCount != 1 {
		t.Fatalf("expected one cell at 80%%, got %d", polys[1].CellCount)
	}
	if polys[0].Area != 2 {
		t.Fatalf("expected area 2, got %v", polys[0].Area)
	}
	if len(polys[0].Geometry) != 1 || len(polys[0].Geometry[0][0]) != 5 {
		t.Fatalf("expected two adjacent cells dissolved into one rectangle, got %v", polys[0].Geometry)
	}
}

func TestDissolveKeepsHolesAndDiagonalNeighbours(t *testing.T) {
	g := Grid{CellSize: 1, Cols: 4, Rows: 4}
	mask := make([]bool, g.Len())
	set := func(col, row int) { mask[row*g.Cols+col] = true }
	// A 3x3 ring with an empty centre, plus a cell touching it only at a corner.
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			if col != 1 || row != 1 {
				set(col, row)
			}
		}
	}
	set(3, 3)

	mp := dissolve(g, mask)
	if len(mp) != 2 {
		t.Fatalf("expected 2 polygons, got %d: %v", len(mp), mp)
	}
	var withHole orb.Polygon
	for _, p := range mp {
		if len(p) == 2 {
			withHole = p
		}
	}
	if withHole == nil {
		t.Fatalf("expected one polygon with a hole, got %v", mp)
	}
	if planar.PolygonContains(withHole, orb.Point{1.5, 1.5}) {
		t.Fatalf("hole centre must not be inside the dissolved polygon")
	}
	if !planar.PolygonContains(withHole, orb.Point{0.5, 1.5}) {
		t.Fatalf("ring cell must be inside the dissolved polygon")
	}
}

func TestThresholdPolygonsNest(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const total = 12

	for round := 0; round < 25; round++ {
		g := Grid{Origin: orb.Point{100, 200}, CellSize: 2.5, Cols: 14, Rows: 11}
		cov := &Coverage{Group: facilityA, Grid: g, Slices: total, counts: make([]int, g.Len())}
		for i := range cov.counts {
			cov.counts[i] = rng.Intn(total + 1)
		}

		polys, err := BuildThresholdPolygons(cov, total, []float64{50, 75})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p50, p75 := polys[0], polys[1]
		if p75.CellCount > p50.CellCount {
			t.Fatalf("round %d: 75%% selects more cells than 50%%", round)
		}

		for i := range cov.counts {
			cell := g.cell(i)
			pt := g.Centroid(cell)
			in50 := planar.MultiPolygonContains(p50.Geometry, pt)
			in75 := planar.MultiPolygonContains(p75.Geometry, pt)
			if in50 != Selected(cov.counts[i], total, 50) || in75 != Selected(cov.counts[i], total, 75) {
				t.Fatalf("round %d: cell %+v geometry disagrees with its coverage %d", round, cell, cov.counts[i])
			}
			if in75 && !in50 {
				t.Fatalf("round %d: cell %+v in 75%% polygon but not in 50%% polygon", round, cell)
			}
		}
		for _, poly := range p75.Geometry {
			for _, pt := range poly[0] {
				inside := planar.MultiPolygonContains(p50.Geometry, pt)
				onEdge := false
				for _, outer := range p50.Geometry {
					for _, ring := range outer {
						for j := 0; j+1 < len(ring); j++ {
							if onSegment(ring[j], ring[j+1], pt) {
								onEdge = true
							}
						}
					}
				}
				if !inside && !onEdge {
					t.Fatalf("round %d: 75%% vertex %v outside the 50%% polygon", round, pt)
				}
			}
		}
	}
}

func onSegment(a, b, p orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if cross > 1e-9 || cross < -1e-9 {
		return false
	}
	return p[0] >= min(a[0], b[0])-1e-9 && p[0] <= max(a[0], b[0])+1e-9 &&
		p[1] >= min(a[1], b[1])-1e-9 && p[1] <= max(a[1], b[1])+1e-9
}

func TestBuildAllSkipsFailingGroup(t *testing.T) {
	broken := GroupKey{FacilityID: "broken", FromBreak: 0, ToBreak: 30}
	slices := []Slice{
		{Group: facilityA, Time: at(0), Geometry: square(0, 0, 3, 3)},
		{Group: facilityA, Time: at(10), Geometry: square(0, 0, 1, 1)},
		{Group: broken, Time: at(0), Geometry: orb.MultiPolygon{}},
	}

	report, err := BuildAll(context.Background(), slices, Options{CellSize: 1, Thresholds: []float64{50, 100}}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Group != broken {
		t.Fatalf("expected the broken group skipped, got %+v", report.Skipped)
	}
	if !errors.Is(report.Skipped[0].Err, ErrEmptyGeometry) {
		t.Fatalf("expected ErrEmptyGeometry, got %v", report.Skipped[0].Err)
	}
	if len(report.Polygons) != 2 {
		t.Fatalf("expected 2 polygons for facility A, got %d", len(report.Polygons))
	}
	if report.Polygons[0].CellCount != 9 || report.Polygons[1].CellCount != 1 {
		t.Fatalf("unexpected cell counts %d, %d", report.Polygons[0].CellCount, report.Polygons[1].CellCount)
	}
}

func TestBuildAllRejectsBadOptions(t *testing.T) {
	slices := []Slice{{Group: facilityA, Time: at(0), Geometry: square(0, 0, 1, 1)}}
	if _, err := BuildAll(context.Background(), slices, Options{CellSize: 0, Thresholds: []float64{50}}, zap.NewNop()); !errors.Is(err, ErrNonPositiveCellSize) {
		t.Fatalf("expected ErrNonPositiveCellSize, got %v", err)
	}
	for _, th := range [][]float64{nil, {0}, {101}, {-5}} {
		if _, err := BuildAll(context.Background(), slices, Options{CellSize: 1, Thresholds: th}, zap.NewNop()); !errors.Is(err, ErrInvalidThreshold) {
			t.Fatalf("thresholds %v: expected ErrInvalidThreshold, got %v", th, err)
		}
	}
}
