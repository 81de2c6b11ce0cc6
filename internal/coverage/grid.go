// Package coverage counts how often time-sliced service-area polygons cover
// the cells of a raster grid and dissolves well-covered cells into
// percent-access polygons.
package coverage

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/sanspareilsmyn/transitlens/internal/timewindow"
)

// MaxCells bounds the size of a single grid.
const MaxCells = 25_000_000

// GroupKey separates facility / break combinations. Cells of different groups
// are never counted together.
type GroupKey struct {
	FacilityID string
	FromBreak  float64
	ToBreak    float64
}

func (g GroupKey) String() string {
	return fmt.Sprintf("%s [%g-%g]", g.FacilityID, g.FromBreak, g.ToBreak)
}

// LessGroupKey orders groups by facility, then breaks.
func LessGroupKey(a, b GroupKey) bool {
	if a.FacilityID != b.FacilityID {
		return a.FacilityID < b.FacilityID
	}
	if a.FromBreak != b.FromBreak {
		return a.FromBreak < b.FromBreak
	}
	return a.ToBreak < b.ToBreak
}

// Slice is the service area of one group at one analysis time.
type Slice struct {
	Group    GroupKey
	Time     timewindow.Timestamp
	Geometry orb.MultiPolygon
}

// Cell addresses one grid cell by column and row from the grid origin.
type Cell struct {
	Col, Row int
}

// Grid is a fixed-size raster anchored at the minimum corner of a bound.
// Cells tile [Origin, Origin + (Cols, Rows) * CellSize] without gaps or overlap.
type Grid struct {
	Origin   orb.Point
	CellSize float64
	Cols     int
	Rows     int
}

// NewGrid builds the smallest grid of cellSize cells covering bound.
func NewGrid(bound orb.Bound, cellSize float64) (Grid, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return Grid{}, fmt.Errorf("%w: got %v", ErrNonPositiveCellSize, cellSize)
	}
	cols := int(math.Ceil((bound.Max[0] - bound.Min[0]) / cellSize))
	rows := int(math.Ceil((bound.Max[1] - bound.Min[1]) / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if float64(cols)*float64(rows) > MaxCells {
		return Grid{}, fmt.Errorf("%w: %d x %d cells at size %v", ErrGridTooLarge, cols, rows, cellSize)
	}
	return Grid{Origin: bound.Min, CellSize: cellSize, Cols: cols, Rows: rows}, nil
}

// Len returns the number of cells.
func (g Grid) Len() int { return g.Cols * g.Rows }

func (g Grid) index(c Cell) int { return c.Row*g.Cols + c.Col }

func (g Grid) cell(i int) Cell { return Cell{Col: i % g.Cols, Row: i / g.Cols} }

// Contains reports whether c lies on the grid.
func (g Grid) Contains(c Cell) bool {
	return c.Col >= 0 && c.Col < g.Cols && c.Row >= 0 && c.Row < g.Rows
}

// Centroid returns the representative point of c.
func (g Grid) Centroid(c Cell) orb.Point {
	return orb.Point{
		g.Origin[0] + (float64(c.Col)+0.5)*g.CellSize,
		g.Origin[1] + (float64(c.Row)+0.5)*g.CellSize,
	}
}

// CellBound returns the square covered by c.
func (g Grid) CellBound(c Cell) orb.Bound {
	return orb.Bound{Min: g.vertex(c.Col, c.Row), Max: g.vertex(c.Col+1, c.Row+1)}
}

func (g Grid) vertex(col, row int) orb.Point {
	return orb.Point{
		g.Origin[0] + float64(col)*g.CellSize,
		g.Origin[1] + float64(row)*g.CellSize,
	}
}

// centroidRange returns the inclusive column or row range whose centroids fall
// within [lo, hi] along one axis; ok is false when it is empty.
func centroidRange(lo, hi, origin, size float64, n int) (first, last int, ok bool) {
	first = int(math.Ceil((lo-origin)/size - 0.5))
	last = int(math.Floor((hi-origin)/size - 0.5))
	if first < 0 {
		first = 0
	}
	if last > n-1 {
		last = n - 1
	}
	return first, last, first <= last
}
