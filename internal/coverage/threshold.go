package coverage

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ThresholdPolygon is the dissolved area of one group covered in at least
// Threshold percent of the time slices.
type ThresholdPolygon struct {
	Group     GroupKey
	Threshold float64
	CellCount int
	Area      float64
	Geometry  orb.MultiPolygon
}

// Selected reports whether a cell covered times out of total meets threshold
// percent. The boundary is inclusive.
func Selected(times, total int, threshold float64) bool {
	return float64(times)*100 >= threshold*float64(total)
}

// BuildThresholdPolygons dissolves, per threshold, every cell whose percent
// covered is at least the threshold. Higher thresholds select subsets of the
// cells of lower ones, so their polygons nest.
func BuildThresholdPolygons(cov *Coverage, totalSlices int, thresholds []float64) ([]ThresholdPolygon, error) {
	if totalSlices <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrNoTimeSlices, totalSlices)
	}
	if err := ValidateThresholds(thresholds); err != nil {
		return nil, err
	}

	out := make([]ThresholdPolygon, 0, len(thresholds))
	for _, p := range thresholds {
		mask := make([]bool, cov.Grid.Len())
		n := 0
		for i, times := range cov.counts {
			if times > 0 && Selected(times, totalSlices, p) {
				mask[i] = true
				n++
			}
		}
		out = append(out, ThresholdPolygon{
			Group:     cov.Group,
			Threshold: p,
			CellCount: n,
			Area:      float64(n) * cov.Grid.CellSize * cov.Grid.CellSize,
			Geometry:  dissolve(cov.Grid, mask),
		})
	}
	return out, nil
}

// ValidateThresholds checks every percentage is in (0, 100].
func ValidateThresholds(thresholds []float64) error {
	if len(thresholds) == 0 {
		return fmt.Errorf("%w: no thresholds given", ErrInvalidThreshold)
	}
	for _, p := range thresholds {
		if math.IsNaN(p) || p <= 0 || p > 100 {
			return fmt.Errorf("%w: got %v", ErrInvalidThreshold, p)
		}
	}
	return nil
}

type vtx struct{ x, y int }

type edge struct {
	from, to vtx
	used     bool
}

func (e edge) dir() vtx { return vtx{e.to.x - e.from.x, e.to.y - e.from.y} }

// leftCell returns the cell on the interior side of a boundary edge.
func (e edge) leftCell() Cell {
	switch e.dir() {
	case vtx{1, 0}:
		return Cell{Col: e.from.x, Row: e.from.y}
	case vtx{0, 1}:
		return Cell{Col: e.from.x - 1, Row: e.from.y}
	case vtx{-1, 0}:
		return Cell{Col: e.from.x - 1, Row: e.from.y - 1}
	default:
		return Cell{Col: e.from.x, Row: e.from.y - 1}
	}
}

type tracedRing struct {
	verts []vtx
	area2 int // twice the signed area, positive when counter-clockwise
	probe Cell
}

// dissolve traces the outline of the masked cells into polygons with holes.
// Boundary edges keep the selected cells on their left, so outer rings come
// out counter-clockwise and holes clockwise. Cells touching only at a corner
// end up in separate polygons.
func dissolve(g Grid, mask []bool) orb.MultiPolygon {
	on := func(col, row int) bool {
		return col >= 0 && col < g.Cols && row >= 0 && row < g.Rows && mask[row*g.Cols+col]
	}

	var edges []edge
	for i, sel := range mask {
		if !sel {
			continue
		}
		c := g.cell(i)
		x, y := c.Col, c.Row
		if !on(x, y-1) {
			edges = append(edges, edge{from: vtx{x, y}, to: vtx{x + 1, y}})
		}
		if !on(x+1, y) {
			edges = append(edges, edge{from: vtx{x + 1, y}, to: vtx{x + 1, y + 1}})
		}
		if !on(x, y+1) {
			edges = append(edges, edge{from: vtx{x + 1, y + 1}, to: vtx{x, y + 1}})
		}
		if !on(x-1, y) {
			edges = append(edges, edge{from: vtx{x, y + 1}, to: vtx{x, y}})
		}
	}
	if len(edges) == 0 {
		return orb.MultiPolygon{}
	}

	outgoing := make(map[vtx][]int, len(edges))
	for i, e := range edges {
		outgoing[e.from] = append(outgoing[e.from], i)
	}

	var outers, holes []tracedRing
	for start := range edges {
		if edges[start].used {
			continue
		}
		r := traceRing(edges, outgoing, start)
		if r.area2 > 0 {
			outers = append(outers, r)
		} else if r.area2 < 0 {
			holes = append(holes, r)
		}
	}

	polys := make([]orb.Polygon, len(outers))
	gridRings := make([]orb.Ring, len(outers))
	for i, o := range outers {
		polys[i] = orb.Polygon{toWorld(g, o.verts)}
		gridRings[i] = toGridRing(o.verts)
	}
	for _, h := range holes {
		probe := orb.Point{float64(h.probe.Col) + 0.5, float64(h.probe.Row) + 0.5}
		best, bestArea := -1, 0
		for i, o := range outers {
			if o.area2 <= 0 || !planar.RingContains(gridRings[i], probe) {
				continue
			}
			if best < 0 || o.area2 < bestArea {
				best, bestArea = i, o.area2
			}
		}
		if best >= 0 {
			polys[best] = append(polys[best], toWorld(g, h.verts))
		}
	}
	return orb.MultiPolygon(polys)
}

// traceRing follows unused edges from start, preferring left turns, until it
// returns to the start edge.
func traceRing(edges []edge, outgoing map[vtx][]int, start int) tracedRing {
	first := edges[start]
	ring := tracedRing{probe: first.leftCell()}
	cur := start
	edges[cur].used = true
	verts := []vtx{first.from}

	for {
		e := edges[cur]
		at := e.to
		next := -1
		bestRank := 3
		for _, cand := range outgoing[at] {
			if edges[cand].used && cand != start {
				continue
			}
			if r := turnRank(e.dir(), edges[cand].dir()); r < bestRank {
				next, bestRank = cand, r
			}
		}
		if next < 0 || next == start {
			break
		}
		verts = append(verts, at)
		edges[next].used = true
		cur = next
	}

	ring.verts = simplify(verts)
	ring.area2 = signedArea2(ring.verts)
	return ring
}

// turnRank ranks an outgoing direction relative to the incoming one:
// left 0, straight 1, right 2.
func turnRank(in, out vtx) int {
	switch out {
	case vtx{-in.y, in.x}:
		return 0
	case in:
		return 1
	case vtx{in.y, -in.x}:
		return 2
	default:
		return 3
	}
}

// simplify drops vertices between collinear edges.
func simplify(verts []vtx) []vtx {
	n := len(verts)
	if n < 4 {
		return verts
	}
	out := make([]vtx, 0, n)
	for i := range verts {
		prev := verts[(i+n-1)%n]
		cur := verts[i]
		next := verts[(i+1)%n]
		d1 := vtx{sign(cur.x - prev.x), sign(cur.y - prev.y)}
		d2 := vtx{sign(next.x - cur.x), sign(next.y - cur.y)}
		if d1 != d2 {
			out = append(out, cur)
		}
	}
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func signedArea2(verts []vtx) int {
	a := 0
	for i := range verts {
		j := (i + 1) % len(verts)
		a += verts[i].x*verts[j].y - verts[j].x*verts[i].y
	}
	return a
}

func toWorld(g Grid, verts []vtx) orb.Ring {
	ring := make(orb.Ring, 0, len(verts)+1)
	for _, v := range verts {
		ring = append(ring, g.vertex(v.x, v.y))
	}
	return append(ring, ring[0])
}

func toGridRing(verts []vtx) orb.Ring {
	ring := make(orb.Ring, 0, len(verts)+1)
	for _, v := range verts {
		ring = append(ring, orb.Point{float64(v.x), float64(v.y)})
	}
	return append(ring, ring[0])
}
