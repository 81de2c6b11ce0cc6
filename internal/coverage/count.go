package coverage

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/sanspareilsmyn/transitlens/internal/metrics"
)

// Coverage holds, for one group, how many distinct time slices cover each cell.
type Coverage struct {
	Group  GroupKey
	Grid   Grid
	Slices int
	counts []int
}

// TimesCovered returns how many slices cover c. Cells off the grid report 0.
func (c *Coverage) TimesCovered(cell Cell) int {
	if !c.Grid.Contains(cell) {
		return 0
	}
	return c.counts[c.Grid.index(cell)]
}

// Percent returns 100 * TimesCovered / total.
func (c *Coverage) Percent(cell Cell, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(c.TimesCovered(cell)) / float64(total)
}

// CoveredCells returns the number of cells covered at least once.
func (c *Coverage) CoveredCells() int {
	n := 0
	for _, v := range c.counts {
		if v > 0 {
			n++
		}
	}
	return n
}

// GroupSlices splits slices by group and merges parts that share a group and
// analysis time into one slice, so every time counts once per cell.
func GroupSlices(slices []Slice) map[GroupKey][]Slice {
	type slot struct {
		group GroupKey
		unix  int64
	}
	merged := make(map[slot]*Slice)
	var order []slot
	for _, s := range slices {
		k := slot{group: s.Group, unix: s.Time.Time().Unix()}
		if m, ok := merged[k]; ok {
			m.Geometry = append(m.Geometry, s.Geometry...)
			continue
		}
		cp := Slice{Group: s.Group, Time: s.Time, Geometry: append(orb.MultiPolygon(nil), s.Geometry...)}
		merged[k] = &cp
		order = append(order, k)
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].unix < order[j].unix })
	out := make(map[GroupKey][]Slice)
	for _, k := range order {
		out[k.group] = append(out[k.group], *merged[k])
	}
	return out
}

// DistinctTimes counts the distinct analysis times across all slices.
func DistinctTimes(slices []Slice) int {
	seen := make(map[int64]struct{})
	for _, s := range slices {
		seen[s.Time.Time().Unix()] = struct{}{}
	}
	return len(seen)
}

// CountGroup rasterizes the slices of one group. A cell is covered by a slice
// when the cell centroid falls inside the slice polygon.
func CountGroup(group GroupKey, slices []Slice, cellSize float64) (*Coverage, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("%w: group %s", ErrEmptyGeometry, group)
	}

	bound, err := unionBound(group, slices)
	if err != nil {
		return nil, err
	}
	grid, err := NewGrid(bound, cellSize)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", group, err)
	}

	cov := &Coverage{Group: group, Grid: grid, Slices: len(slices), counts: make([]int, grid.Len())}
	metrics.CellsCounted.Add(float64(grid.Len()))
	for _, s := range slices {
		b := s.Geometry.Bound()
		c0, c1, okC := centroidRange(b.Min[0], b.Max[0], grid.Origin[0], grid.CellSize, grid.Cols)
		r0, r1, okR := centroidRange(b.Min[1], b.Max[1], grid.Origin[1], grid.CellSize, grid.Rows)
		if !okC || !okR {
			continue
		}
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				cell := Cell{Col: col, Row: row}
				if planar.MultiPolygonContains(s.Geometry, grid.Centroid(cell)) {
					cov.counts[grid.index(cell)]++
				}
			}
		}
	}
	return cov, nil
}

// CountCoverage groups and rasterizes all slices. The first failing group
// aborts; use BuildAll for per-group failure isolation.
func CountCoverage(slices []Slice, cellSize float64) (map[GroupKey]*Coverage, error) {
	out := make(map[GroupKey]*Coverage)
	for group, gs := range GroupSlices(slices) {
		cov, err := CountGroup(group, gs, cellSize)
		if err != nil {
			return nil, err
		}
		out[group] = cov
	}
	return out, nil
}

func unionBound(group GroupKey, slices []Slice) (orb.Bound, error) {
	var bound orb.Bound
	for i, s := range slices {
		if s.Group != group {
			return orb.Bound{}, fmt.Errorf("%w: %s in %s", ErrMixedGroups, s.Group, group)
		}
		if err := validateGeometry(s.Geometry); err != nil {
			return orb.Bound{}, fmt.Errorf("group %s at %s: %w", group, s.Time, err)
		}
		if i == 0 {
			bound = s.Geometry.Bound()
		} else {
			bound = bound.Union(s.Geometry.Bound())
		}
	}
	return bound, nil
}

func validateGeometry(mp orb.MultiPolygon) error {
	rings := 0
	for _, poly := range mp {
		for _, ring := range poly {
			for _, p := range ring {
				if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
					return ErrInvalidGeometry
				}
			}
			if len(ring) >= 4 {
				rings++
			}
		}
	}
	if rings == 0 {
		return ErrEmptyGeometry
	}
	return nil
}
