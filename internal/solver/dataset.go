package solver

import (
	"fmt"
	"sort"
)

// Destination is one analysis target with its accessibility weight.
type Destination struct {
	ID     string
	Weight float64
}

// Dataset is the preprocessed, read-only input to one run: the origins to
// analyze and the destinations they may reach. It is never mutated after
// construction, so it can be shared between workers.
type Dataset struct {
	origins      []string
	destinations []Destination
	weights      map[string]float64
}

// NewDataset validates and copies the inputs.
func NewDataset(origins []string, destinations []Destination) (*Dataset, error) {
	seen := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if _, dup := seen[o]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateOrigin, o)
		}
		seen[o] = struct{}{}
	}

	weights := make(map[string]float64, len(destinations))
	for _, d := range destinations {
		if _, dup := weights[d.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateDest, d.ID)
		}
		if d.Weight < 0 {
			return nil, fmt.Errorf("%w: %q has %v", ErrNegativeWeight, d.ID, d.Weight)
		}
		weights[d.ID] = d.Weight
	}

	return &Dataset{
		origins:      append([]string(nil), origins...),
		destinations: append([]Destination(nil), destinations...),
		weights:      weights,
	}, nil
}

// Origins returns a copy of the origin ids in input order.
func (d *Dataset) Origins() []string { return append([]string(nil), d.origins...) }

// Destinations returns a copy of the destinations in input order.
func (d *Dataset) Destinations() []Destination {
	return append([]Destination(nil), d.destinations...)
}

// HasOrigin reports whether id is one of the dataset's origins.
func (d *Dataset) HasOrigin(id string) bool {
	for _, o := range d.origins {
		if o == id {
			return true
		}
	}
	return false
}

// HasDestination reports whether id is one of the dataset's destinations.
func (d *Dataset) HasDestination(id string) bool {
	_, ok := d.weights[id]
	return ok
}

// Weights returns a copy of the destination weights.
func (d *Dataset) Weights() map[string]float64 {
	out := make(map[string]float64, len(d.weights))
	for k, v := range d.weights {
		out[k] = v
	}
	return out
}

// TotalWeight sums the weights of all destinations.
func (d *Dataset) TotalWeight() float64 {
	ids := make([]string, 0, len(d.weights))
	for id := range d.weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	total := 0.0
	for _, id := range ids {
		total += d.weights[id]
	}
	return total
}

// Subset returns a new Dataset restricted to origins. Destinations are shared.
func (d *Dataset) Subset(origins []string) *Dataset {
	return &Dataset{
		origins:      append([]string(nil), origins...),
		destinations: d.destinations,
		weights:      d.weights,
	}
}
