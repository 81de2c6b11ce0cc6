package solver

import (
	"fmt"
	"strconv"
)

// ODPair identifies one origin-destination pair of an OD cost matrix solve.
type ODPair struct {
	Origin      string
	Destination string
}

func (p ODPair) String() string { return p.Origin + " -> " + p.Destination }

// LessODPair orders pairs by origin, then destination.
func LessODPair(a, b ODPair) bool {
	if a.Origin != b.Origin {
		return a.Origin < b.Origin
	}
	return a.Destination < b.Destination
}

// RouteDirection identifies one direction of a transit route.
type RouteDirection struct {
	Route     string
	Direction int
}

func (r RouteDirection) String() string { return r.Route + "/" + strconv.Itoa(r.Direction) }

// LessRouteDirection orders by route, then direction.
func LessRouteDirection(a, b RouteDirection) bool {
	if a.Route != b.Route {
		return a.Route < b.Route
	}
	return a.Direction < b.Direction
}

// KeyDecoder builds a key from the named fields of a recorded observation.
type KeyDecoder[K comparable] func(fields map[string]string) (K, error)

// DecodeODPair reads the ODCostMatrix key fields.
func DecodeODPair(fields map[string]string) (ODPair, error) {
	o, ok := fields["origin"]
	if !ok || o == "" {
		return ODPair{}, fmt.Errorf("%w: origin", ErrMissingKeyField)
	}
	d, ok := fields["destination"]
	if !ok || d == "" {
		return ODPair{}, fmt.Errorf("%w: destination", ErrMissingKeyField)
	}
	return ODPair{Origin: o, Destination: d}, nil
}

// DecodeRouteDirection reads the Route key fields. A missing direction means 0.
func DecodeRouteDirection(fields map[string]string) (RouteDirection, error) {
	r, ok := fields["route"]
	if !ok || r == "" {
		return RouteDirection{}, fmt.Errorf("%w: route", ErrMissingKeyField)
	}
	dir := 0
	if raw, ok := fields["direction"]; ok && raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return RouteDirection{}, fmt.Errorf("%w: direction %q: %w", ErrMissingKeyField, raw, err)
		}
		dir = v
	}
	return RouteDirection{Route: r, Direction: dir}, nil
}

// Segment identifies a network edge or route segment by id.
type Segment string

// DecodeSegment reads the segment id of a recorded edge traversal.
func DecodeSegment(fields map[string]string) (Segment, error) {
	s, ok := fields["segment"]
	if !ok || s == "" {
		return "", fmt.Errorf("%w: segment", ErrMissingKeyField)
	}
	return Segment(s), nil
}
