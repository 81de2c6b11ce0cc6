package solver

import (
	"fmt"
	"strings"
)

// Kind describes how one family of network solves names its keys and where
// its results land. It is chosen once at configuration time.
type Kind interface {
	Name() string
	KeyFields() []string
	OutputSublayer() string
}

type kind struct {
	name     string
	fields   []string
	sublayer string
}

func (k *kind) Name() string           { return k.name }
func (k *kind) OutputSublayer() string { return k.sublayer }
func (k *kind) KeyFields() []string    { return append([]string(nil), k.fields...) }
func (k *kind) String() string         { return k.name }

var (
	ODCostMatrix Kind = &kind{name: "od_cost_matrix", fields: []string{"origin", "destination"}, sublayer: "lines"}
	Route        Kind = &kind{name: "route", fields: []string{"route", "direction"}, sublayer: "routes"}
	ServiceArea  Kind = &kind{name: "service_area", fields: []string{"facility", "from_break", "to_break"}, sublayer: "polygons"}
)

var kinds = []Kind{ODCostMatrix, Route, ServiceArea}

// KindByName resolves a configured kind name.
func KindByName(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, k := range kinds {
		if k.Name() == n {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
