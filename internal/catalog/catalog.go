// Package catalog provides static labware shape metadata: what kind of
// resource a catalog type is, how many child elements it has, and each
// element's capacity. Shapes are read-only inputs to the analysis; the
// engine never mutates them.
package catalog

import (
	"fmt"

	"github.com/vk/protocheck/internal/model"
)

// Shape is the static geometry of one labware type. Gridded labware sets
// Rows and Columns; linear labware sets Count. ElementCapacityUL is the
// per-element liquid capacity in microliters (zero for labware whose
// elements hold no liquid, e.g. a carrier).
type Shape struct {
	Kind              model.ResourceKind
	Rows              int
	Columns           int
	Count             int
	ElementCapacityUL float64
}

// NumElements returns the total child-element count.
func (s Shape) NumElements() int {
	if s.Rows > 0 && s.Columns > 0 {
		return s.Rows * s.Columns
	}
	return s.Count
}

// Gridded reports whether elements are addressed by row letter and column
// number rather than a bare index.
func (s Shape) Gridded() bool { return s.Rows > 0 && s.Columns > 0 }

// Catalog resolves a labware type key to its shape.
type Catalog interface {
	LookupShape(resourceType string) (Shape, error)
}

// Static is an in-memory Catalog backed by a map.
type Static map[string]Shape

// LookupShape implements Catalog.
func (s Static) LookupShape(resourceType string) (Shape, error) {
	shape, ok := s[resourceType]
	if !ok {
		return Shape{}, fmt.Errorf("unknown labware type %q", resourceType)
	}
	return shape, nil
}

// Merge returns a Static containing all entries of base overlaid with the
// entries of extra. Neither input is modified.
func Merge(base, extra Static) Static {
	out := make(Static, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
