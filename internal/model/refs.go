package model

import "fmt"

// ResourceKind classifies a labware type as declared by the catalog.
type ResourceKind string

const (
	KindPlate     ResourceKind = "plate"
	KindTipRack   ResourceKind = "tip_rack"
	KindTubeRack  ResourceKind = "tube_rack"
	KindReservoir ResourceKind = "reservoir"
	KindTrash     ResourceKind = "trash"
	KindCarrier   ResourceKind = "carrier"
)

// ElementKind is the kind of child element a resource is subdivided into.
// It is inferred from the ResourceKind by a closed table in the tracer,
// never from name sniffing.
type ElementKind string

const (
	ElementWell    ElementKind = "well"
	ElementTipSpot ElementKind = "tip_spot"
	ElementTube    ElementKind = "tube"
	ElementSlot    ElementKind = "slot"
)

// ElementRef identifies one child element of a labware instance, e.g. a
// single well of a specific plate on the deck.
type ElementRef struct {
	Resource string // deck instance name, not the catalog type
	Kind     ElementKind
	Index    int    // 0-based linear index within the resource
	ID       string // display identifier, e.g. "A1" or "7"
}

func (r ElementRef) String() string {
	return fmt.Sprintf("%s/%s", r.Resource, r.ID)
}

// RefSet is an ordered set of element references produced by the tracer.
// A concrete set is fully enumerated. A parametrized set stands for a
// selection indexed by a loop variable that is not yet concrete; it carries
// the variable name, the template used to re-resolve it per iteration, and
// the largest element count the selection could cover.
type RefSet struct {
	Resource string
	Kind     ElementKind
	Refs     []ElementRef

	Parametrized bool
	Binding      string // loop variable name the selection depends on
	Template     string // original selection expression, e.g. "A$i"
	Bound        int    // element count of the resource, an upper bound
}

// Len returns the number of enumerated references. Parametrized sets
// enumerate nothing until instantiated.
func (s *RefSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Refs)
}
