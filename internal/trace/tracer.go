// Package trace resolves element selection expressions ("A1", "A1:H1",
// "0:7", "A$i") against a labware instance's declared shape into ordered
// sets of element references. Selections bound to a not-yet-concrete loop
// variable resolve to a parametrized set carrying its bound; the detector
// instantiates those per iteration once bindings are known.
package trace

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/catalog"
	"github.com/vk/protocheck/internal/model"
)

// RangeError reports a concrete selection that falls outside the declared
// shape. It needs no precision tiering: shapes are always statically known.
type RangeError struct {
	Instance string
	Expr     string
	Max      int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("selection %q out of range on %q (%d elements)", e.Expr, e.Instance, e.Max)
}

// Tracer resolves selections for the labware placed on one deck.
type Tracer struct {
	cat  catalog.Catalog
	deck model.Deck
}

// New returns a Tracer over the given catalog and deck.
func New(cat catalog.Catalog, deck model.Deck) *Tracer {
	return &Tracer{cat: cat, deck: deck}
}

// Shape returns the declared shape of a deck instance.
func (t *Tracer) Shape(instance string) (catalog.Shape, error) {
	inst, ok := t.deck[instance]
	if !ok {
		return catalog.Shape{}, fmt.Errorf("labware instance %q is not on the deck", instance)
	}
	return t.cat.LookupShape(inst.Type)
}

// Resolve materializes a selection expression into an ordered RefSet. A
// selection referencing a loop variable (any "$name" placeholder) yields a
// parametrized set. A concrete selection outside the shape returns a
// *RangeError.
func (t *Tracer) Resolve(instance, expr string) (*model.RefSet, error) {
	shape, err := t.Shape(instance)
	if err != nil {
		return nil, err
	}
	kind, ok := ChildKind(shape.Kind)
	if !ok {
		return nil, fmt.Errorf("no element kind known for resource kind %q", shape.Kind)
	}

	if strings.ContainsRune(expr, '$') {
		return &model.RefSet{
			Resource:     instance,
			Kind:         kind,
			Parametrized: true,
			Binding:      bindingName(expr),
			Template:     expr,
			Bound:        shape.NumElements(),
		}, nil
	}

	indices, err := t.enumerate(instance, expr, shape)
	if err != nil {
		return nil, err
	}
	set := &model.RefSet{Resource: instance, Kind: kind}
	for _, idx := range indices {
		set.Refs = append(set.Refs, model.ElementRef{
			Resource: instance,
			Kind:     kind,
			Index:    idx,
			ID:       t.elementID(idx, shape),
		})
	}
	return set, nil
}

// All returns the full ordered element set of an instance, used by
// whole-head (96-channel) operations that address every position at once.
func (t *Tracer) All(instance string) (*model.RefSet, error) {
	shape, err := t.Shape(instance)
	if err != nil {
		return nil, err
	}
	kind, ok := ChildKind(shape.Kind)
	if !ok {
		return nil, fmt.Errorf("no element kind known for resource kind %q", shape.Kind)
	}
	set := &model.RefSet{Resource: instance, Kind: kind}
	for i := 0; i < shape.NumElements(); i++ {
		set.Refs = append(set.Refs, model.ElementRef{
			Resource: instance,
			Kind:     kind,
			Index:    i,
			ID:       t.elementID(i, shape),
		})
	}
	return set, nil
}

// Instantiate re-resolves a parametrized set with concrete loop bindings
// substituted into its template.
func (t *Tracer) Instantiate(set *model.RefSet, bindings map[string]cty.Value) (*model.RefSet, error) {
	if !set.Parametrized {
		return set, nil
	}
	expr := set.Template
	for name, val := range bindings {
		repl, err := bindingString(val)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", name, err)
		}
		expr = strings.ReplaceAll(expr, "${"+name+"}", repl)
		expr = strings.ReplaceAll(expr, "$"+name, repl)
	}
	if strings.ContainsRune(expr, '$') {
		return nil, fmt.Errorf("selection %q still parametrized after substitution", set.Template)
	}
	return t.Resolve(set.Resource, expr)
}

// enumerate expands a concrete selection into 0-based linear indices.
// Accepted forms: a gridded name ("B7"), a gridded rectangle ("A1:H1"), a
// bare 0-based index ("3"), or an index range ("0:7"), all inclusive.
// Grid names never start with a digit, so a digits-only selection is an
// index form even on gridded labware; loop bindings substituted into
// selection templates arrive this way.
func (t *Tracer) enumerate(instance, expr string, shape catalog.Shape) ([]int, error) {
	lo, hi, ranged := expr, expr, false
	if i := strings.IndexByte(expr, ':'); i >= 0 {
		lo, hi, ranged = expr[:i], expr[i+1:], true
	}

	if shape.Gridded() && !isIndexToken(lo) {
		from, err := parseGridName(lo)
		if err != nil {
			return nil, err
		}
		to := from
		if ranged {
			if to, err = parseGridName(hi); err != nil {
				return nil, err
			}
		}
		if !inBounds(from, shape) || !inBounds(to, shape) {
			return nil, &RangeError{Instance: instance, Expr: expr, Max: shape.NumElements()}
		}
		if to.row < from.row || to.col < from.col {
			return nil, fmt.Errorf("inverted selection %q", expr)
		}
		var out []int
		for c := from.col; c <= to.col; c++ {
			for r := from.row; r <= to.row; r++ {
				out = append(out, linearIndex(gridPos{row: r, col: c}, shape))
			}
		}
		return out, nil
	}

	first, err := strconv.Atoi(lo)
	if err != nil {
		return nil, fmt.Errorf("malformed selection %q", expr)
	}
	last := first
	if ranged {
		if last, err = strconv.Atoi(hi); err != nil {
			return nil, fmt.Errorf("malformed selection %q", expr)
		}
	}
	if first < 0 || last >= shape.NumElements() {
		return nil, &RangeError{Instance: instance, Expr: expr, Max: shape.NumElements()}
	}
	if last < first {
		return nil, fmt.Errorf("inverted selection %q", expr)
	}
	out := make([]int, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, i)
	}
	return out, nil
}

// isIndexToken reports whether a selection token is digits only.
func isIndexToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ElementID renders the display identifier of a linear index on an
// instance's shape.
func (t *Tracer) ElementID(instance string, idx int) (string, error) {
	shape, err := t.Shape(instance)
	if err != nil {
		return "", err
	}
	return t.elementID(idx, shape), nil
}

// elementID renders the display identifier for a linear index.
func (t *Tracer) elementID(idx int, shape catalog.Shape) string {
	if shape.Gridded() {
		return gridName(idx%shape.Rows, idx/shape.Rows)
	}
	return strconv.Itoa(idx)
}

// bindingName extracts the first "$name" or "${name}" placeholder.
func bindingName(expr string) string {
	i := strings.IndexByte(expr, '$')
	rest := expr[i+1:]
	if strings.HasPrefix(rest, "{") {
		if j := strings.IndexByte(rest, '}'); j > 0 {
			return rest[1:j]
		}
		return ""
	}
	j := 0
	for j < len(rest) && (isAlnum(rest[j]) || rest[j] == '_') {
		j++
	}
	return rest[:j]
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// bindingString renders a binding value for template substitution. Numbers
// must be integral; strings pass through (an `over` loop binds element IDs).
func bindingString(v cty.Value) (string, error) {
	if !v.IsKnown() || v.IsNull() {
		return "", fmt.Errorf("value is not concrete")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		n, acc := bf.Int64()
		if acc != big.Exact {
			return "", fmt.Errorf("value %s is not an integer", bf.String())
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return "", fmt.Errorf("unsupported binding type %s", v.Type().FriendlyName())
	}
}
