package contract

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/state"
	"github.com/vk/protocheck/internal/trace"
)

// Env is the evaluation environment for one operation call within one
// analysis branch. It owns nothing; the detector wires in the branch's
// state, the tracer, the loop bindings in scope, and the finding sink.
type Env struct {
	State    *state.State
	Call     *model.OperationCall
	Tracer   *trace.Tracer
	Bindings map[string]cty.Value
	// Widen marks the single summarizing pass over an unbounded loop
	// body: effects relax facts to their reachable hull instead of
	// shifting them precisely.
	Widen bool
	// Counter points at the owning simulation context's call counter.
	Counter *int
	// Emit appends a finding to the owning branch.
	Emit func(model.Finding)

	resolved map[string]*model.RefSet

	// touched collects the keys whose projection could not decide the
	// predicate under evaluation; escalation targets exactly these.
	touched []state.Key
	maxTier model.Tier
}

// observe notes that a predicate consulted k, so findings report the tier
// the engine was actually checking at.
func (e *Env) observe(k state.Key) {
	if f := e.State.Peek(k); f.Tier > e.maxTier {
		e.maxTier = f.Tier
	}
}

// touch records an undecided consultation of k for targeted escalation.
func (e *Env) touch(k state.Key) {
	e.observe(k)
	e.touched = append(e.touched, k)
}

func (e *Env) resetTouched() {
	e.touched = e.touched[:0]
	e.maxTier = model.TierBoolean
}

// finding builds a finding at the current call with the tier the engine
// was checking at.
func (e *Env) finding(kind model.FindingKind, sev model.Severity, detail string) model.Finding {
	return model.Finding{
		Kind:      kind,
		Severity:  sev,
		Location:  e.Call.Location,
		Tier:      e.maxTier,
		CallIndex: *e.Counter,
		Detail:    detail,
	}
}

// String returns the call's string argument, or an error for a missing or
// non-string value.
func (e *Env) String(name string) (string, error) {
	a, ok := e.Call.Arg(name)
	if !ok {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	v, err := e.concretize(a)
	if err != nil {
		return "", fmt.Errorf("argument %q: %w", name, err)
	}
	if v.Type() != cty.String || !v.IsKnown() || v.IsNull() {
		return "", fmt.Errorf("argument %q must be a concrete string", name)
	}
	return v.AsString(), nil
}

// Number returns the bounds of a numeric argument: a concrete value gives
// a degenerate range, a symbolic placeholder contributes whatever range
// refinement it carries, with unbounded sides as cty.NilVal.
func (e *Env) Number(name string) (lo, hi cty.Value, err error) {
	a, ok := e.Call.Arg(name)
	if !ok {
		return cty.NilVal, cty.NilVal, fmt.Errorf("missing required argument %q", name)
	}
	v, err := e.concretize(a)
	if err != nil {
		return cty.NilVal, cty.NilVal, fmt.Errorf("argument %q: %w", name, err)
	}
	if v.IsNull() || v.Type() != cty.Number {
		return cty.NilVal, cty.NilVal, fmt.Errorf("argument %q must be a number", name)
	}
	if v.IsKnown() {
		return v, v, nil
	}
	rng := v.Range()
	if b, _ := rng.NumberLowerBound(); b.IsKnown() && b != cty.NegativeInfinity {
		lo = b
	}
	if b, _ := rng.NumberUpperBound(); b.IsKnown() && b != cty.PositiveInfinity {
		hi = b
	}
	return lo, hi, nil
}

// concretize evaluates a parametrized argument against the loop bindings
// in scope, falling back to the provider-supplied value.
func (e *Env) concretize(a model.ArgValue) (cty.Value, error) {
	if a.Eval != nil && len(e.Bindings) > 0 {
		return a.Eval(e.Bindings)
	}
	return a.Value, nil
}

// Selection resolves the element selection named by sel, caching the
// result for the duration of the call. A parametrized selection is
// instantiated with the bindings in scope first; during a widening pass
// it may stay parametrized.
func (e *Env) Selection(sel Selection) (*model.RefSet, error) {
	if set, ok := e.resolved[sel.ElementsArg]; ok {
		return set, nil
	}
	resource, err := e.String(sel.ResourceArg)
	if err != nil {
		return nil, err
	}
	a, ok := e.Call.Arg(sel.ElementsArg)
	if !ok {
		return nil, fmt.Errorf("missing required argument %q", sel.ElementsArg)
	}

	var set *model.RefSet
	if a.IsRefs() {
		set = a.Refs
	} else {
		v, err := e.concretize(a)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", sel.ElementsArg, err)
		}
		if !v.IsKnown() || v.IsNull() || v.Type() != cty.String {
			return nil, fmt.Errorf("argument %q must be a selection string", sel.ElementsArg)
		}
		set, err = e.Tracer.Resolve(resource, v.AsString())
		if err != nil {
			return nil, err
		}
	}
	if set.Parametrized && len(e.Bindings) > 0 {
		inst, err := e.Tracer.Instantiate(set, e.Bindings)
		if err == nil {
			set = inst
		} else if !e.Widen {
			return nil, err
		}
	}
	if set.Parametrized && !e.Widen {
		return nil, fmt.Errorf("selection %q is parametrized outside a summarized loop", set.Template)
	}
	if e.resolved == nil {
		e.resolved = make(map[string]*model.RefSet)
	}
	e.resolved[sel.ElementsArg] = set
	return set, nil
}

// All resolves the full element set of the instance named by resourceArg,
// cached like a Selection.
func (e *Env) All(resourceArg string) (*model.RefSet, error) {
	cacheKey := "__all__:" + resourceArg
	if set, ok := e.resolved[cacheKey]; ok {
		return set, nil
	}
	resource, err := e.String(resourceArg)
	if err != nil {
		return nil, err
	}
	set, err := e.Tracer.All(resource)
	if err != nil {
		return nil, err
	}
	if e.resolved == nil {
		e.resolved = make(map[string]*model.RefSet)
	}
	e.resolved[cacheKey] = set
	return set, nil
}

// Elements materializes the visited elements of a selection as a slice.
func (e *Env) Elements(set *model.RefSet) []model.ElementRef {
	var out []model.ElementRef
	e.EachElement(set, func(r model.ElementRef) { out = append(out, r) })
	return out
}

// StaticCapacity returns the per-element capacity of an instance's shape
// as a cty number, or cty.NilVal when the shape is unknown or uncapped.
func (e *Env) StaticCapacity(instance string) cty.Value {
	shape, err := e.Tracer.Shape(instance)
	if err != nil || shape.ElementCapacityUL <= 0 {
		return cty.NilVal
	}
	return cty.NumberFloatVal(shape.ElementCapacityUL)
}

// EachElement visits every element of a selection. A parametrized set in a
// widening pass visits every element of the resource, since any of them
// might be addressed at runtime.
func (e *Env) EachElement(set *model.RefSet, fn func(ref model.ElementRef)) {
	if !set.Parametrized {
		for _, r := range set.Refs {
			fn(r)
		}
		return
	}
	shape, err := e.Tracer.Shape(set.Resource)
	if err != nil {
		return
	}
	for i := 0; i < shape.NumElements(); i++ {
		id, err := e.Tracer.ElementID(set.Resource, i)
		if err != nil {
			return
		}
		fn(model.ElementRef{Resource: set.Resource, Kind: set.Kind, Index: i, ID: id})
	}
}
