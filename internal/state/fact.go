package state

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/model"
)

// Fact is one tier-tagged piece of abstract state about a resource
// element: either a flag or a bounded quantity. The underlying record is
// always kept as precise as the applied effects allow; the Tier tag gates
// which projection checks are allowed to consult, and only ever increases.
type Fact struct {
	Tier model.Tier

	numeric bool
	flag    Ternary
	// lo/hi bound a numeric quantity; cty.NilVal marks an unbounded side.
	lo, hi cty.Value
	// categorical string value, e.g. an instance's current deck slot.
	// Known only while str is non-empty and strKnown holds.
	str      string
	strKnown bool
}

// NewString returns a categorical fact holding one known string value.
func NewString(s string) *Fact {
	return &Fact{str: s, strKnown: true}
}

// Str returns the categorical value and whether it is known.
func (f *Fact) Str() (string, bool) { return f.str, f.strKnown }

// SetStr replaces a categorical fact's value.
func (f *Fact) SetStr(s string) { f.str, f.strKnown = s, true }

// ForgetStr marks a categorical fact unknown.
func (f *Fact) ForgetStr() { f.str, f.strKnown = "", false }

// NewFlag returns a flag fact starting at the Boolean tier.
func NewFlag(t Ternary) *Fact {
	return &Fact{flag: t}
}

// NewNumber returns a numeric fact holding one concrete value.
func NewNumber(v cty.Value) *Fact {
	return &Fact{numeric: true, lo: v, hi: v}
}

// NewInterval returns a numeric fact bounded to [lo, hi]; either side may
// be cty.NilVal for unbounded.
func NewInterval(lo, hi cty.Value) *Fact {
	return &Fact{numeric: true, lo: lo, hi: hi}
}

// Numeric reports whether the fact tracks a quantity.
func (f *Fact) Numeric() bool { return f.numeric }

// Bool is the Boolean-tier projection. For a flag it is the flag itself;
// for a quantity it answers "is the value nonzero".
func (f *Fact) Bool() Ternary {
	if !f.numeric {
		return f.flag
	}
	zero := cty.Zero
	if f.lo != cty.NilVal && NumLess(zero, f.lo) {
		return True
	}
	if f.hi != cty.NilVal && f.hi.Equals(zero).True() && f.lo != cty.NilVal && f.lo.Equals(zero).True() {
		return False
	}
	return Maybe
}

// Interval returns the numeric bounds. Meaningless for flag facts.
func (f *Fact) Interval() (lo, hi cty.Value) { return f.lo, f.hi }

// Exact returns the concrete value when the fact is pinned to one number.
func (f *Fact) Exact() (cty.Value, bool) {
	if !f.numeric || f.lo == cty.NilVal || f.hi == cty.NilVal {
		return cty.NilVal, false
	}
	if f.lo.Equals(f.hi).True() {
		return f.lo, true
	}
	return cty.NilVal, false
}

// Clone returns an independent copy.
func (f *Fact) Clone() *Fact {
	c := *f
	return &c
}

// SetFlag replaces a flag fact's value.
func (f *Fact) SetFlag(t Ternary) { f.flag = t }

// SetExact pins a numeric fact to one concrete value.
func (f *Fact) SetExact(v cty.Value) { f.lo, f.hi = v, v }

// SetInterval replaces a numeric fact's bounds.
func (f *Fact) SetInterval(lo, hi cty.Value) { f.lo, f.hi = lo, hi }

// Shift adds delta to both bounds and clamps the result into
// [floor, ceil]; pass cty.NilVal to skip a clamp. This is the single
// authoritative transfer-effect primitive: exact values are degenerate
// intervals, so the same transform serves every tier.
func (f *Fact) Shift(delta, floor, ceil cty.Value) {
	f.lo = ClampHigh(ClampLow(NumAdd(f.lo, delta), floor), ceil)
	f.hi = ClampHigh(ClampLow(NumAdd(f.hi, delta), floor), ceil)
}

// Widen relaxes the bounds to the hull of the current interval and
// [lo, hi]. Used to summarize effects applied an unknown number of times.
func (f *Fact) Widen(lo, hi cty.Value) {
	f.lo = NumMin(f.lo, lo)
	f.hi = NumMax(f.hi, hi)
}

// fingerprint renders a canonical form for state memoization.
func (f *Fact) fingerprint() string {
	if f.strKnown {
		return fmt.Sprintf("t%d:s:%s", f.Tier, f.str)
	}
	if !f.numeric {
		return fmt.Sprintf("t%d:f:%s", f.Tier, f.flag)
	}
	lo, hi := "-inf", "+inf"
	if f.lo != cty.NilVal {
		lo = f.lo.AsBigFloat().Text('g', -1)
	}
	if f.hi != cty.NilVal {
		hi = f.hi.AsBigFloat().Text('g', -1)
	}
	return fmt.Sprintf("t%d:n:[%s,%s]", f.Tier, lo, hi)
}
