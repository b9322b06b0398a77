package state

import "github.com/zclconf/go-cty/cty"

// Interval endpoints are concrete cty.Number values; cty.NilVal marks an
// unbounded side. All helpers below assume non-nil operands are known
// numbers, which the Fact constructors guarantee.

// NumLess reports a < b for concrete numbers.
func NumLess(a, b cty.Value) bool {
	return a.LessThan(b).True()
}

// NumAdd returns a+b, propagating an unbounded side.
func NumAdd(a, b cty.Value) cty.Value {
	if a == cty.NilVal || b == cty.NilVal {
		return cty.NilVal
	}
	return a.Add(b)
}

// NumSub returns a-b, propagating an unbounded side.
func NumSub(a, b cty.Value) cty.Value {
	if a == cty.NilVal || b == cty.NilVal {
		return cty.NilVal
	}
	return a.Subtract(b)
}

// NumMin returns the smaller operand, treating NilVal as minus infinity.
func NumMin(a, b cty.Value) cty.Value {
	if a == cty.NilVal || b == cty.NilVal {
		return cty.NilVal
	}
	if NumLess(b, a) {
		return b
	}
	return a
}

// NumMax returns the larger operand, treating NilVal as plus infinity.
func NumMax(a, b cty.Value) cty.Value {
	if a == cty.NilVal || b == cty.NilVal {
		return cty.NilVal
	}
	if NumLess(a, b) {
		return b
	}
	return a
}

// ClampLow raises v to at least bound.
func ClampLow(v, bound cty.Value) cty.Value {
	if v == cty.NilVal {
		return bound
	}
	if bound != cty.NilVal && NumLess(v, bound) {
		return bound
	}
	return v
}

// ClampHigh lowers v to at most bound.
func ClampHigh(v, bound cty.Value) cty.Value {
	if v == cty.NilVal {
		return bound
	}
	if bound != cty.NilVal && NumLess(bound, v) {
		return bound
	}
	return v
}
