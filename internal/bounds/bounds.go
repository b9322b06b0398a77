// Package bounds derives iteration counts for loop constructs: an exact
// count when the iteration source is fully concrete, a sound conservative
// upper bound when only a maximum is statically known, and Unbounded when
// nothing can be derived. The detector never unrolls an unbounded loop.
package bounds

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/model"
)

// Kind classifies a bounds result.
type Kind int

const (
	// Exact: the loop runs precisely N times.
	Exact Kind = iota
	// UpperBound: the loop runs at most N times; unrolling N iterations
	// never under-covers a reachable run.
	UpperBound
	// Unbounded: no static bound is derivable.
	Unbounded
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case UpperBound:
		return "upper_bound"
	default:
		return "unbounded"
	}
}

// Result is the resolved iteration bound of one loop.
type Result struct {
	Kind Kind
	N    int
}

func (r Result) String() string {
	if r.Kind == Unbounded {
		return "unbounded"
	}
	return fmt.Sprintf("%s(%d)", r.Kind, r.N)
}

// Resolve derives the bound of a loop node. Resolution order: a concrete
// element set or integer count gives Exact; a parametrized set, or an
// unknown count carrying a range refinement with a finite upper side,
// gives UpperBound; anything else is Unbounded.
func Resolve(node *model.LoopNode) Result {
	if node.Over != nil {
		if !node.Over.Parametrized {
			return Result{Kind: Exact, N: node.Over.Len()}
		}
		if node.Over.Bound > 0 {
			return Result{Kind: UpperBound, N: node.Over.Bound}
		}
		return Result{Kind: Unbounded}
	}

	c := node.Count
	if c == cty.NilVal || c.IsNull() || c.Type() != cty.Number {
		return Result{Kind: Unbounded}
	}
	if c.IsKnown() {
		if n, ok := intValue(c); ok && n >= 0 {
			return Result{Kind: Exact, N: n}
		}
		return Result{Kind: Unbounded}
	}
	if ub, _ := c.Range().NumberUpperBound(); ub.IsKnown() && ub != cty.PositiveInfinity {
		// round a fractional refinement up so the bound stays conservative
		f := ub.AsBigFloat()
		n, acc := f.Int64()
		if acc == big.Below {
			n++
		}
		if n >= 0 {
			return Result{Kind: UpperBound, N: int(n)}
		}
	}
	return Result{Kind: Unbounded}
}

func intValue(v cty.Value) (int, bool) {
	n, acc := v.AsBigFloat().Int64()
	if acc != big.Exact {
		return 0, false
	}
	return int(n), true
}
