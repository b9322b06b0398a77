package bounds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/model"
)

func refined(lo, hi int64) cty.Value {
	rb := cty.UnknownVal(cty.Number).Refine().NotNull()
	rb = rb.NumberRangeLowerBound(cty.NumberIntVal(lo), true)
	rb = rb.NumberRangeUpperBound(cty.NumberIntVal(hi), true)
	return rb.NewValue()
}

func TestResolve_Count(t *testing.T) {
	cases := []struct {
		name  string
		count cty.Value
		want  Result
	}{
		{name: "concrete integer", count: cty.NumberIntVal(8), want: Result{Kind: Exact, N: 8}},
		{name: "zero iterations", count: cty.Zero, want: Result{Kind: Exact, N: 0}},
		{name: "refined unknown keeps its ceiling", count: refined(1, 12), want: Result{Kind: UpperBound, N: 12}},
		{name: "bare unknown", count: cty.UnknownVal(cty.Number), want: Result{Kind: Unbounded}},
		{name: "negative count", count: cty.NumberIntVal(-3), want: Result{Kind: Unbounded}},
		{name: "fractional count", count: cty.NumberFloatVal(2.5), want: Result{Kind: Unbounded}},
		{name: "null count", count: cty.NullVal(cty.Number), want: Result{Kind: Unbounded}},
		{name: "no count at all", count: cty.NilVal, want: Result{Kind: Unbounded}},
		{name: "non-numeric count", count: cty.StringVal("lots"), want: Result{Kind: Unbounded}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(&model.LoopNode{Count: tc.count})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolve_FractionalCeilingRoundsUp(t *testing.T) {
	count := cty.UnknownVal(cty.Number).Refine().NotNull().
		NumberRangeUpperBound(cty.NumberFloatVal(3.2), true).NewValue()
	got := Resolve(&model.LoopNode{Count: count})
	assert.Equal(t, Result{Kind: UpperBound, N: 4}, got, "a fractional ceiling must not under-cover")
}

func TestResolve_Over(t *testing.T) {
	t.Run("concrete selection runs once per element", func(t *testing.T) {
		set := &model.RefSet{Refs: make([]model.ElementRef, 8)}
		got := Resolve(&model.LoopNode{Over: set})
		assert.Equal(t, Result{Kind: Exact, N: 8}, got)
	})

	t.Run("parametrized selection falls back to the resource size", func(t *testing.T) {
		set := &model.RefSet{Parametrized: true, Bound: 96}
		got := Resolve(&model.LoopNode{Over: set})
		assert.Equal(t, Result{Kind: UpperBound, N: 96}, got)
	})

	t.Run("parametrized selection without a bound", func(t *testing.T) {
		set := &model.RefSet{Parametrized: true}
		got := Resolve(&model.LoopNode{Over: set})
		assert.Equal(t, Result{Kind: Unbounded}, got)
	})
}
