package contract

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/state"
)

// Predicate helpers. Each helper consults one fact at that fact's current
// tier and records the key for escalation only when the answer is
// undecided, so a retry after escalation targets exactly the facts that
// blocked the verdict.

// FlagIs checks a flag fact against a definite expectation.
func (e *Env) FlagIs(k state.Key, want state.Ternary) Verdict {
	e.observe(k)
	got := e.State.Peek(k).Bool()
	if got == state.Maybe {
		e.touch(k)
		return Unknown
	}
	if got == want {
		return Sat
	}
	return Violated
}

// AtLeast checks that a quantity fact is at least the needed amount, the
// need itself given as bounds (degenerate for a concrete argument,
// cty.NilVal for an unbounded side).
func (e *Env) AtLeast(k state.Key, needLo, needHi cty.Value) Verdict {
	e.observe(k)
	f := e.State.Peek(k)
	if needHi != cty.NilVal && !state.NumLess(cty.Zero, needHi) {
		// needing at most zero is trivially satisfied
		return Sat
	}
	if f.Tier == model.TierBoolean {
		// only the coarse nonzero flag is visible at this tier
		if f.Bool() == state.False && needLo != cty.NilVal && state.NumLess(cty.Zero, needLo) {
			return Violated
		}
		e.touch(k)
		return Unknown
	}
	lo, hi := f.Interval()
	if lo != cty.NilVal && needHi != cty.NilVal && !state.NumLess(lo, needHi) {
		return Sat
	}
	if hi != cty.NilVal && needLo != cty.NilVal && state.NumLess(hi, needLo) {
		return Violated
	}
	e.touch(k)
	return Unknown
}

// FitsWithin checks that a quantity fact plus an added amount stays within
// a capacity.
func (e *Env) FitsWithin(k state.Key, addLo, addHi, capacity cty.Value) Verdict {
	if capacity == cty.NilVal {
		return Sat
	}
	e.observe(k)
	f := e.State.Peek(k)
	if f.Tier == model.TierBoolean {
		// the flag alone can prove neither headroom nor overflow unless
		// the addition already exceeds the whole capacity
		if addLo != cty.NilVal && state.NumLess(capacity, addLo) {
			return Violated
		}
		if f.Bool() == state.False && addHi != cty.NilVal && !state.NumLess(capacity, addHi) {
			return Sat
		}
		e.touch(k)
		return Unknown
	}
	lo, hi := f.Interval()
	if hi != cty.NilVal && addHi != cty.NilVal && !state.NumLess(capacity, state.NumAdd(hi, addHi)) {
		return Sat
	}
	if lo != cty.NilVal && addLo != cty.NilVal && state.NumLess(capacity, state.NumAdd(lo, addLo)) {
		return Violated
	}
	e.touch(k)
	return Unknown
}

// FitsWithinKey is FitsWithin against a capacity tracked as a fact itself,
// e.g. the capacity of whatever tip a channel currently holds.
func (e *Env) FitsWithinKey(k state.Key, addLo, addHi cty.Value, capKey state.Key) Verdict {
	e.observe(k)
	e.observe(capKey)
	f := e.State.Peek(k)
	capLo, capHi := e.State.Peek(capKey).Interval()
	if f.Tier == model.TierBoolean {
		if f.Bool() == state.False && addHi != cty.NilVal && capLo != cty.NilVal && !state.NumLess(capLo, addHi) {
			return Sat
		}
		e.touch(k)
		return Unknown
	}
	lo, hi := f.Interval()
	if hi != cty.NilVal && addHi != cty.NilVal && capLo != cty.NilVal && !state.NumLess(capLo, state.NumAdd(hi, addHi)) {
		return Sat
	}
	if lo != cty.NilVal && addLo != cty.NilVal && capHi != cty.NilVal && state.NumLess(capHi, state.NumAdd(lo, addLo)) {
		return Violated
	}
	e.touch(k)
	e.touch(capKey)
	return Unknown
}

// Effect helpers. Effects are authored once over the interval record;
// exact values are degenerate intervals and the boolean flag is a derived
// projection, so a single transform stays correct at every tier. During a
// widening pass numeric effects relax to the reachable hull instead.

// SetFlag sets a flag fact.
func (e *Env) SetFlag(k state.Key, v state.Ternary) {
	f := e.State.Mutate(k)
	if e.Widen && f.Bool() != v {
		f.SetFlag(state.Maybe)
		return
	}
	f.SetFlag(v)
}

// SetNumber pins a quantity fact to a concrete value.
func (e *Env) SetNumber(k state.Key, v cty.Value) {
	f := e.State.Mutate(k)
	if e.Widen {
		f.Widen(v, v)
		return
	}
	f.SetExact(v)
}

// WidenNumber relaxes a quantity fact to cover [lo, hi] in addition to its
// current bounds.
func (e *Env) WidenNumber(k state.Key, lo, hi cty.Value) {
	e.State.Mutate(k).Widen(lo, hi)
}

// SetSlot records an instance's current deck slot.
func (e *Env) SetSlot(k state.Key, slot string) {
	f := e.State.Mutate(k)
	if e.Widen {
		f.ForgetStr()
		return
	}
	f.SetStr(slot)
}

// AddAmount shifts a quantity fact by [deltaLo, deltaHi], clamped into
// [floor, ceil]. The clamp is the deterministic recovery rule: a fault has
// already been reported by the precondition, so the state follows what the
// hardware would physically do (run dry, or fill to the brim).
func (e *Env) AddAmount(k state.Key, deltaLo, deltaHi, floor, ceil cty.Value) {
	f := e.State.Mutate(k)
	if e.Widen {
		// applied an unknown, non-zero number of times: anything between
		// the clamping floor and ceiling is reachable
		lo, hi := f.Interval()
		if deltaLo == cty.NilVal || state.NumLess(deltaLo, cty.Zero) {
			lo = floor
		}
		if deltaHi == cty.NilVal || state.NumLess(cty.Zero, deltaHi) {
			hi = ceil
		}
		f.Widen(lo, hi)
		return
	}
	lo, hi := f.Interval()
	f.SetInterval(
		state.ClampHigh(state.ClampLow(state.NumAdd(lo, deltaLo), floor), ceil),
		state.ClampHigh(state.ClampLow(state.NumAdd(hi, deltaHi), floor), ceil),
	)
}
