package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/catalog"
	"github.com/vk/protocheck/internal/model"
)

func TestFact_BoolProjection(t *testing.T) {
	t.Run("flag facts project themselves", func(t *testing.T) {
		assert.Equal(t, True, NewFlag(True).Bool())
		assert.Equal(t, Maybe, NewFlag(Maybe).Bool())
	})

	t.Run("positive quantity is true", func(t *testing.T) {
		assert.Equal(t, True, NewNumber(cty.NumberIntVal(250)).Bool())
		assert.Equal(t, True, NewInterval(cty.NumberIntVal(10), cty.NumberIntVal(20)).Bool())
	})

	t.Run("exact zero is false", func(t *testing.T) {
		assert.Equal(t, False, NewNumber(cty.Zero).Bool())
	})

	t.Run("interval spanning zero is undecided", func(t *testing.T) {
		assert.Equal(t, Maybe, NewInterval(cty.Zero, cty.NumberIntVal(300)).Bool())
		assert.Equal(t, Maybe, NewInterval(cty.NilVal, cty.NumberIntVal(300)).Bool())
	})
}

func TestFact_Exact(t *testing.T) {
	v, ok := NewNumber(cty.NumberIntVal(42)).Exact()
	require.True(t, ok)
	assert.True(t, v.Equals(cty.NumberIntVal(42)).True())

	_, ok = NewInterval(cty.Zero, cty.NumberIntVal(300)).Exact()
	assert.False(t, ok)

	_, ok = NewInterval(cty.NilVal, cty.NumberIntVal(300)).Exact()
	assert.False(t, ok)
}

func TestFact_ShiftAndWiden(t *testing.T) {
	f := NewNumber(cty.NumberIntVal(100))
	f.Shift(cty.NumberIntVal(-150), cty.Zero, cty.NumberIntVal(300))
	v, ok := f.Exact()
	require.True(t, ok, "clamped shift stays exact")
	assert.True(t, v.Equals(cty.Zero).True())

	f.Widen(cty.NumberIntVal(50), cty.NumberIntVal(80))
	lo, hi := f.Interval()
	assert.True(t, lo.Equals(cty.Zero).True())
	assert.True(t, hi.Equals(cty.NumberIntVal(80)).True())
}

func TestState_CopyOnWriteFork(t *testing.T) {
	k := Key{Resource: "plate", Element: "A1", Fact: FactVolume}
	root := New(func(Key) *Fact { return NewNumber(cty.NumberIntVal(100)) })

	child := root.Fork()
	child.Mutate(k).SetExact(cty.NumberIntVal(40))

	childVal, _ := child.Peek(k).Exact()
	rootVal, _ := root.Peek(k).Exact()
	assert.True(t, childVal.Equals(cty.NumberIntVal(40)).True())
	assert.True(t, rootVal.Equals(cty.NumberIntVal(100)).True(), "parent must not see the child's write")
}

func TestState_PeekDefaultsToUndecided(t *testing.T) {
	s := New(nil)
	f := s.Peek(Key{Resource: "ghost", Fact: "anything"})
	assert.Equal(t, Maybe, f.Bool())
}

func TestState_EscalateNeverRegresses(t *testing.T) {
	k := Key{Resource: "plate", Element: "A1", Fact: FactVolume}
	s := New(func(Key) *Fact { return NewNumber(cty.NumberIntVal(100)) })

	require.Equal(t, model.TierBoolean, s.Peek(k).Tier)
	s.Escalate(k)
	assert.Equal(t, model.TierSymbolic, s.Peek(k).Tier)
	s.Escalate(k)
	assert.Equal(t, model.TierExact, s.Peek(k).Tier)
	s.Escalate(k)
	assert.Equal(t, model.TierExact, s.Peek(k).Tier, "exact is the ceiling")

	// escalation preserves the underlying value
	v, ok := s.Peek(k).Exact()
	require.True(t, ok)
	assert.True(t, v.Equals(cty.NumberIntVal(100)).True())
}

func TestState_Fingerprint(t *testing.T) {
	k := Key{Resource: "plate", Element: "A1", Fact: FactVolume}
	init := func(Key) *Fact { return NewNumber(cty.NumberIntVal(100)) }

	a := New(init)
	b := New(init)
	a.Mutate(k).SetExact(cty.NumberIntVal(40))
	b.Mutate(k).SetExact(cty.NumberIntVal(40))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Mutate(k).SetExact(cty.NumberIntVal(41))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	// the tier tag is part of branch identity
	c := New(init)
	c.Mutate(k).SetExact(cty.NumberIntVal(40))
	c.Escalate(k)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestState_FingerprintSeesParentWrites(t *testing.T) {
	k := Key{Resource: "plate", Element: "A1", Fact: FactVolume}
	parent := New(nil)
	parent.Mutate(k).SetExact(cty.NumberIntVal(40))

	child := parent.Fork()
	flat := New(nil)
	flat.Mutate(k).SetExact(cty.NumberIntVal(40))
	assert.Equal(t, flat.Fingerprint(), child.Fingerprint())
}

func TestSeed(t *testing.T) {
	deck := model.Deck{
		"plate": {Name: "plate", Type: "generic_96_wellplate_300ul", Slot: "2",
			InitialVolumeUL: map[string]float64{"A1": 250}},
		"rack": {Name: "rack", Type: "tiprack_96_300ul", Slot: "1"},
	}
	init, err := Seed(catalog.Builtin(), deck)
	require.NoError(t, err)
	s := New(init)

	t.Run("declared well volume is exact", func(t *testing.T) {
		v, ok := s.Peek(Key{Resource: "plate", Element: "A1", Fact: FactVolume}).Exact()
		require.True(t, ok)
		assert.True(t, v.Equals(cty.NumberIntVal(250)).True())
	})

	t.Run("undeclared well spans empty to full", func(t *testing.T) {
		f := s.Peek(Key{Resource: "plate", Element: "B7", Fact: FactVolume})
		lo, hi := f.Interval()
		assert.True(t, lo.Equals(cty.Zero).True())
		assert.True(t, hi.Equals(cty.NumberIntVal(300)).True())
	})

	t.Run("tip racks start full, channels start empty", func(t *testing.T) {
		assert.Equal(t, True, s.Peek(Key{Resource: "rack", Element: "A1", Fact: FactTipPresent}).Bool())
		assert.Equal(t, False, s.Peek(Key{Resource: ResourceHead, Element: "0", Fact: FactTipPresent}).Bool())
	})

	t.Run("occupied slots are recorded on the deck", func(t *testing.T) {
		assert.Equal(t, True, s.Peek(Key{Resource: ResourceDeck, Element: "1", Fact: FactOccupied}).Bool())
		assert.Equal(t, False, s.Peek(Key{Resource: ResourceDeck, Element: "9", Fact: FactOccupied}).Bool())
	})

	t.Run("devices start at ambient temperature", func(t *testing.T) {
		v, ok := s.Peek(Key{Resource: "plate", Fact: FactTemperature}).Exact()
		require.True(t, ok)
		assert.True(t, v.Equals(cty.NumberIntVal(22)).True())
	})

	t.Run("unknown labware type is a setup error", func(t *testing.T) {
		_, err := Seed(catalog.Builtin(), model.Deck{
			"x": {Name: "x", Type: "hoverboard", Slot: "1"},
		})
		assert.Error(t, err)
	})
}
