package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/catalog"
	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/state"
	"github.com/vk/protocheck/internal/trace"
)

func testDeck() model.Deck {
	return model.Deck{
		"plate": {Name: "plate", Type: "generic_96_wellplate_300ul", Slot: "2",
			InitialVolumeUL: map[string]float64{"A1": 250}},
		"rack": {Name: "rack", Type: "tiprack_96_300ul", Slot: "1"},
	}
}

// newTestEnv wires a fresh environment over the given call, collecting
// findings into the returned slice.
func newTestEnv(t *testing.T, name string, args map[string]cty.Value) (*Env, *[]model.Finding) {
	t.Helper()
	deck := testDeck()
	init, err := state.Seed(catalog.Builtin(), deck)
	require.NoError(t, err)

	avs := make(map[string]model.ArgValue, len(args))
	for k, v := range args {
		avs[k] = model.ArgValue{Value: v}
	}
	var findings []model.Finding
	counter := 0
	env := &Env{
		State:  state.New(init),
		Tracer: trace.New(catalog.Builtin(), deck),
		Call: &model.OperationCall{
			Name:     name,
			Args:     avs,
			Location: model.SourceLocation{File: "t.hcl", Line: 1, Column: 1},
		},
		Counter: &counter,
		Emit:    func(f model.Finding) { findings = append(findings, f) },
	}
	return env, &findings
}

func TestRegistry(t *testing.T) {
	t.Run("register and lookup", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&Contract{Name: "spin"})
		c, ok := r.Lookup("spin")
		require.True(t, ok)
		assert.Equal(t, "spin", c.Name)
		_, ok = r.Lookup("levitate")
		assert.False(t, ok)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&Contract{Name: "spin"})
		assert.Panics(t, func() { r.Register(&Contract{Name: "spin"}) })
	})

	t.Run("builtin set is complete", func(t *testing.T) {
		r := Builtin()
		assert.Equal(t, 41, r.Len())
		for _, name := range []string{
			"pick_up_tips", "aspirate", "dispense", "transfer", "move_plate",
			"set_temperature", "shake", "seal_plate", "read_absorbance",
		} {
			_, ok := r.Lookup(name)
			assert.True(t, ok, "missing builtin %q", name)
		}
	})
}

func TestExecute_MissingRequiredArgument(t *testing.T) {
	env, _ := newTestEnv(t, "aspirate", map[string]cty.Value{
		"resource": cty.StringVal("plate"),
		// wells and volume_ul missing
	})
	c, ok := Builtin().Lookup("aspirate")
	require.True(t, ok)

	err := Execute(c, env)
	var analysisErr *model.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.Equal(t, "aspirate", analysisErr.Op)
}

// A precondition undecided at the coarse flag must escalate exactly the
// facts it consulted, then decide on the retry.
func TestExecute_EscalatesOnlyTouchedFacts(t *testing.T) {
	env, findings := newTestEnv(t, "probe", map[string]cty.Value{
		"volume_ul": cty.NumberIntVal(300),
	})
	well := state.Key{Resource: "plate", Element: "A1", Fact: state.FactVolume}
	other := state.Key{Resource: "plate", Element: "B1", Fact: state.FactVolume}

	c := &Contract{
		Name: "probe",
		Pre: []Precondition{{
			Kind:     model.FindingInsufficientVolume,
			Severity: model.SeverityFatal,
			Check: func(e *Env) (Verdict, string) {
				lo, hi, err := e.Number("volume_ul")
				require.NoError(t, err)
				switch e.AtLeast(well, lo, hi) {
				case Violated:
					return Violated, "well A1 holds less than the requested volume"
				case Unknown:
					return Unknown, ""
				}
				return Sat, ""
			},
		}},
	}
	require.NoError(t, Execute(c, env))

	require.Len(t, *findings, 1)
	f := (*findings)[0]
	assert.Equal(t, model.FindingInsufficientVolume, f.Kind)
	assert.Equal(t, model.TierSymbolic, f.Tier, "the 250 < 300 contradiction needs interval precision")
	assert.Equal(t, model.TierSymbolic, env.State.Peek(well).Tier)
	assert.Equal(t, model.TierBoolean, env.State.Peek(other).Tier, "unconsulted facts stay coarse")
}

// A fact that stays an interval even at the Exact tier cannot decide the
// predicate; the engine accepts it with a note instead of spinning.
func TestExecute_UnresolvedPrecondition(t *testing.T) {
	env, findings := newTestEnv(t, "probe", map[string]cty.Value{
		"volume_ul": cty.NumberIntVal(100),
	})
	// B1 is undeclared: its volume is [0, 300] at every tier
	well := state.Key{Resource: "plate", Element: "B1", Fact: state.FactVolume}

	c := &Contract{
		Name: "probe",
		Pre: []Precondition{{
			Kind:     model.FindingInsufficientVolume,
			Severity: model.SeverityFatal,
			Check: func(e *Env) (Verdict, string) {
				lo, hi, err := e.Number("volume_ul")
				require.NoError(t, err)
				return e.AtLeast(well, lo, hi), ""
			},
		}},
	}
	require.NoError(t, Execute(c, env))

	require.Len(t, *findings, 1)
	f := (*findings)[0]
	assert.Equal(t, model.FindingUnresolvedPrecondition, f.Kind)
	assert.Equal(t, model.SeverityNote, f.Severity)
	assert.Equal(t, model.TierExact, env.State.Peek(well).Tier)
}

func TestExecute_RecoveryRunsOnViolation(t *testing.T) {
	env, findings := newTestEnv(t, "probe", nil)
	recovered := false

	c := &Contract{
		Name: "probe",
		Pre: []Precondition{{
			Kind:     model.FindingCollision,
			Severity: model.SeverityFatal,
			Check:    func(e *Env) (Verdict, string) { return Violated, "blocked" },
			Recover:  func(e *Env) { recovered = true },
		}},
	}
	require.NoError(t, Execute(c, env))

	assert.True(t, recovered)
	require.Len(t, *findings, 1)
	assert.Equal(t, model.FindingCollision, (*findings)[0].Kind)
}

// An out-of-shape selection is a predicted fault, not an analysis error:
// the call continues with an empty selection so later checks still run.
func TestExecute_SelectionRangeError(t *testing.T) {
	env, findings := newTestEnv(t, "aspirate", map[string]cty.Value{
		"resource":  cty.StringVal("plate"),
		"wells":     cty.StringVal("A13"),
		"volume_ul": cty.NumberIntVal(10),
	})
	c, ok := Builtin().Lookup("aspirate")
	require.True(t, ok)

	require.NoError(t, Execute(c, env))

	require.NotEmpty(t, *findings)
	assert.Equal(t, model.FindingWellOutOfRange, (*findings)[0].Kind)
	assert.Equal(t, model.SeverityFatal, (*findings)[0].Severity)
}

func TestExecute_AdvancesCallCounter(t *testing.T) {
	env, _ := newTestEnv(t, "home", nil)
	c, ok := Builtin().Lookup("home")
	require.True(t, ok)

	require.NoError(t, Execute(c, env))
	assert.Equal(t, 1, *env.Counter)
}

func TestEnv_WidenedEffects(t *testing.T) {
	env, _ := newTestEnv(t, "probe", nil)
	env.Widen = true
	k := state.Key{Resource: "plate", Element: "A1", Fact: state.FactVolume}

	t.Run("additions relax to the reachable hull", func(t *testing.T) {
		env.AddAmount(k, cty.NumberIntVal(-50), cty.NumberIntVal(-50), cty.Zero, cty.NumberIntVal(300))
		lo, hi := env.State.Peek(k).Interval()
		assert.True(t, lo.Equals(cty.Zero).True(), "repeated draining can reach empty")
		assert.True(t, hi.Equals(cty.NumberIntVal(250)).True(), "draining never adds volume")
	})

	t.Run("flag writes that change the value go undecided", func(t *testing.T) {
		flag := state.Key{Resource: "plate", Fact: state.FactSealed}
		env.SetFlag(flag, state.True)
		assert.Equal(t, state.Maybe, env.State.Peek(flag).Bool())
	})
}

// Deactivating temperature control lets the device drift back toward
// ambient; the reachable range spans ambient to the last setpoint.
func TestExecute_DeactivateTemperatureDriftsToAmbient(t *testing.T) {
	env, _ := newTestEnv(t, "deactivate_temperature", map[string]cty.Value{
		"resource": cty.StringVal("plate"),
	})
	k := state.Key{Resource: "plate", Fact: state.FactTemperature}
	env.State.Mutate(k).SetExact(cty.NumberIntVal(95))

	c, ok := Builtin().Lookup("deactivate_temperature")
	require.True(t, ok)
	require.NoError(t, Execute(c, env))

	lo, hi := env.State.Peek(k).Interval()
	assert.True(t, lo.Equals(cty.NumberIntVal(state.AmbientTemperatureC)).True())
	assert.True(t, hi.Equals(cty.NumberIntVal(95)).True())
}

func TestEnv_Number(t *testing.T) {
	t.Run("concrete argument gives a degenerate range", func(t *testing.T) {
		env, _ := newTestEnv(t, "probe", map[string]cty.Value{"volume_ul": cty.NumberIntVal(50)})
		lo, hi, err := env.Number("volume_ul")
		require.NoError(t, err)
		assert.True(t, lo.Equals(cty.NumberIntVal(50)).True())
		assert.True(t, hi.Equals(cty.NumberIntVal(50)).True())
	})

	t.Run("refined unknown contributes its bounds", func(t *testing.T) {
		v := cty.UnknownVal(cty.Number).Refine().NotNull().
			NumberRangeLowerBound(cty.NumberIntVal(10), true).
			NumberRangeUpperBound(cty.NumberIntVal(90), true).
			NewValue()
		env, _ := newTestEnv(t, "probe", map[string]cty.Value{"volume_ul": v})
		lo, hi, err := env.Number("volume_ul")
		require.NoError(t, err)
		assert.True(t, lo.Equals(cty.NumberIntVal(10)).True())
		assert.True(t, hi.Equals(cty.NumberIntVal(90)).True())
	})

	t.Run("bare unknown is unbounded on both sides", func(t *testing.T) {
		env, _ := newTestEnv(t, "probe", map[string]cty.Value{"volume_ul": cty.UnknownVal(cty.Number)})
		lo, hi, err := env.Number("volume_ul")
		require.NoError(t, err)
		assert.Equal(t, cty.NilVal, lo)
		assert.Equal(t, cty.NilVal, hi)
	})
}

func TestEnv_ParametrizedSelectionWithBindings(t *testing.T) {
	env, _ := newTestEnv(t, "aspirate", map[string]cty.Value{
		"resource":  cty.StringVal("plate"),
		"wells":     cty.StringVal("A$i"),
		"volume_ul": cty.NumberIntVal(10),
	})
	env.Bindings = map[string]cty.Value{"i": cty.NumberIntVal(4)}

	set, err := env.Selection(Selection{ResourceArg: "resource", ElementsArg: "wells"})
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "A4", set.Refs[0].ID)
}
