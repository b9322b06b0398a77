package trace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/catalog"
	"github.com/vk/protocheck/internal/model"
)

func testTracer() *Tracer {
	deck := model.Deck{
		"plate":  {Name: "plate", Type: "generic_96_wellplate_300ul", Slot: "1"},
		"trough": {Name: "trough", Type: "reservoir_12_15ml", Slot: "2"},
		"rack":   {Name: "rack", Type: "tiprack_96_300ul", Slot: "3"},
	}
	return New(catalog.Builtin(), deck)
}

func ids(set *model.RefSet) []string {
	out := make([]string, 0, len(set.Refs))
	for _, r := range set.Refs {
		out = append(out, r.ID)
	}
	return out
}

func TestResolve_GriddedNames(t *testing.T) {
	tr := testTracer()

	t.Run("single well", func(t *testing.T) {
		set, err := tr.Resolve("plate", "B7")
		require.NoError(t, err)
		require.Equal(t, 1, set.Len())
		assert.Equal(t, "B7", set.Refs[0].ID)
		assert.Equal(t, 6*8+1, set.Refs[0].Index, "column-major linear index")
		assert.Equal(t, model.ElementWell, set.Kind)
	})

	t.Run("column rectangle in column-major order", func(t *testing.T) {
		set, err := tr.Resolve("plate", "A1:H1")
		require.NoError(t, err)
		assert.Equal(t, []string{"A1", "B1", "C1", "D1", "E1", "F1", "G1", "H1"}, ids(set))
	})

	t.Run("block rectangle", func(t *testing.T) {
		set, err := tr.Resolve("plate", "A1:B2")
		require.NoError(t, err)
		assert.Equal(t, []string{"A1", "B1", "A2", "B2"}, ids(set))
	})

	t.Run("out of range is a RangeError", func(t *testing.T) {
		_, err := tr.Resolve("plate", "A13")
		var rangeErr *RangeError
		require.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, "plate", rangeErr.Instance)
		assert.Equal(t, 96, rangeErr.Max)
	})

	t.Run("inverted rectangle is malformed, not out of range", func(t *testing.T) {
		_, err := tr.Resolve("plate", "H1:A1")
		require.Error(t, err)
		var rangeErr *RangeError
		assert.False(t, errors.As(err, &rangeErr))
	})
}

// Loop bindings substituted into selection templates produce bare integer
// selections, which must address gridded labware by linear index.
func TestResolve_IndexSelectionsOnGriddedLabware(t *testing.T) {
	tr := testTracer()

	t.Run("single index maps column-major", func(t *testing.T) {
		set, err := tr.Resolve("plate", "1")
		require.NoError(t, err)
		require.Equal(t, 1, set.Len())
		assert.Equal(t, "B1", set.Refs[0].ID)
	})

	t.Run("index range", func(t *testing.T) {
		set, err := tr.Resolve("plate", "0:2")
		require.NoError(t, err)
		assert.Equal(t, []string{"A1", "B1", "C1"}, ids(set))
	})

	t.Run("instantiated template round-trips", func(t *testing.T) {
		set, err := tr.Resolve("rack", "$i")
		require.NoError(t, err)
		require.True(t, set.Parametrized)

		inst, err := tr.Instantiate(set, map[string]cty.Value{"i": cty.NumberIntVal(2)})
		require.NoError(t, err)
		require.Equal(t, 1, inst.Len())
		assert.Equal(t, "C1", inst.Refs[0].ID)
		assert.Equal(t, model.ElementTipSpot, inst.Kind)
	})

	t.Run("index out of range is a RangeError", func(t *testing.T) {
		_, err := tr.Resolve("plate", "96")
		var rangeErr *RangeError
		require.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, 96, rangeErr.Max)
	})
}

func TestResolve_LinearIndices(t *testing.T) {
	tr := testTracer()

	set, err := tr.Resolve("trough", "0:2")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, ids(set))

	_, err = tr.Resolve("trough", "12")
	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)

	_, err = tr.Resolve("trough", "B1")
	assert.Error(t, err, "grid names are meaningless on linear labware")
}

func TestResolve_UnknownInstance(t *testing.T) {
	tr := testTracer()
	_, err := tr.Resolve("phantom", "A1")
	assert.Error(t, err)
}

func TestResolve_Parametrized(t *testing.T) {
	tr := testTracer()

	set, err := tr.Resolve("plate", "A$i")
	require.NoError(t, err)
	require.True(t, set.Parametrized)
	assert.Equal(t, "i", set.Binding)
	assert.Equal(t, 96, set.Bound)
	assert.Equal(t, 0, set.Len(), "nothing enumerated until instantiated")

	t.Run("instantiate with a numeric binding", func(t *testing.T) {
		got, err := tr.Instantiate(set, map[string]cty.Value{"i": cty.NumberIntVal(3)})
		require.NoError(t, err)
		assert.Equal(t, []string{"A3"}, ids(got))
	})

	t.Run("instantiate with a braced placeholder", func(t *testing.T) {
		braced, err := tr.Resolve("plate", "${w}")
		require.NoError(t, err)
		assert.Equal(t, "w", braced.Binding)
		got, err := tr.Instantiate(braced, map[string]cty.Value{"w": cty.StringVal("C5")})
		require.NoError(t, err)
		assert.Equal(t, []string{"C5"}, ids(got))
	})

	t.Run("missing binding stays parametrized", func(t *testing.T) {
		_, err := tr.Instantiate(set, map[string]cty.Value{"other": cty.NumberIntVal(1)})
		assert.Error(t, err)
	})
}

func TestAll(t *testing.T) {
	tr := testTracer()
	set, err := tr.All("rack")
	require.NoError(t, err)
	assert.Equal(t, 96, set.Len())
	assert.Equal(t, "A1", set.Refs[0].ID)
	assert.Equal(t, "H12", set.Refs[95].ID)
	assert.Equal(t, model.ElementTipSpot, set.Kind)
}

func TestElementID(t *testing.T) {
	tr := testTracer()

	id, err := tr.ElementID("plate", 8)
	require.NoError(t, err)
	assert.Equal(t, "A2", id)

	id, err = tr.ElementID("trough", 4)
	require.NoError(t, err)
	assert.Equal(t, "4", id)
}

func TestParseGridName(t *testing.T) {
	cases := []struct {
		in      string
		row     int
		col     int
		wantErr bool
	}{
		{in: "A1", row: 0, col: 0},
		{in: "H12", row: 7, col: 11},
		{in: "AA1", row: 26, col: 0},
		{in: "a1", wantErr: true},
		{in: "A0", wantErr: true},
		{in: "42", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			pos, err := parseGridName(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.row, pos.row)
			assert.Equal(t, tc.col, pos.col)
		})
	}
}
