package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/protocheck/internal/ctxlog"
	"github.com/vk/protocheck/internal/model"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func TestShape(t *testing.T) {
	grid := Shape{Kind: model.KindPlate, Rows: 8, Columns: 12, ElementCapacityUL: 300}
	assert.Equal(t, 96, grid.NumElements())
	assert.True(t, grid.Gridded())

	linear := Shape{Kind: model.KindReservoir, Count: 12}
	assert.Equal(t, 12, linear.NumElements())
	assert.False(t, linear.Gridded())
}

func TestStatic_LookupShape(t *testing.T) {
	cat := Builtin()

	shape, err := cat.LookupShape("generic_96_wellplate_300ul")
	require.NoError(t, err)
	assert.Equal(t, model.KindPlate, shape.Kind)
	assert.Equal(t, 300.0, shape.ElementCapacityUL)

	_, err = cat.LookupShape("hoverboard")
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := Static{"a": {Kind: model.KindPlate, Rows: 8, Columns: 12}}
	extra := Static{
		"a": {Kind: model.KindPlate, Rows: 16, Columns: 24},
		"b": {Kind: model.KindTrash, Count: 1},
	}
	merged := Merge(base, extra)

	assert.Len(t, merged, 2)
	assert.Equal(t, 16, merged["a"].Rows, "extra entries win")
	assert.Equal(t, 8, base["a"].Rows, "inputs are untouched")
}

func TestLoadFile(t *testing.T) {
	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "labware.hcl")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("valid declarations", func(t *testing.T) {
		path := write(t, `
labware "deepwell_96_2ml" {
  kind                = "plate"
  rows                = 8
  columns             = 12
  element_capacity_ul = 2000
}

labware "waste_chute" {
  kind  = "trash"
  count = 1
}
`)
		cat, err := LoadFile(testCtx(), path)
		require.NoError(t, err)
		require.Len(t, cat, 2)
		assert.Equal(t, model.KindPlate, cat["deepwell_96_2ml"].Kind)
		assert.Equal(t, 2000.0, cat["deepwell_96_2ml"].ElementCapacityUL)
		assert.Equal(t, 1, cat["waste_chute"].Count)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		path := write(t, `
labware "x" {
  kind = "centrifuge"
  count = 1
}
`)
		_, err := LoadFile(testCtx(), path)
		assert.ErrorContains(t, err, "unknown kind")
	})

	t.Run("grid and count are mutually exclusive", func(t *testing.T) {
		path := write(t, `
labware "x" {
  kind    = "plate"
  rows    = 8
  columns = 12
  count   = 96
}
`)
		_, err := LoadFile(testCtx(), path)
		assert.ErrorContains(t, err, "mutually exclusive")
	})

	t.Run("duplicate type keys are rejected", func(t *testing.T) {
		path := write(t, `
labware "x" {
  kind  = "trash"
  count = 1
}
labware "x" {
  kind  = "trash"
  count = 1
}
`)
		_, err := LoadFile(testCtx(), path)
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(testCtx(), filepath.Join(t.TempDir(), "nope.hcl"))
		assert.Error(t, err)
	})
}
