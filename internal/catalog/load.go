package catalog

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/protocheck/internal/ctxlog"
	"github.com/vk/protocheck/internal/model"
)

// labwareFile mirrors the top-level structure of a catalog .hcl file.
type labwareFile struct {
	Labware []*labwareBlock `hcl:"labware,block"`
}

// labwareBlock is one `labware "type_key" { ... }` declaration.
type labwareBlock struct {
	TypeKey           string  `hcl:"type_key,label"`
	Kind              string  `hcl:"kind"`
	Rows              int     `hcl:"rows,optional"`
	Columns           int     `hcl:"columns,optional"`
	Count             int     `hcl:"count,optional"`
	ElementCapacityUL float64 `hcl:"element_capacity_ul,optional"`
}

var validKinds = map[string]model.ResourceKind{
	"plate":     model.KindPlate,
	"tip_rack":  model.KindTipRack,
	"tube_rack": model.KindTubeRack,
	"reservoir": model.KindReservoir,
	"trash":     model.KindTrash,
	"carrier":   model.KindCarrier,
}

// LoadFile parses one HCL catalog file into a Static catalog. Declarations
// must carry either a rows/columns grid or a linear count.
func LoadFile(ctx context.Context, path string) (Static, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading labware catalog file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, diags)
	}

	var decoded labwareFile
	if diags := gohcl.DecodeBody(file.Body, nil, &decoded); diags.HasErrors() {
		return nil, fmt.Errorf("decoding catalog %s: %w", path, diags)
	}

	out := make(Static, len(decoded.Labware))
	for _, lw := range decoded.Labware {
		shape, err := lw.toShape()
		if err != nil {
			return nil, fmt.Errorf("catalog %s: labware %q: %w", path, lw.TypeKey, err)
		}
		if _, dup := out[lw.TypeKey]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate labware type %q", path, lw.TypeKey)
		}
		out[lw.TypeKey] = shape
	}
	logger.Debug("Labware catalog loaded.", "path", path, "types", len(out))
	return out, nil
}

func (b *labwareBlock) toShape() (Shape, error) {
	kind, ok := validKinds[b.Kind]
	if !ok {
		return Shape{}, fmt.Errorf("unknown kind %q", b.Kind)
	}
	gridded := b.Rows > 0 || b.Columns > 0
	if gridded && (b.Rows <= 0 || b.Columns <= 0) {
		return Shape{}, fmt.Errorf("gridded labware needs both rows and columns")
	}
	if gridded && b.Count > 0 {
		return Shape{}, fmt.Errorf("rows/columns and count are mutually exclusive")
	}
	if !gridded && b.Count <= 0 {
		return Shape{}, fmt.Errorf("labware needs rows/columns or a count")
	}
	if b.ElementCapacityUL < 0 {
		return Shape{}, fmt.Errorf("element_capacity_ul must not be negative")
	}
	return Shape{
		Kind:              kind,
		Rows:              b.Rows,
		Columns:           b.Columns,
		Count:             b.Count,
		ElementCapacityUL: b.ElementCapacityUL,
	}, nil
}
