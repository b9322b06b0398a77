// Package hclproto parses protocol files into the analysis model: `deck`
// blocks become labware placements, `variable` blocks become concrete
// values or refined runtime placeholders, and the `protocol` block's
// ordered call/loop/branch structure becomes a model.CallSequence.
package hclproto

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/catalog"
	"github.com/vk/protocheck/internal/ctxlog"
	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/trace"
)

// Protocol is the fully decoded content of one protocol file.
type Protocol struct {
	Deck      model.Deck
	Sequence  model.CallSequence
	Variables map[string]cty.Value
}

// Loader parses protocol files against a labware catalog.
type Loader struct {
	cat catalog.Catalog
}

// NewLoader creates a protocol loader backed by the given catalog.
func NewLoader(cat catalog.Catalog) *Loader {
	return &Loader{cat: cat}
}

// LoadFile parses and decodes one protocol file. Deck and variable blocks
// are decoded first so the protocol body can resolve element selections
// and reference `var.*` values.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Protocol, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing protocol file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse protocol file %s: %w", path, diags)
	}

	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode protocol file %s: %w", path, diags)
	}

	p := &Protocol{
		Deck:      make(model.Deck),
		Variables: make(map[string]cty.Value),
	}
	var protocolBody hcl.Body

	for _, block := range content.Blocks {
		switch block.Type {
		case "deck":
			if err := l.decodeDeck(block, p.Deck); err != nil {
				return nil, err
			}
		case "variable":
			name, val, err := decodeVariable(block)
			if err != nil {
				return nil, err
			}
			if _, dup := p.Variables[name]; dup {
				return nil, fmt.Errorf("%s: duplicate variable %q", block.DefRange, name)
			}
			p.Variables[name] = val
		case "protocol":
			if protocolBody != nil {
				return nil, fmt.Errorf("%s: duplicate protocol block", block.DefRange)
			}
			protocolBody = block.Body
		}
	}

	if protocolBody == nil {
		return nil, fmt.Errorf("%s: no protocol block", path)
	}

	b := &sequenceBuilder{
		tracer: trace.New(l.cat, p.Deck),
		vars:   p.Variables,
	}
	seq, err := b.build(protocolBody)
	if err != nil {
		return nil, err
	}
	p.Sequence = seq

	logger.Debug("Protocol decoded.",
		"path", path,
		"deck_instances", len(p.Deck),
		"variables", len(p.Variables),
		"sequence_len", model.SequenceLen(seq))
	return p, nil
}

func (l *Loader) decodeDeck(block *hcl.Block, deck model.Deck) error {
	var d deckBlock
	if diags := gohcl.DecodeBody(block.Body, nil, &d); diags.HasErrors() {
		return fmt.Errorf("failed to decode deck block: %w", diags)
	}
	for _, lw := range d.Labware {
		if _, dup := deck[lw.Name]; dup {
			return fmt.Errorf("duplicate labware instance %q", lw.Name)
		}
		if _, err := l.cat.LookupShape(lw.Type); err != nil {
			return fmt.Errorf("labware %q: %w", lw.Name, err)
		}
		inst := &model.Instance{
			Name: lw.Name,
			Type: lw.Type,
			Slot: lw.Slot,
		}
		vols, err := decodeVolumes(lw.Volumes)
		if err != nil {
			return fmt.Errorf("labware %q: %w", lw.Name, err)
		}
		inst.InitialVolumeUL = vols
		deck[lw.Name] = inst
	}
	return nil
}

// decodeVolumes evaluates a `volumes` attribute into element -> microliter
// declarations. An absent attribute decodes as a null expression, not a
// nil one, so null means "not declared" and yields no entries.
func decodeVolumes(expr hcl.Expression) (map[string]float64, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid volumes: %w", diags)
	}
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsKnown() || !v.CanIterateElements() {
		return nil, fmt.Errorf("%s: volumes must be a map of element to microliters", expr.Range())
	}
	out := make(map[string]float64)
	for it := v.ElementIterator(); it.Next(); {
		key, elem := it.Element()
		if key.Type() != cty.String || elem.Type() != cty.Number || !elem.IsKnown() {
			return nil, fmt.Errorf("%s: volumes must be a map of element to microliters", expr.Range())
		}
		f, _ := elem.AsBigFloat().Float64()
		out[key.AsString()] = f
	}
	return out, nil
}

func decodeVariable(block *hcl.Block) (string, cty.Value, error) {
	var v variableBlock
	if diags := gohcl.DecodeBody(block.Body, nil, &v); diags.HasErrors() {
		return "", cty.NilVal, fmt.Errorf("failed to decode variable block: %w", diags)
	}

	if v.Value != nil {
		val, diags := v.Value.Value(nil)
		if diags.HasErrors() {
			return "", cty.NilVal, fmt.Errorf("variable %q: %w", v.Name, diags)
		}
		// an absent attribute decodes as a null expression; a null value
		// means the variable is a runtime placeholder, not a literal
		if !val.IsNull() {
			return v.Name, val, nil
		}
	}

	ty, err := variableType(v.Type)
	if err != nil {
		return "", cty.NilVal, fmt.Errorf("variable %q: %w", v.Name, err)
	}
	val := cty.UnknownVal(ty)
	if ty == cty.Number && (v.Min != nil || v.Max != nil) {
		rb := val.Refine().NotNull()
		if v.Min != nil {
			rb = rb.NumberRangeLowerBound(cty.NumberFloatVal(*v.Min), true)
		}
		if v.Max != nil {
			rb = rb.NumberRangeUpperBound(cty.NumberFloatVal(*v.Max), true)
		}
		val = rb.NewValue()
	}
	return v.Name, val, nil
}

func variableType(name string) (cty.Type, error) {
	switch name {
	case "", "number":
		return cty.Number, nil
	case "string":
		return cty.String, nil
	case "bool":
		return cty.Bool, nil
	default:
		return cty.NilType, fmt.Errorf("unsupported variable type %q", name)
	}
}
