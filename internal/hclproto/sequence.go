package hclproto

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/trace"
)

// sequenceBuilder turns the ordered block list of a protocol body into a
// model.CallSequence. It works on the syntax tree directly because block
// order is the protocol's execution order and the schema-driven decoder
// groups blocks by type.
type sequenceBuilder struct {
	tracer *trace.Tracer
	vars   map[string]cty.Value
}

func (b *sequenceBuilder) build(body hcl.Body) (model.CallSequence, error) {
	syn, ok := body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("protocol body is not native syntax")
	}
	return b.chain(syn)
}

func (b *sequenceBuilder) chain(body *hclsyntax.Body) (model.CallSequence, error) {
	for name, attr := range body.Attributes {
		return nil, fmt.Errorf("%s: unexpected attribute %q", attr.SrcRange, name)
	}

	var next model.CallSequence = &model.End{}
	for i := len(body.Blocks) - 1; i >= 0; i-- {
		block := body.Blocks[i]
		var (
			node model.CallSequence
			err  error
		)
		switch block.Type {
		case "call":
			node, err = b.callNode(block, next)
		case "loop":
			node, err = b.loopNode(block, next)
		case "branch":
			node, err = b.branchNode(block, next)
		default:
			return nil, fmt.Errorf("%s: unexpected block %q", block.DefRange(), block.Type)
		}
		if err != nil {
			return nil, err
		}
		next = node
	}
	return next, nil
}

func (b *sequenceBuilder) callNode(block *hclsyntax.Block, next model.CallSequence) (model.CallSequence, error) {
	if len(block.Labels) != 1 {
		return nil, fmt.Errorf("%s: call block requires exactly one operation label", block.DefRange())
	}
	if len(block.Body.Blocks) > 0 {
		return nil, fmt.Errorf("%s: call block must not contain nested blocks", block.DefRange())
	}

	args := make(map[string]model.ArgValue, len(block.Body.Attributes))
	for name, attr := range block.Body.Attributes {
		av, err := b.argValue(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %q: %w", attr.SrcRange, name, err)
		}
		args[name] = av
	}
	return &model.Sequential{
		Call: &model.OperationCall{
			Name:     block.Labels[0],
			Args:     args,
			Location: loc(block.TypeRange),
		},
		Next: next,
	}, nil
}

func (b *sequenceBuilder) loopNode(block *hclsyntax.Block, next model.CallSequence) (model.CallSequence, error) {
	node := &model.LoopNode{Location: loc(block.TypeRange)}
	var overExpr, resourceExpr hclsyntax.Expression

	for name, attr := range block.Body.Attributes {
		switch name {
		case "count":
			v, err := b.evalArg(attr.Expr)
			if err != nil {
				return nil, fmt.Errorf("%s: count: %w", attr.SrcRange, err)
			}
			node.Count = v
		case "over":
			overExpr = attr.Expr
		case "resource":
			resourceExpr = attr.Expr
		case "bind":
			v, diags := attr.Expr.Value(nil)
			if diags.HasErrors() || v.Type() != cty.String || !v.IsKnown() {
				return nil, fmt.Errorf("%s: bind must be a static string", attr.SrcRange)
			}
			node.Binding = v.AsString()
		default:
			return nil, fmt.Errorf("%s: unexpected loop attribute %q", attr.SrcRange, name)
		}
	}

	switch {
	case node.Count != cty.NilVal && overExpr != nil:
		return nil, fmt.Errorf("%s: loop sets both count and over", block.DefRange())
	case node.Count == cty.NilVal && overExpr == nil:
		return nil, fmt.Errorf("%s: loop sets neither count nor over", block.DefRange())
	case overExpr != nil:
		if resourceExpr == nil {
			return nil, fmt.Errorf("%s: loop over requires a resource", block.DefRange())
		}
		resource, err := b.staticString(resourceExpr)
		if err != nil {
			return nil, fmt.Errorf("%s: resource: %w", block.DefRange(), err)
		}
		selection, err := b.staticString(overExpr)
		if err != nil {
			return nil, fmt.Errorf("%s: over: %w", block.DefRange(), err)
		}
		set, err := b.tracer.Resolve(resource, selection)
		if err != nil {
			return nil, fmt.Errorf("%s: over: %w", block.DefRange(), err)
		}
		node.Over = set
	}

	body, err := b.chain(block.Body)
	if err != nil {
		return nil, err
	}
	node.Body = body
	return &model.Loop{Node: node, Next: next}, nil
}

func (b *sequenceBuilder) branchNode(block *hclsyntax.Block, next model.CallSequence) (model.CallSequence, error) {
	branch := &model.Branch{
		Location: loc(block.TypeRange),
		Then:     &model.End{},
		Else:     &model.End{},
		Next:     next,
	}

	for name, attr := range block.Body.Attributes {
		if name != "condition" {
			return nil, fmt.Errorf("%s: unexpected branch attribute %q", attr.SrcRange, name)
		}
		v, err := b.evalArg(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("%s: condition: %w", attr.SrcRange, err)
		}
		branch.Condition = v
	}
	if branch.Condition == cty.NilVal {
		return nil, fmt.Errorf("%s: branch requires a condition", block.DefRange())
	}

	seenArms := make(map[string]bool, 2)
	for _, arm := range block.Body.Blocks {
		if arm.Type != "then" && arm.Type != "else" {
			return nil, fmt.Errorf("%s: unexpected block %q in branch", arm.DefRange(), arm.Type)
		}
		if seenArms[arm.Type] {
			return nil, fmt.Errorf("%s: duplicate %s block", arm.DefRange(), arm.Type)
		}
		seenArms[arm.Type] = true
		seq, err := b.chain(arm.Body)
		if err != nil {
			return nil, err
		}
		if arm.Type == "then" {
			branch.Then = seq
		} else {
			branch.Else = seq
		}
	}
	return branch, nil
}

// argValue evaluates an argument expression once at load time. An
// expression that references loop bindings evaluates to an unknown here
// and additionally carries an Eval closure so the detector can concretize
// it per iteration.
func (b *sequenceBuilder) argValue(expr hclsyntax.Expression) (model.ArgValue, error) {
	free := b.freeRoots(expr)
	v, err := b.eval(expr, dynamicVals(free))
	if err != nil {
		return model.ArgValue{}, err
	}
	av := model.ArgValue{Value: v}
	if len(free) > 0 {
		av.Eval = func(bindings map[string]cty.Value) (cty.Value, error) {
			scoped := dynamicVals(free)
			for k, bv := range bindings {
				scoped[k] = bv
			}
			return b.eval(expr, scoped)
		}
	}
	return av, nil
}

// evalArg evaluates an expression with loop bindings as unknowns, for
// places that keep only the load-time value.
func (b *sequenceBuilder) evalArg(expr hclsyntax.Expression) (cty.Value, error) {
	return b.eval(expr, dynamicVals(b.freeRoots(expr)))
}

// staticString evaluates an expression that must resolve at load time.
func (b *sequenceBuilder) staticString(expr hclsyntax.Expression) (string, error) {
	v, err := b.eval(expr, nil)
	if err != nil {
		return "", err
	}
	if v.Type() != cty.String || !v.IsKnown() || v.IsNull() {
		return "", fmt.Errorf("value must be a static string")
	}
	return v.AsString(), nil
}

func (b *sequenceBuilder) eval(expr hclsyntax.Expression, scoped map[string]cty.Value) (cty.Value, error) {
	vars := make(map[string]cty.Value, len(scoped)+1)
	vars["var"] = cty.ObjectVal(b.vars)
	for k, v := range scoped {
		vars[k] = v
	}
	v, diags := expr.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid expression: %w", diags)
	}
	return v, nil
}

// freeRoots collects the traversal roots an expression references beyond
// the protocol variable namespace. These are loop bindings.
func (b *sequenceBuilder) freeRoots(expr hclsyntax.Expression) []string {
	var roots []string
	seen := map[string]bool{"var": true}
	for _, tr := range expr.Variables() {
		name := tr.RootName()
		if !seen[name] {
			seen[name] = true
			roots = append(roots, name)
		}
	}
	return roots
}

func dynamicVals(names []string) map[string]cty.Value {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]cty.Value, len(names))
	for _, name := range names {
		out[name] = cty.DynamicVal
	}
	return out
}

func loc(rng hcl.Range) model.SourceLocation {
	return model.SourceLocation{
		File:   rng.Filename,
		Line:   rng.Start.Line,
		Column: rng.Start.Column,
	}
}
