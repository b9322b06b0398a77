package testutil

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/model"
)

// Seq is a fluent builder for call sequences, so tests read like the
// protocols they exercise. Every node gets a distinct synthetic source
// location in declaration order.
type Seq struct {
	steps []step
}

type step func(next model.CallSequence, line *int) model.CallSequence

// NewSeq starts an empty sequence.
func NewSeq() *Seq {
	return &Seq{}
}

// Call appends an operation call with plain cty argument values.
func (s *Seq) Call(name string, args map[string]cty.Value) *Seq {
	avs := make(map[string]model.ArgValue, len(args))
	for k, v := range args {
		avs[k] = model.ArgValue{Value: v}
	}
	return s.CallArgs(name, avs)
}

// CallArgs appends an operation call with fully specified arguments, for
// tests that need Eval closures or pre-resolved reference sets.
func (s *Seq) CallArgs(name string, args map[string]model.ArgValue) *Seq {
	s.steps = append(s.steps, func(next model.CallSequence, line *int) model.CallSequence {
		*line++
		return &model.Sequential{
			Call: &model.OperationCall{
				Name:     name,
				Args:     args,
				Location: testLoc(*line),
			},
			Next: next,
		}
	})
	return s
}

// CountLoop appends a loop driven by an iteration count.
func (s *Seq) CountLoop(count cty.Value, bind string, body *Seq) *Seq {
	s.steps = append(s.steps, func(next model.CallSequence, line *int) model.CallSequence {
		*line++
		node := &model.LoopNode{
			Count:    count,
			Binding:  bind,
			Location: testLoc(*line),
		}
		node.Body = body.link(line)
		return &model.Loop{Node: node, Next: next}
	})
	return s
}

// OverLoop appends a loop iterating a traced element selection.
func (s *Seq) OverLoop(over *model.RefSet, bind string, body *Seq) *Seq {
	s.steps = append(s.steps, func(next model.CallSequence, line *int) model.CallSequence {
		*line++
		node := &model.LoopNode{
			Over:     over,
			Binding:  bind,
			Location: testLoc(*line),
		}
		node.Body = body.link(line)
		return &model.Loop{Node: node, Next: next}
	})
	return s
}

// If appends a two-way conditional. Either arm may be nil.
func (s *Seq) If(cond cty.Value, then, els *Seq) *Seq {
	s.steps = append(s.steps, func(next model.CallSequence, line *int) model.CallSequence {
		*line++
		b := &model.Branch{
			Condition: cond,
			Location:  testLoc(*line),
			Then:      &model.End{},
			Else:      &model.End{},
			Next:      next,
		}
		if then != nil {
			b.Then = then.link(line)
		}
		if els != nil {
			b.Else = els.link(line)
		}
		return b
	})
	return s
}

// Build materializes the sequence.
func (s *Seq) Build() model.CallSequence {
	line := 0
	return s.link(&line)
}

func (s *Seq) link(line *int) model.CallSequence {
	// Build forward so locations come out in declaration order, patching
	// each node's tail in afterwards.
	var build func(i int) model.CallSequence
	build = func(i int) model.CallSequence {
		if i == len(s.steps) {
			return &model.End{}
		}
		node := s.steps[i](nil, line)
		tail := build(i + 1)
		switch n := node.(type) {
		case *model.Sequential:
			n.Next = tail
		case *model.Loop:
			n.Next = tail
		case *model.Branch:
			n.Next = tail
		}
		return node
	}
	return build(0)
}

func testLoc(line int) model.SourceLocation {
	return model.SourceLocation{File: "test.hcl", Line: line, Column: 1}
}
