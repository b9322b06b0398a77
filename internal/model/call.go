package model

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// SourceLocation points at the protocol source that produced a call. It is
// the ordering key for findings, so it must compare stably.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d,%d", l.File, l.Line, l.Column)
}

// Before reports whether l orders strictly before other.
func (l SourceLocation) Before(other SourceLocation) bool {
	if l.File != other.File {
		return l.File < other.File
	}
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Column < other.Column
}

// ArgValue is one argument of an operation call. Exactly one form is set:
// a cty value (concrete, or a typed unknown acting as a symbolic
// placeholder), or a resolved element-reference set. Parametrized arguments
// additionally carry an Eval closure supplied by the sequence provider so
// the detector can concretize them once loop bindings become known.
type ArgValue struct {
	Value cty.Value
	Refs  *RefSet

	Eval func(bindings map[string]cty.Value) (cty.Value, error)
}

// IsRefs reports whether the argument is an element-reference set.
func (a ArgValue) IsRefs() bool { return a.Refs != nil }

// Known reports whether the argument carries a fully concrete cty value.
func (a ArgValue) Known() bool {
	return a.Refs == nil && a.Value != cty.NilVal && a.Value.IsWhollyKnown()
}

// OperationCall is one hardware operation in the sequence. Immutable once
// constructed by the provider.
type OperationCall struct {
	Name     string
	Args     map[string]ArgValue
	Location SourceLocation
}

// Arg returns the named argument and whether it is present.
func (c *OperationCall) Arg(name string) (ArgValue, bool) {
	a, ok := c.Args[name]
	return a, ok
}
