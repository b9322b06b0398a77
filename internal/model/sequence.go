package model

import "github.com/zclconf/go-cty/cty"

// CallSequence is the linked structure of a protocol handed to the
// detector: a chain of sequential calls, loops and branches terminated by
// End. Providers build it once; the detector never mutates it.
type CallSequence interface {
	isSequence()
}

// Sequential is a single operation call followed by the rest of the chain.
type Sequential struct {
	Call *OperationCall
	Next CallSequence
}

// Loop is a loop construct followed by the rest of the chain.
type Loop struct {
	Node *LoopNode
	Next CallSequence
}

// Branch is a two-way conditional. Both arms rejoin at Next. Condition is
// a cty boolean; an unknown condition means both arms are reachable.
type Branch struct {
	Condition cty.Value
	Location  SourceLocation
	Then      CallSequence
	Else      CallSequence
	Next      CallSequence
}

// End terminates a chain.
type End struct{}

func (*Sequential) isSequence() {}
func (*Loop) isSequence()       {}
func (*Branch) isSequence()     {}
func (*End) isSequence()        {}

// LoopNode describes one loop: its body, the iteration binding visible to
// body arguments, and the iteration source the bounds analyzer resolves.
// Exactly one of Count and Over is set.
type LoopNode struct {
	Body     CallSequence
	Binding  string
	Location SourceLocation

	// Count is an integer iteration count: concrete, or an unknown number
	// whose refinement range may still provide an upper bound.
	Count cty.Value

	// Over iterates the loop once per element of a traced selection.
	Over *RefSet
}

// SequenceLen counts the top-level nodes of a chain, for log output.
func SequenceLen(seq CallSequence) int {
	n := 0
	for {
		switch s := seq.(type) {
		case *Sequential:
			n++
			seq = s.Next
		case *Loop:
			n++
			seq = s.Next
		case *Branch:
			n++
			seq = s.Next
		default:
			return n
		}
	}
}
