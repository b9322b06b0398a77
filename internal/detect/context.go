package detect

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/state"
)

// simContext is the simulation context of one analysis branch: its private
// copy-on-write state, the loop bindings in scope, the branch-local call
// counter that orders findings, and the findings accumulated so far.
// Forking copies everything shallow except the findings slice, so sibling
// branches never observe each other's mutations.
type simContext struct {
	state    *state.State
	bindings map[string]cty.Value
	counter  int
	findings []model.Finding
	fatal    bool
	// widen counts enclosing summarized (unbounded) loops.
	widen int
}

func newSimContext(st *state.State) *simContext {
	return &simContext{state: st}
}

// fork returns an independent child context for a sibling branch.
func (sc *simContext) fork() *simContext {
	child := &simContext{
		state:    sc.state.Fork(),
		counter:  sc.counter,
		fatal:    sc.fatal,
		widen:    sc.widen,
		findings: make([]model.Finding, len(sc.findings)),
	}
	copy(child.findings, sc.findings)
	if len(sc.bindings) > 0 {
		child.bindings = make(map[string]cty.Value, len(sc.bindings))
		for k, v := range sc.bindings {
			child.bindings[k] = v
		}
	}
	return child
}

// bind returns the binding set extended with one loop variable; the
// receiver's map is never mutated since iterations share it as a parent.
func (sc *simContext) bind(name string, v cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(sc.bindings)+1)
	for k, val := range sc.bindings {
		out[k] = val
	}
	out[name] = v
	return out
}

// emit records a finding on this branch.
func (sc *simContext) emit(f model.Finding) {
	sc.findings = append(sc.findings, f)
	if f.Severity == model.SeverityFatal {
		sc.fatal = true
	}
}
