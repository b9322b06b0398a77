package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"

	"github.com/vk/protocheck/internal/bounds"
	"github.com/vk/protocheck/internal/contract"
	"github.com/vk/protocheck/internal/ctxlog"
	"github.com/vk/protocheck/internal/model"
)

// contFrame is one pending continuation: where to resume once the current
// chain reaches End, and the bindings (and widening depth) to restore.
type contFrame struct {
	seq       model.CallSequence
	bindings  map[string]cty.Value
	widenExit bool
}

// walk explores one branch to its terminal state: iteratively for
// sequential chains and loop unrolling, recursively at conditionals. A
// returned error means this branch aborted with an analysis error.
func (r *run) walk(ctx context.Context, sc *simContext, seq model.CallSequence, cont []contFrame) error {
	for {
		switch s := seq.(type) {
		case nil, *model.End:
			if len(cont) == 0 {
				r.col.merge(sc)
				return nil
			}
			fr := cont[len(cont)-1]
			cont = cont[:len(cont)-1]
			seq = fr.seq
			sc.bindings = fr.bindings
			if fr.widenExit {
				sc.widen--
			}

		case *model.Sequential:
			if !r.col.consumeNode() {
				r.col.note("node budget exhausted; remaining branches pruned")
				r.col.merge(sc)
				return nil
			}
			if err := r.execCall(ctx, sc, s.Call); err != nil {
				return err
			}
			if sc.fatal && !r.d.opts.FindAll {
				// nothing after a fatal fault adds value on this branch
				r.col.merge(sc)
				return nil
			}
			seq = s.Next

		case *model.Loop:
			if !r.col.consumeNode() {
				r.col.note("node budget exhausted; remaining branches pruned")
				r.col.merge(sc)
				return nil
			}
			res := bounds.Resolve(s.Node)
			ctxlog.FromContext(ctx).Debug("Loop bound resolved.", "bound", res.String(), "location", s.Node.Location)

			switch res.Kind {
			case bounds.Exact, bounds.UpperBound:
				if res.N == 0 {
					seq = s.Next
					continue
				}
				// push the tail first, then iterations 1..n-1 in reverse,
				// and start iteration 0 directly
				cont = append(cont, contFrame{seq: s.Next, bindings: sc.bindings})
				for it := res.N - 1; it >= 1; it-- {
					b, err := r.iterationBindings(sc, s.Node, it)
					if err != nil {
						return &model.AnalysisError{Location: s.Node.Location, Err: err}
					}
					cont = append(cont, contFrame{seq: s.Node.Body, bindings: b})
				}
				b, err := r.iterationBindings(sc, s.Node, 0)
				if err != nil {
					return &model.AnalysisError{Location: s.Node.Location, Err: err}
				}
				sc.bindings = b
				seq = s.Node.Body

			case bounds.Unbounded:
				sc.emit(model.Finding{
					Kind:      model.FindingUnboundedLoop,
					Severity:  model.SeverityWarning,
					Location:  s.Node.Location,
					Tier:      model.TierSymbolic,
					CallIndex: sc.counter,
					Detail:    "iteration count is not statically derivable; body summarized as repeating an unknown, non-zero number of times",
				})
				r.col.note(fmt.Sprintf("unbounded loop at %s limits coverage", s.Node.Location))
				sc.widen++
				cont = append(cont, contFrame{seq: s.Next, bindings: sc.bindings, widenExit: true})
				if s.Node.Binding != "" {
					ty := cty.Number
					if s.Node.Over != nil {
						ty = cty.String
					}
					sc.bindings = sc.bind(s.Node.Binding, cty.UnknownVal(ty))
				}
				seq = s.Node.Body
			}

		case *model.Branch:
			if !r.col.consumeNode() {
				r.col.note("node budget exhausted; remaining branches pruned")
				r.col.merge(sc)
				return nil
			}
			return r.walkBranch(ctx, sc, s, cont)

		default:
			return &model.AnalysisError{Err: fmt.Errorf("unknown sequence node %T", seq)}
		}
	}
}

// iterationBindings builds the binding set for one unrolled iteration.
// Count loops bind 1-based iteration numbers; element loops bind the
// element ID at the iteration's position.
func (r *run) iterationBindings(sc *simContext, node *model.LoopNode, it int) (map[string]cty.Value, error) {
	if node.Binding == "" {
		return sc.bindings, nil
	}
	if node.Over == nil {
		return sc.bind(node.Binding, cty.NumberIntVal(int64(it+1))), nil
	}
	if !node.Over.Parametrized {
		return sc.bind(node.Binding, cty.StringVal(node.Over.Refs[it].ID)), nil
	}
	id, err := r.d.tracer.ElementID(node.Over.Resource, it)
	if err != nil {
		return nil, err
	}
	return sc.bind(node.Binding, cty.StringVal(id)), nil
}

// walkBranch explores the reachable arms of a conditional, in parallel
// when worker slots are free. An error is returned only when every arm
// aborted; partial aborts become coverage notes.
func (r *run) walkBranch(ctx context.Context, sc *simContext, b *model.Branch, cont []contFrame) error {
	var arms []model.CallSequence
	cond := b.Condition
	switch {
	case cond.Type() == cty.Bool && !cond.IsNull() && cond.IsKnown():
		if cond.True() {
			arms = append(arms, b.Then)
		} else {
			arms = append(arms, b.Else)
		}
	default:
		// runtime-unknown condition: both arms are reachable
		arms = append(arms, b.Then, b.Else)
	}

	if len(arms) > 1 {
		// a sibling that already reached this conditional with an
		// equivalent tier-tagged state will produce the same suffix
		if r.col.seen(fmt.Sprintf("%p", b), sc.state.Fingerprint()) {
			r.col.merge(sc)
			return nil
		}
	}

	errs := make([]error, len(arms))
	var wg sync.WaitGroup
	for i := range arms {
		arm := arms[i]
		armSC := sc.fork()
		armCont := make([]contFrame, len(cont), len(cont)+1)
		copy(armCont, cont)
		armCont = append(armCont, contFrame{seq: b.Next, bindings: sc.bindings})

		if i < len(arms)-1 && r.sem.TryAcquire(1) {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer r.sem.Release(1)
				errs[i] = r.walk(ctx, armSC, arm, armCont)
			}(i)
			continue
		}
		errs[i] = r.walk(ctx, armSC, arm, armCont)
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == len(arms) {
		return multierr.Combine(failed...)
	}
	for _, err := range failed {
		r.col.note(fmt.Sprintf("branch aborted: %v", err))
	}
	return nil
}

// execCall looks up and executes one call's contract against the branch.
func (r *run) execCall(ctx context.Context, sc *simContext, call *model.OperationCall) error {
	c, ok := r.d.reg.Lookup(call.Name)
	if !ok {
		if r.d.opts.Mode == model.ModeStrict {
			return &model.AnalysisError{Op: call.Name, Location: call.Location,
				Err: errors.New("unknown operation")}
		}
		ctxlog.FromContext(ctx).Debug("Skipping unknown operation in permissive mode.",
			"op", call.Name, "location", call.Location)
		return nil
	}

	env := &contract.Env{
		State:    sc.state,
		Call:     call,
		Tracer:   r.d.tracer,
		Bindings: sc.bindings,
		Widen:    sc.widen > 0,
		Counter:  &sc.counter,
		Emit:     sc.emit,
	}
	return contract.Execute(c, env)
}
