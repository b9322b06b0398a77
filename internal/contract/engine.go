package contract

import (
	"errors"
	"fmt"

	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/trace"
)

// Execute runs one call against its contract: selections are resolved
// first, then every precondition is checked with on-demand escalation,
// then the effects are applied and the branch call counter advanced.
// Findings go to the environment's sink; a returned error is a
// tool-internal analysis failure, never a predicted hardware fault.
func Execute(c *Contract, e *Env) error {
	for _, name := range c.Require {
		if _, ok := e.Call.Arg(name); !ok {
			return &model.AnalysisError{Op: c.Name, Location: e.Call.Location,
				Err: fmt.Errorf("missing required argument %q", name)}
		}
	}

	for _, sel := range c.Selections {
		if _, err := e.Selection(sel); err != nil {
			var rangeErr *trace.RangeError
			if errors.As(err, &rangeErr) {
				e.Emit(e.finding(model.FindingWellOutOfRange, model.SeverityFatal, rangeErr.Error()))
				// recover with an empty selection so the rest of the call
				// is still checked
				if e.resolved == nil {
					e.resolved = make(map[string]*model.RefSet)
				}
				e.resolved[sel.ElementsArg] = &model.RefSet{Resource: rangeErr.Instance}
				continue
			}
			return &model.AnalysisError{Op: c.Name, Location: e.Call.Location, Err: err}
		}
	}

	if c.Prepare != nil {
		if err := c.Prepare(e); err != nil {
			return &model.AnalysisError{Op: c.Name, Location: e.Call.Location, Err: err}
		}
	}

	for i := range c.Pre {
		if err := e.runPrecondition(c.Name, &c.Pre[i]); err != nil {
			return err
		}
	}

	if c.Apply != nil {
		c.Apply(e)
	}
	*e.Counter++
	return nil
}

// runPrecondition evaluates one precondition, escalating the undecided
// facts one tier at a time. A verdict still undecided once every consulted
// fact is exact is accepted with an UNRESOLVED_PRECONDITION note.
func (e *Env) runPrecondition(op string, p *Precondition) error {
	for {
		e.resetTouched()
		verdict, detail := p.Check(e)
		switch verdict {
		case Sat:
			return nil
		case Violated:
			e.Emit(e.finding(p.Kind, p.Severity, detail))
			if p.Recover != nil {
				p.Recover(e)
			}
			return nil
		case Unknown:
			progressed := false
			for _, k := range e.touched {
				if e.State.Peek(k).Tier < model.TierExact {
					e.State.Escalate(k)
					progressed = true
				}
			}
			if !progressed {
				e.Emit(e.finding(model.FindingUnresolvedPrecondition, model.SeverityNote,
					fmt.Sprintf("cannot decide %s precondition of %q at exact precision", p.Kind, op)))
				return nil
			}
		default:
			return &model.AnalysisError{Op: op, Location: e.Call.Location,
				Err: fmt.Errorf("invalid verdict %d", verdict)}
		}
	}
}
