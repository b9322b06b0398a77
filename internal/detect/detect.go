// Package detect orchestrates failure prediction: it walks the call
// sequence depth-first, executes each call's contract against the branch's
// abstract state, resolves loop bounds, forks the simulation context at
// conditionals, prunes redundant or already-failed branches, and merges
// everything into one report.
package detect

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/vk/protocheck/internal/catalog"
	"github.com/vk/protocheck/internal/contract"
	"github.com/vk/protocheck/internal/ctxlog"
	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/state"
	"github.com/vk/protocheck/internal/trace"
)

// defaultWorkers caps concurrent branch exploration when the caller does
// not configure a worker count.
const defaultWorkers = 4

// Detector is the analysis engine for one deck layout and contract set.
// It is stateless across invocations; every Analyze call owns its own
// state tree and report.
type Detector struct {
	reg    *contract.Registry
	tracer *trace.Tracer
	init   state.Initializer
	opts   model.Options
}

// New builds a Detector. Every labware type referenced by the deck must
// resolve against the catalog.
func New(reg *contract.Registry, cat catalog.Catalog, deck model.Deck, opts model.Options) (*Detector, error) {
	init, err := state.Seed(cat, deck)
	if err != nil {
		return nil, err
	}
	return &Detector{
		reg:    reg,
		tracer: trace.New(cat, deck),
		init:   init,
		opts:   opts,
	}, nil
}

// Analyze walks the whole call sequence and returns the merged report.
// An error is returned only when every explored branch aborted with an
// analysis error; partial aborts are recorded as report notes instead.
func (d *Detector) Analyze(ctx context.Context, seq model.CallSequence) (*model.Report, error) {
	logger := ctxlog.FromContext(ctx)
	workers := d.opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	logger.Debug("Starting analysis.",
		"mode", d.opts.Mode, "find_all", d.opts.FindAll,
		"node_budget", d.opts.NodeBudget, "workers", workers,
		"sequence_len", model.SequenceLen(seq))

	r := &run{
		d:   d,
		col: newCollector(d.opts.NodeBudget),
		sem: semaphore.NewWeighted(int64(workers)),
	}
	sc := newSimContext(state.New(d.init))
	if err := r.walk(ctx, sc, seq, nil); err != nil {
		return nil, err
	}

	report := r.col.report()
	logger.Info("Analysis finished.",
		"findings", len(report.Findings),
		"explored_nodes", report.ExploredNodes,
		"complete", report.Complete)
	return report, nil
}

// run is the per-invocation exploration state shared by all branches.
type run struct {
	d   *Detector
	col *collector
	sem *semaphore.Weighted
}
