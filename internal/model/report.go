package model

import (
	"fmt"
	"sort"
)

// Mode selects how unknown operation names are treated.
type Mode int

const (
	// ModeStrict turns an unknown operation into an AnalysisError.
	ModeStrict Mode = iota
	// ModePermissive skips unknown operations as no-ops.
	ModePermissive
)

func (m Mode) String() string {
	if m == ModePermissive {
		return "permissive"
	}
	return "strict"
}

// Options configures one analysis invocation.
type Options struct {
	Mode Mode
	// FindAll keeps exploring a branch past its first fatal finding.
	FindAll bool
	// NodeBudget caps the number of explored sequence nodes across all
	// branches. Zero means unbounded.
	NodeBudget int
	// Workers caps concurrent branch exploration. Zero means a small
	// default chosen by the detector.
	Workers int
}

// Report is the result of one analysis invocation. Findings are sorted by
// (source location, call counter). Complete is false whenever a budget,
// an unbounded loop, or an aborted branch limited coverage; absence of
// findings is then inconclusive rather than clean.
type Report struct {
	Findings      []Finding
	Complete      bool
	ExploredNodes int
	// Notes records coverage limitations in human-readable form, e.g.
	// aborted branches or budget exhaustion.
	Notes []string
}

// Sort orders findings by source location, then call counter, then kind.
func (r *Report) Sort() {
	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if a.Location != b.Location {
			return a.Location.Before(b.Location)
		}
		if a.CallIndex != b.CallIndex {
			return a.CallIndex < b.CallIndex
		}
		return a.Kind < b.Kind
	})
}

// HasFatal reports whether any finding is fatal.
func (r *Report) HasFatal() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// AnalysisError is a tool-internal failure (malformed call, unknown
// operation under strict mode, catalog miss), as opposed to a predicted
// hardware fault. It aborts only the branch that raised it.
type AnalysisError struct {
	Op       string
	Location SourceLocation
	Err      error
}

func (e *AnalysisError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("analysis error at %s in %q: %v", e.Location, e.Op, e.Err)
	}
	return fmt.Sprintf("analysis error at %s: %v", e.Location, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }
