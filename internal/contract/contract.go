// Package contract defines the semantic contracts of hardware operations
// and the tier engine that evaluates them against abstract state. Each
// operation carries preconditions (what must hold before the hardware
// would accept the call) and effects (how the call transforms state).
// Preconditions are evaluated at each consulted fact's current precision
// tier; an undecided verdict escalates exactly the consulted facts and
// retries, and a verdict still undecided at the exact tier is accepted
// with a low-severity note.
package contract

import (
	"fmt"
	"sort"

	"github.com/vk/protocheck/internal/model"
)

// Verdict is the outcome of evaluating one precondition.
type Verdict int

const (
	// Sat: the precondition provably holds.
	Sat Verdict = iota
	// Violated: the precondition provably fails; a finding is due.
	Violated
	// Unknown: undecidable at the precision the consulted facts are
	// currently tracked at.
	Unknown
)

// Selection names a pair of call arguments: the argument holding the
// labware instance name and the argument holding the element selection
// expression to resolve against it.
type Selection struct {
	ResourceArg string
	ElementsArg string
}

// Precondition is one checkable requirement of an operation.
type Precondition struct {
	// Kind and Severity of the finding emitted on violation.
	Kind     model.FindingKind
	Severity model.Severity
	// Check evaluates the requirement. The detail string explains a
	// Violated verdict to the protocol author.
	Check func(e *Env) (Verdict, string)
	// Recover applies the deterministic recovery transform after a
	// violation so later calls are checked against a sane state instead
	// of cascading spurious findings. May be nil.
	Recover func(e *Env)
}

// Contract is the per-operation semantic contract.
type Contract struct {
	Name string
	// Require lists argument names that must be present on the call; a
	// missing one is a malformed call, which is an analysis error rather
	// than a finding.
	Require []string
	// Selections to resolve before any precondition runs. Resolution
	// failures surface as WELL_OUT_OF_RANGE findings or analysis errors.
	Selections []Selection
	// Prepare runs before the preconditions for contracts that derive
	// their element set some other way than a Selection (e.g. whole-head
	// operations addressing every position of a resource). May be nil.
	Prepare func(e *Env) error
	Pre     []Precondition
	// Apply transforms state after all preconditions were handled. May be
	// nil for purely observational operations.
	Apply func(e *Env)
}

// Registry maps operation names to contracts.
type Registry struct {
	contracts map[string]*Contract
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{contracts: make(map[string]*Contract)}
}

// Register adds a contract. Registering the same operation twice is a
// wiring bug.
func (r *Registry) Register(c *Contract) {
	if _, exists := r.contracts[c.Name]; exists {
		panic(fmt.Sprintf("contract for operation %q already registered", c.Name))
	}
	r.contracts[c.Name] = c
}

// Lookup returns the contract for an operation name.
func (r *Registry) Lookup(name string) (*Contract, bool) {
	c, ok := r.contracts[name]
	return c, ok
}

// Names returns all registered operation names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered contracts.
func (r *Registry) Len() int { return len(r.contracts) }
