package detect

import (
	"sync"
	"sync/atomic"

	"github.com/vk/protocheck/internal/model"
)

// collector is the single aggregation point branches report into: merged
// findings, coverage notes, the explored-node count, and the shared node
// budget. All methods are safe for concurrent branch exploration.
type collector struct {
	mu         sync.Mutex
	findings   map[findingKey]model.Finding
	notes      []string
	incomplete bool

	explored atomic.Int64
	// remaining is the node budget countdown; negative means unbounded.
	remaining atomic.Int64

	memo sync.Map // branch memoization: node identity + state fingerprint
}

// findingKey collapses the same fault reported along sibling paths (the
// rejoined tail of a branch is walked once per arm) into one entry; the
// first occurrence by call order wins.
type findingKey struct {
	Kind     model.FindingKind
	Location model.SourceLocation
	Detail   string
}

func newCollector(budget int) *collector {
	c := &collector{findings: make(map[findingKey]model.Finding)}
	if budget > 0 {
		c.remaining.Store(int64(budget))
	} else {
		c.remaining.Store(-1)
	}
	return c
}

// consumeNode accounts one explored sequence node against the budget and
// reports whether exploration may continue. A node refused by the budget
// is not counted as explored.
func (c *collector) consumeNode() bool {
	for {
		cur := c.remaining.Load()
		if cur < 0 {
			c.explored.Add(1)
			return true
		}
		if cur == 0 {
			return false
		}
		if c.remaining.CompareAndSwap(cur, cur-1) {
			c.explored.Add(1)
			return true
		}
	}
}

// seen memoizes a (sequence node, state fingerprint) pair; true means an
// equivalent branch was already taken and this one can be pruned.
func (c *collector) seen(nodeID string, fingerprint string) bool {
	_, loaded := c.memo.LoadOrStore(nodeID+"|"+fingerprint, struct{}{})
	return loaded
}

// merge folds a finished branch's findings into the report.
func (c *collector) merge(sc *simContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range sc.findings {
		k := findingKey{Kind: f.Kind, Location: f.Location, Detail: f.Detail}
		if prev, ok := c.findings[k]; !ok || f.CallIndex < prev.CallIndex {
			c.findings[k] = f
		}
	}
}

// note records a coverage limitation and marks the report incomplete.
func (c *collector) note(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.incomplete = true
	for _, existing := range c.notes {
		if existing == msg {
			return
		}
	}
	c.notes = append(c.notes, msg)
}

// report assembles the final sorted report.
func (c *collector) report() *model.Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &model.Report{
		Complete:      !c.incomplete,
		ExploredNodes: int(c.explored.Load()),
		Notes:         append([]string(nil), c.notes...),
	}
	for _, f := range c.findings {
		r.Findings = append(r.Findings, f)
	}
	r.Sort()
	return r
}
