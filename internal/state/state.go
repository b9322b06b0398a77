// Package state holds the abstract machine and labware state one analysis
// branch reasons over. Facts are tier-tagged and copy-on-write: forking a
// branch shares every untouched fact with its parent, and a fact's tier
// only ever escalates within a branch.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key addresses one fact: an element-level fact of a resource instance
// (Element set to the element ID) or a resource-level fact (Element empty).
type Key struct {
	Resource string
	Element  string
	Fact     string
}

func (k Key) String() string {
	if k.Element == "" {
		return fmt.Sprintf("%s.%s", k.Resource, k.Fact)
	}
	return fmt.Sprintf("%s/%s.%s", k.Resource, k.Element, k.Fact)
}

// Initializer supplies the starting fact for a key the first time it is
// read. It captures the deck layout and catalog shapes; returning nil
// means the key has no meaningful fact and reads yield an undecided flag.
type Initializer func(Key) *Fact

// State is one branch's view of all facts. Reads walk the parent chain;
// writes land in the local layer only, so sibling branches never observe
// each other's mutations.
type State struct {
	parent *State
	facts  map[Key]*Fact
	init   Initializer
}

// New returns an empty root state over the given initializer.
func New(init Initializer) *State {
	if init == nil {
		init = func(Key) *Fact { return nil }
	}
	return &State{facts: make(map[Key]*Fact), init: init}
}

// Fork returns a copy-on-write child of s.
func (s *State) Fork() *State {
	return &State{parent: s, facts: make(map[Key]*Fact), init: s.init}
}

// Peek returns the current fact for k without materializing a local copy.
// Callers must treat the result as read-only.
func (s *State) Peek(k Key) *Fact {
	for cur := s; cur != nil; cur = cur.parent {
		if f, ok := cur.facts[k]; ok {
			return f
		}
	}
	if f := s.init(k); f != nil {
		return f
	}
	return NewFlag(Maybe)
}

// Mutate returns a fact for k owned by this layer, cloning an inherited
// one on first write.
func (s *State) Mutate(k Key) *Fact {
	if f, ok := s.facts[k]; ok {
		return f
	}
	f := s.Peek(k).Clone()
	s.facts[k] = f
	return f
}

// Escalate raises the fact's tier by one step. Tiers never regress, so an
// already-exact fact is left alone.
func (s *State) Escalate(k Key) {
	f := s.Mutate(k)
	f.Tier = f.Tier.Next()
}

// Fingerprint returns a digest of every materialized fact, including its
// tier tag, for structural memoization of explored branches. Two states
// with equal fingerprints over the same initializer are indistinguishable
// to the engine.
func (s *State) Fingerprint() string {
	merged := make(map[Key]*Fact)
	chain := []*State{}
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	// apply parents first so children override
	for i := len(chain) - 1; i >= 0; i-- {
		for k, f := range chain[i].facts {
			merged[k] = f
		}
	}
	keys := make([]Key, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		if a.Element != b.Element {
			return a.Element < b.Element
		}
		return a.Fact < b.Fact
	})
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k.String())
		sb.WriteByte('=')
		sb.WriteString(merged[k].fingerprint())
		sb.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
