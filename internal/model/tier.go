package model

// Tier is the precision at which a state fact is currently tracked and
// checked. A fact's tier only ever increases within one analysis branch.
type Tier int

const (
	// TierBoolean tracks coarse flags only ("tip present: yes/no").
	TierBoolean Tier = iota
	// TierSymbolic tracks quantities as ranges combined with interval
	// arithmetic ("volume in [0, 300]").
	TierSymbolic
	// TierExact tracks concrete numeric or categorical values.
	TierExact
)

// Next returns the tier one step more precise, saturating at TierExact.
func (t Tier) Next() Tier {
	if t >= TierExact {
		return TierExact
	}
	return t + 1
}

func (t Tier) String() string {
	switch t {
	case TierBoolean:
		return "boolean"
	case TierSymbolic:
		return "symbolic"
	case TierExact:
		return "exact"
	default:
		return "unknown"
	}
}
