package model

import "fmt"

// Severity ranks a finding. Fatal findings abandon the branch unless the
// caller asked for exhaustive collection.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// FindingKind names a predicted hardware fault class.
type FindingKind string

const (
	FindingInsufficientVolume     FindingKind = "INSUFFICIENT_VOLUME"
	FindingTipOverflow            FindingKind = "TIP_OVERFLOW"
	FindingWellOverflow           FindingKind = "WELL_OVERFLOW"
	FindingDoubleTipPickup        FindingKind = "DOUBLE_TIP_PICKUP"
	FindingMissingTips            FindingKind = "MISSING_TIPS"
	FindingWellOutOfRange         FindingKind = "WELL_OUT_OF_RANGE"
	FindingCollision              FindingKind = "COLLISION"
	FindingUnboundedLoop          FindingKind = "UNBOUNDED_LOOP_WARNING"
	FindingUnresolvedPrecondition FindingKind = "UNRESOLVED_PRECONDITION"
)

// Finding is one predicted real-world fault. Immutable; appended to the
// report, never removed.
type Finding struct {
	Kind     FindingKind
	Severity Severity
	Location SourceLocation
	// Tier the engine was checking at when the fault was detected.
	Tier Tier
	// CallIndex is the owning simulation context's call counter at
	// detection time; it breaks ordering ties within one location.
	CallIndex int
	Detail    string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s [%s] at %s: %s", f.Kind, f.Severity, f.Location, f.Detail)
}
