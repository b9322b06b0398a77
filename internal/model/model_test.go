package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestSourceLocation(t *testing.T) {
	a := SourceLocation{File: "p.hcl", Line: 3, Column: 1}
	b := SourceLocation{File: "p.hcl", Line: 3, Column: 9}
	c := SourceLocation{File: "p.hcl", Line: 12, Column: 1}
	other := SourceLocation{File: "q.hcl", Line: 1, Column: 1}

	assert.Equal(t, "p.hcl:3,1", a.String())
	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.False(t, c.Before(a))
	assert.True(t, a.Before(other), "files order lexically")
}

func TestReport_Sort(t *testing.T) {
	loc := func(line int) SourceLocation {
		return SourceLocation{File: "p.hcl", Line: line, Column: 1}
	}
	r := &Report{Findings: []Finding{
		{Kind: FindingTipOverflow, Location: loc(9), CallIndex: 4},
		{Kind: FindingMissingTips, Location: loc(2), CallIndex: 7},
		{Kind: FindingInsufficientVolume, Location: loc(2), CallIndex: 1},
		{Kind: FindingWellOverflow, Location: loc(2), CallIndex: 1},
	}}
	r.Sort()

	got := make([]FindingKind, len(r.Findings))
	for i, f := range r.Findings {
		got[i] = f.Kind
	}
	assert.Equal(t, []FindingKind{
		FindingInsufficientVolume, // line 2, counter 1, kind ties break alphabetically
		FindingWellOverflow,
		FindingMissingTips,
		FindingTipOverflow,
	}, got)
}

func TestReport_HasFatal(t *testing.T) {
	r := &Report{Findings: []Finding{
		{Kind: FindingUnboundedLoop, Severity: SeverityWarning},
		{Kind: FindingUnresolvedPrecondition, Severity: SeverityNote},
	}}
	assert.False(t, r.HasFatal())

	r.Findings = append(r.Findings, Finding{Kind: FindingCollision, Severity: SeverityFatal})
	assert.True(t, r.HasFatal())
}

func TestAnalysisError(t *testing.T) {
	inner := errors.New("unknown operation")
	err := &AnalysisError{
		Op:       "calibrate_gripper",
		Location: SourceLocation{File: "p.hcl", Line: 4, Column: 3},
		Err:      inner,
	}
	assert.Contains(t, err.Error(), "p.hcl:4,3")
	assert.Contains(t, err.Error(), "calibrate_gripper")
	assert.ErrorIs(t, err, inner)
}

func TestSequenceLen(t *testing.T) {
	var seq CallSequence = &Sequential{
		Call: &OperationCall{Name: "home"},
		Next: &Loop{
			Node: &LoopNode{Count: cty.NumberIntVal(2), Body: &End{}},
			Next: &Branch{Then: &End{}, Else: &End{}, Next: &End{}},
		},
	}
	assert.Equal(t, 3, SequenceLen(seq))
	assert.Equal(t, 0, SequenceLen(&End{}))
}

func TestArgValue(t *testing.T) {
	t.Run("known concrete value", func(t *testing.T) {
		a := ArgValue{Value: cty.NumberIntVal(5)}
		assert.True(t, a.Known())
		assert.False(t, a.IsRefs())
	})

	t.Run("unknown placeholder", func(t *testing.T) {
		a := ArgValue{Value: cty.UnknownVal(cty.Number)}
		assert.False(t, a.Known())
	})

	t.Run("pre-resolved selection", func(t *testing.T) {
		a := ArgValue{Refs: &RefSet{Resource: "plate"}}
		assert.True(t, a.IsRefs())
	})
}

func TestOperationCall_Arg(t *testing.T) {
	call := &OperationCall{
		Name: "aspirate",
		Args: map[string]ArgValue{"volume_ul": {Value: cty.NumberIntVal(50)}},
	}
	v, ok := call.Arg("volume_ul")
	require.True(t, ok)
	assert.True(t, v.Value.RawEquals(cty.NumberIntVal(50)))
	_, ok = call.Arg("wells")
	assert.False(t, ok)
}

func TestRefSet_Len(t *testing.T) {
	assert.Equal(t, 0, (&RefSet{}).Len())
	set := &RefSet{Refs: []ElementRef{{ID: "A1"}, {ID: "B1"}}}
	assert.Equal(t, 2, set.Len())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "strict", ModeStrict.String())
	assert.Equal(t, "permissive", ModePermissive.String())
	assert.Equal(t, "fatal", SeverityFatal.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "note", SeverityNote.String())
	assert.Equal(t, "boolean", TierBoolean.String())
	assert.Equal(t, "symbolic", TierSymbolic.String())
	assert.Equal(t, "exact", TierExact.String())
}
