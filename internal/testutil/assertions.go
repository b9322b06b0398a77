package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/protocheck/internal/model"
)

// FindingsOfKind filters a report's findings by kind.
func FindingsOfKind(r *model.Report, kind model.FindingKind) []model.Finding {
	var out []model.Finding
	for _, f := range r.Findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// RequireFinding asserts exactly one finding of the given kind and
// returns it.
func RequireFinding(t *testing.T, r *model.Report, kind model.FindingKind) model.Finding {
	t.Helper()
	found := FindingsOfKind(r, kind)
	require.Len(t, found, 1, "expected exactly one %s finding, report: %+v", kind, r.Findings)
	return found[0]
}

// RequireNoFinding asserts the report has no finding of the given kind.
func RequireNoFinding(t *testing.T, r *model.Report, kind model.FindingKind) {
	t.Helper()
	require.Empty(t, FindingsOfKind(r, kind), "unexpected %s finding", kind)
}

// AssertClean asserts a complete report with no findings at all.
func AssertClean(t *testing.T, r *model.Report) {
	t.Helper()
	assert.Empty(t, r.Findings, "expected no findings, got: %+v", r.Findings)
	assert.True(t, r.Complete, "expected complete coverage, notes: %v", r.Notes)
}
