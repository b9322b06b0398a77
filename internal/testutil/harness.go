// Package testutil provides the shared test harness: a fluent sequence
// builder, deck helpers, an analysis runner, and finding assertions.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/protocheck/internal/catalog"
	"github.com/vk/protocheck/internal/contract"
	"github.com/vk/protocheck/internal/ctxlog"
	"github.com/vk/protocheck/internal/detect"
	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/trace"
)

// Ctx returns a context carrying a logger that feeds the test log on
// verbose runs and is otherwise discarded.
func Ctx(t *testing.T) context.Context {
	t.Helper()
	var w io.Writer = io.Discard
	if testing.Verbose() {
		w = testWriter{t}
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// NewDetector builds a detector over the builtin contracts and catalog.
func NewDetector(deck model.Deck, opts model.Options) (*detect.Detector, error) {
	return detect.New(contract.Builtin(), catalog.Builtin(), deck, opts)
}

// Selection resolves a concrete element selection against the builtin
// catalog, for tests that drive loops over traced element sets.
func Selection(t *testing.T, deck model.Deck, resource, expr string) *model.RefSet {
	t.Helper()
	set, err := trace.New(catalog.Builtin(), deck).Resolve(resource, expr)
	require.NoError(t, err)
	return set
}

// Analyze runs the builtin contracts over a sequence on the given deck
// and fails the test on an analysis error.
func Analyze(t *testing.T, deck model.Deck, seq model.CallSequence, opts model.Options) *model.Report {
	t.Helper()
	detector, err := detect.New(contract.Builtin(), catalog.Builtin(), deck, opts)
	require.NoError(t, err)
	report, err := detector.Analyze(Ctx(t), seq)
	require.NoError(t, err)
	require.NotNil(t, report)
	return report
}

// MustAnalyzeErr runs an analysis expected to fail outright and returns
// the error.
func MustAnalyzeErr(t *testing.T, deck model.Deck, seq model.CallSequence, opts model.Options) error {
	t.Helper()
	detector, err := detect.New(contract.Builtin(), catalog.Builtin(), deck, opts)
	require.NoError(t, err)
	_, err = detector.Analyze(Ctx(t), seq)
	require.Error(t, err)
	return err
}
