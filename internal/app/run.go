package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/protocheck/internal/ctxlog"
	"github.com/vk/protocheck/internal/detect"
	"github.com/vk/protocheck/internal/hclproto"
	"github.com/vk/protocheck/internal/model"
)

// ErrFatalFindings distinguishes "the analysis predicted a fatal hardware
// fault" from tool failures, so the entrypoint can exit with a dedicated
// code.
var ErrFatalFindings = errors.New("fatal findings predicted")

// Run loads the protocol, analyzes it, and renders the report.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	loader := hclproto.NewLoader(a.catalog)
	protocol, err := loader.LoadFile(ctx, appConfig.ProtocolPath)
	if err != nil {
		return fmt.Errorf("failed to load protocol: %w", err)
	}

	mode, err := ParseMode(appConfig.Mode)
	if err != nil {
		return err
	}
	opts := model.Options{
		Mode:       mode,
		FindAll:    appConfig.FindAll,
		NodeBudget: appConfig.NodeBudget,
		Workers:    appConfig.Workers,
	}

	detector, err := detect.New(a.registry, a.catalog, protocol.Deck, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize analysis: %w", err)
	}

	report, err := detector.Analyze(ctx, protocol.Sequence)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	renderReport(a.outW, report)
	a.logger.Debug("App.Run method finished.")

	if report.HasFatal() {
		return ErrFatalFindings
	}
	return nil
}
