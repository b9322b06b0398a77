package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/protocheck/internal/catalog"
	"github.com/vk/protocheck/internal/contract"
	"github.com/vk/protocheck/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	catalog  catalog.Static
	registry *contract.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, labware
// catalog, and contract registry.
func NewApp(outW io.Writer, errW io.Writer, appConfig *Config) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cat := catalog.Builtin()
	if appConfig.CatalogPath != "" {
		extra, err := catalog.LoadFile(ctx, appConfig.CatalogPath)
		if err != nil {
			// A failure to load the labware catalog is a fatal startup error.
			panic(fmt.Errorf("failed to load labware catalog: %w", err))
		}
		cat = catalog.Merge(cat, extra)
	}
	logger.Debug("Labware catalog ready.", "types", len(cat))

	reg := contract.Builtin()
	logger.Debug("Operation contracts registered.", "count", reg.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		catalog:  cat,
		registry: reg,
	}
}

// Registry returns the application's contract registry. This is primarily
// for testing.
func (a *App) Registry() *contract.Registry {
	return a.registry
}
