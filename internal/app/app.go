package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/etlgen/internal/config"
	"github.com/specialistvlad/etlgen/internal/ctxlog"
	"github.com/specialistvlad/etlgen/internal/publish"
	"github.com/specialistvlad/etlgen/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *registry.Registry
	model    *config.Model

	// connect opens the publisher used by Run.
	connect func(ctx context.Context, url string) (publish.Publisher, error)
}

// NewApp is the constructor for the main application. The plan is written
// to outW, logs go to logW. Without explicit modules the core modules are
// registered; the loaded documents always contribute their own kinds.
func NewApp(outW, logW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.DocPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Documents loaded and translated into unified model.",
		"constraints", len(model.Constraints), "programs", len(model.Programs))

	if len(modules) == 0 {
		modules = coreModules
	}
	reg, err := buildRegistry(ctx, model, modules)
	if err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.", "kinds", len(reg.Kinds()))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: reg,
		model:    model,
		connect:  connectPublisher,
	}, nil
}

// buildRegistry registers the Go modules followed by the document. A kind
// declared twice is reported as an error instead of a panic.
func buildRegistry(ctx context.Context, model *config.Model, modules []registry.Module) (reg *registry.Registry, err error) {
	defer func() {
		if r := recover(); r != nil {
			reg, err = nil, fmt.Errorf("failed to register constraint kinds: %v", r)
		}
	}()

	reg = registry.New()
	all := make([]registry.Module, 0, len(modules)+1)
	all = append(all, modules...)
	all = append(all, model)
	reg.Load(ctx, all...)

	if err := reg.ValidateRegistry(ctx); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	return reg, nil
}

func connectPublisher(ctx context.Context, url string) (publish.Publisher, error) {
	if url == "" {
		return publish.Nop{}, nil
	}
	return publish.Connect(ctx, publish.Options{URL: url})
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
