// Package localsession provides a concrete implementation of the
// session.Session and session.SessionFactory interfaces backed by in-memory
// stores.
package localsession

import (
	"context"
	"fmt"

	"github.com/specialistvlad/etlgen/internal/builder"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/ctxlog"
	"github.com/specialistvlad/etlgen/internal/inmemorystore"
	"github.com/specialistvlad/etlgen/internal/inmemorytopology"
	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/registry"
	"github.com/specialistvlad/etlgen/internal/scheduler"
	"github.com/specialistvlad/etlgen/internal/session"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct{}

// NewSession creates a new local session.
func (f *SessionFactory) NewSession(ctx context.Context, reg *registry.Registry, opts session.Options) (session.Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("localsession.SessionFactory.NewSession called.")
	if reg == nil {
		return nil, fmt.Errorf("a registry is required")
	}
	return &Session{registry: reg, opts: opts}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	registry *registry.Registry
	opts     session.Options
	used     bool
}

// Compile wires fresh stores, the graph builder and the scheduler together
// and runs them once. A Session compiles at most once.
func (s *Session) Compile(ctx context.Context, tree *concept.Tree, kinds []string) ([]*plan.ConstraintBlock, error) {
	logger := ctxlog.FromContext(ctx)
	if s.used {
		return nil, fmt.Errorf("session already compiled")
	}
	s.used = true

	builders, err := s.registry.RelevantBuilders(kinds)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve requested constraints: %w", err)
	}
	logger.Debug("Relevant constraints resolved.", "requested", kinds, "relevant", len(builders))

	// --- This is where the dependency injection wiring happens ---
	topoStore := inmemorytopology.New()
	stateStore := inmemorystore.New()
	graphBuilder := builder.New(topoStore, builder.WithParallelism(s.opts.Parallelism))
	sched := scheduler.New(s.registry, topoStore, stateStore, s.schedulerOptions()...)
	// --- End of dependency injection ---

	if err := graphBuilder.Build(ctx, tree, builders); err != nil {
		return nil, fmt.Errorf("failed to build constraint graph: %w", err)
	}
	blocks, err := sched.Run(ctx, tree, builders)
	if err != nil {
		return nil, fmt.Errorf("failed to satisfy constraint graph: %w", err)
	}
	return blocks, nil
}

func (s *Session) schedulerOptions() []scheduler.Option {
	var opts []scheduler.Option
	if len(s.opts.Dialects) > 0 {
		opts = append(opts, scheduler.WithDialects(s.opts.Dialects...))
	}
	if s.opts.NoCompress {
		opts = append(opts, scheduler.WithoutCompression())
	}
	if s.opts.PruneRedundant {
		opts = append(opts, scheduler.WithPruneRedundant())
	}
	if s.opts.Parallelism > 0 {
		opts = append(opts, scheduler.WithParallelism(s.opts.Parallelism))
	}
	if s.opts.OnBlock != nil {
		opts = append(opts, scheduler.OnBlock(s.opts.OnBlock))
	}
	return opts
}

// Close releases nothing; the stores are garbage collected with the session.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("localsession.Session.Close called.")
	return nil
}
