package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/ctxlog"
	"github.com/specialistvlad/etlgen/internal/localsession"
	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/planio"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/publish"
	"github.com/specialistvlad/etlgen/internal/session"
)

// Run compiles the loaded documents and writes the plan. Nothing is written
// when compilation fails.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	p, endpoints, err := a.Compile(ctx)
	if err != nil {
		return err
	}

	format, err := planio.ParseFormat(a.config.Format)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := planio.Write(&buf, p, format, endpoints); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	if a.config.OutputPath == Stdout {
		if _, err := a.outW.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write plan: %w", err)
		}
	} else if err := os.WriteFile(a.config.OutputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	a.logger.Info("Plan written.", "output", a.config.OutputPath, "format", format, "blocks", len(p.Blocks))

	a.logger.Debug("App.Run method finished.")
	return nil
}

// Compile runs the constraint compiler over the loaded documents and returns
// the plan with the endpoints configured for its dialects.
func (a *App) Compile(ctx context.Context) (*plan.Plan, map[program.Dialect]string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	settings := a.model.Settings()

	kinds := a.config.Kinds
	if len(kinds) == 0 {
		kinds = settings.Kinds
	}
	if len(kinds) == 0 {
		return nil, nil, errors.New("no constraint kinds requested: set kinds in the compile block or pass -kinds")
	}

	mode := a.config.Mode
	if mode == "" {
		mode = settings.Mode
	}
	if mode != "" && !program.ValidMode(mode) {
		return nil, nil, fmt.Errorf("invalid mode %q in compile block", mode)
	}

	dialects, err := a.dialects(mode)
	if err != nil {
		return nil, nil, err
	}
	endpoints, err := parseEndpoints(settings.Endpoints)
	if err != nil {
		return nil, nil, err
	}

	if a.model.Root == nil {
		return nil, nil, errors.New("the documents declare no concept")
	}
	src := concept.RandomIDs
	if a.config.StableIDs {
		src = concept.StableIDs
	}
	concept.Backfill(a.model.Root, src)
	tree, err := concept.NewTree(a.model.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to index concept tree: %w", err)
	}
	a.logger.Info("Concept tree indexed.", "concepts", tree.Len(), "types", tree.Types(), "kinds", kinds, "dialects", dialects)

	pub, err := a.connect(ctx, a.config.PublishURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect publisher: %w", err)
	}
	defer func() {
		if err := pub.Close(ctx); err != nil {
			a.logger.Warn("Failed to close publisher.", "error", err)
		}
	}()

	factory := &localsession.SessionFactory{}
	sess, err := factory.NewSession(ctx, a.registry, session.Options{
		Dialects:       dialects,
		NoCompress:     a.config.NoCompress,
		PruneRedundant: a.config.PruneRedundant,
		Parallelism:    a.config.Parallelism,
		OnBlock:        a.publishBlock(ctx, pub, endpoints),
	})
	if err != nil {
		return nil, nil, err
	}
	defer sess.Close(ctx)

	blocks, err := sess.Compile(ctx, tree, kinds)
	if err != nil {
		return nil, nil, fmt.Errorf("compilation failed: %w", err)
	}

	p := &plan.Plan{Mode: mode, Dialects: dialects, Blocks: blocks}
	if err := pub.Publish(ctx, publish.EventDone, map[string]int{
		"blocks": len(p.Blocks),
		"tasks":  len(p.Tasks()),
	}); err != nil {
		a.logger.Warn("Failed to publish completion.", "error", err)
	}
	a.logger.Info("Compilation finished.", "blocks", len(p.Blocks), "tasks", len(p.Tasks()))
	return p, endpoints, nil
}

// dialects picks the preference order: flags, then the compile block, then
// the defaults of the mode.
func (a *App) dialects(mode string) ([]program.Dialect, error) {
	names := a.config.Dialects
	if len(names) == 0 {
		names = a.model.Settings().Dialects
	}
	if len(names) == 0 {
		return program.DefaultPreferences(mode), nil
	}
	return program.ParseDialects(names)
}

// publishBlock publishes each block of a successful compilation. Publication failures never
// fail the compilation.
func (a *App) publishBlock(ctx context.Context, pub publish.Publisher, endpoints map[program.Dialect]string) func(*plan.ConstraintBlock) {
	return func(b *plan.ConstraintBlock) {
		payload, err := planio.NewBlock(b, endpoints)
		if err != nil {
			a.logger.Warn("Failed to serialize block for publication.", "kind", b.Kind, "error", err)
			return
		}
		if err := pub.Publish(ctx, publish.EventBlock, payload); err != nil {
			a.logger.Warn("Failed to publish block.", "kind", b.Kind, "error", err)
		}
	}
}

func parseEndpoints(raw map[string]string) (map[program.Dialect]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[program.Dialect]string, len(raw))
	for name, endpoint := range raw {
		d, err := program.ParseDialect(name)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint: %w", err)
		}
		out[d] = endpoint
	}
	return out, nil
}
