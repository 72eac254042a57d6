package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/ctxlog"
	"github.com/specialistvlad/etlgen/internal/registry"
	"github.com/specialistvlad/etlgen/internal/topologystore"
	"golang.org/x/sync/errgroup"
)

// Builder constructs the static constraint graph for a concept tree.
type Builder interface {
	// Build attaches every builder, in the given order, to the tree.
	Build(ctx context.Context, tree *concept.Tree, builders []registry.Builder) error
}

// GraphBuilder is the default Builder.
type GraphBuilder struct {
	topology    topologystore.Store
	parallelism int
}

// Option configures a GraphBuilder.
type Option func(*GraphBuilder)

// WithParallelism limits the number of roots evaluated at once. Values below
// one mean no limit.
func WithParallelism(n int) Option {
	return func(b *GraphBuilder) { b.parallelism = n }
}

// New creates a GraphBuilder writing into topology.
func New(topology topologystore.Store, opts ...Option) *GraphBuilder {
	b := &GraphBuilder{topology: topology}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build attaches every builder to the tree. builders must be in requirement
// order, as returned by registry.RelevantBuilders.
func (b *GraphBuilder) Build(ctx context.Context, tree *concept.Tree, builders []registry.Builder) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting constraint graph construction.", "kinds", len(builders), "concepts", tree.Len())

	visited := make(map[string]bool, len(builders))
	for _, kb := range builders {
		if err := b.AttachConstraints(ctx, tree, kb, visited); err != nil {
			return fmt.Errorf("failed to attach constraint '%s': %w", kb.Kind(), err)
		}
	}

	logger.Debug("Build: Constraint graph construction successful.", "instances", len(b.topology.AllInstances(ctx)))
	return nil
}

// AttachConstraints creates the instances of one kind and records the kind
// as visited.
func (b *GraphBuilder) AttachConstraints(ctx context.Context, tree *concept.Tree, kb registry.Builder, visited map[string]bool) error {
	logger := ctxlog.FromContext(ctx).With("kind", kb.Kind())

	roots := tree.ByType(kb.RootType())
	if len(roots) == 0 {
		logger.Debug("No concepts of the root type, constraint contributes nothing.", "root_type", kb.RootType())
	}

	required := make(map[string][]*constraint.Instance, len(kb.RequiredKinds()))
	for _, req := range kb.RequiredKinds() {
		required[req] = b.topology.InstancesOfKind(ctx, req)
	}

	results := make([]*constraint.Instance, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	if b.parallelism > 0 {
		g.SetLimit(b.parallelism)
	}
	for i, root := range roots {
		g.Go(func() error {
			inst, err := attachOne(gctx, tree, kb, root, required)
			if err != nil {
				return err
			}
			results[i] = inst
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	attached := 0
	byRoot := make(map[uuid.UUID]bool, len(results))
	for _, inst := range results {
		if inst == nil {
			continue
		}
		if byRoot[inst.RootUUID] {
			return constraint.Invariantf("AttachConstraints", "constraint '%s' attached twice to root %s", kb.Kind(), inst.RootUUID)
		}
		byRoot[inst.RootUUID] = true

		if err := b.topology.AddInstance(ctx, inst); err != nil {
			if errors.Is(err, topologystore.ErrDuplicateInstance) {
				return constraint.Invariantf("AttachConstraints", "%v", err)
			}
			return err
		}
		for _, dep := range inst.Dependencies {
			if err := b.topology.AddDependency(ctx, dep, inst.ID()); err != nil {
				return fmt.Errorf("failed to link %s to %s: %w", inst.ID(), dep, err)
			}
		}
		attached++
	}

	visited[kb.Kind()] = true
	for _, req := range kb.RequiredKinds() {
		if !visited[req] {
			return constraint.Invariantf("AttachConstraints", "constraint '%s' processed before its requirement '%s'", kb.Kind(), req)
		}
	}

	logger.Debug("Attached constraint.", "roots", len(roots), "instances", attached)
	return nil
}

// attachOne evaluates a single root. A nil instance means the kind does not
// apply to the root.
func attachOne(ctx context.Context, tree *concept.Tree, kb registry.Builder, root concept.Concept, required map[string][]*constraint.Instance) (*constraint.Instance, error) {
	logger := ctxlog.FromContext(ctx)
	key := concept.KeyOf(root)

	ancestry, err := tree.Ancestors(key)
	if err != nil {
		return nil, constraint.Invariantf("attachOne", "%v", err)
	}
	ok, err := kb.ShouldAdd(root, ancestry)
	if err != nil {
		return nil, fmt.Errorf("predicate failed on %s: %w", concept.PathString(ancestry), err)
	}
	if !ok {
		logger.Debug("Constraint does not apply, skipping root.", "kind", kb.Kind(), "root", concept.PathString(ancestry))
		return nil, nil
	}

	family, err := tree.Family(key)
	if err != nil {
		return nil, constraint.Invariantf("attachOne", "%v", err)
	}
	extra, err := kb.RequiredRoots(root, ancestry)
	if err != nil {
		return nil, fmt.Errorf("required roots failed on %s: %w", concept.PathString(ancestry), err)
	}
	others := make(map[uuid.UUID]bool, len(extra))
	for _, id := range extra {
		others[id] = true
	}

	var candidates []*constraint.Instance
	for _, req := range kb.RequiredKinds() {
		for _, inst := range required[req] {
			if family.Contains(inst.RootType, inst.RootUUID) || others[inst.RootUUID] {
				candidates = append(candidates, inst)
			}
		}
	}

	inst, err := kb.Build(root.UUID(), candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to build instance on %s: %w", concept.PathString(ancestry), err)
	}
	if inst.Kind != kb.Kind() || inst.RootUUID != root.UUID() {
		return nil, constraint.Invariantf("attachOne", "builder '%s' returned instance of '%s' on root %s", kb.Kind(), inst.Kind, inst.RootUUID)
	}
	return inst, nil
}
