package scheduler

import (
	"context"
	"fmt"

	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/ctxlog"
	"github.com/specialistvlad/etlgen/internal/naming"
	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/registry"
	"github.com/specialistvlad/etlgen/internal/statestore"
	"github.com/specialistvlad/etlgen/internal/taskid"
	"github.com/specialistvlad/etlgen/internal/topologystore"
)

// Scheduler satisfies a constraint graph and emits the plan blocks.
type Scheduler interface {
	Run(ctx context.Context, tree *concept.Tree, builders []registry.Builder) ([]*plan.ConstraintBlock, error)
}

// Driver is the default Scheduler. A Driver is good for a single Run.
type Driver struct {
	registry *registry.Registry
	topology topologystore.Store
	states   statestore.Store

	dialects       []program.Dialect
	compress       bool
	pruneRedundant bool
	parallelism    int
	onBlock        func(*plan.ConstraintBlock)

	namer      *naming.Namer
	remap      map[taskid.ID]taskid.ID
	dependents map[taskid.ID][]taskid.ID
}

// Option configures a Driver.
type Option func(*Driver)

// WithDialects sets the dialect preference order.
func WithDialects(d ...program.Dialect) Option {
	return func(s *Driver) { s.dialects = d }
}

// WithoutCompression keeps every task standalone and addresses tasks by
// plain identifiers instead of collection subscripts.
func WithoutCompression() Option {
	return func(s *Driver) { s.compress = false }
}

// WithPruneRedundant drops direct edges that are implied by a longer path.
func WithPruneRedundant() Option {
	return func(s *Driver) { s.pruneRedundant = true }
}

// WithParallelism limits concurrent program resolution inside a block.
func WithParallelism(n int) Option {
	return func(s *Driver) { s.parallelism = n }
}

// OnBlock registers a callback invoked with every emitted block, in order.
// It runs only once Run has satisfied every constraint, so a failed run
// publishes nothing.
func OnBlock(fn func(*plan.ConstraintBlock)) Option {
	return func(s *Driver) { s.onBlock = fn }
}

// New creates a Driver.
func New(reg *registry.Registry, topology topologystore.Store, states statestore.Store, opts ...Option) *Driver {
	s := &Driver{
		registry:   reg,
		topology:   topology,
		states:     states,
		dialects:   program.DefaultPreferences(""),
		compress:   true,
		namer:      naming.NewNamer(),
		remap:      make(map[taskid.ID]taskid.ID),
		dependents: make(map[taskid.ID][]taskid.ID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run satisfies every instance of the topology store. builders must be the
// relevant builders in requirement order.
func (s *Driver) Run(ctx context.Context, tree *concept.Tree, builders []registry.Builder) ([]*plan.ConstraintBlock, error) {
	logger := ctxlog.FromContext(ctx)

	if err := s.seedStates(ctx, tree); err != nil {
		return nil, fmt.Errorf("failed to create constraint states: %w", err)
	}
	logger.Debug("Constraint states created.", "states", s.states.Len(ctx))

	if err := s.simplifyDummyTasks(ctx); err != nil {
		return nil, err
	}
	if s.pruneRedundant {
		s.removeRedundantDependencies(ctx)
	}
	logger.Debug("Constraint graph simplified.", "states", s.states.Len(ctx))

	s.buildReverseIndex(ctx)

	pending := newKindQueue(builders)
	var blocks []*plan.ConstraintBlock
	for {
		kind, ok := pending.next()
		if !ok {
			break
		}
		block, err := s.satisfyBlock(ctx, tree, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to satisfy constraint '%s': %w", kind, err)
		}
		if block == nil {
			logger.Debug("Constraint has no instances, no block emitted.", "kind", kind)
			continue
		}
		blocks = append(blocks, block)
	}
	if !pending.empty() {
		return nil, constraint.Invariantf("Run", "constraints %v never became satisfiable", pending.remaining())
	}

	for _, st := range s.states.All(ctx) {
		if !st.Satisfied() {
			return nil, constraint.Invariantf("Run", "%s (%s) was never satisfied", st.ID(), st.Kind())
		}
	}

	logger.Info("Constraints satisfied.", "blocks", len(blocks), "states", s.states.Len(ctx))
	if s.onBlock != nil {
		for _, block := range blocks {
			s.onBlock(block)
		}
	}
	return blocks, nil
}

// seedStates wraps every stored instance in a constraint.State.
func (s *Driver) seedStates(ctx context.Context, tree *concept.Tree) error {
	for _, inst := range s.topology.AllInstances(ctx) {
		b, ok := s.registry.Builder(inst.Kind)
		if !ok {
			return &registry.MissingBuilderError{Kind: inst.Kind}
		}
		ancestors, err := tree.Ancestors(concept.Key{UUID: inst.RootUUID, Type: inst.RootType})
		if err != nil {
			return constraint.Invariantf("seedStates", "%v", err)
		}
		deps, err := s.topology.DependenciesOf(ctx, inst.ID())
		if err != nil {
			return constraint.Invariantf("seedStates", "%v", err)
		}
		st := constraint.NewState(&constraint.Instance{
			UUID:         inst.UUID,
			Kind:         inst.Kind,
			RootUUID:     inst.RootUUID,
			RootType:     inst.RootType,
			Dependencies: deps,
		}, b.RequiresProgram(), ancestors)
		if err := s.states.Put(ctx, st); err != nil {
			return constraint.Invariantf("seedStates", "%v", err)
		}
	}
	return nil
}

// buildReverseIndex records, for every state, which states wait for it.
func (s *Driver) buildReverseIndex(ctx context.Context) {
	for _, st := range s.states.All(ctx) {
		for _, dep := range st.UnsatisfiedDependencies() {
			s.dependents[dep] = append(s.dependents[dep], st.ID())
		}
	}
}

// kindQueue tracks the kind-level dependencies of the unsatisfied kinds.
type kindQueue struct {
	order   []string
	pending map[string]map[string]bool
}

func newKindQueue(builders []registry.Builder) *kindQueue {
	q := &kindQueue{pending: make(map[string]map[string]bool, len(builders))}
	included := make(map[string]bool, len(builders))
	for _, b := range builders {
		included[b.Kind()] = true
	}
	for _, b := range builders {
		deps := make(map[string]bool)
		for _, req := range b.RequiredKinds() {
			if included[req] {
				deps[req] = true
			}
		}
		q.order = append(q.order, b.Kind())
		q.pending[b.Kind()] = deps
	}
	return q
}

// next removes and returns the first satisfiable kind.
func (q *kindQueue) next() (string, bool) {
	for i, kind := range q.order {
		if len(q.pending[kind]) > 0 {
			continue
		}
		q.order = append(q.order[:i], q.order[i+1:]...)
		delete(q.pending, kind)
		for _, deps := range q.pending {
			delete(deps, kind)
		}
		return kind, true
	}
	return "", false
}

func (q *kindQueue) empty() bool { return len(q.order) == 0 }

func (q *kindQueue) remaining() []string {
	out := make([]string, len(q.order))
	copy(out, q.order)
	return out
}
