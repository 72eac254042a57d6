package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/etlgen/internal/compress"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/ctxlog"
	"github.com/specialistvlad/etlgen/internal/naming"
	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/taskid"
	"golang.org/x/sync/errgroup"
)

// satisfyBlock processes every state of kind and returns its block, or nil
// when the kind has no states.
func (s *Driver) satisfyBlock(ctx context.Context, tree *concept.Tree, kind string) (*plan.ConstraintBlock, error) {
	logger := ctxlog.FromContext(ctx).With("kind", kind)
	states := s.states.OfKind(ctx, kind)
	if len(states) == 0 {
		return nil, nil
	}

	for _, st := range states {
		if st.Satisfied() {
			return nil, constraint.Invariantf("satisfyBlock", "%s is already satisfied", st.ID())
		}
		if n := st.PendingCount(); n > 0 {
			return nil, constraint.Invariantf("satisfyBlock", "%s still waits for %d dependencies when its block starts", st.ID(), n)
		}
		if err := st.SetKey(naming.TaskKey(st.Ancestors())); err != nil {
			return nil, err
		}
	}

	if err := s.resolvePrograms(ctx, tree, states); err != nil {
		return nil, err
	}

	for _, st := range states {
		if err := st.MarkSatisfied(); err != nil {
			return nil, err
		}
		for _, depID := range s.dependents[st.ID()] {
			dependent, ok := s.states.Get(ctx, depID)
			if !ok {
				return nil, constraint.Invariantf("satisfyBlock", "dependent %s of %s is missing", depID, st.ID())
			}
			if err := dependent.MarkDependencySatisfied(st.ID()); err != nil {
				return nil, err
			}
		}
	}

	block, err := s.emitBlock(ctx, kind, states)
	if err != nil {
		return nil, err
	}
	logger.Debug("Constraint block emitted.", "states", len(states), "code_blocks", len(block.CodeBlocks()))
	return block, nil
}

// resolvePrograms resolves the program of every program-requiring state.
// Programs are independent of each other, so they run concurrently; results
// are stored in state order.
func (s *Driver) resolvePrograms(ctx context.Context, tree *concept.Tree, states []*constraint.State) error {
	results := make([]program.Resolution, len(states))
	g, _ := errgroup.WithContext(ctx)
	if s.parallelism > 0 {
		g.SetLimit(s.parallelism)
	}
	for i, st := range states {
		if !st.RequiresProgram() {
			continue
		}
		pctx := s.programContext(ctx, st)
		g.Go(func() error {
			res, err := s.resolve(tree, st, pctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, st := range states {
		if !st.RequiresProgram() {
			continue
		}
		if err := st.SetResolution(results[i]); err != nil {
			return err
		}
	}
	return nil
}

// programContext merges the exports of the resolved dependencies of st.
func (s *Driver) programContext(ctx context.Context, st *constraint.State) *program.Context {
	pctx := program.NewContext()
	for _, depID := range st.SatisfiedDependencies() {
		dep, ok := s.states.Get(ctx, depID)
		if !ok || dep.Resolution() == nil {
			continue
		}
		pctx.Merge(dep.Resolution().Exports)
	}
	if keys := pctx.Keys(); len(keys) > 0 {
		ctxlog.FromContext(ctx).Debug("Program context assembled.", "id", st.ID(), "keys", keys)
	}
	return pctx
}

func (s *Driver) resolve(tree *concept.Tree, st *constraint.State, pctx *program.Context) (program.Resolution, error) {
	inst := st.Instance()
	prog, ok := s.registry.Program(inst.Kind, s.dialects)
	if !ok {
		return program.Resolution{}, &NoProgramError{
			Kind:     inst.Kind,
			Root:     concept.PathString(st.Ancestors()),
			Dialects: s.dialects,
		}
	}
	root, ok := tree.Get(concept.Key{UUID: inst.RootUUID, Type: inst.RootType})
	if !ok {
		return program.Resolution{}, constraint.Invariantf("resolve", "root concept %s:%s of %s is missing", inst.RootType, inst.RootUUID, st.ID())
	}
	res, err := prog.ComputeArgs(root, st.Ancestors(), pctx, program.Target{
		Kind:     inst.Kind,
		UUID:     inst.UUID,
		RootUUID: inst.RootUUID,
		RootType: inst.RootType,
	})
	if err != nil {
		return program.Resolution{}, fmt.Errorf("program '%s' (%s) failed on %s: %w",
			inst.Kind, prog.Dialect(), concept.PathString(st.Ancestors()), err)
	}
	if res.Dialect == program.None {
		res.Dialect = prog.Dialect()
	}
	return res, nil
}

// emitBlock groups the satisfied states of a block by dialect, folds
// identical calls, names the survivors and builds the code blocks.
func (s *Driver) emitBlock(ctx context.Context, kind string, states []*constraint.State) (*plan.ConstraintBlock, error) {
	var dialects []program.Dialect
	groups := make(map[program.Dialect][]*constraint.State)
	for _, st := range states {
		d := program.None
		if res := st.Resolution(); res != nil {
			d = res.Dialect
		}
		if _, ok := groups[d]; !ok {
			dialects = append(dialects, d)
		}
		groups[d] = append(groups[d], st)
	}

	codeBlocks := make([]*plan.CodeBlock, 0, len(dialects))
	for _, d := range dialects {
		cb, err := s.emitCodeBlock(ctx, d, groups[d])
		if err != nil {
			return nil, err
		}
		codeBlocks = append(codeBlocks, cb)
	}
	return plan.NewConstraintBlock(kind, codeBlocks), nil
}

func (s *Driver) emitCodeBlock(ctx context.Context, d program.Dialect, states []*constraint.State) (*plan.CodeBlock, error) {
	logger := ctxlog.FromContext(ctx)

	// Fold identical resolutions onto the first state that produced them.
	var reps []*constraint.State
	members := make(map[taskid.ID][]*constraint.State)
	byKey := make(map[string]*constraint.State)
	for _, st := range states {
		if st.IsDummy() {
			reps = append(reps, st)
			continue
		}
		key, err := st.Resolution().DedupKey()
		if err != nil {
			return nil, fmt.Errorf("failed to compute dedup key of %s: %w", st.ID(), err)
		}
		rep, seen := byKey[key]
		if !seen {
			byKey[key] = st
			reps = append(reps, st)
			continue
		}
		members[rep.ID()] = append(members[rep.ID()], st)
		s.remap[st.ID()] = rep.ID()
		for _, depID := range s.dependents[st.ID()] {
			if dependent, ok := s.states.Get(ctx, depID); ok {
				dependent.ReplaceSatisfiedDependency(st.ID(), rep.ID())
			}
		}
		logger.Debug("Folded identical task.", "kind", st.Kind(), "id", st.ID(), "representative", rep.ID())
	}

	cb := plan.NewCodeBlock(d)
	var tasks []*plan.Task
	for _, rep := range reps {
		key, _ := rep.Key()
		name := s.namer.Name(rep.Kind(), key, rep.Instance().UUID)
		rep.SetTaskName(name)
		val := s.taskVal(name)
		cb.SetIdentifier(rep.Instance().UUID, val)

		task := &plan.Task{
			ID:      rep.ID(),
			Name:    name,
			Kind:    rep.Kind(),
			Val:     val,
			Dialect: d,
		}
		if res := rep.Resolution(); res != nil {
			task.Call = res.Call
			task.Params = res.Params
			task.Preamble = res.Preamble
			task.Imports = res.Imports
		}

		deps := rep.SatisfiedDependencies()
		for _, dup := range members[rep.ID()] {
			dup.SetTaskName(name)
			cb.SetIdentifier(dup.Instance().UUID, val)
			task.Aliases = append(task.Aliases, dup.ID())
			deps = append(deps, dup.SatisfiedDependencies()...)
		}
		names, err := s.dependencyNames(ctx, deps)
		if err != nil {
			return nil, err
		}
		task.Dependencies = names
		tasks = append(tasks, task)
	}

	if !s.compress {
		for _, t := range tasks {
			cb.Entries = append(cb.Entries, plan.Entry{Task: t})
		}
		return cb, nil
	}
	entries, err := compress.Compress(tasks)
	if err != nil {
		return nil, err
	}
	cb.Entries = entries
	return cb, nil
}

func (s *Driver) taskVal(name string) plan.TaskVal {
	if s.compress {
		return plan.Subscript(plan.DefaultCollection, name)
	}
	return plan.Ident(name)
}

// dependencyNames resolves dependency IDs, following folded duplicates, to
// sorted distinct task names.
func (s *Driver) dependencyNames(ctx context.Context, deps []taskid.ID) ([]string, error) {
	seen := make(map[string]bool, len(deps))
	var names []string
	for _, id := range deps {
		if rep, ok := s.remap[id]; ok {
			id = rep
		}
		st, ok := s.states.Get(ctx, id)
		if !ok || st.TaskName() == "" {
			return nil, constraint.Invariantf("dependencyNames", "dependency %s has no task name", id)
		}
		if !seen[st.TaskName()] {
			seen[st.TaskName()] = true
			names = append(names, st.TaskName())
		}
	}
	sort.Strings(names)
	return names, nil
}
