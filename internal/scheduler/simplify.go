package scheduler

import (
	"context"

	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/ctxlog"
	"github.com/specialistvlad/etlgen/internal/taskid"
)

// dependentsOf scans the store for states waiting on id.
func (s *Driver) dependentsOf(ctx context.Context, id taskid.ID) []*constraint.State {
	var out []*constraint.State
	for _, st := range s.states.All(ctx) {
		if st.DependsOn(id) {
			out = append(out, st)
		}
	}
	return out
}

// simplifyDummyTasks alternates both dummy passes until neither removes a
// state. Dropping a dangling dummy can leave its dependent with a single
// dependency, and splicing can leave a dummy without any.
func (s *Driver) simplifyDummyTasks(ctx context.Context) error {
	for {
		spliced, err := s.removeSuperfluousDummyTasks(ctx)
		if err != nil {
			return err
		}
		dropped, err := s.removeDanglingDummyTasks(ctx)
		if err != nil {
			return err
		}
		if spliced == 0 && dropped == 0 {
			return nil
		}
	}
}

// removeSuperfluousDummyTasks splices out every dummy state with exactly one
// dependency: its dependents depend on that dependency directly instead.
func (s *Driver) removeSuperfluousDummyTasks(ctx context.Context) (int, error) {
	logger := ctxlog.FromContext(ctx)
	removed := 0
	for {
		victim := s.findDummy(ctx, 1)
		if victim == nil {
			break
		}
		target := victim.UnsatisfiedDependencies()[0]
		for _, dep := range s.dependentsOf(ctx, victim.ID()) {
			dep.RemoveDependency(victim.ID())
			dep.AddDependency(target)
		}
		if !s.states.Remove(ctx, victim.ID()) {
			return removed, constraint.Invariantf("removeSuperfluousDummyTasks", "%s vanished from the state store", victim.ID())
		}
		removed++
		logger.Debug("Removed superfluous dummy task.", "kind", victim.Kind(), "id", victim.ID(), "redirected_to", target)
	}
	if removed > 0 {
		logger.Debug("Superfluous dummy tasks removed.", "count", removed)
	}
	return removed, nil
}

// removeDanglingDummyTasks drops every dummy state without dependencies.
// Its dependents simply lose the edge.
func (s *Driver) removeDanglingDummyTasks(ctx context.Context) (int, error) {
	logger := ctxlog.FromContext(ctx)
	removed := 0
	for {
		victim := s.findDummy(ctx, 0)
		if victim == nil {
			break
		}
		for _, dep := range s.dependentsOf(ctx, victim.ID()) {
			dep.RemoveDependency(victim.ID())
		}
		if !s.states.Remove(ctx, victim.ID()) {
			return removed, constraint.Invariantf("removeDanglingDummyTasks", "%s vanished from the state store", victim.ID())
		}
		removed++
		logger.Debug("Removed dangling dummy task.", "kind", victim.Kind(), "id", victim.ID())
	}
	if removed > 0 {
		logger.Debug("Dangling dummy tasks removed.", "count", removed)
	}
	return removed, nil
}

// findDummy returns the first dummy state with exactly n pending dependencies.
func (s *Driver) findDummy(ctx context.Context, n int) *constraint.State {
	for _, st := range s.states.All(ctx) {
		if st.IsDummy() && st.PendingCount() == n {
			return st
		}
	}
	return nil
}

// removeRedundantDependencies drops a direct edge a -> c whenever c is also
// reachable from a through another dependency.
func (s *Driver) removeRedundantDependencies(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	pruned := 0
	for _, st := range s.states.All(ctx) {
		deps := st.UnsatisfiedDependencies()
		for _, c := range deps {
			for _, b := range st.UnsatisfiedDependencies() {
				if b == c {
					continue
				}
				if s.reachable(ctx, b, c) {
					st.RemoveDependency(c)
					pruned++
					break
				}
			}
		}
	}
	if pruned > 0 {
		logger.Debug("Redundant dependencies pruned.", "count", pruned)
	}
}

// reachable reports whether to can be reached from from by following
// dependency edges.
func (s *Driver) reachable(ctx context.Context, from, to taskid.ID) bool {
	seen := make(map[taskid.ID]bool)
	stack := []taskid.ID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if st, ok := s.states.Get(ctx, id); ok {
			stack = append(stack, st.UnsatisfiedDependencies()...)
		}
	}
	return false
}
