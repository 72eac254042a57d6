package constraint

import (
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/taskid"
)

// State is the scheduling-time wrapper of an Instance.
//
// Dependencies move from the unsatisfied set to the satisfied list as the
// scheduler resolves them. Once MarkSatisfied succeeds the state is frozen.
type State struct {
	inst            *Instance
	requiresProgram bool
	ancestors       []concept.AncestorRecord

	satisfied   bool
	unsatisfied *idSet
	resolved    *idSet

	key        string
	keyDone    bool
	taskName   string
	resolution *program.Resolution
}

// NewState wraps inst. ancestors is the root-to-root-concept path of the
// instance's root concept.
func NewState(inst *Instance, requiresProgram bool, ancestors []concept.AncestorRecord) *State {
	return &State{
		inst:            inst,
		requiresProgram: requiresProgram,
		ancestors:       ancestors,
		unsatisfied:     newIDSet(inst.Dependencies...),
		resolved:        newIDSet(),
	}
}

func (s *State) ID() taskid.ID                   { return s.inst.ID() }
func (s *State) Kind() string                    { return s.inst.Kind }
func (s *State) Instance() *Instance             { return s.inst }
func (s *State) RequiresProgram() bool           { return s.requiresProgram }
func (s *State) IsDummy() bool                   { return !s.requiresProgram }
func (s *State) Satisfied() bool                 { return s.satisfied }
func (s *State) TaskName() string                { return s.taskName }
func (s *State) SetTaskName(n string)            { s.taskName = n }
func (s *State) Resolution() *program.Resolution { return s.resolution }

// Ancestors is the ancestor path of the root concept.
func (s *State) Ancestors() []concept.AncestorRecord { return s.ancestors }

// Root is the record of the root concept itself.
func (s *State) Root() concept.AncestorRecord {
	return s.ancestors[len(s.ancestors)-1]
}

// UnsatisfiedDependencies lists pending dependencies in insertion order.
func (s *State) UnsatisfiedDependencies() []taskid.ID { return s.unsatisfied.list() }

// PendingCount is the number of unsatisfied dependencies.
func (s *State) PendingCount() int { return len(s.unsatisfied.items) }

// DependsOn reports whether id is a pending dependency.
func (s *State) DependsOn(id taskid.ID) bool { return s.unsatisfied.has(id) }

// SatisfiedDependencies lists resolved dependencies in resolution order.
func (s *State) SatisfiedDependencies() []taskid.ID { return s.resolved.list() }

// AddDependency adds a pending dependency. It reports false when the
// dependency was already pending.
func (s *State) AddDependency(id taskid.ID) bool {
	if id == s.ID() {
		return false
	}
	return s.unsatisfied.add(id)
}

// RemoveDependency drops a pending dependency without resolving it.
func (s *State) RemoveDependency(id taskid.ID) bool {
	return s.unsatisfied.remove(id)
}

// MarkDependencySatisfied moves id from the pending set to the satisfied list.
func (s *State) MarkDependencySatisfied(id taskid.ID) error {
	if s.satisfied {
		return Invariantf("MarkDependencySatisfied", "%s is already satisfied", s.ID())
	}
	if !s.unsatisfied.remove(id) {
		return Invariantf("MarkDependencySatisfied", "%s does not wait for %s", s.ID(), id)
	}
	s.resolved.add(id)
	return nil
}

// ReplaceSatisfiedDependency rewrites a resolved dependency, used when the
// target was folded into an identical representative.
func (s *State) ReplaceSatisfiedDependency(from, to taskid.ID) {
	if !s.resolved.has(from) {
		return
	}
	items := s.resolved.list()
	s.resolved = newIDSet()
	for _, id := range items {
		if id == from {
			id = to
		}
		s.resolved.add(id)
	}
}

// Key returns the task key and whether it has been computed.
func (s *State) Key() (string, bool) { return s.key, s.keyDone }

// SetKey records the task key. It may only be set once.
func (s *State) SetKey(key string) error {
	if s.keyDone {
		return Invariantf("SetKey", "key of %s already computed", s.ID())
	}
	s.key = key
	s.keyDone = true
	return nil
}

// SetResolution stores the resolved call of a program-requiring state.
func (s *State) SetResolution(r program.Resolution) error {
	if !s.requiresProgram {
		return Invariantf("SetResolution", "%s (%s) does not require a program", s.ID(), s.Kind())
	}
	s.resolution = &r
	return nil
}

// MarkSatisfied freezes the state. All dependencies must have been resolved.
func (s *State) MarkSatisfied() error {
	if s.satisfied {
		return Invariantf("MarkSatisfied", "%s (%s) is already satisfied", s.ID(), s.Kind())
	}
	if n := s.PendingCount(); n > 0 {
		return Invariantf("MarkSatisfied", "%s (%s) still has %d unsatisfied dependencies", s.ID(), s.Kind(), n)
	}
	if s.requiresProgram && s.resolution == nil {
		return Invariantf("MarkSatisfied", "%s (%s) requires a program but none was resolved", s.ID(), s.Kind())
	}
	s.satisfied = true
	return nil
}
