package inmemorytopology

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/taskid"
	"github.com/specialistvlad/etlgen/internal/topologystore"
)

// Store implements the topologystore.Store interface using maps and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu        sync.RWMutex
	instances map[taskid.ID]*constraint.Instance
	order     []taskid.ID
	byKind    map[string][]taskid.ID
	deps      map[taskid.ID][]taskid.ID // Key: instance ID, Value: dependency IDs in insertion order
}

// New creates a new, empty in-memory topology store.
func New() topologystore.Store {
	return &Store{
		instances: make(map[taskid.ID]*constraint.Instance),
		byKind:    make(map[string][]taskid.ID),
		deps:      make(map[taskid.ID][]taskid.ID),
	}
}

// AddInstance adds a new constraint instance to the store.
func (s *Store) AddInstance(ctx context.Context, inst *constraint.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := inst.ID()
	if existing, exists := s.instances[id]; exists {
		return fmt.Errorf("%w: %s of kind '%s' (already stored as kind '%s')",
			topologystore.ErrDuplicateInstance, id, inst.Kind, existing.Kind)
	}
	s.instances[id] = inst
	s.order = append(s.order, id)
	s.byKind[inst.Kind] = append(s.byKind[inst.Kind], id)
	return nil
}

// AddDependency creates a dependency link from one instance to another.
func (s *Store) AddDependency(ctx context.Context, from, to taskid.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[from]; !exists {
		return fmt.Errorf("dependency source instance '%s' not found in topology", from)
	}
	if _, exists := s.instances[to]; !exists {
		return fmt.Errorf("dependency target instance '%s' not found in topology", to)
	}
	if from == to {
		return fmt.Errorf("instance '%s' cannot depend on itself", to)
	}

	for _, existing := range s.deps[to] {
		if existing == from {
			return nil
		}
	}
	s.deps[to] = append(s.deps[to], from)
	return nil
}

// GetInstance retrieves a single instance by its ID.
func (s *Store) GetInstance(ctx context.Context, id taskid.ID) (*constraint.Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	return inst, ok
}

// AllInstances returns every instance in insertion order.
func (s *Store) AllInstances(ctx context.Context) []*constraint.Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*constraint.Instance, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.instances[id])
	}
	return out
}

// InstancesOfKind returns the instances of kind in insertion order.
func (s *Store) InstancesOfKind(ctx context.Context, kind string) []*constraint.Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byKind[kind]
	out := make([]*constraint.Instance, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.instances[id])
	}
	return out
}

// DependenciesOf returns the IDs of all instances the given one depends on.
func (s *Store) DependenciesOf(ctx context.Context, id taskid.ID) ([]taskid.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.instances[id]; !exists {
		return nil, fmt.Errorf("instance '%s' not found in topology", id)
	}

	deps := make([]taskid.ID, len(s.deps[id]))
	copy(deps, s.deps[id])
	return deps, nil
}
