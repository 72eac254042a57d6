// Package inmemorystore provides an ephemeral, in-memory implementation of
// the statestore.Store interface.
//
// # Purpose
//
// This package implements the scheduling state store for local compilations.
// States live in an arena: a slice holding them in insertion order plus an
// index from task ID to slot. Removal leaves a tombstone so the slots of the
// remaining states never move.
//
// # Characteristics
//
//   - **Ephemeral:** created fresh for each compilation, not persistent
//   - **Ordered:** iteration always follows insertion order
//   - **Fast Lookups:** O(1) retrieval by task ID
//
// # Concurrency Model
//
// The scheduler mutates states from a single goroutine. The RWMutex only
// guards the arena structure itself so that readers such as progress
// reporting can take consistent snapshots.
package inmemorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/statestore"
	"github.com/specialistvlad/etlgen/internal/taskid"
)

// Store is an arena-backed implementation of statestore.Store.
type Store struct {
	mu    sync.RWMutex
	slots []*constraint.State // nil marks a removed state
	index map[taskid.ID]int
	live  int
}

// New creates a new, empty in-memory state store.
func New() statestore.Store {
	return &Store{index: make(map[taskid.ID]int)}
}

// Put appends a state to the arena.
func (s *Store) Put(ctx context.Context, st *constraint.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := st.ID()
	if _, exists := s.index[id]; exists {
		return fmt.Errorf("%w: %s", statestore.ErrDuplicateState, id)
	}
	s.index[id] = len(s.slots)
	s.slots = append(s.slots, st)
	s.live++
	return nil
}

// Get retrieves a state by ID.
func (s *Store) Get(ctx context.Context, id taskid.ID) (*constraint.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.slots[slot], true
}

// Remove tombstones the slot of id.
func (s *Store) Remove(ctx context.Context, id taskid.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.index[id]
	if !ok {
		return false
	}
	s.slots[slot] = nil
	delete(s.index, id)
	s.live--
	return true
}

// All returns the live states in insertion order.
func (s *Store) All(ctx context.Context) []*constraint.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*constraint.State, 0, s.live)
	for _, st := range s.slots {
		if st != nil {
			out = append(out, st)
		}
	}
	return out
}

// OfKind returns the live states of kind in insertion order.
func (s *Store) OfKind(ctx context.Context, kind string) []*constraint.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*constraint.State
	for _, st := range s.slots {
		if st != nil && st.Kind() == kind {
			out = append(out, st)
		}
	}
	return out
}

// Len returns the number of live states.
func (s *Store) Len(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}
