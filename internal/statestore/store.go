// Package statestore defines the interface for storing the mutable
// scheduling state of constraint instances during one compilation.
//
// # Why State Store Exists
//
// The state store isolates **mutable scheduling state** (pending and resolved
// dependencies, keys, task names, resolved calls) from the **immutable
// constraint graph** managed by topologystore.
//
// # Lifecycle and Usage
//
// The state store is:
//  1. **Created** once per compilation session
//  2. **Seeded** by the scheduler with one constraint.State per instance
//  3. **Rewritten** by the dummy-task simplification passes, which remove states
//  4. **Mutated** as the scheduler satisfies states block by block
//  5. **Discarded** when the session ends
//
// # State Transitions
//
// A state is pending until all of its dependencies are resolved, then it is
// satisfied (and frozen). Removed states never come back.
package statestore

import (
	"context"
	"errors"

	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/taskid"
)

// ErrDuplicateState is returned by Put when a state with the same ID exists.
var ErrDuplicateState = errors.New("duplicate constraint state")

// Store is the interface for the scheduling state arena.
//
// Listings are in insertion order; removed states are skipped.
type Store interface {
	// Put adds a state. Adding an ID twice returns ErrDuplicateState.
	Put(ctx context.Context, s *constraint.State) error

	// Get returns the state of id, if it is still present.
	Get(ctx context.Context, id taskid.ID) (*constraint.State, bool)

	// Remove deletes the state of id and reports whether it was present.
	Remove(ctx context.Context, id taskid.ID) bool

	// All returns every present state.
	All(ctx context.Context) []*constraint.State

	// OfKind returns the present states of one constraint kind.
	OfKind(ctx context.Context, kind string) []*constraint.State

	// Len is the number of present states.
	Len(ctx context.Context) int
}
