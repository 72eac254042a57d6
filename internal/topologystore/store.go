// Package topologystore defines the interface for storing and retrieving the
// static constraint graph: every constraint instance the graph builder
// attached and the dependency edges between them.
//
// # Why Topology Store Exists
//
// The topology store separates the **immutable constraint graph** produced by
// the graph builder from the **mutable scheduling state** (satisfaction,
// resolved calls, names) managed by statestore.
//
//   - **Clarity:** the builder only writes structure, the scheduler only reads it
//   - **Testability:** the graph can be validated before any scheduling happens
//   - **Flexibility:** different storage backends can be swapped
//
// # Lifecycle and Usage
//
// The topology store is:
//  1. **Created** once per compilation session
//  2. **Populated** by the graph builder, kind by kind in requirement order
//  3. **Read-only** once scheduling starts
//  4. **Discarded** when the session ends
package topologystore

import (
	"context"
	"errors"

	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/taskid"
)

// ErrDuplicateInstance is returned by AddInstance when an instance with the
// same task ID was already stored.
var ErrDuplicateInstance = errors.New("duplicate constraint instance")

// Store is the interface for managing the static constraint graph.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use. The graph builder evaluates
// roots in parallel, even though writes are applied from a single goroutine.
//
// # Ordering
//
// Every listing method returns instances and IDs in insertion order, so two
// compilations of the same input observe the same sequence.
type Store interface {
	// AddInstance registers a constraint instance.
	//
	// Adding a second instance with an ID already present returns an error
	// wrapping ErrDuplicateInstance; this indicates a faulty builder.
	AddInstance(ctx context.Context, inst *constraint.Instance) error

	// AddDependency records that 'to' depends on 'from'. Both instances must
	// already exist.
	AddDependency(ctx context.Context, from, to taskid.ID) error

	// GetInstance retrieves a single instance by its task ID.
	GetInstance(ctx context.Context, id taskid.ID) (*constraint.Instance, bool)

	// AllInstances returns a snapshot of every instance.
	AllInstances(ctx context.Context) []*constraint.Instance

	// InstancesOfKind returns the instances of one constraint kind.
	InstancesOfKind(ctx context.Context, kind string) []*constraint.Instance

	// DependenciesOf returns the IDs 'id' directly depends on, or an error if
	// 'id' is unknown.
	DependenciesOf(ctx context.Context, id taskid.ID) ([]taskid.ID, error)
}
