// Package scheduler turns the static constraint graph into an ordered plan.
//
// # How It Works
//
// The scheduler is a two-level state machine:
//  1. One constraint.State is created per instance of the topology store.
//  2. Purely structural ("dummy") states are simplified away: a dummy with a
//     single dependency is spliced out, then dummies without dependencies are
//     dropped. Both passes run to a fixed point and keep every dependency path
//     between program-requiring states.
//  3. Kinds are processed one satisfiable block at a time. A kind is
//     satisfiable once every kind it requires has been processed, which
//     guarantees that all instance-level dependencies of its states are
//     already satisfied when the block starts.
//  4. Inside a block each state receives its key, has its program resolved
//     against the dialect preference list, is marked satisfied and notifies
//     its dependents.
//  5. The block's resolved states are grouped by dialect, identical calls are
//     folded into one representative, every survivor is named, optionally
//     compressed into loops, and emitted as a plan.ConstraintBlock.
//
// # Relationship with Other Components
//
//   - **Topology Store:** read-only source of instances and edges
//   - **State Store:** arena of the mutable per-instance state
//   - **Registry:** builders (dummy or not) and programs per dialect
//   - **Naming / Compress:** task names and loop folding
package scheduler
