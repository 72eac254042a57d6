// Package dag provides a small directed acyclic graph keyed by string IDs.
//
// It is used twice during a compilation: once over constraint kinds, where a
// topological order decides in which order kinds are attached and satisfied,
// and once over constraint instances when the scheduler needs a dependency
// order of individual tasks.
//
// Node insertion order is remembered so every ordering the package returns is
// deterministic: among nodes that become ready at the same time, the one added
// first comes first.
package dag
