// Package concept implements the heterogeneous tree of typed nodes that a
// compilation runs over: datasets, assets, storage, users, and whatever else
// the input document describes.
//
// Every node exposes the Concept capability. The package provides a concrete
// Node implementation used by the document loader and by tests, UUID backfill
// for nodes declared without an identity, and the immutable Tree index which
// answers the structural questions the compiler asks:
//
//   - Ancestors: the root-to-node path of AncestorRecords for any node, computed
//     breadth-first from the root.
//   - ByType: every node of a given concept type, in breadth-first order.
//   - Family: the FamilyTree of a node, i.e. all of its ancestors and
//     descendants (itself included), indexed by type.
//
// A Tree is built once and never mutated afterwards, so concurrent readers are
// safe without locking.
package concept
