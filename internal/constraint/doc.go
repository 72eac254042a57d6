// Package constraint holds the two records the compiler revolves around:
// Instance, the static application of a constraint kind to one root concept,
// and State, its mutable companion during scheduling.
package constraint
