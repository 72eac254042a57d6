// Package program describes how a constraint instance is turned into an
// executable call in a target dialect.
//
// A Program belongs to one constraint kind and one Dialect. Resolving it for
// an instance yields a Resolution: the preamble that defines the callable, the
// call name, the positional and keyword parameters, plus imports and string
// exports. Two resolutions with equal DedupKey are interchangeable, which is
// what lets the scheduler collapse identical tasks.
package program
