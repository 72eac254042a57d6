// Package registry provides the central "glue" for constraint kinds.
//
// The Registry maps constraint kind names to the Builder that attaches them to
// concepts and to the Programs that implement them in each dialect. It is
// populated once at startup, by Go modules through the Module interface and
// by the document loader, and then validated so that every program-requiring
// kind can actually be resolved.
//
// RelevantBuilders answers the question the compiler starts with: given the
// kinds a user asked for, which builders take part, and in which order.
package registry
