// Package plan is the output of a compilation: an ordered list of
// ConstraintBlocks handed to the rendering layer.
//
// A ConstraintBlock holds the tasks of one constraint kind, split into one
// CodeBlock per dialect. Each CodeBlock is a sequence of entries that are
// either a standalone Task or a ForLoop standing for several tasks that only
// differ in some of their parameters and dependencies.
//
// Tasks address each other through TaskVal slots: either a subscript into a
// shared collection (`tasks["name"]`) or a plain identifier when compression
// is disabled.
package plan
