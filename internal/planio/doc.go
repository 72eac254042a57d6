// Package planio serializes a compiled plan for the rendering layer.
//
// The document mirrors the plan structure: constraint blocks in satisfaction
// order, each split into per-dialect code blocks holding statements (single
// tasks or loops), the distinct preambles and imports they need, and the
// table that maps instance UUIDs to task slots. Parameter values are written
// as plain YAML/JSON values.
package planio
