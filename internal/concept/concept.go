package concept

import (
	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
)

// Concept is the capability every node of the input tree provides.
type Concept interface {
	// UUID is the stable identity of the node.
	UUID() uuid.UUID
	// Type is the concrete variant name, e.g. "StaticDataTable".
	Type() string
	// Tag is the user-supplied label. The empty string means no tag.
	Tag() string
	// IndexAsChild is the position among siblings of the same type.
	IndexAsChild() int
	// Children lists the owned child nodes in declaration order.
	Children() []Child
	// Attributes are the scalar properties of the node, available to
	// predicates and programs.
	Attributes() map[string]cty.Value
}

// Child is one owned child of a concept together with the field it is held in.
type Child struct {
	Field   string
	Concept Concept
}

// Key identifies a concept inside a Tree.
type Key struct {
	UUID uuid.UUID
	Type string
}

// KeyOf returns the tree key of a concept.
func KeyOf(c Concept) Key {
	return Key{UUID: c.UUID(), Type: c.Type()}
}

// AncestorRecord is a snapshot of one node on a root-to-node path.
type AncestorRecord struct {
	UUID  uuid.UUID
	Type  string
	Tag   string
	Index int
}

// RecordOf snapshots a concept.
func RecordOf(c Concept) AncestorRecord {
	return AncestorRecord{
		UUID:  c.UUID(),
		Type:  c.Type(),
		Tag:   c.Tag(),
		Index: c.IndexAsChild(),
	}
}
