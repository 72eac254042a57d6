package concept

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnknownConcept is returned when a key is not part of the tree.
var ErrUnknownConcept = errors.New("unknown concept")

// DuplicateKeyError reports two nodes sharing the same (UUID, type) key.
type DuplicateKeyError struct {
	Key Key
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate concept key %s:%s", e.Key.Type, e.Key.UUID)
}

// Tree is an immutable index over a concept tree.
type Tree struct {
	root      Concept
	order     []Concept
	byKey     map[Key]Concept
	byType    map[string][]Concept
	ancestors map[Key][]AncestorRecord
	family    map[Key]FamilyTree
}

// NewTree indexes the tree rooted at root. Every node must already carry a
// UUID, see Backfill.
func NewTree(root Concept) (*Tree, error) {
	if root == nil {
		return nil, errors.New("concept tree has no root")
	}
	t := &Tree{
		root:      root,
		byKey:     make(map[Key]Concept),
		byType:    make(map[string][]Concept),
		ancestors: make(map[Key][]AncestorRecord),
		family:    make(map[Key]FamilyTree),
	}

	type item struct {
		c    Concept
		path []AncestorRecord
	}
	queue := []item{{c: root, path: []AncestorRecord{RecordOf(root)}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		key := KeyOf(cur.c)
		if key.UUID == uuid.Nil {
			return nil, fmt.Errorf("concept %s at %s has no uuid", key.Type, PathString(cur.path))
		}
		if _, exists := t.byKey[key]; exists {
			return nil, &DuplicateKeyError{Key: key}
		}
		t.order = append(t.order, cur.c)
		t.byKey[key] = cur.c
		t.byType[key.Type] = append(t.byType[key.Type], cur.c)
		t.ancestors[key] = cur.path

		for _, child := range cur.c.Children() {
			path := make([]AncestorRecord, len(cur.path), len(cur.path)+1)
			copy(path, cur.path)
			queue = append(queue, item{c: child.Concept, path: append(path, RecordOf(child.Concept))})
		}
	}

	t.indexFamilies()
	return t, nil
}

// indexFamilies precomputes the FamilyTree of every node: the node itself,
// its ancestors, and everything below it.
func (t *Tree) indexFamilies() {
	for _, c := range t.order {
		key := KeyOf(c)
		ft := make(FamilyTree)
		for _, rec := range t.ancestors[key] {
			ft.add(rec.Type, rec.UUID)
		}
		t.family[key] = ft
	}
	// Every node is a descendant of each of its ancestors.
	for _, c := range t.order {
		key := KeyOf(c)
		path := t.ancestors[key]
		for _, anc := range path[:len(path)-1] {
			t.family[Key{UUID: anc.UUID, Type: anc.Type}].add(key.Type, key.UUID)
		}
	}
}

// Root returns the root concept.
func (t *Tree) Root() Concept { return t.root }

// Len is the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.order) }

// Nodes returns every node in breadth-first order.
func (t *Tree) Nodes() []Concept {
	out := make([]Concept, len(t.order))
	copy(out, t.order)
	return out
}

// Get looks up a node by key.
func (t *Tree) Get(key Key) (Concept, bool) {
	c, ok := t.byKey[key]
	return c, ok
}

// ByType returns all nodes of the given type in breadth-first order.
func (t *Tree) ByType(typeName string) []Concept {
	return t.byType[typeName]
}

// Types returns the concept types present in the tree, in order of first
// appearance.
func (t *Tree) Types() []string {
	seen := make(map[string]bool)
	var types []string
	for _, c := range t.order {
		if !seen[c.Type()] {
			seen[c.Type()] = true
			types = append(types, c.Type())
		}
	}
	return types
}

// Ancestors returns the root-to-node path of the given node. The first record
// is the tree root and the last one is the node itself.
func (t *Tree) Ancestors(key Key) ([]AncestorRecord, error) {
	path, ok := t.ancestors[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrUnknownConcept, key.Type, key.UUID)
	}
	return path, nil
}

// Family returns the FamilyTree of the given node.
func (t *Tree) Family(key Key) (FamilyTree, error) {
	ft, ok := t.family[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrUnknownConcept, key.Type, key.UUID)
	}
	return ft, nil
}
