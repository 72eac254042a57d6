package concept

import (
	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
)

// Node is the concrete Concept implementation produced by the document
// loader. Nodes are assembled with NewNode and Add before a Tree is built;
// the only mutation afterwards is UUID backfill.
type Node struct {
	id       uuid.UUID
	typeName string
	tag      string
	index    int
	attrs    map[string]cty.Value
	children []Child
}

// NewNode creates a node of the given type without identity, tag or children.
func NewNode(typeName string) *Node {
	return &Node{
		typeName: typeName,
		attrs:    make(map[string]cty.Value),
	}
}

// WithUUID sets an explicit identity.
func (n *Node) WithUUID(id uuid.UUID) *Node {
	n.id = id
	return n
}

// WithTag sets the human label.
func (n *Node) WithTag(tag string) *Node {
	n.tag = tag
	return n
}

// WithAttr sets a single attribute.
func (n *Node) WithAttr(name string, val cty.Value) *Node {
	n.attrs[name] = val
	return n
}

// Add appends children held in the given field. Each child's index is its
// position among the already-added siblings of the same type.
func (n *Node) Add(field string, children ...*Node) *Node {
	for _, child := range children {
		child.index = n.countChildrenOfType(child.typeName)
		n.children = append(n.children, Child{Field: field, Concept: child})
	}
	return n
}

func (n *Node) countChildrenOfType(typeName string) int {
	count := 0
	for _, c := range n.children {
		if c.Concept.Type() == typeName {
			count++
		}
	}
	return count
}

func (n *Node) UUID() uuid.UUID                  { return n.id }
func (n *Node) Type() string                     { return n.typeName }
func (n *Node) Tag() string                      { return n.tag }
func (n *Node) IndexAsChild() int                { return n.index }
func (n *Node) Children() []Child                { return n.children }
func (n *Node) Attributes() map[string]cty.Value { return n.attrs }

// childNodes returns the children that are themselves *Node values.
func (n *Node) childNodes() []*Node {
	nodes := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		if cn, ok := c.Concept.(*Node); ok {
			nodes = append(nodes, cn)
		}
	}
	return nodes
}
