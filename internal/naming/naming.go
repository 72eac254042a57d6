// Package naming derives human-readable, globally unique task names from a
// constraint kind, the ancestor path of its root concept and its UUID.
package naming

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
	"github.com/specialistvlad/etlgen/internal/concept"
)

// TaskKey computes the key of a task attached to the last node of ancestors.
//
// A tagged root uses its tag verbatim. Otherwise the ancestors are walked
// from the root concept upwards, collecting `type_index` for every node with a
// nonzero sibling index and stopping at the first tagged ancestor, whose tag
// becomes the leading segment. Segments are joined root-to-leaf with "__".
func TaskKey(ancestors []concept.AncestorRecord) string {
	if len(ancestors) == 0 {
		return ""
	}
	self := ancestors[len(ancestors)-1]
	if self.Tag != "" {
		return self.Tag
	}

	var segments []string
	for i := len(ancestors) - 1; i >= 0; i-- {
		a := ancestors[i]
		if a.Tag != "" {
			segments = append(segments, a.Tag)
			break
		}
		if a.Index > 0 {
			segments = append(segments, fmt.Sprintf("%s_%d", strcase.ToSnake(a.Type), a.Index))
		}
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, "__")
}

// UUIDSegment is the first dash-separated group of id.
func UUIDSegment(id uuid.UUID) string {
	s := id.String()
	head, _, _ := strings.Cut(s, "-")
	return head
}

// FullyQualified renders `{snake(kind)}[__{key}]__{segment}`.
func FullyQualified(kind, key, segment string) string {
	var b strings.Builder
	b.WriteString(strcase.ToSnake(kind))
	if key != "" {
		b.WriteString("__")
		b.WriteString(key)
	}
	b.WriteString("__")
	b.WriteString(segment)
	return b.String()
}

// TaskName is FullyQualified with the short UUID segment.
func TaskName(kind, key string, id uuid.UUID) string {
	return FullyQualified(kind, key, UUIDSegment(id))
}

// Namer hands out task names and guarantees that no two distinct UUIDs
// receive the same name within one compilation.
type Namer struct {
	byName map[string]uuid.UUID
	byID   map[uuid.UUID]string
}

// NewNamer returns an empty Namer.
func NewNamer() *Namer {
	return &Namer{
		byName: make(map[string]uuid.UUID),
		byID:   make(map[uuid.UUID]string),
	}
}

// Name returns the task name for id. Asking twice for the same id returns
// the same name. When the short form is already taken by another id, the
// whole UUID hex is used as the segment.
func (n *Namer) Name(kind, key string, id uuid.UUID) string {
	if name, ok := n.byID[id]; ok {
		return name
	}
	name := TaskName(kind, key, id)
	if owner, taken := n.byName[name]; taken && owner != id {
		name = FullyQualified(kind, key, strings.ReplaceAll(id.String(), "-", ""))
	}
	n.byName[name] = id
	n.byID[id] = name
	return name
}
