package concept

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/dchest/siphash"
	"github.com/google/uuid"
)

// IDSource produces the identity of a childless node declared without one.
// The path argument is the root-to-node sequence of `type[index]` segments.
type IDSource func(path string) uuid.UUID

// RandomIDs assigns a fresh random UUID to every childless node.
func RandomIDs(string) uuid.UUID {
	return uuid.New()
}

// stableNamespace scopes path-derived identities.
var stableNamespace = uuid.MustParse("6f0c5a8e-3c1b-4f7e-9a55-2d8b1e4c7a10")

// StableIDs derives the identity of a childless node from its position in
// the tree, so the same document always yields the same UUIDs.
func StableIDs(path string) uuid.UUID {
	return uuid.NewSHA1(stableNamespace, []byte(path))
}

// Backfill assigns a UUID to every node of the tree rooted at root that was
// declared without one. Parents are derived from the order-independent
// SipHash-128 of their children's UUIDs, so structurally identical subtrees
// receive the same identity.
func Backfill(root *Node, src IDSource) {
	if src == nil {
		src = RandomIDs
	}
	backfill(root, fmt.Sprintf("%s[%d]", root.typeName, root.index), src)
}

func backfill(n *Node, path string, src IDSource) {
	children := n.childNodes()
	for _, child := range children {
		backfill(child, fmt.Sprintf("%s.%s[%d]", path, child.typeName, child.index), src)
	}
	if n.id != uuid.Nil {
		return
	}
	if len(n.children) == 0 {
		n.id = src(path)
		return
	}
	ids := make([]uuid.UUID, 0, len(n.children))
	for _, c := range n.children {
		ids = append(ids, c.Concept.UUID())
	}
	n.id = DeriveUUID(ids)
}

// DeriveUUID hashes a set of UUIDs into a new one. The result does not
// depend on the order of ids.
func DeriveUUID(ids []uuid.UUID) uuid.UUID {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	buf := make([]byte, 0, 16*len(sorted))
	for _, id := range sorted {
		buf = append(buf, id[:]...)
	}

	hi, lo := siphash.Hash128(0, 0, buf)
	var out uuid.UUID
	binary.BigEndian.PutUint64(out[:8], hi)
	binary.BigEndian.PutUint64(out[8:], lo)
	return out
}

// PathString renders a root-to-node path for diagnostics.
func PathString(records []AncestorRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		if r.Tag != "" {
			parts = append(parts, fmt.Sprintf("%s(%s)", r.Type, r.Tag))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s[%d]", r.Type, r.Index))
	}
	return strings.Join(parts, ".")
}
