package concept

import "github.com/google/uuid"

// FamilyTree is the set of ancestors and descendants of a node, itself
// included, indexed by concept type.
type FamilyTree map[string]map[uuid.UUID]struct{}

func (f FamilyTree) add(typeName string, id uuid.UUID) {
	set, ok := f[typeName]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		f[typeName] = set
	}
	set[id] = struct{}{}
}

// Contains reports whether the node (typeName, id) belongs to the family.
func (f FamilyTree) Contains(typeName string, id uuid.UUID) bool {
	_, ok := f[typeName][id]
	return ok
}
