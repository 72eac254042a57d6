package taskid

import (
	"strings"

	"github.com/google/uuid"
)

// ID is the structured identity of a constraint instance.
type ID struct {
	UUID     uuid.UUID
	RootType string
}

// New creates an ID from its parts.
func New(id uuid.UUID, rootType string) ID {
	return ID{UUID: id, RootType: rootType}
}

// String serializes the ID into its canonical `RootType:uuid` form.
func (id ID) String() string {
	return id.RootType + ":" + id.UUID.String()
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id.UUID == uuid.Nil && id.RootType == ""
}

// Segment returns the first dash-separated group of the UUID, the short
// suffix used in generated task names.
func (id ID) Segment() string {
	s := id.UUID.String()
	if i := strings.IndexByte(s, '-'); i >= 0 {
		return s[:i]
	}
	return s
}

// Less orders IDs by root type, then UUID bytes.
func (id ID) Less(other ID) bool {
	if id.RootType != other.RootType {
		return id.RootType < other.RootType
	}
	return id.UUID.String() < other.UUID.String()
}
