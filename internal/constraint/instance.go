package constraint

import (
	"github.com/google/uuid"
	"github.com/specialistvlad/etlgen/internal/taskid"
)

var instanceNamespace = uuid.MustParse("0b9d4b52-7f0e-4c8e-a3f1-5e2a6c9d8b71")

// InstanceUUID is the identity of the instance of kind attached to root.
// The same pair always yields the same UUID.
func InstanceUUID(kind string, root uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(instanceNamespace, []byte(kind+"/"+root.String()))
}

// Instance is one application of a constraint kind to one root concept.
type Instance struct {
	UUID     uuid.UUID
	Kind     string
	RootUUID uuid.UUID
	RootType string
	// Dependencies are the retained candidate children, in the order the
	// builder received them.
	Dependencies []taskid.ID
}

// NewInstance builds an instance with a derived UUID.
func NewInstance(kind string, rootUUID uuid.UUID, rootType string, deps []taskid.ID) *Instance {
	return &Instance{
		UUID:         InstanceUUID(kind, rootUUID),
		Kind:         kind,
		RootUUID:     rootUUID,
		RootType:     rootType,
		Dependencies: deps,
	}
}

// ID returns the task identity of the instance.
func (i *Instance) ID() taskid.ID {
	return taskid.New(i.UUID, i.RootType)
}
