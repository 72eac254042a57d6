package registry

import (
	"github.com/google/uuid"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/constraint"
)

// Builder describes one constraint kind.
type Builder interface {
	// Kind is the unique name of the constraint kind.
	Kind() string
	// RequiredKinds names the kinds whose instances may become children of
	// this kind's instances.
	RequiredKinds() []string
	// RootType is the concept type instances are attached to.
	RootType() string
	// RequiresProgram is false for purely structural ("dummy") kinds.
	RequiresProgram() bool
	// ShouldAdd decides whether the kind applies to root.
	ShouldAdd(root concept.Concept, ancestry []concept.AncestorRecord) (bool, error)
	// RequiredRoots lists extra root UUIDs whose constraints are children of
	// this instance even when they are outside the root's family tree.
	RequiredRoots(root concept.Concept, ancestry []concept.AncestorRecord) ([]uuid.UUID, error)
	// Build creates the instance for rootUUID from the retained candidates.
	Build(rootUUID uuid.UUID, candidates []*constraint.Instance) (*constraint.Instance, error)
}

// Definition is a Builder assembled from plain values and optional hooks.
type Definition struct {
	Name        string
	Requires    []string
	Root        string
	Dummy       bool
	Description string
	// When defaults to always true.
	When func(root concept.Concept, ancestry []concept.AncestorRecord) (bool, error)
	// Roots defaults to no extra roots.
	Roots func(root concept.Concept, ancestry []concept.AncestorRecord) ([]uuid.UUID, error)
}

func (d *Definition) Kind() string            { return d.Name }
func (d *Definition) RequiredKinds() []string { return d.Requires }
func (d *Definition) RootType() string        { return d.Root }
func (d *Definition) RequiresProgram() bool   { return !d.Dummy }

func (d *Definition) ShouldAdd(root concept.Concept, ancestry []concept.AncestorRecord) (bool, error) {
	if d.When == nil {
		return true, nil
	}
	return d.When(root, ancestry)
}

func (d *Definition) RequiredRoots(root concept.Concept, ancestry []concept.AncestorRecord) ([]uuid.UUID, error) {
	if d.Roots == nil {
		return nil, nil
	}
	return d.Roots(root, ancestry)
}

func (d *Definition) Build(rootUUID uuid.UUID, candidates []*constraint.Instance) (*constraint.Instance, error) {
	return BuildInstance(d, rootUUID, candidates), nil
}

// BuildInstance is the default factory: the instance depends on every
// candidate it was given.
func BuildInstance(b Builder, rootUUID uuid.UUID, candidates []*constraint.Instance) *constraint.Instance {
	inst := constraint.NewInstance(b.Kind(), rootUUID, b.RootType(), nil)
	for _, c := range candidates {
		inst.Dependencies = append(inst.Dependencies, c.ID())
	}
	return inst
}
