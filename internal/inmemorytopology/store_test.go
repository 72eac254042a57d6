package inmemorytopology

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/taskid"
	"github.com/specialistvlad/etlgen/internal/topologystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGetInstance(t *testing.T) {
	s := New()
	ctx := context.Background()
	inst := constraint.NewInstance("DataDownloaded", uuid.New(), "Dataset", nil)

	// Add the instance
	err := s.AddInstance(ctx, inst)
	require.NoError(t, err)

	// Get the instance
	got, ok := s.GetInstance(ctx, inst.ID())
	require.True(t, ok)
	assert.Equal(t, inst, got)

	_, ok = s.GetInstance(ctx, taskid.New(uuid.New(), "Dataset"))
	assert.False(t, ok)
}

func TestAddInstance_Duplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	root := uuid.New()

	require.NoError(t, s.AddInstance(ctx, constraint.NewInstance("K", root, "Dataset", nil)))
	err := s.AddInstance(ctx, constraint.NewInstance("K", root, "Dataset", nil))
	assert.ErrorIs(t, err, topologystore.ErrDuplicateInstance)
}

func TestDependencies(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := constraint.NewInstance("A", uuid.New(), "Universe", nil)
	b := constraint.NewInstance("A", uuid.New(), "Universe", nil)
	c := constraint.NewInstance("C", uuid.New(), "Dataset", nil)
	for _, inst := range []*constraint.Instance{a, b, c} {
		require.NoError(t, s.AddInstance(ctx, inst))
	}

	// c depends on b, then a
	require.NoError(t, s.AddDependency(ctx, b.ID(), c.ID()))
	require.NoError(t, s.AddDependency(ctx, a.ID(), c.ID()))
	require.NoError(t, s.AddDependency(ctx, a.ID(), c.ID()), "repeated edges are idempotent")

	deps, err := s.DependenciesOf(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, []taskid.ID{b.ID(), a.ID()}, deps)

	deps, err = s.DependenciesOf(ctx, a.ID())
	require.NoError(t, err)
	assert.Empty(t, deps)

	assert.Equal(t, []*constraint.Instance{a, b}, s.InstancesOfKind(ctx, "A"))
	assert.Equal(t, []*constraint.Instance{a, b, c}, s.AllInstances(ctx))
}

func TestDependencies_Errors(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := constraint.NewInstance("A", uuid.New(), "Universe", nil)
	require.NoError(t, s.AddInstance(ctx, a))
	ghost := taskid.New(uuid.New(), "Universe")

	assert.ErrorContains(t, s.AddDependency(ctx, ghost, a.ID()), "source instance")
	assert.ErrorContains(t, s.AddDependency(ctx, a.ID(), ghost), "target instance")
	assert.ErrorContains(t, s.AddDependency(ctx, a.ID(), a.ID()), "cannot depend on itself")

	_, err := s.DependenciesOf(ctx, ghost)
	assert.ErrorContains(t, err, "not found in topology")
}
