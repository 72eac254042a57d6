package testutil

import (
	"testing"

	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/registry"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// NewTree backfills root with stable identities and indexes it.
func NewTree(t *testing.T, root *concept.Node) *concept.Tree {
	t.Helper()
	concept.Backfill(root, concept.StableIDs)
	tree, err := concept.NewTree(root)
	require.NoError(t, err)
	return tree
}

// ConstProgram resolves every instance to the same call without parameters.
func ConstProgram(d program.Dialect, call string) program.Program {
	return CallProgram(d, call, func(concept.Concept) program.Params { return program.Params{} })
}

// TagProgram resolves to call with the root tag as the single argument.
func TagProgram(d program.Dialect, call string) program.Program {
	return CallProgram(d, call, func(root concept.Concept) program.Params {
		return program.Params{Args: []cty.Value{cty.StringVal(root.Tag())}}
	})
}

// CallProgram resolves to call with parameters computed from the root.
func CallProgram(d program.Dialect, call string, params func(root concept.Concept) program.Params) program.Program {
	return program.Func{
		Lang: d,
		Compute: func(root concept.Concept, _ []concept.AncestorRecord, _ *program.Context, _ program.Target) (program.Resolution, error) {
			return program.Resolution{
				Preamble: "def " + call + "(*args, **kwargs): ...",
				Call:     call,
				Params:   params(root),
			}, nil
		},
	}
}

// SimpleModule is a test helper for registering a handful of constraint
// kinds and their programs in one go.
type SimpleModule struct {
	Builders []registry.Builder
	Programs map[string][]program.Program
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	for _, b := range m.Builders {
		r.RegisterBuilder(b)
	}
	for _, b := range m.Builders {
		for _, p := range m.Programs[b.Kind()] {
			r.RegisterProgram(b.Kind(), p)
		}
	}
}
