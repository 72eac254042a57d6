package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/etlgen/internal/builder"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/constraint"
	"github.com/specialistvlad/etlgen/internal/inmemorystore"
	"github.com/specialistvlad/etlgen/internal/inmemorytopology"
	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/registry"
	"github.com/specialistvlad/etlgen/internal/statestore"
	"github.com/specialistvlad/etlgen/internal/taskid"
	"github.com/specialistvlad/etlgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type compiled struct {
	blocks []*plan.ConstraintBlock
	states statestore.Store
	tree   *concept.Tree
}

func compile(t *testing.T, root *concept.Node, mod *testutil.SimpleModule, requested []string, opts ...Option) (*compiled, error) {
	t.Helper()
	ctx := testutil.QuietContext()

	reg := registry.New()
	reg.Load(ctx, mod)
	builders, err := reg.RelevantBuilders(requested)
	if err != nil {
		return nil, err
	}

	tree := testutil.NewTree(t, root)
	topology := inmemorytopology.New()
	require.NoError(t, builder.New(topology).Build(ctx, tree, builders))

	states := inmemorystore.New()
	blocks, err := New(reg, topology, states, opts...).Run(ctx, tree, builders)
	return &compiled{blocks: blocks, states: states, tree: tree}, err
}

func blockKinds(blocks []*plan.ConstraintBlock) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

// position maps every task name to the index of the block that emits it.
func position(blocks []*plan.ConstraintBlock) map[string]int {
	pos := make(map[string]int)
	for i, b := range blocks {
		for _, task := range b.Tasks() {
			pos[task.Name] = i
		}
	}
	return pos
}

func datasets(tags ...string) *concept.Node {
	root := concept.NewNode("Universe")
	for _, tag := range tags {
		root.Add("datasets", concept.NewNode("Dataset").WithTag(tag).WithAttr("url", cty.StringVal("s3://"+tag)))
	}
	return root
}

func TestRun_ChainOfKinds(t *testing.T) {
	// --- Arrange ---
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "C", Root: "Universe", Requires: []string{"B"}},
			&registry.Definition{Name: "B", Root: "Universe", Requires: []string{"A"}},
			&registry.Definition{Name: "A", Root: "Universe"},
		},
		Programs: map[string][]program.Program{
			"A": {testutil.ConstProgram(program.Python, "a")},
			"B": {testutil.ConstProgram(program.Python, "b")},
			"C": {testutil.ConstProgram(program.Python, "c")},
		},
	}

	// --- Act ---
	out, err := compile(t, concept.NewNode("Universe").WithTag("main"), mod, []string{"C"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, blockKinds(out.blocks))

	tasks := out.blocks[2].Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "c", tasks[0].Call)
	require.Len(t, tasks[0].Dependencies, 1)
	assert.Regexp(t, `^b__main__[0-9a-f]{8}$`, tasks[0].Dependencies[0])
	assert.Equal(t, plan.DefaultCollection, tasks[0].Val.Collection)
}

func TestRun_KindWithoutMatchesIsAbsent(t *testing.T) {
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "Download", Root: "Dataset"},
			&registry.Definition{
				Name: "Never", Root: "Dataset", Requires: []string{"Download"},
				When: func(concept.Concept, []concept.AncestorRecord) (bool, error) { return false, nil },
			},
		},
		Programs: map[string][]program.Program{
			"Download": {testutil.TagProgram(program.Python, "download")},
			"Never":    {testutil.ConstProgram(program.Python, "never")},
		},
	}

	out, err := compile(t, datasets("wine", "beer"), mod, []string{"Never"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Download"}, blockKinds(out.blocks))
}

func TestRun_IdenticalCallsAreFolded(t *testing.T) {
	// --- Arrange ---
	// Both datasets resolve to the same call; the per-universe report
	// depends on both of them.
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "Download", Root: "Dataset"},
			&registry.Definition{Name: "Report", Root: "Universe", Requires: []string{"Download"}},
		},
		Programs: map[string][]program.Program{
			"Download": {testutil.ConstProgram(program.Python, "download_all")},
			"Report":   {testutil.ConstProgram(program.Python, "report")},
		},
	}

	// --- Act ---
	out, err := compile(t, datasets("wine", "beer"), mod, []string{"Report"})

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{"Download", "Report"}, blockKinds(out.blocks))

	downloads := out.blocks[0].Tasks()
	require.Len(t, downloads, 1, "identical calls collapse to one representative")
	rep := downloads[0]
	require.Len(t, rep.Aliases, 1)

	ids := out.blocks[0].Identifiers()
	assert.Len(t, ids, 2)
	assert.Equal(t, ids[rep.ID.UUID], ids[rep.Aliases[0].UUID], "the folded duplicate resolves to the representative's slot")

	report := out.blocks[1].Tasks()[0]
	assert.Equal(t, []string{rep.Name}, report.Dependencies)

	// The report state itself points at the representative only.
	var reportState *constraint.State
	for _, st := range out.states.OfKind(context.Background(), "Report") {
		reportState = st
	}
	require.NotNil(t, reportState)
	assert.Equal(t, []taskid.ID{rep.ID}, reportState.SatisfiedDependencies())
}

func TestRun_DifferentCallsAreCompressedIntoLoop(t *testing.T) {
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{&registry.Definition{Name: "Download", Root: "Dataset"}},
		Programs: map[string][]program.Program{"Download": {testutil.TagProgram(program.Python, "download")}},
	}

	out, err := compile(t, datasets("wine", "beer", "cider"), mod, []string{"Download"})
	require.NoError(t, err)
	require.Len(t, out.blocks, 1)

	cbs := out.blocks[0].CodeBlocks()
	require.Len(t, cbs, 1)
	require.Len(t, cbs[0].Entries, 1)
	loop := cbs[0].Entries[0].Loop
	require.NotNil(t, loop)
	assert.Len(t, loop.Items, 3)
	assert.Equal(t, "download", loop.Call)

	t.Run("without compression", func(t *testing.T) {
		out, err := compile(t, datasets("wine", "beer", "cider"), mod, []string{"Download"}, WithoutCompression())
		require.NoError(t, err)
		entries := out.blocks[0].CodeBlocks()[0].Entries
		require.Len(t, entries, 3)
		for _, e := range entries {
			require.NotNil(t, e.Task)
			assert.False(t, e.Task.Val.IsSubscript())
		}
	})
}

func TestRun_DummySimplification(t *testing.T) {
	// --- Arrange ---
	// E (program) <- D (dummy) <- F, G (program). D has a single dependency
	// and must be spliced out so that F and G depend on E directly.
	root := concept.NewNode("Universe").WithTag("main").
		Add("datasets", concept.NewNode("Dataset").WithTag("wine").
			Add("tables", concept.NewNode("Table").WithTag("reds"), concept.NewNode("Table").WithTag("whites")))

	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "E", Root: "Universe"},
			&registry.Definition{Name: "D", Root: "Dataset", Requires: []string{"E"}, Dummy: true},
			&registry.Definition{Name: "F", Root: "Table", Requires: []string{"D"}},
			&registry.Definition{Name: "Lonely", Root: "Table", Dummy: true},
		},
		Programs: map[string][]program.Program{
			"E": {testutil.ConstProgram(program.Bash, "e")},
			"F": {testutil.TagProgram(program.Python, "f")},
		},
	}

	// --- Act ---
	out, err := compile(t, root, mod, []string{"F", "Lonely"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"E", "F"}, blockKinds(out.blocks), "D and the dangling Lonely tasks are removed")

	eName := out.blocks[0].Tasks()[0].Name
	fTasks := out.blocks[1].Tasks()
	require.Len(t, fTasks, 2)
	for _, task := range fTasks {
		assert.Equal(t, []string{eName}, task.Dependencies)
	}
	assert.Empty(t, out.states.OfKind(context.Background(), "D"))
}

func TestRun_DummySimplificationReachesFixpoint(t *testing.T) {
	// --- Arrange ---
	// Ready has two dependencies, E and the dangling Marker. Once Marker is
	// dropped Ready is left with a single dependency and must be spliced out
	// as well.
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "E", Root: "Universe"},
			&registry.Definition{Name: "Marker", Root: "Universe", Dummy: true},
			&registry.Definition{Name: "Ready", Root: "Universe", Requires: []string{"E", "Marker"}, Dummy: true},
			&registry.Definition{Name: "Notify", Root: "Universe", Requires: []string{"Ready"}},
		},
		Programs: map[string][]program.Program{
			"E":      {testutil.ConstProgram(program.Bash, "e")},
			"Notify": {testutil.ConstProgram(program.Bash, "notify")},
		},
	}

	// --- Act ---
	out, err := compile(t, datasets("wine"), mod, []string{"Notify"})

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{"E", "Notify"}, blockKinds(out.blocks))
	eName := out.blocks[0].Tasks()[0].Name
	assert.Equal(t, []string{eName}, out.blocks[1].Tasks()[0].Dependencies)
	assert.Empty(t, out.states.OfKind(context.Background(), "Ready"))
	assert.Empty(t, out.states.OfKind(context.Background(), "Marker"))
}

func TestRun_DummyWithSeveralDependenciesSurvives(t *testing.T) {
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "Download", Root: "Dataset"},
			&registry.Definition{Name: "AllReady", Root: "Universe", Requires: []string{"Download"}, Dummy: true},
			&registry.Definition{Name: "Notify", Root: "Universe", Requires: []string{"AllReady"}},
		},
		Programs: map[string][]program.Program{
			"Download": {testutil.TagProgram(program.Python, "download")},
			"Notify":   {testutil.ConstProgram(program.Bash, "notify")},
		},
	}

	out, err := compile(t, datasets("wine", "beer"), mod, []string{"Notify"})
	require.NoError(t, err)
	require.Equal(t, []string{"Download", "AllReady", "Notify"}, blockKinds(out.blocks))

	dummy := out.blocks[1].Tasks()
	require.Len(t, dummy, 1)
	assert.True(t, dummy[0].IsDummy())
	assert.Equal(t, program.None, out.blocks[1].CodeBlocks()[0].Dialect)
	assert.Len(t, dummy[0].Dependencies, 2)

	notify := out.blocks[2].Tasks()[0]
	assert.Equal(t, []string{dummy[0].Name}, notify.Dependencies)
}

func TestRun_TopologicalSoundness(t *testing.T) {
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "DirCreated", Root: "Universe"},
			&registry.Definition{Name: "Download", Root: "Dataset", Requires: []string{"DirCreated"}},
			&registry.Definition{Name: "Infer", Root: "Dataset", Requires: []string{"Download"}},
			&registry.Definition{Name: "Upload", Root: "Dataset", Requires: []string{"Infer", "Download"}},
			&registry.Definition{Name: "Done", Root: "Universe", Requires: []string{"Upload"}, Dummy: true},
		},
		Programs: map[string][]program.Program{
			"DirCreated": {testutil.ConstProgram(program.Bash, "mkdir")},
			"Download":   {testutil.TagProgram(program.Python, "download")},
			"Infer":      {testutil.TagProgram(program.Python, "infer")},
			"Upload":     {testutil.TagProgram(program.Bash, "upload"), testutil.TagProgram(program.Python, "upload")},
		},
	}

	out, err := compile(t, datasets("a", "b", "c"), mod, []string{"Done"})
	require.NoError(t, err)

	pos := position(out.blocks)
	for _, task := range (&plan.Plan{Blocks: out.blocks}).Tasks() {
		for _, dep := range task.Dependencies {
			require.Contains(t, pos, dep)
			assert.Less(t, pos[dep], pos[task.Name], "%s must come after %s", task.Name, dep)
		}
	}

	t.Run("names are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, task := range (&plan.Plan{Blocks: out.blocks}).Tasks() {
			assert.False(t, seen[task.Name], "duplicate task name %s", task.Name)
			seen[task.Name] = true
		}
	})

	t.Run("dialect preference picks python first", func(t *testing.T) {
		for _, task := range out.blocks[3].Tasks() {
			assert.Equal(t, program.Python, task.Dialect)
		}
	})
}

func TestRun_IsDeterministic(t *testing.T) {
	mod := func() *testutil.SimpleModule {
		return &testutil.SimpleModule{
			Builders: []registry.Builder{
				&registry.Definition{Name: "Download", Root: "Dataset"},
				&registry.Definition{Name: "Upload", Root: "Dataset", Requires: []string{"Download"}},
			},
			Programs: map[string][]program.Program{
				"Download": {testutil.TagProgram(program.Python, "download")},
				"Upload":   {testutil.TagProgram(program.Bash, "upload")},
			},
		}
	}
	render := func(blocks []*plan.ConstraintBlock) []string {
		var out []string
		for _, b := range blocks {
			for _, task := range b.Tasks() {
				out = append(out, fmt.Sprintf("%s %s", b.Kind, task))
			}
		}
		return out
	}

	first, err := compile(t, datasets("x", "y", "z"), mod(), []string{"Upload"}, WithParallelism(2))
	require.NoError(t, err)
	second, err := compile(t, datasets("x", "y", "z"), mod(), []string{"Upload"}, WithParallelism(2))
	require.NoError(t, err)
	assert.Equal(t, render(first.blocks), render(second.blocks))
}

func TestRun_NoProgram(t *testing.T) {
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{&registry.Definition{Name: "Query", Root: "Dataset"}},
		Programs: map[string][]program.Program{"Query": {testutil.ConstProgram(program.Presto, "select")}},
	}

	out, err := compile(t, datasets("wine"), mod, []string{"Query"}, WithDialects(program.Python, program.Bash))
	var noProg *NoProgramError
	require.ErrorAs(t, err, &noProg)
	assert.Equal(t, "Query", noProg.Kind)
	assert.ErrorIs(t, err, ErrNoProgram)
	assert.ErrorContains(t, err, "Dataset(wine)")
	assert.Nil(t, out.blocks, "no partial output on failure")
}

func TestRun_ContextExports(t *testing.T) {
	var seen []string
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "Create", Root: "Dataset"},
			&registry.Definition{Name: "Load", Root: "Dataset", Requires: []string{"Create"}},
		},
		Programs: map[string][]program.Program{
			"Create": {program.Func{Lang: program.Presto, Compute: func(root concept.Concept, _ []concept.AncestorRecord, _ *program.Context, _ program.Target) (program.Resolution, error) {
				return program.Resolution{Call: "create_table", Exports: map[string]string{"table": "t_" + root.Tag()}}, nil
			}}},
			"Load": {program.Func{Lang: program.Python, Compute: func(_ concept.Concept, _ []concept.AncestorRecord, ctx *program.Context, _ program.Target) (program.Resolution, error) {
				table, _ := ctx.Get("table")
				seen = append(seen, table)
				return program.Resolution{Call: "load", Params: program.Params{Args: []cty.Value{cty.StringVal(table)}}}, nil
			}}},
		},
	}

	_, err := compile(t, datasets("wine"), mod, []string{"Load"}, WithDialects(program.Python, program.Presto))
	require.NoError(t, err)
	assert.Equal(t, []string{"t_wine"}, seen)
}

func TestRun_FoldingKeepsExports(t *testing.T) {
	// --- Arrange ---
	// Both Create tasks render the same call without params, but each one
	// exports its own table name. They must stay apart so that every Load
	// reads the table of its own dataset.
	var mu sync.Mutex
	seen := make(map[string]string)
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "Create", Root: "Dataset"},
			&registry.Definition{Name: "Load", Root: "Dataset", Requires: []string{"Create"}},
		},
		Programs: map[string][]program.Program{
			"Create": {program.Func{Lang: program.Presto, Compute: func(root concept.Concept, _ []concept.AncestorRecord, _ *program.Context, _ program.Target) (program.Resolution, error) {
				return program.Resolution{Call: "create_table", Exports: map[string]string{"table": "t_" + root.Tag()}}, nil
			}}},
			"Load": {program.Func{Lang: program.Python, Compute: func(root concept.Concept, _ []concept.AncestorRecord, ctx *program.Context, _ program.Target) (program.Resolution, error) {
				table, _ := ctx.Get("table")
				mu.Lock()
				seen[root.Tag()] = table
				mu.Unlock()
				return program.Resolution{Call: "load", Params: program.Params{Args: []cty.Value{cty.StringVal(table)}}}, nil
			}}},
		},
	}

	// --- Act ---
	out, err := compile(t, datasets("wine", "beer"), mod, []string{"Load"}, WithDialects(program.Python, program.Presto))

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, []string{"Create", "Load"}, blockKinds(out.blocks))
	assert.Equal(t, map[string]string{"wine": "t_wine", "beer": "t_beer"}, seen)

	creates := out.blocks[0].Tasks()
	require.Len(t, creates, 2, "tasks with different exports are not folded")
	for _, task := range creates {
		assert.Empty(t, task.Aliases)
	}

	loads := out.blocks[1].Tasks()
	require.Len(t, loads, 2)
	assert.NotEqual(t, loads[0].Dependencies, loads[1].Dependencies)
}

func TestRun_OnBlockSkippedOnFailure(t *testing.T) {
	// A resolves in python, B only has a bash program. A's block is built
	// before B fails, but must not reach the callback.
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "A", Root: "Dataset"},
			&registry.Definition{Name: "B", Root: "Dataset", Requires: []string{"A"}},
		},
		Programs: map[string][]program.Program{
			"A": {testutil.TagProgram(program.Python, "a")},
			"B": {testutil.TagProgram(program.Bash, "b")},
		},
	}
	var kinds []string
	out, err := compile(t, datasets("wine"), mod, []string{"B"}, WithDialects(program.Python), OnBlock(func(b *plan.ConstraintBlock) {
		kinds = append(kinds, b.Kind)
	}))

	var noProg *NoProgramError
	require.ErrorAs(t, err, &noProg)
	assert.Equal(t, "B", noProg.Kind)
	assert.Nil(t, out.blocks)
	assert.Empty(t, kinds, "a failed run publishes no blocks")
}

func TestRun_PruneRedundant(t *testing.T) {
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{
			&registry.Definition{Name: "A", Root: "Dataset"},
			&registry.Definition{Name: "B", Root: "Dataset", Requires: []string{"A"}},
			&registry.Definition{Name: "C", Root: "Dataset", Requires: []string{"A", "B"}},
		},
		Programs: map[string][]program.Program{
			"A": {testutil.TagProgram(program.Python, "a")},
			"B": {testutil.TagProgram(program.Python, "b")},
			"C": {testutil.TagProgram(program.Python, "c")},
		},
	}

	full, err := compile(t, datasets("wine"), mod, []string{"C"})
	require.NoError(t, err)
	assert.Len(t, full.blocks[2].Tasks()[0].Dependencies, 2)

	pruned, err := compile(t, datasets("wine"), mod, []string{"C"}, WithPruneRedundant())
	require.NoError(t, err)
	deps := pruned.blocks[2].Tasks()[0].Dependencies
	require.Len(t, deps, 1)
	assert.Equal(t, pruned.blocks[1].Tasks()[0].Name, deps[0])
}

func TestRun_OnBlock(t *testing.T) {
	mod := &testutil.SimpleModule{
		Builders: []registry.Builder{&registry.Definition{Name: "A", Root: "Dataset"}},
		Programs: map[string][]program.Program{"A": {testutil.TagProgram(program.Python, "a")}},
	}
	var kinds []string
	_, err := compile(t, datasets("x"), mod, []string{"A"}, OnBlock(func(b *plan.ConstraintBlock) {
		kinds = append(kinds, b.Kind)
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, kinds)
}

func TestKindQueue(t *testing.T) {
	q := newKindQueue([]registry.Builder{
		&registry.Definition{Name: "A"},
		&registry.Definition{Name: "B", Requires: []string{"A"}},
		&registry.Definition{Name: "C"},
	})
	var got []string
	for {
		k, ok := q.next()
		if !ok {
			break
		}
		got = append(got, k)
	}
	assert.Equal(t, []string{"A", "B", "C"}, got)
	assert.True(t, q.empty())

	cyclic := newKindQueue([]registry.Builder{
		&registry.Definition{Name: "X", Requires: []string{"Y"}},
		&registry.Definition{Name: "Y", Requires: []string{"X"}},
	})
	_, ok := cyclic.next()
	assert.False(t, ok)
	assert.Equal(t, []string{"X", "Y"}, cyclic.remaining())
}

func TestNoProgramError(t *testing.T) {
	err := &NoProgramError{Kind: "K", Root: "Universe[0]", Dialects: []program.Dialect{program.R, program.None}}
	assert.Equal(t, "no program for constraint 'K' on Universe[0] in any of the dialects [r, none]", err.Error())
}
