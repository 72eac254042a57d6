package integrationtests

import (
	"fmt"
	"strings"
	"testing"

	"github.com/specialistvlad/etlgen/internal/app"
	"github.com/specialistvlad/etlgen/internal/dag"
	"github.com/specialistvlad/etlgen/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fetchConstraints = `
constraint "Fetch" {
  root = "Dataset"
  when = can(root.attrs.url)
}

constraint "Report" {
  root     = "Universe"
  requires = ["Fetch"]
}

program "Fetch" "python" {
  call     = "fetch"
  preamble = "def fetch(url): ..."
  args     = [root.attrs.url]
}

program "Report" "bash" {
  call = "report.sh"
}
`

// universe renders a Universe holding one Dataset per url. An empty url
// declares a dataset without the attribute.
func universe(urls ...string) string {
	var b strings.Builder
	b.WriteString("concept \"Universe\" {\n  tag = \"main\"\n")
	for i, url := range urls {
		fmt.Fprintf(&b, "  concept \"Dataset\" {\n    tag = \"ds%d\"\n", i)
		if url != "" {
			fmt.Fprintf(&b, "    url = %q\n", url)
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func TestCompile_ChainIsCompressedIntoLoop(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"concepts.hcl":    universe("s3://a", "s3://b", "s3://c"),
		"constraints.hcl": fetchConstraints,
	}

	// --- Act ---
	res := runIntegrationTest(t, files, app.Config{Kinds: []string{"Report"}})

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"Fetch", "Report"}, blockKinds(res.Doc))

	fetchBlock := res.Doc.Blocks[0]
	require.Len(t, fetchBlock.CodeBlocks, 1)
	assert.Equal(t, "python", fetchBlock.CodeBlocks[0].Dialect)
	assert.Equal(t, []string{"def fetch(url): ..."}, fetchBlock.CodeBlocks[0].Preambles)
	require.Len(t, fetchBlock.CodeBlocks[0].Statements, 1)
	loop := fetchBlock.CodeBlocks[0].Statements[0].Loop
	require.NotNil(t, loop, "three calls with the same shape become one loop")
	assert.Equal(t, "fetch", loop.Call)
	require.Len(t, loop.Items, 3)
	assert.Equal(t, "s3://a", loop.Items[0].Args[0])

	tasks := flatten(res.Doc)
	report := ofKind(tasks, "Report")
	require.Len(t, report, 1)
	assert.Equal(t, "bash", report[0].Dialect)
	assert.ElementsMatch(t, names(ofKind(tasks, "Fetch")), report[0].Deps)
	assert.Contains(t, res.LogOutput, "Compilation finished.")
}

func TestCompile_WithoutCompression(t *testing.T) {
	files := map[string]string{"main.hcl": universe("s3://a", "s3://b") + fetchConstraints}

	res := runIntegrationTest(t, files, app.Config{Kinds: []string{"Report"}, NoCompress: true})

	require.NoError(t, res.Err)
	for _, task := range flatten(res.Doc) {
		assert.False(t, task.InLoop, task.Name)
	}
	assert.Len(t, ofKind(flatten(res.Doc), "Fetch"), 2)
}

func TestCompile_IdenticalCallsAreFolded(t *testing.T) {
	files := map[string]string{"main.hcl": universe("s3://same", "s3://same") + fetchConstraints}

	res := runIntegrationTest(t, files, app.Config{Kinds: []string{"Report"}})

	require.NoError(t, res.Err)
	tasks := flatten(res.Doc)
	fetch := ofKind(tasks, "Fetch")
	require.Len(t, fetch, 1)
	assert.Equal(t, 1, fetch[0].Aliases)
	assert.Equal(t, []string{fetch[0].Name}, ofKind(tasks, "Report")[0].Deps)

	identifiers := res.Doc.Blocks[0].CodeBlocks[0].Identifiers
	assert.Len(t, identifiers, 2, "both datasets resolve to the representative")
	for _, val := range identifiers {
		assert.Contains(t, val, fetch[0].Name)
	}
}

func TestCompile_WhenPredicateSkipsConcepts(t *testing.T) {
	files := map[string]string{"main.hcl": universe("s3://a", "") + fetchConstraints}

	res := runIntegrationTest(t, files, app.Config{Kinds: []string{"Report"}})

	require.NoError(t, res.Err)
	fetch := ofKind(flatten(res.Doc), "Fetch")
	require.Len(t, fetch, 1)
	assert.Contains(t, fetch[0].Name, "ds0")
}

func TestCompile_ContextFlowsFromDependencies(t *testing.T) {
	doc := universe("s3://a") + `
constraint "Stage" {
  root = "Universe"
}

constraint "Fetch" {
  root     = "Dataset"
  requires = ["Stage"]
}

program "Stage" "bash" {
  call    = "mkdir -p"
  args    = ["/stage"]
  exports = { dir = "/stage" }
}

program "Fetch" "python" {
  call   = "fetch"
  args   = [root.attrs.url]
  kwargs = { dest = format("%s/%s.csv", lookup(context, "dir", "/tmp"), root.tag) }
}
`
	res := runIntegrationTest(t, map[string]string{"main.hcl": doc}, app.Config{Kinds: []string{"Fetch"}})

	require.NoError(t, res.Err)
	task := res.Doc.Blocks[1].CodeBlocks[0].Statements[0].Task
	require.NotNil(t, task)
	assert.Equal(t, map[string]any{"dest": "/stage/ds0.csv"}, task.Kwargs)
}

func TestCompile_DummyKinds(t *testing.T) {
	constraints := fetchConstraints + `
constraint "Ready" {
  root     = "Universe"
  requires = ["Fetch"]
  dummy    = true
}

constraint "Publish" {
  root     = "Universe"
  requires = ["Ready"]
}

program "Publish" "bash" {
  call = "publish.sh"
}
`
	t.Run("single dependency is spliced out", func(t *testing.T) {
		res := runIntegrationTest(t, map[string]string{"main.hcl": universe("s3://a") + constraints},
			app.Config{Kinds: []string{"Publish"}})

		require.NoError(t, res.Err)
		assert.Equal(t, []string{"Fetch", "Publish"}, blockKinds(res.Doc))
		tasks := flatten(res.Doc)
		assert.Equal(t, names(ofKind(tasks, "Fetch")), ofKind(tasks, "Publish")[0].Deps)
	})

	t.Run("several dependencies keep a call-less task", func(t *testing.T) {
		res := runIntegrationTest(t, map[string]string{"main.hcl": universe("s3://a", "s3://b") + constraints},
			app.Config{Kinds: []string{"Publish"}})

		require.NoError(t, res.Err)
		assert.Equal(t, []string{"Fetch", "Ready", "Publish"}, blockKinds(res.Doc))
		tasks := flatten(res.Doc)
		ready := ofKind(tasks, "Ready")
		require.Len(t, ready, 1)
		assert.Empty(t, ready[0].Call)
		assert.Len(t, ready[0].Deps, 2)
		assert.Equal(t, []string{ready[0].Name}, ofKind(tasks, "Publish")[0].Deps)
	})
}

func TestCompile_RequiresRootsAcrossFamilies(t *testing.T) {
	const wineID = "0b3e2d4c-1f6a-4e8b-9c7d-5a2f1e3b4c6d"
	doc := fmt.Sprintf(`
concept "Universe" {
  concept "Dataset" {
    tag   = "wine"
    uuid  = %q
    url   = "s3://wine"
    joins = []
  }
  concept "Dataset" {
    tag   = "beer"
    url   = "s3://beer"
    joins = [%q]
  }
}

constraint "Fetch" {
  root = "Dataset"
}

constraint "Join" {
  root           = "Dataset"
  requires       = ["Fetch"]
  requires_roots = root.attrs.joins
}

program "Fetch" "python" {
  call = "fetch"
  args = [root.attrs.url]
}

program "Join" "python" {
  call = "join"
  args = [root.tag]
}
`, wineID, wineID)

	res := runIntegrationTest(t, map[string]string{"main.hcl": doc}, app.Config{Kinds: []string{"Join"}, NoCompress: true})

	require.NoError(t, res.Err)
	tasks := flatten(res.Doc)
	fetch := ofKind(tasks, "Fetch")
	require.Len(t, fetch, 2)
	joins := ofKind(tasks, "Join")
	require.Len(t, joins, 2)
	for _, join := range joins {
		if strings.Contains(join.Name, "beer") {
			assert.ElementsMatch(t, names(fetch), join.Deps, "beer also waits for wine")
			continue
		}
		assert.Len(t, join.Deps, 1)
	}
}

func TestCompile_EndpointsAndDialectOverride(t *testing.T) {
	doc := universe("s3://a") + `
compile {
  kinds     = ["Load"]
  endpoints = { presto = "presto://warehouse:8080" }
}

constraint "Load" {
  root = "Dataset"
}

program "Load" "python" {
  call = "load"
  args = [root.attrs.url]
}

program "Load" "presto" {
  call = "INSERT INTO"
  args = [root.tag, root.attrs.url]
}
`
	t.Run("document preferences", func(t *testing.T) {
		res := runIntegrationTest(t, map[string]string{"main.hcl": doc}, app.Config{})

		require.NoError(t, res.Err)
		cb := res.Doc.Blocks[0].CodeBlocks[0]
		assert.Equal(t, "python", cb.Dialect)
		assert.Empty(t, cb.Endpoint)
	})

	t.Run("flag override", func(t *testing.T) {
		res := runIntegrationTest(t, map[string]string{"main.hcl": doc}, app.Config{Dialects: []string{"presto"}})

		require.NoError(t, res.Err)
		cb := res.Doc.Blocks[0].CodeBlocks[0]
		assert.Equal(t, "presto", cb.Dialect)
		assert.Equal(t, "presto://warehouse:8080", cb.Endpoint)
		assert.Equal(t, []any{"ds0", "s3://a"}, cb.Statements[0].Task.Args)
	})
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		cfg     app.Config
		wantIs  error
		wantMsg string
	}{
		{
			name: "no program in preferred dialects",
			doc:  universe("s3://a") + fetchConstraints,
			cfg:  app.Config{Kinds: []string{"Fetch"}, Dialects: []string{"r"}},

			wantIs:  scheduler.ErrNoProgram,
			wantMsg: "no program for constraint 'Fetch' on Universe(main).Dataset(ds0)",
		},
		{
			name: "cyclic requirements",
			doc: universe() + `
constraint "A" {
  root     = "Universe"
  requires = ["B"]
  dummy    = true
}
constraint "B" {
  root     = "Universe"
  requires = ["A"]
  dummy    = true
}
`,
			cfg:    app.Config{Kinds: []string{"A"}},
			wantIs: dag.ErrCycle,
		},
		{
			name: "unknown variable",
			doc: universe("s3://a") + `
constraint "Fetch" {
  root = "Dataset"
}
program "Fetch" "python" {
  call = "fetch"
  args = [rooot.attrs.url]
}
`,
			cfg:     app.Config{Kinds: []string{"Fetch"}},
			wantMsg: "Unknown variable",
		},
		{
			name: "unknown function",
			doc: universe("s3://a") + `
constraint "Fetch" {
  root = "Dataset"
  when = shout(root.tag)
}
`,
			cfg:     app.Config{Kinds: []string{"Fetch"}},
			wantMsg: "Call to unknown function",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := runIntegrationTest(t, map[string]string{"main.hcl": tc.doc}, tc.cfg)

			require.Error(t, res.Err)
			assert.Empty(t, res.Output, "no partial plan is written")
			if tc.wantIs != nil {
				assert.ErrorIs(t, res.Err, tc.wantIs)
			}
			if tc.wantMsg != "" {
				assert.Contains(t, res.Err.Error(), tc.wantMsg)
			}
		})
	}
}
