package etl

import (
	"testing"

	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/localsession"
	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/registry"
	"github.com/specialistvlad/etlgen/internal/session"
	"github.com/specialistvlad/etlgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func wineUniverse() *concept.Node {
	return concept.NewNode("Universe").WithTag("main").WithAttr("workdir", cty.StringVal("/data")).
		Add("datasets",
			concept.NewNode("Dataset").WithTag("wine").WithAttr("url", cty.StringVal("s3://bucket/wine.csv")).
				Add("tables",
					concept.NewNode("Table").WithTag("red").WithAttr("name", cty.StringVal("red_wine")),
					concept.NewNode("Table").WithTag("white"),
				),
			concept.NewNode("Dataset").WithTag("beer"),
		)
}

func compile(t *testing.T, dialects ...program.Dialect) []*plan.ConstraintBlock {
	t.Helper()
	ctx := testutil.QuietContext()
	reg := registry.New()
	reg.Load(ctx, &Module{})
	require.NoError(t, reg.ValidateRegistry(ctx))

	sess, err := (&localsession.SessionFactory{}).NewSession(ctx, reg, session.Options{Dialects: dialects})
	require.NoError(t, err)
	defer sess.Close(ctx)

	blocks, err := sess.Compile(ctx, testutil.NewTree(t, wineUniverse()), []string{AllDatasetsReady})
	require.NoError(t, err)
	return blocks
}

func tasksOfKind(blocks []*plan.ConstraintBlock, kind string) []*plan.Task {
	var out []*plan.Task
	for _, b := range blocks {
		for _, task := range b.Tasks() {
			if task.Kind == kind {
				out = append(out, task)
			}
		}
	}
	return out
}

func args(task *plan.Task) []string {
	out := make([]string, len(task.Params.Args))
	for i, v := range task.Params.Args {
		out[i] = v.AsString()
	}
	return out
}

func TestModule_PythonFirst(t *testing.T) {
	blocks := compile(t, program.Python, program.Presto, program.Bash)

	kinds := make([]string, len(blocks))
	for i, b := range blocks {
		kinds[i] = b.Kind
	}
	assert.Equal(t, []string{DirectoryCreated, DataDownloaded, TableSchemaInferred, DataUploaded, AllDatasetsReady}, kinds)

	mkdir := tasksOfKind(blocks, DirectoryCreated)
	require.Len(t, mkdir, 1)
	assert.Equal(t, program.Bash, mkdir[0].Dialect)
	assert.Equal(t, []string{"/data"}, args(mkdir[0]))

	download := tasksOfKind(blocks, DataDownloaded)
	require.Len(t, download, 1, "beer has no url")
	assert.Equal(t, "download_file", download[0].Call)
	assert.Equal(t, []string{"s3://bucket/wine.csv", "/data/wine.csv"}, args(download[0]))
	assert.Equal(t, []string{mkdir[0].Name}, download[0].Dependencies)

	infer := tasksOfKind(blocks, TableSchemaInferred)
	require.Len(t, infer, 2)
	tables := map[string]bool{}
	for _, task := range infer {
		assert.Equal(t, []string{"/data/wine.csv"}, args(task))
		tables[task.Params.Kwargs["table"].AsString()] = true
	}
	assert.Equal(t, map[string]bool{"red_wine": true, "white": true}, tables)

	upload := tasksOfKind(blocks, DataUploaded)
	require.Len(t, upload, 2)
	for _, task := range upload {
		assert.Equal(t, "upload_table", task.Call)
		assert.Equal(t, []string{"warehouse"}, task.Imports)
		table := task.Params.Args[1].AsString()
		assert.Equal(t, "/data/"+table+".schema.json", task.Params.Kwargs["schema"].AsString())
	}

	ready := tasksOfKind(blocks, AllDatasetsReady)
	require.Len(t, ready, 1)
	assert.True(t, ready[0].IsDummy())
	assert.Len(t, ready[0].Dependencies, 2)
}

func TestModule_PrestoAndBash(t *testing.T) {
	blocks := compile(t, program.Presto, program.Bash, program.Python)

	download := tasksOfKind(blocks, DataDownloaded)
	require.Len(t, download, 1)
	assert.Equal(t, program.Bash, download[0].Dialect)
	assert.Equal(t, "curl -sSfL -o", download[0].Call)
	assert.Equal(t, []string{"/data/wine.csv", "s3://bucket/wine.csv"}, args(download[0]))

	// Schema inference only exists in python.
	for _, task := range tasksOfKind(blocks, TableSchemaInferred) {
		assert.Equal(t, program.Python, task.Dialect)
	}

	upload := tasksOfKind(blocks, DataUploaded)
	require.Len(t, upload, 2)
	for _, task := range upload {
		assert.Equal(t, program.Presto, task.Dialect)
		assert.Equal(t, "INSERT INTO", task.Call)
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		name      string
		node      *concept.Node
		wantLocal string
		wantTable string
		wantDir   string
	}{
		{
			name:      "tagged",
			node:      concept.NewNode("Table").WithTag("RedWine"),
			wantLocal: "red_wine",
			wantTable: "red_wine",
			wantDir:   DefaultWorkdir,
		},
		{
			name:      "untagged uses type and index",
			node:      concept.NewNode("DataTable"),
			wantLocal: "data_table_0",
			wantTable: "data_table_0",
			wantDir:   DefaultWorkdir,
		},
		{
			name: "explicit attributes",
			node: concept.NewNode("Table").WithTag("x").
				WithAttr("name", cty.StringVal("sales")).
				WithAttr("workdir", cty.StringVal("/srv")),
			wantLocal: "x",
			wantTable: "sales",
			wantDir:   "/srv",
		},
		{
			name:      "non-string attributes are ignored",
			node:      concept.NewNode("Table").WithTag("x").WithAttr("name", cty.NumberIntVal(3)),
			wantLocal: "x",
			wantTable: "x",
			wantDir:   DefaultWorkdir,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantLocal, localName(tc.node))
			assert.Equal(t, tc.wantTable, tableName(tc.node))
			assert.Equal(t, tc.wantDir, workdir(tc.node))
		})
	}
}

func TestDownload_RequiresURL(t *testing.T) {
	node := concept.NewNode("Dataset").WithTag("beer")
	ancestry := []concept.AncestorRecord{concept.RecordOf(node)}
	_, err := downloadPython(node, ancestry, program.NewContext(), program.Target{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Dataset(beer) has no url")
}
