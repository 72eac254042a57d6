package integrationtests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/etlgen/internal/app"
	"github.com/specialistvlad/etlgen/internal/hcl"
	"github.com/specialistvlad/etlgen/internal/planio"
	"github.com/specialistvlad/etlgen/internal/testutil"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// result captures everything a compile run produced.
type result struct {
	Doc       *planio.Document
	Output    string
	LogOutput string
	Err       error
}

// runIntegrationTest writes files into a temporary directory, builds the app
// over it with stable identities and runs one compilation. A non-nil Err
// means either NewApp or Run failed.
func runIntegrationTest(t *testing.T, files map[string]string, cfg app.Config) *result {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	cfg.DocPath = dir
	cfg.StableIDs = true
	cfg.LogLevel = "debug"
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("ETLGEN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	res := &result{}
	a, err := app.NewApp(out, logs, appConfig, hcl.NewLoader())
	if err == nil {
		err = a.Run(context.Background())
	}
	res.Err = err
	res.Output = out.String()
	res.LogOutput = logs.String()
	if err == nil {
		res.Doc = &planio.Document{}
		require.NoError(t, yaml.Unmarshal(out.Bytes(), res.Doc))
	}
	return res
}

// flatTask is a task of the document with loops expanded.
type flatTask struct {
	Name    string
	Kind    string
	Call    string
	Dialect string
	Deps    []string
	Aliases int
	InLoop  bool
}

func flatten(doc *planio.Document) []flatTask {
	var out []flatTask
	for _, b := range doc.Blocks {
		for _, cb := range b.CodeBlocks {
			for _, st := range cb.Statements {
				if st.Task != nil {
					out = append(out, flatTask{
						Name:    st.Task.Name,
						Kind:    st.Task.Kind,
						Call:    st.Task.Call,
						Dialect: cb.Dialect,
						Deps:    st.Task.Dependencies,
						Aliases: len(st.Task.Aliases),
					})
					continue
				}
				for _, item := range st.Loop.Items {
					deps := append(append([]string{}, st.Loop.StaticDeps...), item.Deps...)
					out = append(out, flatTask{
						Name:    item.Name,
						Kind:    st.Loop.Kind,
						Call:    st.Loop.Call,
						Dialect: cb.Dialect,
						Deps:    deps,
						InLoop:  true,
					})
				}
			}
		}
	}
	return out
}

func ofKind(tasks []flatTask, kind string) []flatTask {
	var out []flatTask
	for _, task := range tasks {
		if task.Kind == kind {
			out = append(out, task)
		}
	}
	return out
}

func names(tasks []flatTask) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Name
	}
	return out
}

func blockKinds(doc *planio.Document) []string {
	out := make([]string, len(doc.Blocks))
	for i, b := range doc.Blocks {
		out[i] = b.Kind
	}
	return out
}
