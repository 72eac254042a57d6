// Package etl registers a small built-in ETL vocabulary: a working directory
// per universe, one download per dataset with a url, and schema inference
// plus upload per table.
//
// Concept types: Universe (attribute `workdir`), Dataset (attribute `url`)
// and Table (attribute `name`, defaulting to the tag).
package etl

import (
	"fmt"
	"path"

	"github.com/iancoleman/strcase"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Kinds provided by the module.
const (
	DirectoryCreated    = "DirectoryCreated"
	DataDownloaded      = "DataDownloaded"
	TableSchemaInferred = "TableSchemaInferred"
	DataUploaded        = "DataUploaded"
	AllDatasetsReady    = "AllDatasetsReady"
)

// DefaultWorkdir is used when a Universe has no `workdir` attribute.
const DefaultWorkdir = "/tmp/etl"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the constraint kinds and their programs.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterBuilder(&registry.Definition{
		Name:        DirectoryCreated,
		Root:        "Universe",
		Description: "The working directory of the universe exists.",
	})
	r.RegisterBuilder(&registry.Definition{
		Name:        DataDownloaded,
		Root:        "Dataset",
		Requires:    []string{DirectoryCreated},
		Description: "The raw file of the dataset is in the working directory.",
		When: func(root concept.Concept, _ []concept.AncestorRecord) (bool, error) {
			_, ok := stringAttr(root, "url")
			return ok, nil
		},
	})
	r.RegisterBuilder(&registry.Definition{
		Name:        TableSchemaInferred,
		Root:        "Table",
		Requires:    []string{DataDownloaded},
		Description: "The schema of the table was inferred from the raw file.",
	})
	r.RegisterBuilder(&registry.Definition{
		Name:        DataUploaded,
		Root:        "Table",
		Requires:    []string{TableSchemaInferred},
		Description: "The table is loaded into the warehouse.",
	})
	r.RegisterBuilder(&registry.Definition{
		Name:        AllDatasetsReady,
		Root:        "Universe",
		Requires:    []string{DataUploaded},
		Dummy:       true,
		Description: "Every table of the universe is uploaded.",
	})

	r.RegisterProgram(DirectoryCreated, program.Func{Lang: program.Bash, Compute: createDirectory})
	r.RegisterProgram(DataDownloaded, program.Func{Lang: program.Python, Compute: downloadPython})
	r.RegisterProgram(DataDownloaded, program.Func{Lang: program.Bash, Compute: downloadBash})
	r.RegisterProgram(TableSchemaInferred, program.Func{Lang: program.Python, Compute: inferSchema})
	r.RegisterProgram(DataUploaded, program.Func{Lang: program.Python, Compute: uploadPython})
	r.RegisterProgram(DataUploaded, program.Func{Lang: program.Presto, Compute: uploadPresto})
}

func createDirectory(root concept.Concept, _ []concept.AncestorRecord, _ *program.Context, _ program.Target) (program.Resolution, error) {
	dir := workdir(root)
	return program.Resolution{
		Call:    "mkdir -p",
		Params:  program.Params{Args: []cty.Value{cty.StringVal(dir)}},
		Exports: map[string]string{"workdir": dir},
	}, nil
}

const downloadPreamble = `def download_file(url, dest):
    urllib.request.urlretrieve(url, dest)
    return dest`

func downloadPython(root concept.Concept, ancestry []concept.AncestorRecord, ctx *program.Context, _ program.Target) (program.Resolution, error) {
	url, dest, err := downloadTarget(root, ancestry, ctx)
	if err != nil {
		return program.Resolution{}, err
	}
	return program.Resolution{
		Preamble: downloadPreamble,
		Call:     "download_file",
		Imports:  []string{"urllib.request"},
		Params:   program.Params{Args: []cty.Value{cty.StringVal(url), cty.StringVal(dest)}},
		Exports:  map[string]string{"path": dest},
	}, nil
}

func downloadBash(root concept.Concept, ancestry []concept.AncestorRecord, ctx *program.Context, _ program.Target) (program.Resolution, error) {
	url, dest, err := downloadTarget(root, ancestry, ctx)
	if err != nil {
		return program.Resolution{}, err
	}
	return program.Resolution{
		Call:    "curl -sSfL -o",
		Params:  program.Params{Args: []cty.Value{cty.StringVal(dest), cty.StringVal(url)}},
		Exports: map[string]string{"path": dest},
	}, nil
}

func downloadTarget(root concept.Concept, ancestry []concept.AncestorRecord, ctx *program.Context) (string, string, error) {
	url, ok := stringAttr(root, "url")
	if !ok {
		return "", "", fmt.Errorf("dataset %s has no url", concept.PathString(ancestry))
	}
	dir, ok := ctx.Get("workdir")
	if !ok {
		dir = DefaultWorkdir
	}
	return url, path.Join(dir, localName(root)+".csv"), nil
}

const inferPreamble = `def infer_schema(path, table):
    return {"table": table, "columns": sniff_columns(path)}`

func inferSchema(root concept.Concept, ancestry []concept.AncestorRecord, ctx *program.Context, _ program.Target) (program.Resolution, error) {
	src, ok := ctx.Get("path")
	if !ok {
		return program.Resolution{}, fmt.Errorf("table %s has no downloaded file to infer from", concept.PathString(ancestry))
	}
	table := tableName(root)
	schema := path.Join(path.Dir(src), table+".schema.json")
	return program.Resolution{
		Preamble: inferPreamble,
		Call:     "infer_schema",
		Params: program.Params{
			Args:   []cty.Value{cty.StringVal(src)},
			Kwargs: map[string]cty.Value{"table": cty.StringVal(table)},
		},
		Exports: map[string]string{"path": src, "schema": schema},
	}, nil
}

const uploadPreamble = `def upload_table(path, table, schema):
    warehouse.load(path, table, schema)`

func uploadPython(root concept.Concept, ancestry []concept.AncestorRecord, ctx *program.Context, _ program.Target) (program.Resolution, error) {
	src, schema, err := uploadInputs(ancestry, ctx)
	if err != nil {
		return program.Resolution{}, err
	}
	return program.Resolution{
		Preamble: uploadPreamble,
		Call:     "upload_table",
		Imports:  []string{"warehouse"},
		Params: program.Params{
			Args: []cty.Value{cty.StringVal(src), cty.StringVal(tableName(root))},
			Kwargs: map[string]cty.Value{
				"schema": cty.StringVal(schema),
			},
		},
	}, nil
}

func uploadPresto(root concept.Concept, ancestry []concept.AncestorRecord, ctx *program.Context, _ program.Target) (program.Resolution, error) {
	src, _, err := uploadInputs(ancestry, ctx)
	if err != nil {
		return program.Resolution{}, err
	}
	return program.Resolution{
		Call: "INSERT INTO",
		Params: program.Params{
			Args: []cty.Value{cty.StringVal(tableName(root)), cty.StringVal(src)},
		},
	}, nil
}

func uploadInputs(ancestry []concept.AncestorRecord, ctx *program.Context) (string, string, error) {
	src, ok := ctx.Get("path")
	if !ok {
		return "", "", fmt.Errorf("table %s has no downloaded file to upload", concept.PathString(ancestry))
	}
	schema, ok := ctx.Get("schema")
	if !ok {
		return "", "", fmt.Errorf("table %s has no inferred schema", concept.PathString(ancestry))
	}
	return src, schema, nil
}

func workdir(c concept.Concept) string {
	if dir, ok := stringAttr(c, "workdir"); ok {
		return dir
	}
	return DefaultWorkdir
}

func tableName(c concept.Concept) string {
	if name, ok := stringAttr(c, "name"); ok {
		return name
	}
	return localName(c)
}

// localName is the snake-cased tag, or type and index for untagged concepts.
func localName(c concept.Concept) string {
	if c.Tag() != "" {
		return strcase.ToSnake(c.Tag())
	}
	return fmt.Sprintf("%s_%d", strcase.ToSnake(c.Type()), c.IndexAsChild())
}

// stringAttr returns a known, non-null string attribute.
func stringAttr(c concept.Concept, name string) (string, bool) {
	v, ok := c.Attributes()[name]
	if !ok || v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
		return "", false
	}
	return v.AsString(), true
}
