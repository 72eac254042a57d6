package hcl

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/config"
	"github.com/specialistvlad/etlgen/internal/ctxlog"
	"github.com/specialistvlad/etlgen/internal/fsutil"
)

// ErrNoDocuments is returned when the given paths hold no .hcl file.
var ErrNoDocuments = errors.New("no .hcl documents found")

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL document loader.
func NewLoader() *Loader {
	return &Loader{}
}

// parsedFile keeps a decoded file together with its name for error reporting.
type parsedFile struct {
	name string
	root fileRoot
}

// Load parses every .hcl file found under paths and merges their blocks into
// one model. Files are processed in a deterministic order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoDocuments, paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	parsed := make([]parsedFile, 0, len(files))
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, staticContext(), &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		parsed = append(parsed, parsedFile{name: file, root: root})
	}

	model, err := l.translate(ctx, parsed)
	if err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.",
		"constraints", len(model.Constraints),
		"programs", len(model.Programs),
		"has_concepts", model.Root != nil,
	)
	return model, nil
}

func (l *Loader) translate(ctx context.Context, files []parsedFile) (*config.Model, error) {
	model := &config.Model{}
	var roots []*concept.Node
	var fields []string
	compileFile := ""
	constraints := make(map[string]string)
	programs := make(map[string]string)

	for _, f := range files {
		for _, c := range f.root.Compile {
			if model.Compile != nil {
				return nil, fmt.Errorf("duplicate compile block in %s: already declared in %s", f.name, compileFile)
			}
			compileFile = f.name
			model.Compile = &config.CompileSettings{
				Kinds:     c.Kinds,
				Dialects:  c.Dialects,
				Mode:      c.Mode,
				Endpoints: c.Endpoints,
			}
		}

		for _, c := range f.root.Concepts {
			node, field, diags := translateConcept(c.Type, c.Body)
			if diags.HasErrors() {
				return nil, fmt.Errorf("invalid concept %q in %s: %w", c.Type, f.name, diags)
			}
			roots = append(roots, node)
			fields = append(fields, field)
		}

		for _, c := range f.root.Constraints {
			if prev, dup := constraints[c.Name]; dup {
				return nil, fmt.Errorf("constraint '%s' in %s is already declared in %s", c.Name, f.name, prev)
			}
			constraints[c.Name] = f.name
			if diags := checkReferences(c); diags.HasErrors() {
				return nil, fmt.Errorf("invalid constraint '%s' in %s: %w", c.Name, f.name, diags)
			}
			model.Constraints = append(model.Constraints, translateConstraint(ctx, c))
		}

		for _, p := range f.root.Programs {
			key := p.Kind + "/" + p.Dialect
			if prev, dup := programs[key]; dup {
				return nil, fmt.Errorf("program '%s' \"%s\" in %s is already declared in %s", p.Kind, p.Dialect, f.name, prev)
			}
			programs[key] = f.name
			if diags := checkReferences(p); diags.HasErrors() {
				return nil, fmt.Errorf("invalid program '%s' in %s: %w", p.Kind, f.name, diags)
			}
			prog, err := translateProgram(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", f.name, err)
			}
			model.Programs = append(model.Programs, config.ProgramBinding{Kind: p.Kind, Program: prog})
		}
	}

	switch len(roots) {
	case 0:
	case 1:
		model.Root = roots[0]
	default:
		model.Root = concept.NewNode(syntheticRootType)
		for i, node := range roots {
			model.Root.Add(fields[i], node)
		}
	}
	return model, nil
}
