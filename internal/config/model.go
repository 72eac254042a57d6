package config

import (
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/registry"
)

// Model is the unified representation of all loaded documents.
type Model struct {
	Compile *CompileSettings
	// Root is nil when the documents declare no concept.
	Root        *concept.Node
	Constraints []registry.Builder
	Programs    []ProgramBinding
}

// CompileSettings holds the options of the `compile` block.
type CompileSettings struct {
	Kinds     []string
	Dialects  []string
	Mode      string
	Endpoints map[string]string
}

// ProgramBinding attaches a program to the kind it implements.
type ProgramBinding struct {
	Kind    string
	Program program.Program
}

// Register adds the document's constraint kinds and programs to r, which
// makes a loaded Model usable as a registry.Module.
func (m *Model) Register(r *registry.Registry) {
	for _, b := range m.Constraints {
		r.RegisterBuilder(b)
	}
	for _, p := range m.Programs {
		r.RegisterProgram(p.Kind, p.Program)
	}
}

// Settings returns the compile settings, never nil.
func (m *Model) Settings() *CompileSettings {
	if m.Compile == nil {
		return &CompileSettings{}
	}
	return m.Compile
}
