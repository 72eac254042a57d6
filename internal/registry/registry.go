package registry

import (
	"fmt"
	"log/slog"

	"github.com/specialistvlad/etlgen/internal/program"
)

// Module is the interface that all constraint modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the builders and programs of a single application instance.
type Registry struct {
	builders map[string]Builder
	order    []string
	programs map[string][]program.Program
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
		programs: make(map[string][]program.Program),
	}
}

// RegisterBuilder adds a constraint kind. Registering the same kind twice is
// a programming error.
func (r *Registry) RegisterBuilder(b Builder) {
	if _, exists := r.builders[b.Kind()]; exists {
		panic(fmt.Sprintf("constraint builder with name '%s' already registered", b.Kind()))
	}
	slog.Debug("Registering constraint builder.", "kind", b.Kind(), "root", b.RootType())
	r.builders[b.Kind()] = b
	r.order = append(r.order, b.Kind())
}

// RegisterProgram adds an implementation of kind. At most one program per
// (kind, dialect) pair may be registered.
func (r *Registry) RegisterProgram(kind string, p program.Program) {
	for _, existing := range r.programs[kind] {
		if existing.Dialect() == p.Dialect() {
			panic(fmt.Sprintf("program for '%s' in dialect '%s' already registered", kind, p.Dialect()))
		}
	}
	slog.Debug("Registering program.", "kind", kind, "dialect", p.Dialect())
	r.programs[kind] = append(r.programs[kind], p)
}

// Builder returns the builder of kind.
func (r *Registry) Builder(kind string) (Builder, bool) {
	b, ok := r.builders[kind]
	return b, ok
}

// Kinds returns every registered kind in registration order.
func (r *Registry) Kinds() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Programs returns the programs of kind in registration order.
func (r *Registry) Programs(kind string) []program.Program {
	return r.programs[kind]
}

// Program returns the program of kind for the first dialect in prefs that
// has one.
func (r *Registry) Program(kind string, prefs []program.Dialect) (program.Program, bool) {
	for _, d := range prefs {
		for _, p := range r.Programs(kind) {
			if p.Dialect() == d {
				return p, true
			}
		}
	}
	return nil, false
}
