// Package session defines the core interfaces for creating and managing a
// compile session. It abstracts away which stores and scheduler back a run.
package session

import (
	"context"

	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/registry"
)

// Options tunes a session.
type Options struct {
	Dialects       []program.Dialect
	NoCompress     bool
	PruneRedundant bool
	Parallelism    int
	// OnBlock is called with every block, in order, once compilation succeeded.
	OnBlock func(*plan.ConstraintBlock)
}

// SessionFactory creates a compile Session.
type SessionFactory interface {
	NewSession(ctx context.Context, reg *registry.Registry, opts Options) (Session, error)
}

// Session represents a single compile run and manages its lifecycle.
type Session interface {
	// Compile builds the constraint graph of the requested kinds over tree
	// and satisfies it, returning the blocks in emission order.
	Compile(ctx context.Context, tree *concept.Tree, kinds []string) ([]*plan.ConstraintBlock, error)
	// Close releases any resources held by the session.
	Close(ctx context.Context) error
}
