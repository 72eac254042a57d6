package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes all possible top-level blocks from any file.
type fileRoot struct {
	Compile     []*compileBlock    `hcl:"compile,block"`
	Concepts    []*conceptBlock    `hcl:"concept,block"`
	Constraints []*constraintBlock `hcl:"constraint,block"`
	Programs    []*programBlock    `hcl:"program,block"`
	Remain      hcl.Body           `hcl:",remain"`
}

// compileBlock represents the single `compile` block of a document set.
type compileBlock struct {
	Kinds     []string          `hcl:"kinds,optional"`
	Dialects  []string          `hcl:"dialects,optional"`
	Mode      string            `hcl:"mode,optional"`
	Endpoints map[string]string `hcl:"endpoints,optional"`
}

// conceptBlock is decoded by hand because its attributes are free-form.
type conceptBlock struct {
	Type string   `hcl:"type,label"`
	Body hcl.Body `hcl:",remain"`
}

// constraintBlock declares a constraint kind.
type constraintBlock struct {
	Name          string         `hcl:"name,label"`
	Root          string         `hcl:"root"`
	Requires      []string       `hcl:"requires,optional"`
	Dummy         bool           `hcl:"dummy,optional"`
	Description   string         `hcl:"description,optional"`
	When          hcl.Expression `hcl:"when,optional"`
	RequiresRoots hcl.Expression `hcl:"requires_roots,optional"`
}

// programBlock implements a constraint kind in one dialect.
type programBlock struct {
	Kind     string         `hcl:"kind,label"`
	Dialect  string         `hcl:"dialect,label"`
	Call     string         `hcl:"call"`
	Preamble string         `hcl:"preamble,optional"`
	Imports  []string       `hcl:"imports,optional"`
	Args     hcl.Expression `hcl:"args,optional"`
	Kwargs   hcl.Expression `hcl:"kwargs,optional"`
	Exports  hcl.Expression `hcl:"exports,optional"`
}

// Expressions lists the expressions of the block that are evaluated later.
func (c *constraintBlock) Expressions() []hcl.Expression {
	return []hcl.Expression{c.When, c.RequiresRoots}
}

// Expressions lists the expressions of the block that are evaluated later.
func (p *programBlock) Expressions() []hcl.Expression {
	return []hcl.Expression{p.Args, p.Kwargs, p.Exports}
}
