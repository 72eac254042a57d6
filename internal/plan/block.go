package plan

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/etlgen/internal/program"
)

// Entry is either a standalone task or a loop over compressed tasks.
type Entry struct {
	Task *Task
	Loop *ForLoop
}

// Tasks returns the tasks the entry stands for.
func (e Entry) Tasks() []*Task {
	if e.Loop != nil {
		return e.Loop.Expand()
	}
	return []*Task{e.Task}
}

// CodeBlock is the same-dialect part of a ConstraintBlock.
type CodeBlock struct {
	Dialect program.Dialect
	Entries []Entry
	// identifiers maps every instance UUID resolved in this block, folded
	// duplicates included, to its slot.
	identifiers map[uuid.UUID]TaskVal
}

// NewCodeBlock creates an empty code block.
func NewCodeBlock(d program.Dialect) *CodeBlock {
	return &CodeBlock{Dialect: d, identifiers: make(map[uuid.UUID]TaskVal)}
}

// SetIdentifier records the slot of an instance UUID.
func (c *CodeBlock) SetIdentifier(id uuid.UUID, val TaskVal) {
	c.identifiers[id] = val
}

// Identifiers returns a copy of the UUID to slot table.
func (c *CodeBlock) Identifiers() map[uuid.UUID]TaskVal {
	out := make(map[uuid.UUID]TaskVal, len(c.identifiers))
	for k, v := range c.identifiers {
		out[k] = v
	}
	return out
}

// Tasks returns every task of the block, loops expanded, in entry order.
func (c *CodeBlock) Tasks() []*Task {
	var out []*Task
	for _, e := range c.Entries {
		out = append(out, e.Tasks()...)
	}
	return out
}

// Statement is one renderable unit of a code block.
type Statement struct {
	Task *Task
	Loop *ForLoop
	// Endpoint is set for dialects that execute against a remote service.
	Endpoint string
}

// Statements returns the statements of the block together with the distinct
// preambles and imports they need, both in first-use order. endpoints maps a
// dialect to the service its statements run against; a dialect that needs an
// endpoint but has none configured is an error.
func (c *CodeBlock) Statements(endpoints map[program.Dialect]string) ([]Statement, []string, []string, error) {
	var endpoint string
	if c.Dialect.NeedsEndpoint() {
		ep, ok := endpoints[c.Dialect]
		if !ok || ep == "" {
			return nil, nil, nil, fmt.Errorf("no endpoint configured for dialect '%s'", c.Dialect)
		}
		endpoint = ep
	}

	var (
		statements []Statement
		preambles  []string
		imports    []string
	)
	seenPreamble := make(map[string]bool)
	seenImport := make(map[string]bool)
	collect := func(preamble string, imps []string) {
		if preamble != "" && !seenPreamble[preamble] {
			seenPreamble[preamble] = true
			preambles = append(preambles, preamble)
		}
		for _, imp := range imps {
			if !seenImport[imp] {
				seenImport[imp] = true
				imports = append(imports, imp)
			}
		}
	}

	for _, e := range c.Entries {
		switch {
		case e.Loop != nil:
			collect(e.Loop.Preamble, e.Loop.Imports)
			statements = append(statements, Statement{Loop: e.Loop, Endpoint: endpoint})
		case e.Task != nil:
			collect(e.Task.Preamble, e.Task.Imports)
			statements = append(statements, Statement{Task: e.Task, Endpoint: endpoint})
		}
	}
	return statements, preambles, imports, nil
}

// ConstraintBlock holds everything one constraint kind contributes.
type ConstraintBlock struct {
	Kind       string
	codeBlocks []*CodeBlock
}

// NewConstraintBlock creates a block for kind.
func NewConstraintBlock(kind string, codeBlocks []*CodeBlock) *ConstraintBlock {
	return &ConstraintBlock{Kind: kind, codeBlocks: codeBlocks}
}

// CodeBlocks returns the code blocks in dialect first-use order.
func (b *ConstraintBlock) CodeBlocks() []*CodeBlock { return b.codeBlocks }

// Assignment binds a task slot to the task name stored in it.
type Assignment struct {
	Val  TaskVal
	Name string
}

// TaskValAssignments lists every task slot written by the block.
func (b *ConstraintBlock) TaskValAssignments() []Assignment {
	var out []Assignment
	for _, cb := range b.codeBlocks {
		for _, t := range cb.Tasks() {
			out = append(out, Assignment{Val: t.Val, Name: t.Name})
		}
	}
	return out
}

// Identifiers merges the identifier tables of all code blocks.
func (b *ConstraintBlock) Identifiers() map[uuid.UUID]TaskVal {
	out := make(map[uuid.UUID]TaskVal)
	for _, cb := range b.codeBlocks {
		for k, v := range cb.identifiers {
			out[k] = v
		}
	}
	return out
}

// Tasks returns every task of the block.
func (b *ConstraintBlock) Tasks() []*Task {
	var out []*Task
	for _, cb := range b.codeBlocks {
		out = append(out, cb.Tasks()...)
	}
	return out
}

// Plan is the full compilation result.
type Plan struct {
	Mode     string
	Dialects []program.Dialect
	Blocks   []*ConstraintBlock
}

// Identifiers merges the identifier tables of all blocks.
func (p *Plan) Identifiers() map[uuid.UUID]TaskVal {
	out := make(map[uuid.UUID]TaskVal)
	for _, b := range p.Blocks {
		for k, v := range b.Identifiers() {
			out[k] = v
		}
	}
	return out
}

// Tasks returns every task of the plan in emission order.
func (p *Plan) Tasks() []*Task {
	var out []*Task
	for _, b := range p.Blocks {
		out = append(out, b.Tasks()...)
	}
	return out
}
