package planio

import (
	"fmt"
	"math/big"

	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/zclconf/go-cty/cty"
)

// Document is the serializable form of a plan.Plan.
type Document struct {
	Mode     string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Dialects []string `json:"dialects" yaml:"dialects"`
	Blocks   []*Block `json:"blocks" yaml:"blocks"`
}

// Block is the serializable form of a plan.ConstraintBlock.
type Block struct {
	Kind       string       `json:"kind" yaml:"kind"`
	CodeBlocks []*CodeBlock `json:"code_blocks" yaml:"code_blocks"`
}

// CodeBlock is the serializable form of a plan.CodeBlock.
type CodeBlock struct {
	Dialect     string            `json:"dialect" yaml:"dialect"`
	Endpoint    string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Imports     []string          `json:"imports,omitempty" yaml:"imports,omitempty"`
	Preambles   []string          `json:"preambles,omitempty" yaml:"preambles,omitempty"`
	Statements  []*Statement      `json:"statements" yaml:"statements"`
	Identifiers map[string]string `json:"identifiers" yaml:"identifiers"`
}

// Statement holds exactly one of Task or Loop.
type Statement struct {
	Task *Task `json:"task,omitempty" yaml:"task,omitempty"`
	Loop *Loop `json:"loop,omitempty" yaml:"loop,omitempty"`
}

// Task is a standalone task.
type Task struct {
	Name         string         `json:"name" yaml:"name"`
	Kind         string         `json:"kind" yaml:"kind"`
	Val          string         `json:"val" yaml:"val"`
	Call         string         `json:"call,omitempty" yaml:"call,omitempty"`
	Args         []any          `json:"args,omitempty" yaml:"args,omitempty"`
	Kwargs       map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Aliases      []string       `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Loop is a for-loop over compressed tasks. Arguments are keyed by position.
type Loop struct {
	Kind         string         `json:"kind" yaml:"kind"`
	Collection   string         `json:"collection" yaml:"collection"`
	Call         string         `json:"call" yaml:"call"`
	ArgCount     int            `json:"arg_count" yaml:"arg_count"`
	StaticArgs   map[int]any    `json:"static_args,omitempty" yaml:"static_args,omitempty"`
	StaticKwargs map[string]any `json:"static_kwargs,omitempty" yaml:"static_kwargs,omitempty"`
	StaticDeps   []string       `json:"static_deps,omitempty" yaml:"static_deps,omitempty"`
	Items        []*LoopItem    `json:"items" yaml:"items"`
}

// LoopItem is one iteration of a Loop.
type LoopItem struct {
	Name   string         `json:"name" yaml:"name"`
	Args   map[int]any    `json:"args,omitempty" yaml:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
	Deps   []string       `json:"deps,omitempty" yaml:"deps,omitempty"`
}

// NewDocument converts p. endpoints is passed to plan.CodeBlock.Statements.
func NewDocument(p *plan.Plan, endpoints map[program.Dialect]string) (*Document, error) {
	doc := &Document{
		Mode:     p.Mode,
		Dialects: make([]string, len(p.Dialects)),
		Blocks:   make([]*Block, 0, len(p.Blocks)),
	}
	for i, d := range p.Dialects {
		doc.Dialects[i] = d.String()
	}
	for _, b := range p.Blocks {
		block, err := NewBlock(b, endpoints)
		if err != nil {
			return nil, err
		}
		doc.Blocks = append(doc.Blocks, block)
	}
	return doc, nil
}

// NewBlock converts a single constraint block.
func NewBlock(b *plan.ConstraintBlock, endpoints map[program.Dialect]string) (*Block, error) {
	block := &Block{Kind: b.Kind}
	for _, cb := range b.CodeBlocks() {
		statements, preambles, imports, err := cb.Statements(endpoints)
		if err != nil {
			return nil, fmt.Errorf("constraint '%s': %w", b.Kind, err)
		}
		out := &CodeBlock{
			Dialect:     cb.Dialect.String(),
			Imports:     imports,
			Preambles:   preambles,
			Identifiers: make(map[string]string),
		}
		for id, val := range cb.Identifiers() {
			out.Identifiers[id.String()] = val.String()
		}
		for _, st := range statements {
			out.Endpoint = st.Endpoint
			s, err := newStatement(st)
			if err != nil {
				return nil, fmt.Errorf("constraint '%s': %w", b.Kind, err)
			}
			out.Statements = append(out.Statements, s)
		}
		block.CodeBlocks = append(block.CodeBlocks, out)
	}
	return block, nil
}

func newStatement(st plan.Statement) (*Statement, error) {
	if st.Loop != nil {
		loop, err := newLoop(st.Loop)
		return &Statement{Loop: loop}, err
	}
	task, err := newTask(st.Task)
	return &Statement{Task: task}, err
}

func newTask(t *plan.Task) (*Task, error) {
	args, err := nativeList(t.Params.Args)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.Name, err)
	}
	kwargs, err := nativeMap(t.Params.Kwargs)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.Name, err)
	}
	out := &Task{
		Name:         t.Name,
		Kind:         t.Kind,
		Val:          t.Val.String(),
		Call:         t.Call,
		Args:         args,
		Kwargs:       kwargs,
		Dependencies: t.Dependencies,
	}
	for _, a := range t.Aliases {
		out.Aliases = append(out.Aliases, a.String())
	}
	return out, nil
}

func newLoop(l *plan.ForLoop) (*Loop, error) {
	staticArgs, err := nativeIndexed(l.StaticArgs)
	if err != nil {
		return nil, fmt.Errorf("loop %s: %w", l.Call, err)
	}
	staticKwargs, err := nativeMap(l.StaticKwargs)
	if err != nil {
		return nil, fmt.Errorf("loop %s: %w", l.Call, err)
	}
	out := &Loop{
		Kind:         l.Kind,
		Collection:   l.Collection,
		Call:         l.Call,
		ArgCount:     l.ArgCount,
		StaticArgs:   staticArgs,
		StaticKwargs: staticKwargs,
		StaticDeps:   l.StaticDeps,
	}
	for _, item := range l.Items {
		args, err := nativeIndexed(item.Args)
		if err != nil {
			return nil, fmt.Errorf("loop item %s: %w", item.Name, err)
		}
		kwargs, err := nativeMap(item.Kwargs)
		if err != nil {
			return nil, fmt.Errorf("loop item %s: %w", item.Name, err)
		}
		out.Items = append(out.Items, &LoopItem{Name: item.Name, Args: args, Kwargs: kwargs, Deps: item.Deps})
	}
	return out, nil
}

func nativeList(vals []cty.Value) ([]any, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		n, err := Native(v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func nativeMap(vals map[string]cty.Value) (map[string]any, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(vals))
	for k, v := range vals {
		n, err := Native(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func nativeIndexed(vals map[int]cty.Value) (map[int]any, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make(map[int]any, len(vals))
	for i, v := range vals {
		n, err := Native(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// Native converts a cty value into plain Go values: string, bool, int64 or
// float64, []any and map[string]any. Null becomes nil.
func Native(v cty.Value) (any, error) {
	if !v.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			n, err := Native(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		vm := v.AsValueMap()
		out := make(map[string]any, len(vm))
		for k, ev := range vm {
			n, err := Native(ev)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
