// Package compress folds tasks that only differ in some parameter values or
// dependencies into for-loops.
//
// Tasks are grouped by Key. A group of more than one task becomes a
// plan.ForLoop: parameters and dependencies shared by every member are
// hoisted onto the loop, the rest stays with each iteration. A group of one
// stays a standalone task. Expanding a loop yields the original tasks.
package compress

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/zclconf/go-cty/cty"
)

// Key identifies tasks that can share one loop body.
type Key struct {
	Collection string
	Call       string
	Shape      string
	Preamble   string
	Dialect    program.Dialect
}

// KeyOf returns the compression key of t. Only subscript-addressed tasks
// with a call are compressible.
func KeyOf(t *plan.Task) (Key, bool) {
	if !t.Val.IsSubscript() || t.IsDummy() {
		return Key{}, false
	}
	return Key{
		Collection: t.Val.Collection,
		Call:       t.Call,
		Shape:      t.Params.Shape(),
		Preamble:   t.Preamble,
		Dialect:    t.Dialect,
	}, true
}

// Compress turns tasks into code block entries. Entry order follows the
// first member of each group.
func Compress(tasks []*plan.Task) ([]plan.Entry, error) {
	groups := make(map[Key][]*plan.Task)
	var order []Key
	var entries []plan.Entry
	slot := make(map[Key]int)

	for _, t := range tasks {
		key, ok := KeyOf(t)
		if !ok {
			entries = append(entries, plan.Entry{Task: t})
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
			slot[key] = len(entries)
			entries = append(entries, plan.Entry{})
		}
		groups[key] = append(groups[key], t)
	}

	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			entries[slot[key]] = plan.Entry{Task: members[0]}
			continue
		}
		loop, err := buildLoop(key, members)
		if err != nil {
			return nil, fmt.Errorf("failed to compress '%s' tasks: %w", key.Call, err)
		}
		entries[slot[key]] = plan.Entry{Loop: loop}
	}
	return entries, nil
}

func buildLoop(key Key, members []*plan.Task) (*plan.ForLoop, error) {
	first := members[0]
	argCount := len(first.Params.Args)

	staticArgs := make(map[int]cty.Value)
	for i := 0; i < argCount; i++ {
		same, err := allEqual(members, func(t *plan.Task) cty.Value { return t.Params.Args[i] })
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		if same {
			staticArgs[i] = first.Params.Args[i]
		}
	}

	staticKwargs := make(map[string]cty.Value)
	for _, name := range first.Params.KwargNames() {
		same, err := allEqual(members, func(t *plan.Task) cty.Value { return t.Params.Kwargs[name] })
		if err != nil {
			return nil, fmt.Errorf("kwarg %q: %w", name, err)
		}
		if same {
			staticKwargs[name] = first.Params.Kwargs[name]
		}
	}

	staticDeps := commonDeps(members)
	isStatic := make(map[string]bool, len(staticDeps))
	for _, d := range staticDeps {
		isStatic[d] = true
	}

	loop := &plan.ForLoop{
		Kind:         first.Kind,
		Collection:   key.Collection,
		Call:         key.Call,
		Preamble:     key.Preamble,
		Dialect:      key.Dialect,
		Imports:      mergeImports(members),
		ArgCount:     argCount,
		StaticArgs:   staticArgs,
		StaticKwargs: staticKwargs,
		StaticDeps:   staticDeps,
	}
	for _, t := range members {
		item := plan.LoopItem{ID: t.ID, Name: t.Name, Aliases: t.Aliases}
		for i, v := range t.Params.Args {
			if _, ok := staticArgs[i]; ok {
				continue
			}
			if item.Args == nil {
				item.Args = make(map[int]cty.Value)
			}
			item.Args[i] = v
		}
		for name, v := range t.Params.Kwargs {
			if _, ok := staticKwargs[name]; ok {
				continue
			}
			if item.Kwargs == nil {
				item.Kwargs = make(map[string]cty.Value)
			}
			item.Kwargs[name] = v
		}
		for _, d := range t.Dependencies {
			if !isStatic[d] {
				item.Deps = append(item.Deps, d)
			}
		}
		loop.Items = append(loop.Items, item)
	}
	return loop, nil
}

func allEqual(members []*plan.Task, get func(*plan.Task) cty.Value) (bool, error) {
	want, err := program.EncodeValue(get(members[0]))
	if err != nil {
		return false, err
	}
	for _, t := range members[1:] {
		got, err := program.EncodeValue(get(t))
		if err != nil {
			return false, err
		}
		if got != want {
			return false, nil
		}
	}
	return true, nil
}

// commonDeps returns the dependencies present in every member, sorted.
func commonDeps(members []*plan.Task) []string {
	counts := make(map[string]int)
	for _, t := range members {
		seen := make(map[string]bool, len(t.Dependencies))
		for _, d := range t.Dependencies {
			if !seen[d] {
				seen[d] = true
				counts[d]++
			}
		}
	}
	var out []string
	for d, n := range counts {
		if n == len(members) {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

func mergeImports(members []*plan.Task) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range members {
		for _, imp := range t.Imports {
			if !seen[imp] {
				seen[imp] = true
				out = append(out, imp)
			}
		}
	}
	return out
}
