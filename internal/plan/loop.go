package plan

import (
	"sort"

	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/taskid"
	"github.com/zclconf/go-cty/cty"
)

// LoopItem is one iteration of a ForLoop: the values that differ between
// the compressed tasks.
type LoopItem struct {
	ID      taskid.ID
	Name    string
	Args    map[int]cty.Value
	Kwargs  map[string]cty.Value
	Deps    []string
	Aliases []taskid.ID
}

// ForLoop stands for several tasks with the same call, preamble, dialect and
// parameter shape. Values shared by every member are hoisted into the Static
// fields; the rest stays per item.
type ForLoop struct {
	Kind       string
	Collection string
	Call       string
	Preamble   string
	Dialect    program.Dialect
	Imports    []string
	ArgCount   int

	StaticArgs   map[int]cty.Value
	StaticKwargs map[string]cty.Value
	StaticDeps   []string

	Items []LoopItem
}

// Expand substitutes every item back into the loop body and returns the
// original tasks.
func (l *ForLoop) Expand() []*Task {
	tasks := make([]*Task, 0, len(l.Items))
	for _, item := range l.Items {
		args := make([]cty.Value, l.ArgCount)
		for i := 0; i < l.ArgCount; i++ {
			if v, ok := l.StaticArgs[i]; ok {
				args[i] = v
				continue
			}
			args[i] = item.Args[i]
		}
		var kwargs map[string]cty.Value
		if len(l.StaticKwargs)+len(item.Kwargs) > 0 {
			kwargs = make(map[string]cty.Value, len(l.StaticKwargs)+len(item.Kwargs))
			for k, v := range l.StaticKwargs {
				kwargs[k] = v
			}
			for k, v := range item.Kwargs {
				kwargs[k] = v
			}
		}
		if l.ArgCount == 0 {
			args = nil
		}

		deps := make([]string, 0, len(l.StaticDeps)+len(item.Deps))
		deps = append(deps, l.StaticDeps...)
		deps = append(deps, item.Deps...)
		sort.Strings(deps)

		tasks = append(tasks, &Task{
			ID:           item.ID,
			Name:         item.Name,
			Kind:         l.Kind,
			Val:          Subscript(l.Collection, item.Name),
			Call:         l.Call,
			Params:       program.Params{Args: args, Kwargs: kwargs},
			Preamble:     l.Preamble,
			Dialect:      l.Dialect,
			Imports:      l.Imports,
			Dependencies: deps,
			Aliases:      item.Aliases,
		})
	}
	return tasks
}
