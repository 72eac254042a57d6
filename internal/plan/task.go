package plan

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/specialistvlad/etlgen/internal/taskid"
)

// DefaultCollection is the name of the dict every task slot lives in.
const DefaultCollection = "tasks"

// TaskVal is the destination slot of a task.
type TaskVal struct {
	// Collection is empty for plain identifiers.
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Name       string `json:"name" yaml:"name"`
}

// Subscript addresses name inside collection.
func Subscript(collection, name string) TaskVal {
	return TaskVal{Collection: collection, Name: name}
}

// Ident addresses a plain variable.
func Ident(name string) TaskVal {
	return TaskVal{Name: name}
}

// IsSubscript reports whether the slot lives in a collection.
func (v TaskVal) IsSubscript() bool { return v.Collection != "" }

func (v TaskVal) String() string {
	if v.Collection == "" {
		return v.Name
	}
	return fmt.Sprintf("%s[%q]", v.Collection, v.Name)
}

// Task is one resolved, named unit of the plan.
type Task struct {
	ID       taskid.ID
	Name     string
	Kind     string
	Val      TaskVal
	Call     string
	Params   program.Params
	Preamble string
	Dialect  program.Dialect
	Imports  []string
	// Dependencies are the names of the tasks this one waits for, sorted.
	Dependencies []string
	// Aliases are the IDs of identical tasks folded into this one.
	Aliases []taskid.ID
}

// IsDummy reports whether the task executes nothing.
func (t *Task) IsDummy() bool { return t.Call == "" }

// String renders a compact human-readable form of the task.
func (t *Task) String() string {
	if t.IsDummy() {
		return fmt.Sprintf("%s = noop(deps=[%s])", t.Val, strings.Join(t.Dependencies, ", "))
	}
	return fmt.Sprintf("%s = %s(%d args, %d kwargs, deps=[%s])",
		t.Val, t.Call, len(t.Params.Args), len(t.Params.Kwargs), strings.Join(t.Dependencies, ", "))
}
