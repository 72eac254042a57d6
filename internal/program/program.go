package program

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/specialistvlad/etlgen/internal/concept"
)

// Target describes the constraint instance a program is resolved for.
type Target struct {
	Kind     string
	UUID     uuid.UUID
	RootUUID uuid.UUID
	RootType string
}

// Program is one implementation of a constraint kind in a given dialect.
//
// ComputeArgs is called concurrently for the instances of a constraint
// block, so implementations must be safe for concurrent use. Each call gets
// its own Context.
type Program interface {
	Dialect() Dialect
	ComputeArgs(root concept.Concept, ancestry []concept.AncestorRecord, ctx *Context, target Target) (Resolution, error)
}

// Resolution is the outcome of resolving a program for one instance.
type Resolution struct {
	Preamble string
	Call     string
	Params   Params
	Dialect  Dialect
	Imports  []string
	Exports  map[string]string
}

// DedupKey identifies the resolution by (preamble, call, params, dialect,
// exports). Exports take part because a folded task hands the
// representative's exports to the dependents of every member.
func (r Resolution) DedupKey() (string, error) {
	params, err := r.Params.Key()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s", r.Dialect, r.Call, params, r.Preamble, exportsKey(r.Exports)), nil
}

func exportsKey(exports map[string]string) string {
	keys := make([]string, 0, len(exports))
	for k := range exports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = strconv.Quote(k) + "=" + strconv.Quote(exports[k])
	}
	return strings.Join(pairs, ",")
}

// Func adapts a plain function to the Program interface.
type Func struct {
	Lang    Dialect
	Compute func(root concept.Concept, ancestry []concept.AncestorRecord, ctx *Context, target Target) (Resolution, error)
}

func (f Func) Dialect() Dialect { return f.Lang }

func (f Func) ComputeArgs(root concept.Concept, ancestry []concept.AncestorRecord, ctx *Context, target Target) (Resolution, error) {
	res, err := f.Compute(root, ancestry, ctx, target)
	if err != nil {
		return Resolution{}, err
	}
	if res.Dialect == None {
		res.Dialect = f.Lang
	}
	return res, nil
}
