package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/tryfunc"
	"github.com/iancoleman/strcase"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/ctxlog"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Names of the variables visible to expressions.
const (
	varRoot      = "root"
	varAncestors = "ancestors"
	varKind      = "kind"
	varContext   = "context"
)

var scopeVariables = map[string]bool{
	varRoot:      true,
	varAncestors: true,
	varKind:      true,
	varContext:   true,
}

var ancestorType = cty.Object(map[string]cty.Type{
	"uuid":  cty.String,
	"type":  cty.String,
	"tag":   cty.String,
	"index": cty.Number,
})

// snakeFunc exposes strcase.ToSnake to expressions.
var snakeFunc = function.New(&function.Spec{
	Params: []function.Parameter{{Name: "str", Type: cty.String}},
	Type:   function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(strcase.ToSnake(args[0].AsString())), nil
	},
})

// functions returns the functions available to every expression.
func functions() map[string]function.Function {
	return map[string]function.Function{
		"can":       tryfunc.CanFunc,
		"coalesce":  stdlib.CoalesceFunc,
		"concat":    stdlib.ConcatFunc,
		"contains":  stdlib.ContainsFunc,
		"element":   stdlib.ElementFunc,
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"keys":      stdlib.KeysFunc,
		"length":    stdlib.LengthFunc,
		"lookup":    stdlib.LookupFunc,
		"lower":     stdlib.LowerFunc,
		"merge":     stdlib.MergeFunc,
		"replace":   stdlib.ReplaceFunc,
		"snake":     snakeFunc,
		"split":     stdlib.SplitFunc,
		"substr":    stdlib.SubstrFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"try":       tryfunc.TryFunc,
		"upper":     stdlib.UpperFunc,
		"values":    stdlib.ValuesFunc,
	}
}

// staticContext evaluates document attributes that may only call functions.
func staticContext() *hcl.EvalContext {
	return &hcl.EvalContext{Functions: functions()}
}

// scope builds the evaluation context of a constraint or program expression.
func scope(root concept.Concept, ancestry []concept.AncestorRecord, kind string, pctx *program.Context) *hcl.EvalContext {
	ctxVal := cty.MapValEmpty(cty.String)
	if pctx != nil {
		ctxVal = pctx.Value()
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			varRoot:      rootValue(root),
			varAncestors: ancestorsValue(ancestry),
			varKind:      cty.StringVal(kind),
			varContext:   ctxVal,
		},
		Functions: functions(),
	}
}

func rootValue(c concept.Concept) cty.Value {
	attrs := cty.EmptyObjectVal
	if a := c.Attributes(); len(a) > 0 {
		attrs = cty.ObjectVal(a)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"uuid":  cty.StringVal(c.UUID().String()),
		"type":  cty.StringVal(c.Type()),
		"tag":   cty.StringVal(c.Tag()),
		"index": cty.NumberIntVal(int64(c.IndexAsChild())),
		"attrs": attrs,
	})
}

func ancestorsValue(ancestry []concept.AncestorRecord) cty.Value {
	if len(ancestry) == 0 {
		return cty.ListValEmpty(ancestorType)
	}
	vals := make([]cty.Value, len(ancestry))
	for i, a := range ancestry {
		vals[i] = cty.ObjectVal(map[string]cty.Value{
			"uuid":  cty.StringVal(a.UUID.String()),
			"type":  cty.StringVal(a.Type),
			"tag":   cty.StringVal(a.Tag),
			"index": cty.NumberIntVal(int64(a.Index)),
		})
	}
	return cty.ListVal(vals)
}

// isExprDefined checks if an HCL expression was actually present in the
// source. The decoder populates omitted optional expression fields with a
// zero-width placeholder, so a nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}

// decodeValue converts val to the type implied by the Go target and stores
// it there.
func decodeValue(val cty.Value, target any) error {
	ty, err := gocty.ImpliedType(target)
	if err != nil {
		return err
	}
	converted, err := convert.Convert(val, ty)
	if err != nil {
		return fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), ty.FriendlyName(), err)
	}
	return gocty.FromCtyValue(converted, target)
}

// asString converts a primitive value to its string form.
func asString(val cty.Value) (string, error) {
	if val.IsNull() {
		return "", nil
	}
	var s string
	if err := decodeValue(val, &s); err != nil {
		return "", err
	}
	return s, nil
}

// sortedAttributes returns attrs ordered by name.
func sortedAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	out := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
