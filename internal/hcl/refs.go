package hcl

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// traversalKey generates a stable, canonical string representation for an
// hcl.Traversal, suitable for use as a map key.
func traversalKey(t hcl.Traversal) string {
	// e.g., root.attrs.url
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// expressioner is implemented by block structs that carry expressions
// evaluated after loading.
type expressioner interface {
	Expressions() []hcl.Expression
}

// checkReferences reports every variable and function used by the block's
// expressions that will not exist at evaluation time.
func checkReferences(block expressioner) hcl.Diagnostics {
	var diags hcl.Diagnostics
	known := functions()

	refs, funcs := extractReferencesAndFunctions(block.Expressions()...)
	for _, ref := range refs {
		if scopeVariables[ref.RootName()] {
			continue
		}
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown variable",
			Detail:   fmt.Sprintf("Reference to %q: only root, ancestors, kind and context are available.", traversalKey(ref)),
			Subject:  ref.SourceRange().Ptr(),
		})
	}
	for _, call := range funcs {
		if _, ok := known[call.Name]; ok {
			continue
		}
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Call to unknown function",
			Detail:   fmt.Sprintf("There is no function named %q.", call.Name),
			Subject:  call.NameRange.Ptr(),
		})
	}
	return diags
}

// extractReferencesAndFunctions walks expressions to find all unique
// variable traversals and function calls, each sorted for a deterministic
// order.
func extractReferencesAndFunctions(exprs ...hcl.Expression) ([]hcl.Traversal, []*hclsyntax.FunctionCallExpr) {
	traversals := make(map[string]hcl.Traversal)
	calls := make(map[string]*hclsyntax.FunctionCallExpr)

	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		for _, t := range expr.Variables() {
			traversals[traversalKey(t)] = t
		}
		if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
			walkForFunctions(syntaxExpr, calls)
		}
	}

	keys := make([]string, 0, len(traversals))
	for k := range traversals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	refs := make([]hcl.Traversal, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, traversals[k])
	}

	names := make([]string, 0, len(calls))
	for name := range calls {
		names = append(names, name)
	}
	sort.Strings(names)
	funcs := make([]*hclsyntax.FunctionCallExpr, 0, len(names))
	for _, name := range names {
		funcs = append(funcs, calls[name])
	}
	return refs, funcs
}

// walkForFunctions recursively walks the syntax tree looking for function
// calls, keeping the first call of each name.
func walkForFunctions(expr hclsyntax.Expression, calls map[string]*hclsyntax.FunctionCallExpr) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		if _, seen := calls[e.Name]; !seen {
			calls[e.Name] = e
		}
		for _, arg := range e.Args {
			walkForFunctions(arg, calls)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, calls)
		walkForFunctions(e.RHS, calls)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, calls)
		walkForFunctions(e.TrueResult, calls)
		walkForFunctions(e.FalseResult, calls)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, calls)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walkForFunctions(part, calls)
		}
	case *hclsyntax.TemplateWrapExpr:
		walkForFunctions(e.Wrapped, calls)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkForFunctions(item, calls)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkForFunctions(item.KeyExpr, calls)
			walkForFunctions(item.ValueExpr, calls)
		}
	case *hclsyntax.ObjectConsKeyExpr:
		walkForFunctions(e.Wrapped, calls)
	case *hclsyntax.ForExpr:
		walkForFunctions(e.CollExpr, calls)
		walkForFunctions(e.KeyExpr, calls)
		walkForFunctions(e.ValExpr, calls)
		walkForFunctions(e.CondExpr, calls)
	case *hclsyntax.IndexExpr:
		walkForFunctions(e.Collection, calls)
		walkForFunctions(e.Key, calls)
	case *hclsyntax.SplatExpr:
		walkForFunctions(e.Source, calls)
		walkForFunctions(e.Each, calls)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, calls)
	}
}
