package hcl

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// translateConstraint converts a constraint block into a registry.Definition
// whose predicates evaluate the block's expressions.
func translateConstraint(ctx context.Context, b *constraintBlock) *registry.Definition {
	def := &registry.Definition{
		Name:        b.Name,
		Requires:    b.Requires,
		Root:        b.Root,
		Dummy:       b.Dummy,
		Description: b.Description,
	}

	if isExprDefined(ctx, b.When, "when") {
		expr := b.When
		def.When = func(root concept.Concept, ancestry []concept.AncestorRecord) (bool, error) {
			val, diags := expr.Value(scope(root, ancestry, b.Name, nil))
			if diags.HasErrors() {
				return false, diags
			}
			if val.IsNull() {
				return false, nil
			}
			var ok bool
			if err := decodeValue(val, &ok); err != nil {
				return false, fmt.Errorf("'when' of constraint '%s': %w", b.Name, err)
			}
			return ok, nil
		}
	}

	if isExprDefined(ctx, b.RequiresRoots, "requires_roots") {
		expr := b.RequiresRoots
		def.Roots = func(root concept.Concept, ancestry []concept.AncestorRecord) ([]uuid.UUID, error) {
			return evalUUIDs(expr, scope(root, ancestry, b.Name, nil), b.Name)
		}
	}
	return def
}

func evalUUIDs(expr hcl.Expression, evalCtx *hcl.EvalContext, kind string) ([]uuid.UUID, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}
	var raw []string
	if err := decodeValue(val, &raw); err != nil {
		return nil, fmt.Errorf("'requires_roots' of constraint '%s': %w", kind, err)
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("'requires_roots' of constraint '%s': %q: %w", kind, s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// valueElements returns the elements of a list, tuple or set value.
func valueElements(val cty.Value) ([]cty.Value, error) {
	ty := val.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return nil, fmt.Errorf("expected a list, got %s", ty.FriendlyName())
	}
	out := make([]cty.Value, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		out = append(out, v)
	}
	return out, nil
}
