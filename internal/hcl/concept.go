package hcl

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/iancoleman/strcase"
	"github.com/specialistvlad/etlgen/internal/concept"
)

// syntheticRootType is the type of the concept wrapping several top-level
// concept blocks.
const syntheticRootType = "Root"

var conceptBodySchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{{Type: "concept", LabelNames: []string{"type"}}},
}

// translateConcept converts a concept block and everything nested in it. The
// returned field is the name the parent should hold the node under.
func translateConcept(typeName string, body hcl.Body) (*concept.Node, string, hcl.Diagnostics) {
	content, remain, diags := body.PartialContent(conceptBodySchema)
	if diags.HasErrors() {
		return nil, "", diags
	}
	attrs, attrDiags := remain.JustAttributes()
	diags = append(diags, attrDiags...)
	if diags.HasErrors() {
		return nil, "", diags
	}

	node := concept.NewNode(typeName)
	field := defaultField(typeName)
	evalCtx := staticContext()
	for _, attr := range sortedAttributes(attrs) {
		val, valDiags := attr.Expr.Value(evalCtx)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			continue
		}

		switch attr.Name {
		case "tag", "field", "uuid":
			s, err := asString(val)
			if err != nil {
				diags = append(diags, attrError(attr, err))
				continue
			}
			switch attr.Name {
			case "tag":
				node.WithTag(s)
			case "field":
				field = s
			case "uuid":
				id, err := uuid.Parse(s)
				if err != nil {
					diags = append(diags, attrError(attr, err))
					continue
				}
				node.WithUUID(id)
			}
		default:
			node.WithAttr(attr.Name, val)
		}
	}

	for _, block := range content.Blocks {
		child, childField, childDiags := translateConcept(block.Labels[0], block.Body)
		diags = append(diags, childDiags...)
		if child != nil {
			node.Add(childField, child)
		}
	}
	if diags.HasErrors() {
		return nil, "", diags
	}
	return node, field, diags
}

// defaultField derives the field name of a child concept from its type.
func defaultField(typeName string) string {
	return strcase.ToSnake(typeName) + "s"
}

func attrError(attr *hcl.Attribute, err error) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf("Invalid %q attribute", attr.Name),
		Detail:   err.Error(),
		Subject:  attr.Expr.Range().Ptr(),
	}
}
