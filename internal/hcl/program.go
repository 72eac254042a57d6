package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/etlgen/internal/concept"
	"github.com/specialistvlad/etlgen/internal/program"
	"github.com/zclconf/go-cty/cty"
)

// exprProgram is a program whose parameters are HCL expressions evaluated
// against the instance's root concept.
type exprProgram struct {
	kind     string
	dialect  program.Dialect
	call     string
	preamble string
	imports  []string

	args    hcl.Expression
	kwargs  hcl.Expression
	exports hcl.Expression
}

func translateProgram(ctx context.Context, b *programBlock) (*exprProgram, error) {
	d, err := program.ParseDialect(b.Dialect)
	if err != nil {
		return nil, fmt.Errorf("program '%s': %w", b.Kind, err)
	}
	p := &exprProgram{
		kind:     b.Kind,
		dialect:  d,
		call:     b.Call,
		preamble: b.Preamble,
		imports:  b.Imports,
	}
	if isExprDefined(ctx, b.Args, "args") {
		p.args = b.Args
	}
	if isExprDefined(ctx, b.Kwargs, "kwargs") {
		p.kwargs = b.Kwargs
	}
	if isExprDefined(ctx, b.Exports, "exports") {
		p.exports = b.Exports
	}
	return p, nil
}

func (p *exprProgram) Dialect() program.Dialect { return p.dialect }

func (p *exprProgram) ComputeArgs(root concept.Concept, ancestry []concept.AncestorRecord, pctx *program.Context, target program.Target) (program.Resolution, error) {
	evalCtx := scope(root, ancestry, target.Kind, pctx)
	res := program.Resolution{
		Preamble: p.preamble,
		Call:     p.call,
		Dialect:  p.dialect,
		Imports:  p.imports,
	}

	if p.args != nil {
		val, diags := p.args.Value(evalCtx)
		if diags.HasErrors() {
			return program.Resolution{}, diags
		}
		if !val.IsNull() {
			args, err := valueElements(val)
			if err != nil {
				return program.Resolution{}, fmt.Errorf("'args': %w", err)
			}
			res.Params.Args = args
		}
	}

	if p.kwargs != nil {
		val, diags := p.kwargs.Value(evalCtx)
		if diags.HasErrors() {
			return program.Resolution{}, diags
		}
		if !val.IsNull() {
			if !val.Type().IsObjectType() && !val.Type().IsMapType() {
				return program.Resolution{}, fmt.Errorf("'kwargs': expected an object, got %s", val.Type().FriendlyName())
			}
			vm := val.AsValueMap()
			res.Params.Kwargs = make(map[string]cty.Value, len(vm))
			for name, v := range vm {
				res.Params.Kwargs[name] = v
			}
		}
	}

	if p.exports != nil {
		val, diags := p.exports.Value(evalCtx)
		if diags.HasErrors() {
			return program.Resolution{}, diags
		}
		if !val.IsNull() {
			var exports map[string]string
			if err := decodeValue(val, &exports); err != nil {
				return program.Resolution{}, fmt.Errorf("'exports': %w", err)
			}
			res.Exports = exports
		}
	}
	return res, nil
}
