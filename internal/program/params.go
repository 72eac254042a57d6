package program

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Params is the parameter tuple of a call.
type Params struct {
	Args   []cty.Value
	Kwargs map[string]cty.Value
}

// KwargNames returns the keyword names in sorted order.
func (p Params) KwargNames() []string {
	names := make([]string, 0, len(p.Kwargs))
	for k := range p.Kwargs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Shape identifies the structure of the parameters while ignoring their
// values: the positional count and the keyword names.
func (p Params) Shape() string {
	return fmt.Sprintf("%d|%s", len(p.Args), strings.Join(p.KwargNames(), ","))
}

// Key is a canonical encoding of the parameter values. Equal keys mean equal
// parameters.
func (p Params) Key() (string, error) {
	args := make([]string, len(p.Args))
	for i, v := range p.Args {
		enc, err := EncodeValue(v)
		if err != nil {
			return "", fmt.Errorf("arg %d: %w", i, err)
		}
		args[i] = enc
	}
	kwargs := make([]string, 0, len(p.Kwargs))
	for _, name := range p.KwargNames() {
		enc, err := EncodeValue(p.Kwargs[name])
		if err != nil {
			return "", fmt.Errorf("kwarg %q: %w", name, err)
		}
		kwargs = append(kwargs, name+"="+enc)
	}
	return "[" + strings.Join(args, ",") + "]{" + strings.Join(kwargs, ",") + "}", nil
}

// EncodeValue renders a single value as JSON, including its type so that
// the string "1" and the number 1 never compare equal.
func EncodeValue(v cty.Value) (string, error) {
	if v.IsNull() {
		return "null", nil
	}
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("value is not fully known")
	}
	data, err := ctyjson.Marshal(v, cty.DynamicPseudoType)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
