package program

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Context carries string values exported by already-resolved dependencies to
// the programs of their dependents.
type Context struct {
	values map[string]string
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{values: make(map[string]string)}
}

// Set stores a value, replacing any previous one.
func (c *Context) Set(key, value string) {
	c.values[key] = value
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Merge copies every value of other into c. Existing keys are overwritten.
func (c *Context) Merge(other map[string]string) {
	for k, v := range other {
		c.values[k] = v
	}
}

// Keys returns the stored keys in sorted order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value exposes the context as a cty map of strings for expression evaluation.
func (c *Context) Value() cty.Value {
	if len(c.values) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	m := make(map[string]cty.Value, len(c.values))
	for k, v := range c.values {
		m[k] = cty.StringVal(v)
	}
	return cty.MapVal(m)
}
