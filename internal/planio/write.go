package planio

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/etlgen/internal/plan"
	"github.com/specialistvlad/etlgen/internal/program"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// ParseFormat validates a user-facing format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case YAML, JSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected yaml or json)", s)
}

// Write encodes p to w.
func Write(w io.Writer, p *plan.Plan, format Format, endpoints map[program.Dialect]string) error {
	doc, err := NewDocument(p, endpoints)
	if err != nil {
		return err
	}
	return Encode(w, doc, format)
}

// Encode writes any serializable value, typically a Document or a Block.
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case YAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}
