package program

import (
	"fmt"
	"strings"
)

// Dialect is the target execution language of a resolved task.
type Dialect string

const (
	// None marks tasks that execute nothing.
	None   Dialect = ""
	Python Dialect = "python"
	Bash   Dialect = "bash"
	Presto Dialect = "presto"
	R      Dialect = "r"
)

var knownDialects = []Dialect{Python, Bash, Presto, R}

// ParseDialect converts a user-facing name into a Dialect.
func ParseDialect(s string) (Dialect, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, d := range knownDialects {
		if string(d) == name {
			return d, nil
		}
	}
	return None, fmt.Errorf("unknown dialect %q (expected one of python, bash, presto, r)", s)
}

// ParseDialects parses a preference list, keeping its order and dropping
// repeated entries.
func ParseDialects(names []string) ([]Dialect, error) {
	seen := make(map[Dialect]bool, len(names))
	out := make([]Dialect, 0, len(names))
	for _, n := range names {
		d, err := ParseDialect(n)
		if err != nil {
			return nil, err
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out, nil
}

// NeedsEndpoint reports whether statements of this dialect run against a
// remote endpoint.
func (d Dialect) NeedsEndpoint() bool {
	return d == Presto
}

func (d Dialect) String() string {
	if d == None {
		return "none"
	}
	return string(d)
}

// Modes accepted by DefaultPreferences.
const (
	ModeAirflow = "airflow"
	ModePrefect = "prefect"
	ModePython  = "python"
	ModeJupyter = "jupyter"
	ModeR       = "r"
)

// ValidMode reports whether mode names a known output flavour.
func ValidMode(mode string) bool {
	switch mode {
	case ModeAirflow, ModePrefect, ModePython, ModeJupyter, ModeR:
		return true
	}
	return false
}

// DefaultPreferences returns the dialect preference order used for a mode
// when none is configured explicitly.
func DefaultPreferences(mode string) []Dialect {
	if mode == ModeR {
		return []Dialect{R, Python, Bash, Presto}
	}
	return []Dialect{Python, Presto, Bash, R}
}
