package taskid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// rootTypeRegex restricts root type names to identifier-like strings.
var rootTypeRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse creates an ID by parsing its canonical string representation.
func Parse(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("task id cannot be empty")
	}

	rootType, rawUUID, found := strings.Cut(raw, ":")
	if !found {
		return ID{}, fmt.Errorf("invalid task id %q: missing ':' separator", raw)
	}
	if !rootTypeRegex.MatchString(rootType) {
		return ID{}, fmt.Errorf("invalid root type in task id %q", raw)
	}

	parsed, err := uuid.Parse(rawUUID)
	if err != nil {
		return ID{}, fmt.Errorf("invalid uuid in task id %q: %w", raw, err)
	}
	return New(parsed, rootType), nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level fixtures.
func MustParse(raw string) ID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return id
}
