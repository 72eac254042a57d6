package registry

import (
	"errors"
	"fmt"
)

// ErrMissingBuilder is matched by every *MissingBuilderError.
var ErrMissingBuilder = errors.New("missing constraint builder")

// MissingBuilderError names a kind that was requested, or required by another
// kind, but has no registered builder.
type MissingBuilderError struct {
	Kind string
	// RequiredBy is empty when the kind was requested directly.
	RequiredBy string
}

func (e *MissingBuilderError) Error() string {
	if e.RequiredBy == "" {
		return fmt.Sprintf("no builder registered for requested constraint '%s'", e.Kind)
	}
	return fmt.Sprintf("no builder registered for constraint '%s' required by '%s'", e.Kind, e.RequiredBy)
}

func (e *MissingBuilderError) Is(target error) bool { return target == ErrMissingBuilder }
