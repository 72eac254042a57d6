package constraint

import (
	"errors"
	"fmt"
)

// ErrInvariant is matched by every *InvariantError.
var ErrInvariant = errors.New("compiler invariant violated")

// InvariantError reports a condition that only a faulty builder or a
// scheduler bug can produce. Compilation stops on the first one.
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: invariant violated: %s", e.Op, e.Msg)
}

func (e *InvariantError) Is(target error) bool { return target == ErrInvariant }

// Invariantf builds an *InvariantError.
func Invariantf(op, format string, args ...any) error {
	return &InvariantError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
