package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is matched by every *CycleError.
var ErrCycle = errors.New("cycle detected")

// CycleError reports that no topological order exists. Remaining lists the
// nodes that could not be ordered, in insertion order.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	if len(e.Remaining) == 0 {
		return "cycle detected"
	}
	return fmt.Sprintf("cycle detected involving node '%s' (unordered: %s)",
		e.Remaining[0], strings.Join(e.Remaining, ", "))
}

func (e *CycleError) Is(target error) bool { return target == ErrCycle }
