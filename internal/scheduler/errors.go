package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/etlgen/internal/program"
)

// ErrNoProgram is matched by every *NoProgramError.
var ErrNoProgram = errors.New("no program for constraint")

// NoProgramError reports a program-requiring instance without a program in
// any preferred dialect.
type NoProgramError struct {
	Kind     string
	Root     string
	Dialects []program.Dialect
}

func (e *NoProgramError) Error() string {
	names := make([]string, len(e.Dialects))
	for i, d := range e.Dialects {
		names[i] = d.String()
	}
	return fmt.Sprintf("no program for constraint '%s' on %s in any of the dialects [%s]",
		e.Kind, e.Root, strings.Join(names, ", "))
}

func (e *NoProgramError) Is(target error) bool { return target == ErrNoProgram }
