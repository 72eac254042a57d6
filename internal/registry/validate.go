package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/etlgen/internal/ctxlog"
)

// ValidateRegistry performs a parity check between builders and programs.
// Every program-requiring kind needs at least one program, every program must
// belong to a known kind, and every required kind must be registered.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, kind := range r.order {
		b := r.builders[kind]
		for _, req := range b.RequiredKinds() {
			if _, ok := r.builders[req]; !ok {
				errs = append(errs, fmt.Sprintf("constraint '%s': requires unknown constraint '%s'", kind, req))
			}
		}

		progs := r.Programs(kind)
		switch {
		case b.RequiresProgram() && len(progs) == 0:
			errs = append(errs, fmt.Sprintf("constraint '%s': requires a program but none is registered", kind))
		case !b.RequiresProgram() && len(progs) > 0:
			logger.Warn("Programs registered for a dummy constraint will never be used.", "kind", kind, "programs", len(progs))
		}
	}

	programKinds := make([]string, 0, len(r.programs))
	for kind := range r.programs {
		programKinds = append(programKinds, kind)
	}
	sort.Strings(programKinds)
	for _, kind := range programKinds {
		if _, ok := r.builders[kind]; !ok {
			errs = append(errs, fmt.Sprintf("program registered for unknown constraint '%s'", kind))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	_, err := r.RelevantBuilders(r.order)
	if err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	return nil
}
