package registry

import (
	"context"

	"github.com/specialistvlad/etlgen/internal/ctxlog"
)

// Load registers every module in order.
func (r *Registry) Load(ctx context.Context, modules ...Module) {
	logger := ctxlog.FromContext(ctx)
	for _, m := range modules {
		m.Register(r)
	}
	programs := 0
	for _, p := range r.programs {
		programs += len(p)
	}
	logger.Debug("Registry loaded.", "modules", len(modules), "builders", len(r.order), "programs", programs)
}
