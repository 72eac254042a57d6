package app

import (
	"github.com/specialistvlad/etlgen/internal/registry"
	"github.com/specialistvlad/etlgen/modules/etl"
)

// coreModules is the definitive list of all Go modules that are compiled
// into the etlgen binary. Documents add their own kinds on top.
var coreModules = []registry.Module{
	&etl.Module{},
}
