package modules

import (
	"github.com/planora/planora/modules/allocation"
	"github.com/planora/planora/modules/planner"
	"github.com/planora/planora/modules/portfolio"
	"github.com/planora/planora/pkg/application"
)

// BuiltInModules in registration order: portfolio first, the others resolve
// portfolio directories through its service.
var BuiltInModules = []application.Module{
	portfolio.NewModule(),
	allocation.NewModule(),
	planner.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
