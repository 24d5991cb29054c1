package planner

import (
	"github.com/planora/planora/modules/planner/infrastructure/runner"
	"github.com/planora/planora/modules/planner/presentation/controllers"
	"github.com/planora/planora/modules/planner/services"
	portfolioservices "github.com/planora/planora/modules/portfolio/services"
	"github.com/planora/planora/pkg/application"
	"github.com/planora/planora/pkg/configuration"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

// Register wires the job service. Depends on the portfolio module for
// project directory validation, so it must load after it.
func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	resolver := app.Service(portfolioservices.PortfolioService{}).(*portfolioservices.PortfolioService)

	app.RegisterServices(
		services.NewJobService(
			runner.NewExecRunner(),
			resolver,
			conf.Planner.CommandLine,
			app.EventPublisher(),
			app.Logger(),
		),
	)

	app.RegisterControllers(
		controllers.NewPlannerAPIController(app),
		controllers.NewJobWSController(app),
	)

	return nil
}

func (m *Module) Name() string {
	return "planner"
}
