package allocation

import (
	allocationdomain "github.com/planora/planora/modules/allocation/domain/allocation"
	"github.com/planora/planora/modules/allocation/infrastructure/feed"
	"github.com/planora/planora/modules/allocation/infrastructure/persistence"
	"github.com/planora/planora/modules/allocation/presentation/controllers"
	"github.com/planora/planora/modules/allocation/services"
	portfolioservices "github.com/planora/planora/modules/portfolio/services"
	"github.com/planora/planora/pkg/application"
	"github.com/planora/planora/pkg/configuration"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

// Register wires the matrix service. Depends on the portfolio module for
// name resolution, so it must load after it.
func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	resolver := app.Service(portfolioservices.PortfolioService{}).(*portfolioservices.PortfolioService)

	var audit services.AuditTrail
	if conf.Database.Enabled {
		audit = persistence.NewAuditRepository()
	}

	app.RegisterServices(
		services.NewMatrixService(
			feed.NewCapacityFeed(),
			persistence.NewCapacityFileGateway(),
			audit,
			resolver,
			app.EventPublisher(),
			app.Logger(),
		),
	)

	app.RegisterControllers(
		controllers.NewAllocationAPIController(app),
	)

	app.EventPublisher().Subscribe(func(event *allocationdomain.CommittedEvent) {
		app.Logger().WithFields(map[string]interface{}{
			"portfolio": event.Portfolio,
			"changes":   len(event.Changes),
			"applied":   event.Applied,
		}).Info("allocation changes committed")
	})

	return nil
}

func (m *Module) Name() string {
	return "allocation"
}
