package portfolio

import (
	domain "github.com/planora/planora/modules/portfolio/domain/portfolio"
	"github.com/planora/planora/modules/portfolio/infrastructure/persistence"
	"github.com/planora/planora/modules/portfolio/presentation/controllers"
	"github.com/planora/planora/modules/portfolio/services"
	"github.com/planora/planora/pkg/application"
	"github.com/planora/planora/pkg/configuration"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	store, err := persistence.NewDirStore(conf.PortfoliosRoot)
	if err != nil {
		return err
	}

	app.RegisterServices(
		services.NewPortfolioService(store, app.EventPublisher()),
	)

	app.RegisterControllers(
		controllers.NewPortfolioAPIController(app),
	)

	app.EventPublisher().Subscribe(func(event *domain.CreatedEvent) {
		app.Logger().WithField("portfolio", event.Name).Info("portfolio created")
	})

	return nil
}

func (m *Module) Name() string {
	return "portfolio"
}
