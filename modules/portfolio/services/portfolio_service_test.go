package services

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/modules/portfolio/domain/portfolio"
	"github.com/planora/planora/modules/portfolio/infrastructure/persistence"
	"github.com/planora/planora/pkg/eventbus"
)

func newService(t *testing.T) (*PortfolioService, eventbus.EventBus, string) {
	t.Helper()
	root := t.TempDir()
	store, err := persistence.NewDirStore(root)
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	publisher := eventbus.NewEventPublisher(log)
	return NewPortfolioService(store, publisher), publisher, root
}

func seed(t *testing.T, root, name string) {
	t.Helper()
	inputDir := filepath.Join(root, name, "input")
	require.NoError(t, os.MkdirAll(inputDir, 0o755))
	for _, file := range portfolio.RequiredInputFiles {
		require.NoError(t, os.WriteFile(filepath.Join(inputDir, file), []byte("{}"), 0o644))
	}
}

func TestCreate_PublishesEvent(t *testing.T) {
	service, publisher, root := newService(t)
	seed(t, root, persistence.SampleName)

	var created *portfolio.CreatedEvent
	publisher.Subscribe(func(e *portfolio.CreatedEvent) {
		created = e
	})

	_, err := service.Create("  fresh  ")
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, "fresh", created.Name)
}

func TestCreate_InvalidNameDoesNotPublish(t *testing.T) {
	service, publisher, _ := newService(t)

	fired := false
	publisher.Subscribe(func(*portfolio.CreatedEvent) {
		fired = true
	})

	_, err := service.Create("bad name")
	require.Error(t, err)
	require.False(t, fired)
}

func TestProgramsAndSkills_AbsentFilesAreEmpty(t *testing.T) {
	service, _, root := newService(t)
	seed(t, root, "acme")

	programs, err := service.Programs("acme")
	require.NoError(t, err)
	require.Empty(t, programs)

	skills, err := service.Skills("acme")
	require.NoError(t, err)
	require.Empty(t, skills)
}

func TestSaveProgramsRoundTrip(t *testing.T) {
	service, _, root := newService(t)
	seed(t, root, "acme")

	require.NoError(t, service.SavePrograms("acme", []map[string]string{
		{"name": "Growth", "color": "#00ff00"},
	}))

	programs, err := service.Programs("acme")
	require.NoError(t, err)
	require.Len(t, programs, 1)
	require.Equal(t, "Growth", programs[0]["name"])
}

func TestConfigRoundTrip(t *testing.T) {
	service, _, root := newService(t)
	seed(t, root, "acme")

	require.NoError(t, service.SaveConfig("acme", map[string]any{"planning_months": float64(12)}))

	config, err := service.Config("acme")
	require.NoError(t, err)
	require.Equal(t, float64(12), config["planning_months"])
}
