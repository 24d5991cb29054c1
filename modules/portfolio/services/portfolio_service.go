package services

import (
	"errors"
	"strings"

	"github.com/planora/planora/modules/portfolio/domain/portfolio"
	"github.com/planora/planora/modules/portfolio/infrastructure/persistence"
	"github.com/planora/planora/pkg/eventbus"
)

// Fixed column schemas for the input files that have one.
var (
	programsHeader = []string{"name", "color"}
	skillsHeader   = []string{"skill_id", "name", "category", "description"}
)

// PortfolioService exposes portfolio directories and their input files.
type PortfolioService struct {
	store     *persistence.DirStore
	publisher eventbus.EventBus
}

func NewPortfolioService(store *persistence.DirStore, publisher eventbus.EventBus) *PortfolioService {
	return &PortfolioService{store: store, publisher: publisher}
}

func (s *PortfolioService) Root() string {
	return s.store.Root()
}

// Resolve maps a portfolio name to its validated directory. Other modules
// use this to address portfolio files.
func (s *PortfolioService) Resolve(name string) (string, error) {
	return s.store.Resolve(name)
}

// ResolveProjectDir validates a runnable portfolio directory, given as an
// absolute path or a name relative to the root.
func (s *PortfolioService) ResolveProjectDir(raw string) (string, error) {
	return s.store.ResolveProjectDir(raw)
}

func (s *PortfolioService) List() ([]portfolio.Portfolio, error) {
	return s.store.List()
}

func (s *PortfolioService) Create(name string) (portfolio.Portfolio, error) {
	created, err := s.store.Create(strings.TrimSpace(name))
	if err != nil {
		return portfolio.Portfolio{}, err
	}
	s.publisher.Publish(portfolio.NewCreatedEvent(created.Name))
	return created, nil
}

func (s *PortfolioService) Files(name string) (portfolio.FileListing, error) {
	return s.store.Files(name)
}

// People is the raw people.json payload: an array of arbitrary objects whose
// shape belongs to the planning tool, not this service.
func (s *PortfolioService) People(name string) ([]map[string]any, error) {
	var people []map[string]any
	if err := s.store.ReadJSON(name, "people.json", &people); err != nil {
		return nil, err
	}
	return people, nil
}

func (s *PortfolioService) SavePeople(name string, people []map[string]any) error {
	return s.store.WriteJSON(name, "people.json", people)
}

func (s *PortfolioService) Config(name string) (map[string]any, error) {
	var config map[string]any
	if err := s.store.ReadJSON(name, "config.json", &config); err != nil {
		return nil, err
	}
	return config, nil
}

func (s *PortfolioService) SaveConfig(name string, config map[string]any) error {
	return s.store.WriteJSON(name, "config.json", config)
}

func (s *PortfolioService) Projects(name string) ([]map[string]string, error) {
	return s.store.ReadCSV(name, "projects.csv")
}

// SaveProjects rewrites projects.csv. The file has no fixed schema; columns
// follow the existing header plus any new keys.
func (s *PortfolioService) SaveProjects(name string, rows []map[string]string) error {
	header := s.store.CSVHeader(name, "projects.csv", rows)
	return s.store.WriteCSV(name, "projects.csv", header, rows)
}

// Programs returns programs.csv rows; an absent file is an empty list.
func (s *PortfolioService) Programs(name string) ([]map[string]string, error) {
	rows, err := s.store.ReadCSV(name, "programs.csv")
	if err != nil {
		if errors.Is(err, portfolio.ErrFileNotFound) {
			return []map[string]string{}, nil
		}
		return nil, err
	}
	return rows, nil
}

func (s *PortfolioService) SavePrograms(name string, rows []map[string]string) error {
	return s.store.WriteCSV(name, "programs.csv", programsHeader, rows)
}

// Skills returns skills.csv rows; an absent file is an empty list.
func (s *PortfolioService) Skills(name string) ([]map[string]string, error) {
	rows, err := s.store.ReadCSV(name, "skills.csv")
	if err != nil {
		if errors.Is(err, portfolio.ErrFileNotFound) {
			return []map[string]string{}, nil
		}
		return nil, err
	}
	return rows, nil
}

func (s *PortfolioService) SaveSkills(name string, rows []map[string]string) error {
	return s.store.WriteCSV(name, "skills.csv", skillsHeader, rows)
}
