package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planora/planora/modules/portfolio/domain/portfolio"
	"github.com/planora/planora/modules/portfolio/services"
	"github.com/planora/planora/pkg/application"
	"github.com/planora/planora/pkg/constants"
	"github.com/planora/planora/pkg/httpapi"
	"github.com/planora/planora/pkg/serrors"
)

type PortfolioAPIController struct {
	app        application.Application
	portfolios *services.PortfolioService
	basePath   string
}

func NewPortfolioAPIController(app application.Application) application.Controller {
	return &PortfolioAPIController{
		app:        app,
		portfolios: app.Service(services.PortfolioService{}).(*services.PortfolioService),
		basePath:   "/api/portfolios",
	}
}

func (c *PortfolioAPIController) Key() string {
	return c.basePath
}

func (c *PortfolioAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/{name}/files", c.Files).Methods(http.MethodGet)
	router.HandleFunc("/{name}/people", c.GetPeople).Methods(http.MethodGet)
	router.HandleFunc("/{name}/people", c.SavePeople).Methods(http.MethodPost)
	router.HandleFunc("/{name}/projects", c.GetProjects).Methods(http.MethodGet)
	router.HandleFunc("/{name}/projects", c.SaveProjects).Methods(http.MethodPost)
	router.HandleFunc("/{name}/programs", c.GetPrograms).Methods(http.MethodGet)
	router.HandleFunc("/{name}/programs", c.SavePrograms).Methods(http.MethodPost)
	router.HandleFunc("/{name}/skills", c.GetSkills).Methods(http.MethodGet)
	router.HandleFunc("/{name}/skills", c.SaveSkills).Methods(http.MethodPost)
	router.HandleFunc("/{name}/config", c.GetConfig).Methods(http.MethodGet)
	router.HandleFunc("/{name}/config", c.SaveConfig).Methods(http.MethodPost)
}

// writePortfolioError maps domain errors onto API statuses, keeping the
// coded envelope the rest of the API uses.
func writePortfolioError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, portfolio.ErrNotFound), errors.Is(err, portfolio.ErrFileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, portfolio.ErrInvalidName),
		errors.Is(err, portfolio.ErrAlreadyExist),
		errors.Is(err, portfolio.ErrOutsideRoot):
		status = http.StatusBadRequest
	}
	code := "PORTFOLIO_INTERNAL"
	message := err.Error()
	var base *serrors.Base
	if errors.As(err, &base) {
		code = base.Code
		message = base.Message
	}
	_ = httpapi.WriteError(w, status, code, message, nil)
}

func (c *PortfolioAPIController) List(w http.ResponseWriter, r *http.Request) {
	items, err := c.portfolios.List()
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	if items == nil {
		items = []portfolio.Portfolio{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"portfolios": items})
}

type createPortfolioRequest struct {
	Name string `json:"name" validate:"required"`
}

func (c *PortfolioAPIController) Create(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PORTFOLIO_BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := constants.Validate.Struct(req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PORTFOLIO_BAD_REQUEST", "portfolio name is required", nil)
		return
	}
	created, err := c.portfolios.Create(req.Name)
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, created)
}

func (c *PortfolioAPIController) Files(w http.ResponseWriter, r *http.Request) {
	listing, err := c.portfolios.Files(mux.Vars(r)["name"])
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	if listing.Input == nil {
		listing.Input = []portfolio.FileInfo{}
	}
	if listing.Output == nil {
		listing.Output = []portfolio.FileInfo{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, listing)
}

func (c *PortfolioAPIController) GetPeople(w http.ResponseWriter, r *http.Request) {
	people, err := c.portfolios.People(mux.Vars(r)["name"])
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, people)
}

func (c *PortfolioAPIController) SavePeople(w http.ResponseWriter, r *http.Request) {
	var people []map[string]any
	if err := json.NewDecoder(r.Body).Decode(&people); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PORTFOLIO_BAD_REQUEST", "people data must be an array", nil)
		return
	}
	if err := c.portfolios.SavePeople(mux.Vars(r)["name"], people); err != nil {
		writePortfolioError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (c *PortfolioAPIController) GetProjects(w http.ResponseWriter, r *http.Request) {
	rows, err := c.portfolios.Projects(mux.Vars(r)["name"])
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	if rows == nil {
		rows = []map[string]string{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, rows)
}

func (c *PortfolioAPIController) SaveProjects(w http.ResponseWriter, r *http.Request) {
	c.saveRows(w, r, "projects data must be an array", c.portfolios.SaveProjects)
}

func (c *PortfolioAPIController) GetPrograms(w http.ResponseWriter, r *http.Request) {
	rows, err := c.portfolios.Programs(mux.Vars(r)["name"])
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, rows)
}

func (c *PortfolioAPIController) SavePrograms(w http.ResponseWriter, r *http.Request) {
	c.saveRows(w, r, "programs data must be an array", c.portfolios.SavePrograms)
}

func (c *PortfolioAPIController) GetSkills(w http.ResponseWriter, r *http.Request) {
	rows, err := c.portfolios.Skills(mux.Vars(r)["name"])
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, rows)
}

func (c *PortfolioAPIController) SaveSkills(w http.ResponseWriter, r *http.Request) {
	c.saveRows(w, r, "skills data must be an array", c.portfolios.SaveSkills)
}

func (c *PortfolioAPIController) saveRows(
	w http.ResponseWriter,
	r *http.Request,
	badBodyMessage string,
	save func(name string, rows []map[string]string) error,
) {
	var rows []map[string]string
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PORTFOLIO_BAD_REQUEST", badBodyMessage, nil)
		return
	}
	if err := save(mux.Vars(r)["name"], rows); err != nil {
		writePortfolioError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (c *PortfolioAPIController) GetConfig(w http.ResponseWriter, r *http.Request) {
	config, err := c.portfolios.Config(mux.Vars(r)["name"])
	if err != nil {
		writePortfolioError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, config)
}

func (c *PortfolioAPIController) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var config map[string]any
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PORTFOLIO_BAD_REQUEST", "config data must be an object", nil)
		return
	}
	if err := c.portfolios.SaveConfig(mux.Vars(r)["name"], config); err != nil {
		writePortfolioError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
