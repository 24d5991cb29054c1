package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planora/planora/modules/planner/domain/job"
	"github.com/planora/planora/modules/planner/services"
	portfoliodomain "github.com/planora/planora/modules/portfolio/domain/portfolio"
	"github.com/planora/planora/pkg/application"
	"github.com/planora/planora/pkg/constants"
	"github.com/planora/planora/pkg/httpapi"
	"github.com/planora/planora/pkg/serrors"
)

type PlannerAPIController struct {
	app      application.Application
	jobs     *services.JobService
	basePath string
}

func NewPlannerAPIController(app application.Application) application.Controller {
	return &PlannerAPIController{
		app:      app,
		jobs:     app.Service(services.JobService{}).(*services.JobService),
		basePath: "/api/jobs",
	}
}

func (c *PlannerAPIController) Key() string {
	return c.basePath
}

func (c *PlannerAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.Run).Methods(http.MethodPost)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Status).Methods(http.MethodGet)
}

func writePlannerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, job.ErrNotFound), errors.Is(err, portfoliodomain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, portfoliodomain.ErrOutsideRoot):
		status = http.StatusBadRequest
	}
	code := "PLANNER_INTERNAL"
	message := err.Error()
	var base *serrors.Base
	if errors.As(err, &base) {
		code = base.Code
		message = base.Message
	}
	_ = httpapi.WriteError(w, status, code, message, nil)
}

type runRequest struct {
	ProjectDir string `json:"project_dir" validate:"required"`
}

// Run starts a planner job and returns 202 with the job id and its status
// URL.
func (c *PlannerAPIController) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PLANNER_BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := constants.Validate.Struct(req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "PLANNER_BAD_REQUEST", "project_dir is required", nil)
		return
	}
	created, err := c.jobs.Run(r.Context(), req.ProjectDir)
	if err != nil {
		// A bad project dir is a client problem no matter the shape of the
		// resolver error.
		if !errors.Is(err, portfoliodomain.ErrNotFound) && !errors.Is(err, portfoliodomain.ErrOutsideRoot) {
			_ = httpapi.WriteError(w, http.StatusBadRequest, "PLANNER_BAD_REQUEST", err.Error(), nil)
			return
		}
		writePlannerError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     created.ID,
		"status_url": c.basePath + "/" + created.ID,
	})
}

func (c *PlannerAPIController) List(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"jobs": c.jobs.List()})
}

func (c *PlannerAPIController) Status(w http.ResponseWriter, r *http.Request) {
	found, err := c.jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		writePlannerError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, found)
}
