package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/planora/planora/modules/allocation/domain/allocation"
	"github.com/planora/planora/modules/allocation/infrastructure/persistence"
	"github.com/planora/planora/modules/allocation/services"
	portfoliodomain "github.com/planora/planora/modules/portfolio/domain/portfolio"
	"github.com/planora/planora/pkg/application"
	"github.com/planora/planora/pkg/constants"
	"github.com/planora/planora/pkg/httpapi"
	"github.com/planora/planora/pkg/serrors"
)

type AllocationAPIController struct {
	app      application.Application
	matrix   *services.MatrixService
	basePath string
}

func NewAllocationAPIController(app application.Application) application.Controller {
	return &AllocationAPIController{
		app:      app,
		matrix:   app.Service(services.MatrixService{}).(*services.MatrixService),
		basePath: "/api/portfolios/{name}/allocation",
	}
}

func (c *AllocationAPIController) Key() string {
	return "/api/allocation"
}

func (c *AllocationAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.Matrix).Methods(http.MethodGet)
	router.HandleFunc("/edits", c.Edit).Methods(http.MethodPost)
	router.HandleFunc("/changes", c.Changes).Methods(http.MethodGet)
	router.HandleFunc("/discard", c.Discard).Methods(http.MethodPost)
	router.HandleFunc("/commit", c.Commit).Methods(http.MethodPost)
	router.HandleFunc("/audit", c.Audit).Methods(http.MethodGet)
}

func writeAllocationError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, allocation.ErrUnknownCell),
		errors.Is(err, persistence.ErrFeedNotFound),
		errors.Is(err, portfoliodomain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, portfoliodomain.ErrOutsideRoot),
		errors.Is(err, portfoliodomain.ErrInvalidName):
		status = http.StatusBadRequest
	}
	code := "ALLOCATION_INTERNAL"
	message := err.Error()
	var base *serrors.Base
	if errors.As(err, &base) {
		code = base.Code
		message = base.Message
	}
	_ = httpapi.WriteError(w, status, code, message, nil)
}

// Matrix returns the portfolio's current matrix snapshot. Pass reload=true
// to drop the session and re-read the feed.
func (c *AllocationAPIController) Matrix(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var (
		snapshot allocation.Snapshot
		err      error
	)
	if r.URL.Query().Get("reload") == "true" {
		snapshot, err = c.matrix.Load(name)
	} else {
		snapshot, err = c.matrix.Snapshot(name)
	}
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, snapshot)
}

type editRequest struct {
	Person  string `json:"person" validate:"required"`
	Project string `json:"project" validate:"required"`
	Month   string `json:"month" validate:"required"`
	Value   string `json:"value"`
}

func (c *AllocationAPIController) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "ALLOCATION_BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := constants.Validate.Struct(req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "ALLOCATION_BAD_REQUEST", "person, project and month are required", nil)
		return
	}
	result, err := c.matrix.Edit(mux.Vars(r)["name"], req.Person, req.Project, req.Month, req.Value)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"effectiveValue": result.EffectiveValue,
		"cellDirty":      result.CellDirty,
		"pendingCount":   result.PendingCount,
		"personTotal":    result.PersonTotal,
		"roleAverages":   result.RoleAverages,
	})
}

func (c *AllocationAPIController) Changes(w http.ResponseWriter, r *http.Request) {
	changes, err := c.matrix.Changes(mux.Vars(r)["name"])
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	if changes == nil {
		changes = []allocation.Change{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"changes": changes})
}

func (c *AllocationAPIController) Discard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := c.matrix.Discard(mux.Vars(r)["name"])
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, snapshot)
}

const defaultAuditLimit = 50

// Audit returns the portfolio's most recent committed changes, newest first.
// Empty when auditing is disabled.
func (c *AllocationAPIController) Audit(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			_ = httpapi.WriteError(w, http.StatusBadRequest, "ALLOCATION_BAD_REQUEST", "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	entries, err := c.matrix.AuditHistory(r.Context(), mux.Vars(r)["name"], limit)
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	if entries == nil {
		entries = []allocation.AuditEntry{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (c *AllocationAPIController) Commit(w http.ResponseWriter, r *http.Request) {
	result, err := c.matrix.Commit(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeAllocationError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"changesApplied": result.Applied,
		"snapshot":       result.Snapshot,
	})
}
