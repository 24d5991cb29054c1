package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planora/planora/modules/planner/domain/job"
	"github.com/planora/planora/pkg/application"
	"github.com/planora/planora/pkg/ws"
)

// JobWSController streams job state transitions to websocket clients at
// /ws/jobs. Each transition is sent as one JSON text frame.
type JobWSController struct {
	app application.Application
	hub *ws.Hub
}

func NewJobWSController(app application.Application) application.Controller {
	c := &JobWSController{
		app: app,
		hub: ws.NewHub(&ws.HubOptions{Logger: app.Logger()}),
	}
	app.EventPublisher().Subscribe(c.onJobUpdated)
	return c
}

func (c *JobWSController) Key() string {
	return "/ws/jobs"
}

func (c *JobWSController) Register(r *mux.Router) {
	r.Handle("/ws/jobs", c.hub).Methods(http.MethodGet)
}

func (c *JobWSController) onJobUpdated(event *job.UpdatedEvent) {
	payload, err := json.Marshal(event.Job)
	if err != nil {
		c.app.Logger().WithError(err).Error("encode job update")
		return
	}
	c.hub.Broadcast(payload)
}
