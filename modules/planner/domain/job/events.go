package job

// UpdatedEvent is published on every job state transition. The websocket
// layer fans it out to connected clients.
type UpdatedEvent struct {
	Job Job
}

func NewUpdatedEvent(j Job) *UpdatedEvent {
	return &UpdatedEvent{Job: j}
}
