package portfolio

import "time"

// CreatedEvent is published after a new portfolio directory is provisioned
// from the sample.
type CreatedEvent struct {
	Name      string
	CreatedAt time.Time
}

func NewCreatedEvent(name string) *CreatedEvent {
	return &CreatedEvent{Name: name, CreatedAt: time.Now()}
}
