package allocation

import "time"

// CommittedEvent is published after edits are durably written back to a
// portfolio's capacity feed.
type CommittedEvent struct {
	Portfolio   string
	Changes     []Change
	Applied     int
	CommittedAt time.Time
}

func NewCommittedEvent(portfolio string, changes []Change, applied int) *CommittedEvent {
	return &CommittedEvent{
		Portfolio:   portfolio,
		Changes:     changes,
		Applied:     applied,
		CommittedAt: time.Now(),
	}
}
