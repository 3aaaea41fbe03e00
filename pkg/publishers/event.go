package publishers

import (
	"time"

	"github.com/samvad-hq/zosmf-probe/internal/domain"
)

// Event represents the payload published downstream after a status check.
type Event struct {
	Profile   string              `json:"profile"`
	Outcome   domain.CheckOutcome `json:"outcome"`
	EmittedAt time.Time           `json:"emitted_at"`
}

// NewEvent constructs an Event for the given outcome.
func NewEvent(outcome domain.CheckOutcome) Event {
	return Event{
		Profile:   outcome.Profile,
		Outcome:   outcome,
		EmittedAt: time.Now().UTC(),
	}
}

// status is the short attribute value sinks can filter on.
func (e Event) status() string {
	if e.Outcome.OK {
		return "ok"
	}
	if e.Outcome.ErrorKind != "" {
		return e.Outcome.ErrorKind
	}
	return "failed"
}

// attributes are the routing attributes every sink attaches alongside the payload.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"profile": e.Profile,
		"status":  e.status(),
	}
}
