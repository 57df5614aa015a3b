package search

import (
	"time"

	"github.com/sells-group/contact-discovery/internal/model"
)

// ProgressEventType labels a step in a discovery run.
type ProgressEventType string

const (
	EventProviderStart  ProgressEventType = "provider_start"
	EventProviderFinish ProgressEventType = "provider_finish"
	EventTerminal       ProgressEventType = "terminal"
)

// ProgressEvent is one observable step of a discovery run.
type ProgressEvent struct {
	ContactID string            `json:"contact_id"`
	Type      ProgressEventType `json:"type"`
	Provider  model.ProviderTag `json:"provider,omitempty"`
	Found     bool              `json:"found"`
	State     DiscoverState     `json:"state,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// emit sends the event without blocking. Slow consumers lose events rather
// than stalling the waterfall.
func (o *Orchestrator) emit(ev ProgressEvent) {
	ev.Timestamp = time.Now().UTC()
	select {
	case o.events <- ev:
	default:
	}
}

// Events exposes the progress stream. The channel is never closed; consumers
// select against their own done signal.
func (o *Orchestrator) Events() <-chan ProgressEvent {
	return o.events
}
