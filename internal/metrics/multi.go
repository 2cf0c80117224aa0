package metrics

import (
	"time"

	"device-inspector/backend/internal/eventstore"
)

// Multi fans store counters out to several sinks.
type Multi []eventstore.Metrics

var _ eventstore.Metrics = Multi(nil)

func (m Multi) EventsIngested(n int) {
	for _, s := range m {
		s.EventsIngested(n)
	}
}

func (m Multi) EventsDropped(reason string, n int) {
	for _, s := range m {
		s.EventsDropped(reason, n)
	}
}

func (m Multi) StaleResult(op string) {
	for _, s := range m {
		s.StaleResult(op)
	}
}

func (m Multi) CacheLookup(hit bool) {
	for _, s := range m {
		s.CacheLookup(hit)
	}
}

func (m Multi) BackendQuery(op string, d time.Duration, err error) {
	for _, s := range m {
		s.BackendQuery(op, d, err)
	}
}

func (m Multi) VisibleEvents(n int) {
	for _, s := range m {
		s.VisibleEvents(n)
	}
}
