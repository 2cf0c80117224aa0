// Package ingest carries producer output into the store: a typed bus for event batches and
// session lifecycle notifications, the wire envelope shared with Kafka, and batch normalisation.
package ingest

import (
	eventdomain "device-inspector/backend/internal/event/domain"
	"device-inspector/backend/internal/hub"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// Batch is one push from a producer. Events are in non-decreasing RelativeTime order.
type Batch struct {
	SessionID string
	Events    []eventdomain.UnifiedEvent
}

// Observer receives producer output.
type Observer interface {
	OnEventsBatch(sessionID string, events []eventdomain.UnifiedEvent)
	OnSessionStarted(s *sessiondomain.DeviceSession)
	OnSessionEnded(s *sessiondomain.DeviceSession)
}

// Bus fans producer output out to observers.
type Bus struct {
	Batches hub.Feed[Batch]
	Started hub.Feed[*sessiondomain.DeviceSession]
	Ended   hub.Feed[*sessiondomain.DeviceSession]
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Attach subscribes o to all three feeds. Closing the returned group detaches it.
func (b *Bus) Attach(o Observer) hub.Group {
	return hub.Group{
		b.Batches.Subscribe(func(batch Batch) { o.OnEventsBatch(batch.SessionID, batch.Events) }),
		b.Started.Subscribe(o.OnSessionStarted),
		b.Ended.Subscribe(o.OnSessionEnded),
	}
}

// PublishBatch delivers a batch to every observer.
func (b *Bus) PublishBatch(sessionID string, events []eventdomain.UnifiedEvent) {
	if len(events) == 0 {
		return
	}
	b.Batches.Publish(Batch{SessionID: sessionID, Events: events})
}

// PublishStarted delivers a session-started notification.
func (b *Bus) PublishStarted(s *sessiondomain.DeviceSession) {
	if s != nil {
		b.Started.Publish(s.Clone())
	}
}

// PublishEnded delivers a session-ended notification.
func (b *Bus) PublishEnded(s *sessiondomain.DeviceSession) {
	if s != nil {
		b.Ended.Publish(s.Clone())
	}
}
