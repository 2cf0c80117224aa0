// Package engine evaluates the ingest admission policy: a Rego module that decides which pushed
// events are dropped before they reach storage.
package engine

import (
	"context"

	eventdomain "device-inspector/backend/internal/event/domain"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// Evaluator decides which events of a batch are admitted.
type Evaluator interface {
	// Admit returns the admitted events in their original order and the number dropped.
	Admit(ctx context.Context, sess *sessiondomain.DeviceSession, events []eventdomain.UnifiedEvent) ([]eventdomain.UnifiedEvent, int, error)
}
