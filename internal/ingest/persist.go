package ingest

import (
	"context"
	"errors"
	"log"

	eventdomain "device-inspector/backend/internal/event/domain"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// Writer stores consumed messages. *persistence.Service satisfies it.
type Writer interface {
	WriteBatch(ctx context.Context, sessionID string, events []eventdomain.UnifiedEvent) (int, error)
	RecordSessionStarted(ctx context.Context, sess *sessiondomain.DeviceSession) error
	RecordSessionEnded(ctx context.Context, sess *sessiondomain.DeviceSession) error
}

// Mirror receives a copy of every persisted batch (e.g. the Loki client). Mirror failures are
// logged and never retried.
type Mirror interface {
	PushEvents(ctx context.Context, events []eventdomain.UnifiedEvent) error
}

// PersistHandler returns a Handler that writes each message through w and then mirrors
// batches to mirror, which may be nil. Batches for sessions that do not exist are dropped.
func PersistHandler(w Writer, mirror Mirror) Handler {
	return func(ctx context.Context, m *Message) error {
		switch m.Kind {
		case KindSessionStarted:
			return w.RecordSessionStarted(ctx, m.Session)
		case KindSessionEnded:
			return w.RecordSessionEnded(ctx, m.Session)
		case KindBatch:
			n, err := w.WriteBatch(ctx, m.SessionID, m.Events)
			if errors.Is(err, sessiondomain.ErrSessionNotFound) {
				log.Printf("ingest: dropping %d event(s) for unknown session %s", len(m.Events), m.SessionID)
				return nil
			}
			if err != nil {
				return err
			}
			if n > 0 && mirror != nil {
				if err := mirror.PushEvents(ctx, m.Events); err != nil {
					log.Printf("ingest: mirror %s: %v", m.SessionID, err)
				}
			}
		}
		return nil
	}
}
