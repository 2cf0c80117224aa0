package persistence

import (
	"context"
	"fmt"

	eventdomain "device-inspector/backend/internal/event/domain"
	eventrepo "device-inspector/backend/internal/event/repository"
	sessiondomain "device-inspector/backend/internal/session/domain"
	sessionrepo "device-inspector/backend/internal/session/repository"
)

// WriteBatch stores a batch of events for sessionID in one transaction and advances the
// session's event_count by the number of new rows. Events tagged with another session are
// skipped. It returns ErrSessionNotFound when the session does not exist.
func (s *Service) WriteBatch(ctx context.Context, sessionID string, events []eventdomain.UnifiedEvent) (int, error) {
	batch := make([]eventdomain.UnifiedEvent, 0, len(events))
	var last int64
	for i := range events {
		if events[i].SessionID != sessionID {
			continue
		}
		batch = append(batch, events[i])
		last = max(last, events[i].Timestamp)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	inserted := 0
	err := s.inTx(ctx, func(events eventrepo.Repository, sessions sessionrepo.Repository) error {
		sess, err := sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return sessiondomain.ErrSessionNotFound
		}
		inserted, err = events.Upsert(ctx, batch)
		if err != nil {
			return err
		}
		if inserted == 0 {
			return nil
		}
		return sessions.AddEvents(ctx, sessionID, inserted, last)
	})
	if err != nil {
		return 0, fmt.Errorf("persistence: write batch for %s: %w", sessionID, err)
	}
	return inserted, nil
}

// RecordSessionStarted stores a session announced by a producer. A session that already
// exists is left as is.
func (s *Service) RecordSessionStarted(ctx context.Context, sess *sessiondomain.DeviceSession) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("persistence: session without id")
	}
	existing, err := s.sessions.GetByID(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("persistence: get session: %w", err)
	}
	if existing != nil {
		return nil
	}
	c := sess.Clone()
	if !c.Type.Valid() {
		c.Type = sessiondomain.TypeAuto
	}
	c.Status = sessiondomain.StatusActive
	c.EndTime = 0
	if c.StartTime == 0 {
		c.StartTime = s.nowMillis()
	}
	if err := s.sessions.Create(ctx, c); err != nil {
		return fmt.Errorf("persistence: create session: %w", err)
	}
	return nil
}

// RecordSessionEnded applies a producer's end-of-session notice. Sessions that are unknown or
// already terminal are left unchanged.
func (s *Service) RecordSessionEnded(ctx context.Context, sess *sessiondomain.DeviceSession) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("persistence: session without id")
	}
	status := sess.Status
	if !status.Terminal() {
		status = sessiondomain.StatusCompleted
	}
	end := sess.EndTime
	if end == 0 {
		end = s.nowMillis()
	}
	if _, err := s.sessions.End(ctx, sess.ID, status, end); err != nil {
		return fmt.Errorf("persistence: end session: %w", err)
	}
	return nil
}

// ListIdleSessions returns active sessions with no activity since before (unix ms).
func (s *Service) ListIdleSessions(ctx context.Context, before int64) ([]*sessiondomain.DeviceSession, error) {
	list, err := s.sessions.ListIdle(ctx, before)
	if err != nil {
		return nil, fmt.Errorf("persistence: list idle sessions: %w", err)
	}
	return list, nil
}
