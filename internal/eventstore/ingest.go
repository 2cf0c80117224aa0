package eventstore

import (
	"log"

	eventdomain "device-inspector/backend/internal/event/domain"
	"device-inspector/backend/internal/event/filter"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// IngestBatch admits the events of batch that belong to the active session into the ring buffer
// and merges the ones matching the current filter into the visible list. Other events are dropped.
// It returns the number of admitted events.
func (s *Store) IngestBatch(sessionID string, events []eventdomain.UnifiedEvent) int {
	s.mu.Lock()
	if s.closed || s.active == "" || (sessionID != "" && sessionID != s.active) {
		s.mu.Unlock()
		s.opts.Metrics.EventsDropped("inactive_session", len(events))
		return 0
	}
	active := s.active
	admitted := make([]eventdomain.UnifiedEvent, 0, len(events))
	for i := range events {
		if events[i].SessionID == active {
			admitted = append(admitted, events[i])
		}
	}
	if dropped := len(events) - len(admitted); dropped > 0 {
		s.opts.Metrics.EventsDropped("session_mismatch", dropped)
	}
	if len(admitted) == 0 {
		s.mu.Unlock()
		return 0
	}

	s.ring.PushMany(admitted)
	if s.win.tail {
		var latest int64
		for i := range admitted {
			latest = max(latest, admitted[i].RelativeTime)
		}
		s.win = s.win.follow(latest, s.opts.TailLead)
	}

	q := s.facets.Query(active)
	if s.win.loaded {
		start, end := s.win.loadedStart, s.win.loadedEnd
		q.StartTime, q.EndTime = &start, &end
	}
	if matched := filter.Apply(admitted, &q); len(matched) > 0 && !s.win.stale {
		s.events = appendIncremental(s.events, matched, s.opts.DisplayCap)
		s.total = max(s.total, len(s.events))
		s.opts.Metrics.VisibleEvents(len(s.events))
	}
	s.mu.Unlock()

	s.sessions.AddEvents(active, len(admitted))
	s.opts.Metrics.EventsIngested(len(admitted))
	return len(admitted)
}

// OnEventsBatch implements ingest.Observer.
func (s *Store) OnEventsBatch(sessionID string, events []eventdomain.UnifiedEvent) {
	s.IngestBatch(sessionID, events)
}

// OnSessionStarted records the session and makes it active when no session is.
func (s *Store) OnSessionStarted(sess *sessiondomain.DeviceSession) {
	if sess == nil {
		return
	}
	if !s.sessions.Upsert(sess) {
		log.Printf("eventstore: ignoring start of terminal session %s", sess.ID)
		return
	}
	if s.ActiveSessionID() == "" {
		s.SetActiveSession(sess.ID)
	}
}

// OnSessionEnded records the terminal state. The active session keeps its view but stops following.
func (s *Store) OnSessionEnded(sess *sessiondomain.DeviceSession) {
	if sess == nil {
		return
	}
	if cur, ok := s.sessions.Get(sess.ID); ok && cur.Active() && sess.Status.Terminal() {
		endTime := sess.EndTime
		if endTime == 0 {
			endTime = s.opts.Now()
		}
		if _, err := s.sessions.End(sess.ID, sess.Status, endTime); err != nil {
			log.Printf("eventstore: end session %s: %v", sess.ID, err)
		}
	} else {
		s.sessions.Upsert(sess)
	}
	s.mu.Lock()
	if s.active == sess.ID {
		s.win.tail = false
	}
	s.mu.Unlock()
}
