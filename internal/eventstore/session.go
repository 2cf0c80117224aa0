package eventstore

import (
	"context"
	"fmt"
	"log"

	eventdomain "device-inspector/backend/internal/event/domain"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// LoadSession fetches sessionID from the Backend, makes it active and re-merges its default
// window. Loading the session that is already active refreshes it without dropping live events.
func (s *Store) LoadSession(ctx context.Context, sessionID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	sess, err := s.backend.GetStoredSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("eventstore: get session %s: %w", sessionID, err)
	}
	if sess == nil {
		return fmt.Errorf("%w: %s", sessiondomain.ErrSessionNotFound, sessionID)
	}
	s.sessions.Upsert(sess)

	if s.ActiveSessionID() == sessionID {
		s.mu.Lock()
		s.cache.Clear()
		s.mu.Unlock()
		s.timeline.Load(sessionID)
	} else {
		s.SetActiveSession(sessionID)
	}
	return s.reload(ctx, "load_session")
}

// StartSession starts a session on the Backend and makes it active in tail mode.
// An empty type means manual.
func (s *Store) StartSession(ctx context.Context, deviceID string, typ sessiondomain.Type, name string) (*sessiondomain.DeviceSession, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if typ == "" {
		typ = sessiondomain.TypeManual
	}
	if deviceID == "" || !typ.Valid() {
		return nil, fmt.Errorf("%w: device %q type %q", ErrInvalidQuery, deviceID, typ)
	}
	id, err := s.backend.StartNewSession(ctx, deviceID, typ, name)
	if err != nil {
		return nil, fmt.Errorf("eventstore: start session: %w", err)
	}
	sess, err := s.backend.GetStoredSession(ctx, id)
	if err != nil || sess == nil {
		if err != nil {
			log.Printf("eventstore: read back session %s: %v", id, err)
		}
		sess = &sessiondomain.DeviceSession{
			ID: id, DeviceID: deviceID, Type: typ, Name: name,
			StartTime: s.opts.Now(), Status: sessiondomain.StatusActive,
		}
	}
	s.sessions.Upsert(sess)
	s.SetActiveSession(id)

	// A new session has nothing durable yet; live events fill the default window.
	s.mu.Lock()
	if s.active == id {
		s.win.loadedStart, s.win.loadedEnd, s.win.loaded = s.win.start, s.win.end, true
		s.win.tail = true
	}
	s.mu.Unlock()
	return sess.Clone(), nil
}

// EndSession moves sessionID to a terminal status. Ending a session that is already terminal
// fails with ErrInvalidStateTransition and leaves its status unchanged.
func (s *Store) EndSession(ctx context.Context, sessionID string, status sessiondomain.Status) (*sessiondomain.DeviceSession, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	cur, ok := s.sessions.Get(sessionID)
	if !ok {
		stored, err := s.backend.GetStoredSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("eventstore: get session %s: %w", sessionID, err)
		}
		if stored == nil {
			return nil, fmt.Errorf("%w: %s", sessiondomain.ErrSessionNotFound, sessionID)
		}
		s.sessions.Upsert(stored)
		cur = stored
	}
	if err := sessiondomain.Transition(cur.Status, status); err != nil {
		return nil, err
	}
	if err := s.backend.EndActiveSession(ctx, sessionID, status); err != nil {
		return nil, fmt.Errorf("eventstore: end session %s: %w", sessionID, err)
	}
	ended, err := s.sessions.End(sessionID, status, s.opts.Now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.active == sessionID {
		s.win.tail = false
	}
	s.mu.Unlock()
	return ended, nil
}

// DeleteSession removes sessionID and everything recorded for it. Deleting the active session
// leaves no session active.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.backend.DeleteStoredSession(ctx, sessionID); err != nil {
		return fmt.Errorf("eventstore: delete session %s: %w", sessionID, err)
	}
	s.sessions.Remove(sessionID)
	if s.ActiveSessionID() == sessionID {
		s.SetActiveSession("")
	}
	return nil
}

// ListSessions returns stored sessions, newest first, and records them in the registry.
func (s *Store) ListSessions(ctx context.Context, deviceID string, limit int) ([]*sessiondomain.DeviceSession, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSessionsLimit
	}
	list, err := s.backend.ListStoredSessions(ctx, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list sessions: %w", err)
	}
	for i, sess := range list {
		s.sessions.Upsert(sess)
		if cur, ok := s.sessions.Get(sess.ID); ok {
			list[i] = cur
		}
	}
	return list, nil
}

// GetSession returns the registry copy of sessionID, falling back to the Backend.
// An unknown id returns (nil, nil).
func (s *Store) GetSession(ctx context.Context, sessionID string) (*sessiondomain.DeviceSession, error) {
	if sess, ok := s.sessions.Get(sessionID); ok {
		return sess, nil
	}
	sess, err := s.backend.GetStoredSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: get session %s: %w", sessionID, err)
	}
	if sess != nil {
		s.sessions.Upsert(sess)
	}
	return sess, nil
}

// GetEvent returns the event with eventID from the live buffer or the Backend; (nil, nil) when unknown.
func (s *Store) GetEvent(ctx context.Context, eventID string) (*eventdomain.UnifiedEvent, error) {
	if e, ok := s.findLocal(eventID); ok {
		return &e, nil
	}
	e, err := s.backend.GetStoredEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: get event %s: %w", eventID, err)
	}
	return e, nil
}

// Cleanup removes sessions older than maxAgeDays from the Backend and the registry.
// The active session is never removed from the registry.
func (s *Store) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays <= 0 {
		return 0, fmt.Errorf("%w: max age %d days", ErrInvalidQuery, maxAgeDays)
	}
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	removed, err := s.backend.CleanupOldSessionData(ctx, maxAgeDays)
	if err != nil {
		return 0, fmt.Errorf("eventstore: cleanup: %w", err)
	}
	cutoff := s.opts.Now() - int64(maxAgeDays)*24*60*60*1000
	active := s.ActiveSessionID()
	for _, sess := range s.sessions.List() {
		if sess.ID != active && sess.StartTime < cutoff {
			s.sessions.Remove(sess.ID)
		}
	}
	return removed, nil
}

// SessionStats summarises a session. The source and level breakdowns cover the live buffer
// and are only filled for the active session.
type SessionStats struct {
	SessionID  string               `json:"sessionId"`
	Status     sessiondomain.Status `json:"status"`
	EventCount int                  `json:"eventCount"`
	DurationMs int64                `json:"durationMs"`

	BySource   map[eventdomain.Source]int `json:"bySource,omitempty"`
	ByLevel    map[eventdomain.Level]int  `json:"byLevel,omitempty"`
	ErrorCount int                        `json:"errorCount"`

	BufferedEvents int `json:"bufferedEvents"`
	BufferCapacity int `json:"bufferCapacity"`
	CachedPages    int `json:"cachedPages"`
	CacheCapacity  int `json:"cacheCapacity"`
	VisibleEvents  int `json:"visibleEvents"`
}

// GetSessionStats returns statistics for sessionID, or ErrSessionNotFound.
func (s *Store) GetSessionStats(ctx context.Context, sessionID string) (*SessionStats, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", sessiondomain.ErrSessionNotFound, sessionID)
	}
	stats := &SessionStats{
		SessionID:      sess.ID,
		Status:         sess.Status,
		EventCount:     sess.EventCount,
		DurationMs:     sess.Duration(s.opts.Now()),
		BufferCapacity: s.opts.RingCapacity,
		CacheCapacity:  s.opts.PageCacheSize,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != sessionID {
		return stats, nil
	}
	live := s.ring.All()
	stats.BySource = make(map[eventdomain.Source]int)
	stats.ByLevel = make(map[eventdomain.Level]int)
	for i := range live {
		stats.BySource[live[i].Source]++
		stats.ByLevel[live[i].Level]++
		if live[i].Level.IsError() {
			stats.ErrorCount++
		}
	}
	stats.BufferedEvents = len(live)
	stats.CachedPages = s.cache.Len()
	stats.VisibleEvents = len(s.events)
	return stats, nil
}

// CreateBookmark adds a bookmark to sessionID (the active session when empty) and reloads the
// bookmark set.
func (s *Store) CreateBookmark(ctx context.Context, sessionID string, relativeTime int64, label, color string, typ eventdomain.BookmarkType) (string, error) {
	if sessionID == "" {
		sessionID = s.ActiveSessionID()
	}
	return s.timeline.CreateBookmark(ctx, sessionID, relativeTime, label, color, typ)
}

// DeleteBookmark removes a bookmark of the active session and reloads the bookmark set.
func (s *Store) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	return s.timeline.DeleteBookmark(ctx, s.ActiveSessionID(), bookmarkID)
}

// ListBookmarks returns the bookmarks of sessionID straight from the Backend.
func (s *Store) ListBookmarks(ctx context.Context, sessionID string) ([]eventdomain.Bookmark, error) {
	list, err := s.backend.GetSessionBookmarks(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list bookmarks: %w", err)
	}
	return list, nil
}

// ReloadTimeline refetches the time index and bookmarks of the active session.
func (s *Store) ReloadTimeline() {
	if id := s.ActiveSessionID(); id != "" {
		s.timeline.Load(id)
	}
}
