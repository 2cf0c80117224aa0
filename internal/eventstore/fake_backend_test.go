package eventstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	eventdomain "device-inspector/backend/internal/event/domain"
	"device-inspector/backend/internal/event/filter"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// fakeBackend is an in-memory Backend. When block is set, QuerySessionEvents signals entered
// and waits for block to be closed.
type fakeBackend struct {
	mu        sync.Mutex
	sessions  map[string]*sessiondomain.DeviceSession
	events    []eventdomain.UnifiedEvent
	bookmarks map[string][]eventdomain.Bookmark
	index     map[string][]eventdomain.TimeIndexEntry

	queries  []eventdomain.EventQuery
	ends     []string
	deleted  []string
	queryErr error
	nextID   int

	block   chan struct{}
	entered chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sessions:  map[string]*sessiondomain.DeviceSession{},
		bookmarks: map[string][]eventdomain.Bookmark{},
		index:     map[string][]eventdomain.TimeIndexEntry{},
	}
}

func (f *fakeBackend) addSession(s *sessiondomain.DeviceSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s.Clone()
}

func (f *fakeBackend) addEvents(events ...eventdomain.UnifiedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
}

func (f *fakeBackend) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeBackend) lastQuery() eventdomain.EventQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeBackend) setQueryErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryErr = err
}

func (f *fakeBackend) QuerySessionEvents(ctx context.Context, q eventdomain.EventQuery) (*eventdomain.QueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if block != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	matched := filter.Apply(f.events, &q)
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].RelativeTime < matched[j].RelativeTime })
	total := len(matched)
	if q.Offset > 0 {
		matched = matched[min(q.Offset, len(matched)):]
	}
	hasMore := false
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
		hasMore = true
	}
	return &eventdomain.QueryResult{Events: matched, Total: total, HasMore: hasMore}, nil
}

func (f *fakeBackend) GetStoredEvent(_ context.Context, eventID string) (*eventdomain.UnifiedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		if f.events[i].ID == eventID {
			e := f.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (f *fakeBackend) GetStoredSession(_ context.Context, sessionID string) (*sessiondomain.DeviceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[sessionID].Clone(), nil
}

func (f *fakeBackend) StartNewSession(_ context.Context, deviceID string, typ sessiondomain.Type, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("started-%d", f.nextID)
	f.sessions[id] = &sessiondomain.DeviceSession{
		ID: id, DeviceID: deviceID, Type: typ, Name: name, StartTime: 1_000, Status: sessiondomain.StatusActive,
	}
	return id, nil
}

func (f *fakeBackend) EndActiveSession(_ context.Context, sessionID string, status sessiondomain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends = append(f.ends, sessionID)
	if s, ok := f.sessions[sessionID]; ok {
		s.Status = status
	}
	return nil
}

func (f *fakeBackend) DeleteStoredSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sessionID)
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeBackend) ListStoredSessions(_ context.Context, deviceID string, limit int) ([]*sessiondomain.DeviceSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*sessiondomain.DeviceSession
	for _, s := range f.sessions {
		if deviceID == "" || s.DeviceID == deviceID {
			out = append(out, s.Clone())
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBackend) CleanupOldSessionData(_ context.Context, maxAgeDays int) (int, error) {
	return 2, nil
}

func (f *fakeBackend) GetSessionTimeIndex(_ context.Context, sessionID string) ([]eventdomain.TimeIndexEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index[sessionID], nil
}

func (f *fakeBackend) GetSessionBookmarks(_ context.Context, sessionID string) ([]eventdomain.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]eventdomain.Bookmark(nil), f.bookmarks[sessionID]...), nil
}

func (f *fakeBackend) CreateSessionBookmark(_ context.Context, sessionID string, relativeTime int64, label, color string, typ eventdomain.BookmarkType) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("bm-%d", f.nextID)
	f.bookmarks[sessionID] = append(f.bookmarks[sessionID], eventdomain.Bookmark{
		ID: id, SessionID: sessionID, RelativeTime: relativeTime, Label: label, Color: color, Type: typ,
	})
	return id, nil
}

func (f *fakeBackend) DeleteSessionBookmark(_ context.Context, bookmarkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sid, list := range f.bookmarks {
		for i := range list {
			if list[i].ID == bookmarkID {
				f.bookmarks[sid] = append(list[:i:i], list[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func ev(id, sessionID string, rel int64) eventdomain.UnifiedEvent {
	return eventdomain.UnifiedEvent{
		ID: id, SessionID: sessionID, RelativeTime: rel, Timestamp: 1_000 + rel,
		Source: eventdomain.SourceLogcat, Category: eventdomain.CategoryLog, Type: "logcat",
		Level: eventdomain.LevelInfo, Title: "event " + id,
	}
}

func netEv(id, sessionID, requestID string, rel int64, status string) eventdomain.UnifiedEvent {
	e := ev(id, sessionID, rel)
	e.Source = eventdomain.SourceNetwork
	e.Category = eventdomain.CategoryNetwork
	e.Type = "http_request"
	e.Title = status
	e.Data = []byte(fmt.Sprintf(`{"requestId":%q,"method":"GET","url":"http://x"}`, requestID))
	return e
}
