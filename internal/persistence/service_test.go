package persistence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	eventdomain "device-inspector/backend/internal/event/domain"
	eventrepo "device-inspector/backend/internal/event/repository"
	"device-inspector/backend/internal/eventstore"
	sessiondomain "device-inspector/backend/internal/session/domain"
	sessionrepo "device-inspector/backend/internal/session/repository"
)

type mockEventRepo struct {
	mu        sync.Mutex
	events    map[string]eventdomain.UnifiedEvent
	upsertErr error
	lastQuery eventdomain.EventQuery
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: map[string]eventdomain.UnifiedEvent{}}
}

func (m *mockEventRepo) Upsert(ctx context.Context, events []eventdomain.UnifiedEvent) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	n := 0
	for _, e := range events {
		if _, ok := m.events[e.ID]; !ok {
			n++
		}
		m.events[e.ID] = e
	}
	return n, nil
}

func (m *mockEventRepo) GetByID(ctx context.Context, id string) (*eventdomain.UnifiedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *mockEventRepo) Query(ctx context.Context, q eventdomain.EventQuery) (*eventdomain.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q
	var out []eventdomain.UnifiedEvent
	for _, e := range m.events {
		if e.SessionID == q.SessionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativeTime < out[j].RelativeTime })
	return &eventdomain.QueryResult{Events: out, Total: len(out)}, nil
}

func (m *mockEventRepo) TimeIndex(ctx context.Context, sessionID string) ([]eventdomain.TimeIndexEntry, error) {
	return nil, errors.New("not used")
}

type mockSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]*sessiondomain.DeviceSession
	lastEvent map[string]int64
	deleted   []string
	cutoff    int64
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]*sessiondomain.DeviceSession{}, lastEvent: map[string]int64{}}
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id string) (*sessiondomain.DeviceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Clone(), nil
}

func (m *mockSessionRepo) List(ctx context.Context, deviceID string, limit int) ([]*sessiondomain.DeviceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sessiondomain.DeviceSession
	for _, s := range m.sessions {
		if deviceID == "" || s.DeviceID == deviceID {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *mockSessionRepo) Create(ctx context.Context, s *sessiondomain.DeviceSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *mockSessionRepo) End(ctx context.Context, id string, status sessiondomain.Status, endTime int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	if s == nil || !s.Active() {
		return false, nil
	}
	s.Status, s.EndTime = status, endTime
	return true, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSessionRepo) AddEvents(ctx context.Context, id string, n int, lastEventAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.sessions[id]; s != nil {
		s.EventCount += n
		m.lastEvent[id] = max(m.lastEvent[id], lastEventAt)
	}
	return nil
}

func (m *mockSessionRepo) ListIdle(ctx context.Context, before int64) ([]*sessiondomain.DeviceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sessiondomain.DeviceSession
	for id, s := range m.sessions {
		if s.Active() && max(m.lastEvent[id], s.StartTime) < before {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *mockSessionRepo) DeleteStartedBefore(ctx context.Context, before int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoff = before
	n := 0
	for id, s := range m.sessions {
		if s.StartTime < before {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

type mockBookmarkRepo struct {
	mu        sync.Mutex
	bookmarks []eventdomain.Bookmark
}

func (m *mockBookmarkRepo) Create(ctx context.Context, b *eventdomain.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookmarks = append(m.bookmarks, *b)
	return nil
}

func (m *mockBookmarkRepo) ListBySession(ctx context.Context, sessionID string) ([]eventdomain.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []eventdomain.Bookmark
	for _, b := range m.bookmarks {
		if b.SessionID == sessionID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBookmarkRepo) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bookmarks {
		if b.ID == id {
			m.bookmarks = append(m.bookmarks[:i], m.bookmarks[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

var _ eventstore.Backend = (*Service)(nil)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newTestService() (*Service, *mockEventRepo, *mockSessionRepo, *mockBookmarkRepo) {
	ev, ss, bm := newMockEventRepo(), newMockSessionRepo(), &mockBookmarkRepo{}
	svc := &Service{
		events:    ev,
		sessions:  ss,
		bookmarks: bm,
		inTx: func(ctx context.Context, fn func(eventrepo.Repository, sessionrepo.Repository) error) error {
			return fn(ev, ss)
		},
		now: func() time.Time { return fixedNow },
	}
	return svc, ev, ss, bm
}

func TestService_StartAndEndSession(t *testing.T) {
	svc, _, ss, _ := newTestService()
	ctx := context.Background()

	id, err := svc.StartNewSession(ctx, "dev-1", sessiondomain.TypeManual, "")
	if err != nil {
		t.Fatalf("StartNewSession: %v", err)
	}
	got, _ := svc.GetStoredSession(ctx, id)
	if got == nil || !got.Active() || got.StartTime != fixedNow.UnixMilli() || got.Name == "" {
		t.Fatalf("stored session = %+v", got)
	}

	if err := svc.EndActiveSession(ctx, id, sessiondomain.StatusCompleted); err != nil {
		t.Fatalf("EndActiveSession: %v", err)
	}
	if s := ss.sessions[id]; s.Status != sessiondomain.StatusCompleted || s.EndTime != fixedNow.UnixMilli() {
		t.Errorf("ended session = %+v", s)
	}
	if err := svc.EndActiveSession(ctx, id, sessiondomain.StatusFailed); !errors.Is(err, sessiondomain.ErrInvalidStateTransition) {
		t.Errorf("second End = %v, want ErrInvalidStateTransition", err)
	}
	if err := svc.EndActiveSession(ctx, "nope", sessiondomain.StatusCompleted); !errors.Is(err, sessiondomain.ErrSessionNotFound) {
		t.Errorf("End(unknown) = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.StartNewSession(ctx, "dev-1", "bogus", ""); err == nil {
		t.Error("StartNewSession with unknown type should fail")
	}
}

func TestService_WriteBatch(t *testing.T) {
	svc, ev, ss, _ := newTestService()
	ctx := context.Background()
	ss.sessions["s1"] = &sessiondomain.DeviceSession{ID: "s1", Status: sessiondomain.StatusActive, StartTime: 1000}

	batch := []eventdomain.UnifiedEvent{
		{ID: "a", SessionID: "s1", Timestamp: 1100, RelativeTime: 100},
		{ID: "b", SessionID: "s1", Timestamp: 1300, RelativeTime: 300},
		{ID: "x", SessionID: "other", Timestamp: 9999},
	}
	n, err := svc.WriteBatch(ctx, "s1", batch)
	if err != nil || n != 2 {
		t.Fatalf("WriteBatch = %d, %v; want 2", n, err)
	}
	if _, ok := ev.events["x"]; ok {
		t.Error("event for another session should be skipped")
	}

	// Re-delivery replaces and does not bump the count.
	n, err = svc.WriteBatch(ctx, "s1", []eventdomain.UnifiedEvent{{ID: "a", SessionID: "s1", Timestamp: 1100, Title: "v2"}})
	if err != nil || n != 0 {
		t.Fatalf("re-delivery = %d, %v; want 0", n, err)
	}
	if ev.events["a"].Title != "v2" {
		t.Error("re-delivery should replace the stored event")
	}
	if got := ss.sessions["s1"].EventCount; got != 2 {
		t.Errorf("EventCount = %d, want 2", got)
	}
	if got := ss.lastEvent["s1"]; got != 1300 {
		t.Errorf("last event = %d, want 1300", got)
	}

	if _, err := svc.WriteBatch(ctx, "missing", []eventdomain.UnifiedEvent{{ID: "m", SessionID: "missing"}}); !errors.Is(err, sessiondomain.ErrSessionNotFound) {
		t.Errorf("WriteBatch(missing) = %v, want ErrSessionNotFound", err)
	}

	ev.upsertErr = errors.New("db down")
	if _, err := svc.WriteBatch(ctx, "s1", batch); err == nil {
		t.Error("WriteBatch should surface repository errors")
	}
}

func TestService_RecordSessionLifecycle(t *testing.T) {
	svc, _, ss, _ := newTestService()
	ctx := context.Background()

	in := &sessiondomain.DeviceSession{ID: "p1", DeviceID: "dev", Type: "", StartTime: 0}
	if err := svc.RecordSessionStarted(ctx, in); err != nil {
		t.Fatalf("RecordSessionStarted: %v", err)
	}
	s := ss.sessions["p1"]
	if s == nil || s.Type != sessiondomain.TypeAuto || !s.Active() || s.StartTime != fixedNow.UnixMilli() {
		t.Fatalf("recorded session = %+v", s)
	}
	// Duplicate announce is ignored.
	if err := svc.RecordSessionStarted(ctx, &sessiondomain.DeviceSession{ID: "p1", Name: "again"}); err != nil {
		t.Fatalf("duplicate RecordSessionStarted: %v", err)
	}
	if ss.sessions["p1"].Name == "again" {
		t.Error("existing session should not be overwritten")
	}

	if err := svc.RecordSessionEnded(ctx, &sessiondomain.DeviceSession{ID: "p1", Status: sessiondomain.StatusActive}); err != nil {
		t.Fatalf("RecordSessionEnded: %v", err)
	}
	if s := ss.sessions["p1"]; s.Status != sessiondomain.StatusCompleted {
		t.Errorf("status = %s, want completed", s.Status)
	}
	if err := svc.RecordSessionStarted(ctx, nil); err == nil {
		t.Error("nil session should be rejected")
	}
}

func TestService_Bookmarks(t *testing.T) {
	svc, _, _, bm := newTestService()
	ctx := context.Background()

	id, err := svc.CreateSessionBookmark(ctx, "s1", 1500, "crash", "#f00", eventdomain.BookmarkError)
	if err != nil || id == "" {
		t.Fatalf("CreateSessionBookmark = %q, %v", id, err)
	}
	list, _ := svc.GetSessionBookmarks(ctx, "s1")
	if len(list) != 1 || list[0].CreatedAt != fixedNow.UnixMilli() || list[0].Type != eventdomain.BookmarkError {
		t.Fatalf("bookmarks = %+v", list)
	}
	if err := svc.DeleteSessionBookmark(ctx, id); err != nil {
		t.Fatalf("DeleteSessionBookmark: %v", err)
	}
	if err := svc.DeleteSessionBookmark(ctx, id); err != nil {
		t.Errorf("deleting unknown bookmark should be a no-op, got %v", err)
	}
	if len(bm.bookmarks) != 0 {
		t.Errorf("bookmarks left = %d", len(bm.bookmarks))
	}
}

func TestService_CleanupAndIdle(t *testing.T) {
	svc, _, ss, _ := newTestService()
	ctx := context.Background()
	day := int64(24 * time.Hour / time.Millisecond)
	now := fixedNow.UnixMilli()
	ss.sessions["old"] = &sessiondomain.DeviceSession{ID: "old", StartTime: now - 40*day, Status: sessiondomain.StatusCompleted}
	ss.sessions["new"] = &sessiondomain.DeviceSession{ID: "new", StartTime: now - day, Status: sessiondomain.StatusActive}

	if _, err := svc.CleanupOldSessionData(ctx, 0); !errors.Is(err, ErrInvalidRetention) {
		t.Errorf("Cleanup(0) = %v, want ErrInvalidRetention", err)
	}
	n, err := svc.CleanupOldSessionData(ctx, 30)
	if err != nil || n != 1 {
		t.Fatalf("Cleanup = %d, %v; want 1", n, err)
	}
	if ss.cutoff != now-30*day {
		t.Errorf("cutoff = %d, want %d", ss.cutoff, now-30*day)
	}

	idle, err := svc.ListIdleSessions(ctx, now)
	if err != nil || len(idle) != 1 || idle[0].ID != "new" {
		t.Errorf("ListIdleSessions = %+v, %v", idle, err)
	}
}

func TestService_QueryPassesThrough(t *testing.T) {
	svc, ev, _, _ := newTestService()
	ev.events["a"] = eventdomain.UnifiedEvent{ID: "a", SessionID: "s1", RelativeTime: 5}
	start := int64(0)
	res, err := svc.QuerySessionEvents(context.Background(), eventdomain.EventQuery{SessionID: "s1", StartTime: &start, Limit: 10})
	if err != nil || res.Total != 1 {
		t.Fatalf("QuerySessionEvents = %+v, %v", res, err)
	}
	if ev.lastQuery.Limit != 10 || ev.lastQuery.StartTime == nil {
		t.Errorf("query not forwarded: %+v", ev.lastQuery)
	}
	if e, err := svc.GetStoredEvent(context.Background(), "missing"); e != nil || err != nil {
		t.Errorf("GetStoredEvent(missing) = %v, %v", e, err)
	}
}
