package timeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"device-inspector/backend/internal/event/domain"
)

type mockBackend struct {
	mu        sync.Mutex
	index     map[string][]domain.TimeIndexEntry
	bookmarks map[string][]domain.Bookmark
	indexErr  error
	markErr   error
	createErr error
	gate      chan struct{}
	nextID    int
	deleted   []string
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		index:     map[string][]domain.TimeIndexEntry{},
		bookmarks: map[string][]domain.Bookmark{},
	}
}

func (m *mockBackend) wait(ctx context.Context) {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate == nil {
		return
	}
	select {
	case <-gate:
	case <-ctx.Done():
	}
}

func (m *mockBackend) GetSessionTimeIndex(ctx context.Context, sessionID string) ([]domain.TimeIndexEntry, error) {
	m.wait(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexErr != nil {
		return nil, m.indexErr
	}
	return m.index[sessionID], nil
}

func (m *mockBackend) GetSessionBookmarks(ctx context.Context, sessionID string) ([]domain.Bookmark, error) {
	m.wait(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return nil, m.markErr
	}
	return append([]domain.Bookmark(nil), m.bookmarks[sessionID]...), nil
}

func (m *mockBackend) CreateSessionBookmark(_ context.Context, sessionID string, relativeTime int64, label, color string, typ domain.BookmarkType) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.nextID++
	id := fmt.Sprintf("b%d", m.nextID)
	m.bookmarks[sessionID] = append(m.bookmarks[sessionID], domain.Bookmark{
		ID: id, SessionID: sessionID, RelativeTime: relativeTime, Label: label, Color: color, Type: typ,
	})
	return id, nil
}

func (m *mockBackend) DeleteSessionBookmark(_ context.Context, bookmarkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, bookmarkID)
	for sid, list := range m.bookmarks {
		for i, b := range list {
			if b.ID == bookmarkID {
				m.bookmarks[sid] = append(list[:i:i], list[i+1:]...)
			}
		}
	}
	return nil
}

func TestService_Load(t *testing.T) {
	b := newMockBackend()
	b.index["s1"] = []domain.TimeIndexEntry{{Second: 0, EventCount: 3, FirstEventID: "e1"}, {Second: 1, EventCount: 1, HasError: true}}
	b.bookmarks["s1"] = []domain.Bookmark{{ID: "b0", SessionID: "s1", Label: "start", Type: domain.BookmarkUser}}

	svc := NewService(b)
	defer svc.Close()
	svc.Load("s1")
	svc.Wait()

	st := svc.State()
	if st.SessionID != "s1" || len(st.Index) != 2 || len(st.Bookmarks) != 1 {
		t.Fatalf("state = %+v", st)
	}
	if st.IndexLoading || st.BookmarksLoading {
		t.Error("loading flags should be cleared")
	}
}

func TestService_FailuresAreIsolated(t *testing.T) {
	b := newMockBackend()
	b.indexErr = errors.New("index unavailable")
	b.bookmarks["s1"] = []domain.Bookmark{{ID: "b0", SessionID: "s1", Label: "x", Type: domain.BookmarkUser}}

	svc := NewService(b)
	defer svc.Close()
	svc.Load("s1")
	svc.Wait()

	st := svc.State()
	if st.IndexError == "" {
		t.Error("IndexError should be set")
	}
	if st.BookmarksError != "" || len(st.Bookmarks) != 1 {
		t.Errorf("bookmarks should load despite index failure: %+v", st)
	}
}

func TestService_SessionSwitchDiscardsOldLoad(t *testing.T) {
	b := newMockBackend()
	b.gate = make(chan struct{})
	b.index["s1"] = []domain.TimeIndexEntry{{Second: 9}}
	b.index["s2"] = []domain.TimeIndexEntry{{Second: 1}, {Second: 2}}

	svc := NewService(b)
	defer svc.Close()
	svc.Load("s1")
	svc.Load("s2")
	close(b.gate)
	svc.Wait()

	st := svc.State()
	if st.SessionID != "s2" || len(st.Index) != 2 {
		t.Errorf("state = %+v, want s2 with 2 index entries", st)
	}
}

func TestService_CreateAndDeleteReloadBookmarks(t *testing.T) {
	b := newMockBackend()
	svc := NewService(b)
	defer svc.Close()
	svc.Load("s1")
	svc.Wait()

	id, err := svc.CreateBookmark(context.Background(), "s1", 1500, " crash here ", "#f00", "")
	if err != nil {
		t.Fatalf("CreateBookmark: %v", err)
	}
	svc.Wait()
	st := svc.State()
	if len(st.Bookmarks) != 1 || st.Bookmarks[0].Label != "crash here" || st.Bookmarks[0].Type != domain.BookmarkUser {
		t.Fatalf("bookmarks after create = %+v", st.Bookmarks)
	}

	if err := svc.DeleteBookmark(context.Background(), "s1", id); err != nil {
		t.Fatalf("DeleteBookmark: %v", err)
	}
	svc.Wait()
	if n := len(svc.State().Bookmarks); n != 0 {
		t.Errorf("bookmarks after delete = %d, want 0", n)
	}
}

func TestService_CreateBookmarkValidation(t *testing.T) {
	svc := NewService(newMockBackend())
	defer svc.Close()
	tests := []struct {
		name      string
		sessionID string
		rel       int64
		label     string
		typ       domain.BookmarkType
	}{
		{"no session", "", 0, "x", domain.BookmarkUser},
		{"blank label", "s1", 0, "  ", domain.BookmarkUser},
		{"bad type", "s1", 0, "x", "pin"},
		{"negative time", "s1", -1, "x", domain.BookmarkMilestone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBookmark(context.Background(), tt.sessionID, tt.rel, tt.label, "", tt.typ)
			if !errors.Is(err, ErrInvalidBookmark) {
				t.Errorf("err = %v, want ErrInvalidBookmark", err)
			}
		})
	}
}

func TestService_CreateBookmarkBackendError(t *testing.T) {
	b := newMockBackend()
	b.createErr = errors.New("down")
	svc := NewService(b)
	defer svc.Close()
	if _, err := svc.CreateBookmark(context.Background(), "s1", 0, "x", "", domain.BookmarkError); err == nil {
		t.Error("expected error")
	}
}

func TestService_Reset(t *testing.T) {
	b := newMockBackend()
	b.index["s1"] = []domain.TimeIndexEntry{{Second: 0}}
	svc := NewService(b)
	defer svc.Close()
	svc.Load("s1")
	svc.Wait()
	svc.Reset()
	if st := svc.State(); st.SessionID != "" || st.Index != nil {
		t.Errorf("state after reset = %+v", st)
	}
}
