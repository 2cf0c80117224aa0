// Package timeline loads the per-second time index and bookmarks for the open session.
// Loads run in their own goroutines and never block the primary event query; a failure in one
// is recorded on the State and logged without affecting the other.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"device-inspector/backend/internal/event/domain"
)

// ErrInvalidBookmark is returned for bookmarks without a session, label or with an unknown type.
var ErrInvalidBookmark = errors.New("timeline: invalid bookmark")

// Backend is the subset of the persistence service used for the time index and bookmarks.
type Backend interface {
	GetSessionTimeIndex(ctx context.Context, sessionID string) ([]domain.TimeIndexEntry, error)
	GetSessionBookmarks(ctx context.Context, sessionID string) ([]domain.Bookmark, error)
	CreateSessionBookmark(ctx context.Context, sessionID string, relativeTime int64, label, color string, typ domain.BookmarkType) (string, error)
	DeleteSessionBookmark(ctx context.Context, bookmarkID string) error
}

// State is an immutable snapshot of what has been loaded for SessionID.
type State struct {
	SessionID string

	Index        []domain.TimeIndexEntry
	IndexLoading bool
	IndexError   string

	Bookmarks        []domain.Bookmark
	BookmarksLoading bool
	BookmarksError   string
}

// Service owns the time index and bookmark state for one session at a time.
type Service struct {
	backend Backend

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	indexGen    uint64
	bookmarkGen uint64
}

// NewService returns a Service with no session loaded.
func NewService(backend Backend) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{backend: backend, ctx: ctx, cancel: cancel}
}

// State returns the current snapshot.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load switches to sessionID and starts loading its index and bookmarks.
func (s *Service) Load(sessionID string) {
	s.mu.Lock()
	if s.state.SessionID != sessionID {
		s.state = State{SessionID: sessionID}
	}
	s.mu.Unlock()
	if sessionID == "" {
		return
	}
	s.ReloadIndex()
	s.ReloadBookmarks()
}

// Reset forgets the current session. In-flight loads are discarded when they finish.
func (s *Service) Reset() {
	s.mu.Lock()
	s.state = State{}
	s.indexGen++
	s.bookmarkGen++
	s.mu.Unlock()
}

// ReloadIndex refetches the time index for the current session.
func (s *Service) ReloadIndex() {
	s.mu.Lock()
	sessionID := s.state.SessionID
	if sessionID == "" {
		s.mu.Unlock()
		return
	}
	s.indexGen++
	gen := s.indexGen
	s.state.IndexLoading = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		entries, err := s.backend.GetSessionTimeIndex(s.ctx, sessionID)
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.indexGen || sessionID != s.state.SessionID {
			return
		}
		s.state.IndexLoading = false
		if err != nil {
			log.Printf("timeline: load time index for session %s: %v", sessionID, err)
			s.state.IndexError = err.Error()
			return
		}
		s.state.Index = entries
		s.state.IndexError = ""
	}()
}

// ReloadBookmarks refetches the full bookmark set for the current session.
func (s *Service) ReloadBookmarks() {
	s.mu.Lock()
	sessionID := s.state.SessionID
	if sessionID == "" {
		s.mu.Unlock()
		return
	}
	s.bookmarkGen++
	gen := s.bookmarkGen
	s.state.BookmarksLoading = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		bookmarks, err := s.backend.GetSessionBookmarks(s.ctx, sessionID)
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.bookmarkGen || sessionID != s.state.SessionID {
			return
		}
		s.state.BookmarksLoading = false
		if err != nil {
			log.Printf("timeline: load bookmarks for session %s: %v", sessionID, err)
			s.state.BookmarksError = err.Error()
			return
		}
		s.state.Bookmarks = bookmarks
		s.state.BookmarksError = ""
	}()
}

// CreateBookmark stores a bookmark and reloads the bookmark set when sessionID is current.
// An empty type defaults to user.
func (s *Service) CreateBookmark(ctx context.Context, sessionID string, relativeTime int64, label, color string, typ domain.BookmarkType) (string, error) {
	if typ == "" {
		typ = domain.BookmarkUser
	}
	label = strings.TrimSpace(label)
	if sessionID == "" || label == "" || !typ.Valid() || relativeTime < 0 {
		return "", ErrInvalidBookmark
	}
	id, err := s.backend.CreateSessionBookmark(ctx, sessionID, relativeTime, label, color, typ)
	if err != nil {
		return "", fmt.Errorf("timeline: create bookmark: %w", err)
	}
	s.reloadIfCurrent(sessionID)
	return id, nil
}

// DeleteBookmark removes a bookmark and reloads the bookmark set when sessionID is current.
func (s *Service) DeleteBookmark(ctx context.Context, sessionID, bookmarkID string) error {
	if bookmarkID == "" {
		return ErrInvalidBookmark
	}
	if err := s.backend.DeleteSessionBookmark(ctx, bookmarkID); err != nil {
		return fmt.Errorf("timeline: delete bookmark: %w", err)
	}
	s.reloadIfCurrent(sessionID)
	return nil
}

func (s *Service) reloadIfCurrent(sessionID string) {
	s.mu.Lock()
	current := s.state.SessionID
	s.mu.Unlock()
	if sessionID == "" || sessionID == current {
		s.ReloadBookmarks()
	}
}

// Wait blocks until every load started so far has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight loads and waits for them.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
