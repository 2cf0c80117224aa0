// Package persistence is the durable backing store for sessions, events and bookmarks.
// Service implements the store's Backend contract over Postgres and is also the write path
// used by the ingestion worker.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	bookmarkrepo "device-inspector/backend/internal/bookmark/repository"
	"device-inspector/backend/internal/db"
	eventdomain "device-inspector/backend/internal/event/domain"
	eventrepo "device-inspector/backend/internal/event/repository"
	sessiondomain "device-inspector/backend/internal/session/domain"
	sessionrepo "device-inspector/backend/internal/session/repository"
)

// ErrInvalidRetention is returned by CleanupOldSessionData for a non-positive age.
var ErrInvalidRetention = errors.New("persistence: retention must be at least one day")

// txFunc runs fn with repositories bound to one transaction.
type txFunc func(ctx context.Context, fn func(events eventrepo.Repository, sessions sessionrepo.Repository) error) error

// Service implements the store backend on top of the repositories.
type Service struct {
	events    eventrepo.Repository
	sessions  sessionrepo.Repository
	bookmarks bookmarkrepo.Repository
	inTx      txFunc
	now       func() time.Time
}

// NewService returns a Service backed by conn.
func NewService(conn *sql.DB) *Service {
	return &Service{
		events:    eventrepo.NewPostgresRepository(conn),
		sessions:  sessionrepo.NewPostgresRepository(conn),
		bookmarks: bookmarkrepo.NewPostgresRepository(conn),
		inTx: func(ctx context.Context, fn func(eventrepo.Repository, sessionrepo.Repository) error) error {
			return db.WithTx(ctx, conn, func(tx *sql.Tx) error {
				return fn(eventrepo.NewPostgresRepository(tx), sessionrepo.NewPostgresRepository(tx))
			})
		},
		now: time.Now,
	}
}

func (s *Service) nowMillis() int64 {
	return s.now().UnixMilli()
}

// QuerySessionEvents returns one page of stored events matching q.
func (s *Service) QuerySessionEvents(ctx context.Context, q eventdomain.EventQuery) (*eventdomain.QueryResult, error) {
	res, err := s.events.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("persistence: query events: %w", err)
	}
	return res, nil
}

// GetStoredEvent returns the event for id, or (nil, nil) when it does not exist.
func (s *Service) GetStoredEvent(ctx context.Context, eventID string) (*eventdomain.UnifiedEvent, error) {
	return s.events.GetByID(ctx, eventID)
}

// GetStoredSession returns the session for id, or (nil, nil) when it does not exist.
func (s *Service) GetStoredSession(ctx context.Context, sessionID string) (*sessiondomain.DeviceSession, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

// StartNewSession creates an active session starting now and returns its id.
func (s *Service) StartNewSession(ctx context.Context, deviceID string, typ sessiondomain.Type, name string) (string, error) {
	if !typ.Valid() {
		return "", fmt.Errorf("persistence: unknown session type %q", typ)
	}
	now := s.now()
	if name == "" {
		name = fmt.Sprintf("%s session %s", typ, now.UTC().Format("2006-01-02 15:04:05"))
	}
	sess := &sessiondomain.DeviceSession{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Type:      typ,
		Name:      name,
		StartTime: now.UnixMilli(),
		Status:    sessiondomain.StatusActive,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("persistence: create session: %w", err)
	}
	return sess.ID, nil
}

// EndActiveSession moves the session to status. Unknown sessions return ErrSessionNotFound and
// sessions that already ended return ErrInvalidStateTransition.
func (s *Service) EndActiveSession(ctx context.Context, sessionID string, status sessiondomain.Status) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("persistence: get session: %w", err)
	}
	if sess == nil {
		return sessiondomain.ErrSessionNotFound
	}
	if err := sessiondomain.Transition(sess.Status, status); err != nil {
		return err
	}
	ok, err := s.sessions.End(ctx, sessionID, status, s.nowMillis())
	if err != nil {
		return fmt.Errorf("persistence: end session: %w", err)
	}
	if !ok {
		// Ended concurrently between the read and the update.
		return fmt.Errorf("%w: session %s is no longer active", sessiondomain.ErrInvalidStateTransition, sessionID)
	}
	return nil
}

// DeleteStoredSession removes the session with its events and bookmarks.
func (s *Service) DeleteStoredSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("persistence: delete session: %w", err)
	}
	return nil
}

// ListStoredSessions returns up to limit sessions, newest first. An empty deviceID lists every device.
func (s *Service) ListStoredSessions(ctx context.Context, deviceID string, limit int) ([]*sessiondomain.DeviceSession, error) {
	list, err := s.sessions.List(ctx, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("persistence: list sessions: %w", err)
	}
	return list, nil
}

// CleanupOldSessionData deletes sessions that started more than maxAgeDays ago.
func (s *Service) CleanupOldSessionData(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays <= 0 {
		return 0, ErrInvalidRetention
	}
	cutoff := s.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).UnixMilli()
	n, err := s.sessions.DeleteStartedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("persistence: cleanup: %w", err)
	}
	return n, nil
}

// GetSessionTimeIndex returns the per-second activity index of the session.
func (s *Service) GetSessionTimeIndex(ctx context.Context, sessionID string) ([]eventdomain.TimeIndexEntry, error) {
	idx, err := s.events.TimeIndex(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("persistence: time index: %w", err)
	}
	return idx, nil
}

// GetSessionBookmarks returns the session's bookmarks in timeline order.
func (s *Service) GetSessionBookmarks(ctx context.Context, sessionID string) ([]eventdomain.Bookmark, error) {
	list, err := s.bookmarks.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("persistence: list bookmarks: %w", err)
	}
	return list, nil
}

// CreateSessionBookmark stores a bookmark and returns its id.
func (s *Service) CreateSessionBookmark(ctx context.Context, sessionID string, relativeTime int64, label, color string, typ eventdomain.BookmarkType) (string, error) {
	b := &eventdomain.Bookmark{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		RelativeTime: relativeTime,
		Label:        label,
		Color:        color,
		Type:         typ,
		CreatedAt:    s.nowMillis(),
	}
	if err := s.bookmarks.Create(ctx, b); err != nil {
		return "", fmt.Errorf("persistence: create bookmark: %w", err)
	}
	return b.ID, nil
}

// DeleteSessionBookmark removes a bookmark. Deleting an unknown bookmark is a no-op.
func (s *Service) DeleteSessionBookmark(ctx context.Context, bookmarkID string) error {
	if _, err := s.bookmarks.Delete(ctx, bookmarkID); err != nil {
		return fmt.Errorf("persistence: delete bookmark: %w", err)
	}
	return nil
}
