package eventstore

import (
	"context"

	eventdomain "device-inspector/backend/internal/event/domain"
	sessiondomain "device-inspector/backend/internal/session/domain"
	"device-inspector/backend/internal/timeline"
)

// Backend is the durable persistence service the store reads through.
// Lookups for unknown ids return (nil, nil).
type Backend interface {
	timeline.Backend

	QuerySessionEvents(ctx context.Context, q eventdomain.EventQuery) (*eventdomain.QueryResult, error)
	GetStoredEvent(ctx context.Context, eventID string) (*eventdomain.UnifiedEvent, error)

	GetStoredSession(ctx context.Context, sessionID string) (*sessiondomain.DeviceSession, error)
	StartNewSession(ctx context.Context, deviceID string, typ sessiondomain.Type, name string) (string, error)
	EndActiveSession(ctx context.Context, sessionID string, status sessiondomain.Status) error
	// DeleteStoredSession removes the session with its events, time index and bookmarks.
	DeleteStoredSession(ctx context.Context, sessionID string) error
	ListStoredSessions(ctx context.Context, deviceID string, limit int) ([]*sessiondomain.DeviceSession, error)

	// CleanupOldSessionData removes sessions older than maxAgeDays and returns how many were removed.
	CleanupOldSessionData(ctx context.Context, maxAgeDays int) (int, error)
}
