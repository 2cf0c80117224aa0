package repository

import (
	"context"

	"device-inspector/backend/internal/session/domain"
)

// Repository defines persistence for device sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.DeviceSession, error)
	// List returns sessions newest first, optionally for one device.
	List(ctx context.Context, deviceID string, limit int) ([]*domain.DeviceSession, error)
	Create(ctx context.Context, s *domain.DeviceSession) error
	// End moves an active session to status; it reports false when the session was not active.
	End(ctx context.Context, id string, status domain.Status, endTime int64) (bool, error)
	Delete(ctx context.Context, id string) error
	// AddEvents bumps event_count by n and advances last_event_at.
	AddEvents(ctx context.Context, id string, n int, lastEventAt int64) error
	// ListIdle returns active sessions with no event (or start) since before.
	ListIdle(ctx context.Context, before int64) ([]*domain.DeviceSession, error)
	// DeleteStartedBefore removes sessions started before the cutoff and returns how many.
	DeleteStartedBefore(ctx context.Context, before int64) (int, error)
}
