package repository

import (
	"context"

	"device-inspector/backend/internal/event/domain"
)

// Repository defines persistence for session bookmarks.
type Repository interface {
	Create(ctx context.Context, b *domain.Bookmark) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.Bookmark, error)
	// Delete reports whether a bookmark was removed.
	Delete(ctx context.Context, id string) (bool, error)
}
