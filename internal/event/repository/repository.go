package repository

import (
	"context"

	"device-inspector/backend/internal/event/domain"
)

// Repository defines persistence for unified events.
type Repository interface {
	// Upsert writes events, replacing any stored row with the same ID. It returns how many
	// of them were new rows.
	Upsert(ctx context.Context, events []domain.UnifiedEvent) (int, error)
	GetByID(ctx context.Context, id string) (*domain.UnifiedEvent, error)
	Query(ctx context.Context, q domain.EventQuery) (*domain.QueryResult, error)
	TimeIndex(ctx context.Context, sessionID string) ([]domain.TimeIndexEntry, error)
}
