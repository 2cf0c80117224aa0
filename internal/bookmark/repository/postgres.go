package repository

import (
	"context"

	"device-inspector/backend/internal/db"
	"device-inspector/backend/internal/event/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a bookmark repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the bookmark. The bookmark must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, b *domain.Bookmark) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO bookmarks (id, session_id, relative_time, label, color, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.SessionID, b.RelativeTime, b.Label, b.Color, string(b.Type), b.CreatedAt)
	return err
}

// ListBySession returns the session's bookmarks in timeline order.
func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, session_id, relative_time, label, color, type, created_at
		FROM bookmarks WHERE session_id = $1 ORDER BY relative_time, created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Bookmark
	for rows.Next() {
		var (
			b   domain.Bookmark
			typ string
		)
		if err := rows.Scan(&b.ID, &b.SessionID, &b.RelativeTime, &b.Label, &b.Color, &typ, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Type = domain.BookmarkType(typ)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes the bookmark with id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
