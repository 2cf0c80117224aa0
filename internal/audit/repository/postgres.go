package repository

import (
	"context"
	"database/sql"
	"errors"

	"device-inspector/backend/internal/audit/domain"
	"device-inspector/backend/internal/db"
)

const auditColumns = `id, session_id, device_id, action, resource, ip, status, metadata, created_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the audit log for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	a, err := scanAuditLog(r.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audit_logs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// List returns audit logs matching f, newest first, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) List(ctx context.Context, f domain.Filter, limit, offset int) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+auditColumns+` FROM audit_logs
		WHERE ($1 = '' OR session_id = $1) AND ($2 = '' OR action = $2) AND ($3 = '' OR resource = $3)
		ORDER BY created_at DESC, id
		LIMIT $4 OFFSET $5`, f.SessionID, f.Action, f.Resource, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create persists the audit log to the database. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := sql.NullString{String: a.Metadata, Valid: a.Metadata != ""}
	_, err := r.db.ExecContext(ctx, `INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.SessionID, a.DeviceID, a.Action, a.Resource, a.IP, a.Status, meta, a.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuditLog(row rowScanner) (*domain.AuditLog, error) {
	var (
		a    domain.AuditLog
		meta sql.NullString
	)
	if err := row.Scan(&a.ID, &a.SessionID, &a.DeviceID, &a.Action, &a.Resource, &a.IP, &a.Status, &meta, &a.CreatedAt); err != nil {
		return nil, err
	}
	if meta.Valid {
		a.Metadata = meta.String
	}
	return &a, nil
}
