package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"device-inspector/backend/internal/db"
	"device-inspector/backend/internal/session/domain"
)

const sessionColumns = `id, device_id, type, name, start_time, end_time, status, event_count,
	config, video_path, video_duration, video_offset, metadata`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session repository that uses the given db (or transaction) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.DeviceSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM device_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// List returns up to limit sessions ordered by start time, newest first. An empty deviceID lists all devices.
func (r *PostgresRepository) List(ctx context.Context, deviceID string, limit int) ([]*domain.DeviceSession, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM device_sessions
		WHERE ($1 = '' OR device_id = $1)
		ORDER BY start_time DESC, id
		LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.DeviceSession) error {
	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	meta, err := json.Marshal(metadataOrEmpty(s.Metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO device_sessions
		(id, device_id, type, name, start_time, end_time, status, event_count, last_event_at,
		 config, video_path, video_duration, video_offset, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $5, $9, $10, $11, $12, $13)`,
		s.ID, s.DeviceID, string(s.Type), s.Name, s.StartTime, s.EndTime, string(s.Status), s.EventCount,
		cfg, s.VideoPath, s.VideoDuration, s.VideoOffset, meta)
	return err
}

// End sets status and end_time on an active session. Terminal sessions are left unchanged and
// reported with false.
func (r *PostgresRepository) End(ctx context.Context, id string, status domain.Status, endTime int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE device_sessions SET status = $2, end_time = $3
		WHERE id = $1 AND status = 'active'`, id, string(status), endTime)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes the session; events and bookmarks go with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM device_sessions WHERE id = $1`, id)
	return err
}

// AddEvents increments event_count and moves last_event_at forward, never back.
func (r *PostgresRepository) AddEvents(ctx context.Context, id string, n int, lastEventAt int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE device_sessions
		SET event_count = event_count + $2, last_event_at = GREATEST(last_event_at, $3)
		WHERE id = $1`, id, n, lastEventAt)
	return err
}

// ListIdle returns active sessions whose last activity is older than before.
func (r *PostgresRepository) ListIdle(ctx context.Context, before int64) ([]*domain.DeviceSession, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM device_sessions
		WHERE status = 'active' AND GREATEST(last_event_at, start_time) < $1
		ORDER BY start_time`, before)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// DeleteStartedBefore removes every session whose start_time is before the cutoff.
func (r *PostgresRepository) DeleteStartedBefore(ctx context.Context, before int64) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM device_sessions WHERE start_time < $1`, before)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

type rowScanner interface {
	Scan(dest ...any) error
}

func collectSessions(rows *sql.Rows) ([]*domain.DeviceSession, error) {
	defer rows.Close()
	var out []*domain.DeviceSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (*domain.DeviceSession, error) {
	var (
		s            domain.DeviceSession
		typ, status  string
		cfg, rawMeta []byte
	)
	err := row.Scan(&s.ID, &s.DeviceID, &typ, &s.Name, &s.StartTime, &s.EndTime, &status, &s.EventCount,
		&cfg, &s.VideoPath, &s.VideoDuration, &s.VideoOffset, &rawMeta)
	if err != nil {
		return nil, err
	}
	s.Type = domain.Type(typ)
	s.Status = domain.Status(status)
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &s.Config); err != nil {
			return nil, fmt.Errorf("decode config of session %s: %w", s.ID, err)
		}
	}
	if len(rawMeta) > 0 {
		var meta map[string]string
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata of session %s: %w", s.ID, err)
		}
		if len(meta) > 0 {
			s.Metadata = meta
		}
	}
	return &s, nil
}
