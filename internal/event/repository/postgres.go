package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"device-inspector/backend/internal/db"
	"device-inspector/backend/internal/event/domain"
)

// DefaultLimit bounds a query that does not set Limit.
const DefaultLimit = 1000

const eventColumns = `id, session_id, device_id, timestamp, relative_time, duration, source, category, type, level,
	title, summary, data, parent_id, step_id, trace_id, aggregate_count, aggregate_first, aggregate_last`

const upsertEvent = `INSERT INTO events (` + eventColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id) DO UPDATE SET
	timestamp = EXCLUDED.timestamp,
	relative_time = EXCLUDED.relative_time,
	duration = EXCLUDED.duration,
	category = EXCLUDED.category,
	type = EXCLUDED.type,
	level = EXCLUDED.level,
	title = EXCLUDED.title,
	summary = EXCLUDED.summary,
	data = EXCLUDED.data,
	parent_id = EXCLUDED.parent_id,
	step_id = EXCLUDED.step_id,
	trace_id = EXCLUDED.trace_id,
	aggregate_count = EXCLUDED.aggregate_count,
	aggregate_first = EXCLUDED.aggregate_first,
	aggregate_last = EXCLUDED.aggregate_last
RETURNING (xmax = 0)`

const timeIndex = `SELECT relative_time / 1000 AS second,
	count(*) AS event_count,
	(array_agg(id ORDER BY relative_time, id))[1] AS first_event_id,
	bool_or(level IN ('error', 'fatal')) AS has_error
FROM events
WHERE session_id = $1
GROUP BY second
ORDER BY second`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an event repository that uses the given db (or transaction) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Upsert writes events in order; a later event with the same ID overwrites an earlier one.
func (r *PostgresRepository) Upsert(ctx context.Context, events []domain.UnifiedEvent) (int, error) {
	inserted := 0
	for i := range events {
		e := &events[i]
		var isNew bool
		err := r.db.QueryRowContext(ctx, upsertEvent,
			e.ID, e.SessionID, e.DeviceID, e.Timestamp, e.RelativeTime, e.Duration,
			string(e.Source), string(e.Category), e.Type, string(e.Level),
			e.Title, e.Summary, nullJSON(e.Data), e.ParentID, e.StepID, e.TraceID,
			e.AggregateCount, e.AggregateFirst, e.AggregateLast,
		).Scan(&isNew)
		if err != nil {
			return inserted, fmt.Errorf("upsert event %s: %w", e.ID, err)
		}
		if isNew {
			inserted++
		}
	}
	return inserted, nil
}

// GetByID returns the event for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.UnifiedEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// Query returns one page of events matching q plus the total match count.
func (r *PostgresRepository) Query(ctx context.Context, q domain.EventQuery) (*domain.QueryResult, error) {
	where, args := buildWhere(q)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := max(q.Offset, 0)
	order := "ASC"
	if q.OrderDesc {
		order = "DESC"
	}
	stmt := fmt.Sprintf(`SELECT %s FROM events%s ORDER BY relative_time %s, id %s LIMIT $%d OFFSET $%d`,
		eventColumns, where, order, order, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, stmt, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]domain.UnifiedEvent, 0, min(limit, total))
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &domain.QueryResult{Events: out, Total: total, HasMore: offset+len(out) < total}, nil
}

// TimeIndex returns one entry per second of relative time that holds at least one event.
func (r *PostgresRepository) TimeIndex(ctx context.Context, sessionID string) ([]domain.TimeIndexEntry, error) {
	rows, err := r.db.QueryContext(ctx, timeIndex, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TimeIndexEntry
	for rows.Next() {
		var t domain.TimeIndexEntry
		if err := rows.Scan(&t.Second, &t.EventCount, &t.FirstEventID, &t.HasError); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// buildWhere renders q's constraints as a WHERE clause with positional args.
func buildWhere(q domain.EventQuery) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.SessionID != "" {
		add("session_id = $%d", q.SessionID)
	}
	if q.DeviceID != "" {
		add("device_id = $%d", q.DeviceID)
	}
	if len(q.Sources) > 0 {
		add("source = ANY($%d)", toStrings(q.Sources))
	}
	if len(q.Categories) > 0 {
		add("category = ANY($%d)", toStrings(q.Categories))
	}
	if len(q.Types) > 0 {
		add("type = ANY($%d)", q.Types)
	}
	if len(q.Levels) > 0 {
		add("level = ANY($%d)", toStrings(q.Levels))
	}
	if q.StartTime != nil {
		add("relative_time >= $%d", *q.StartTime)
	}
	if q.EndTime != nil {
		add("relative_time < $%d", *q.EndTime)
	}
	if q.SearchText != "" {
		args = append(args, "%"+escapeLike(q.SearchText)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR summary ILIKE $%d)", n, n))
	}
	if q.ParentID != "" {
		add("parent_id = $%d", q.ParentID)
	}
	if q.StepID != "" {
		add("step_id = $%d", q.StepID)
	}
	if q.TraceID != "" {
		add("trace_id = $%d", q.TraceID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (*domain.UnifiedEvent, error) {
	var (
		e                       domain.UnifiedEvent
		source, category, level string
		data                    []byte
	)
	err := s.Scan(&e.ID, &e.SessionID, &e.DeviceID, &e.Timestamp, &e.RelativeTime, &e.Duration,
		&source, &category, &e.Type, &level, &e.Title, &e.Summary, &data,
		&e.ParentID, &e.StepID, &e.TraceID, &e.AggregateCount, &e.AggregateFirst, &e.AggregateLast)
	if err != nil {
		return nil, err
	}
	e.Source = domain.Source(source)
	e.Category = domain.Category(category)
	e.Level = domain.Level(level)
	if len(data) > 0 {
		e.Data = data
	}
	return &e, nil
}
