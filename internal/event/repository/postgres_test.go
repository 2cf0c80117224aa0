package repository

import (
	"context"
	"encoding/json"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"device-inspector/backend/internal/db"
	"device-inspector/backend/internal/db/migrate"
	"device-inspector/backend/internal/event/domain"
)

func ptr(v int64) *int64 { return &v }

func TestBuildWhere(t *testing.T) {
	tests := []struct {
		name     string
		q        domain.EventQuery
		wantSQL  string
		wantArgs []any
	}{
		{"empty", domain.EventQuery{}, "", nil},
		{
			"session and window",
			domain.EventQuery{SessionID: "s1", StartTime: ptr(100), EndTime: ptr(200)},
			" WHERE session_id = $1 AND relative_time >= $2 AND relative_time < $3",
			[]any{"s1", int64(100), int64(200)},
		},
		{
			"sets",
			domain.EventQuery{Sources: []domain.Source{domain.SourceLogcat, domain.SourceNetwork}, Levels: []domain.Level{domain.LevelError}},
			" WHERE source = ANY($1) AND level = ANY($2)",
			[]any{[]string{"logcat", "network"}, []string{"error"}},
		},
		{
			"search reuses placeholder and escapes",
			domain.EventQuery{SearchText: "50%_done", TraceID: "t"},
			" WHERE (title ILIKE $1 OR summary ILIKE $1) AND trace_id = $2",
			[]any{`%50\%\_done%`, "t"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildWhere(tt.q)
			if sql != tt.wantSQL {
				t.Errorf("sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %#v, want %#v", args, tt.wantArgs)
			}
		})
	}
}

// openTestDB returns a migrated database or skips the test when DATABASE_URL is unset.
func openTestDB(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewPostgresRepository(conn)
}

func TestPostgresRepository_Integration(t *testing.T) {
	r := openTestDB(t)
	ctx := context.Background()
	conn := r.db

	sessionID := uuid.New().String()
	start := time.Now().UnixMilli()
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO device_sessions (id, device_id, type, start_time) VALUES ($1, 'dev', 'manual', $2)`,
		sessionID, start); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	t.Cleanup(func() { _, _ = conn.ExecContext(context.Background(), `DELETE FROM device_sessions WHERE id = $1`, sessionID) })

	mk := func(id string, rel int64, level domain.Level, title string) domain.UnifiedEvent {
		return domain.UnifiedEvent{
			ID: id, SessionID: sessionID, DeviceID: "dev", Timestamp: start + rel, RelativeTime: rel,
			Source: domain.SourceLogcat, Category: domain.CategoryLog, Type: "logcat", Level: level, Title: title,
			Data: json.RawMessage(`{"tag":"T"}`),
		}
	}
	e1, e2, e3 := uuid.New().String(), uuid.New().String(), uuid.New().String()
	n, err := r.Upsert(ctx, []domain.UnifiedEvent{
		mk(e1, 100, domain.LevelInfo, "boot"),
		mk(e2, 1500, domain.LevelError, "crash"),
		mk(e3, 1700, domain.LevelInfo, "restart"),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n != 3 {
		t.Errorf("inserted = %d, want 3", n)
	}

	n, err = r.Upsert(ctx, []domain.UnifiedEvent{mk(e1, 100, domain.LevelWarn, "boot (revised)")})
	if err != nil || n != 0 {
		t.Fatalf("re-Upsert = %d, %v; want 0, nil", n, err)
	}
	got, err := r.GetByID(ctx, e1)
	if err != nil || got == nil {
		t.Fatalf("GetByID = %v, %v", got, err)
	}
	if got.Title != "boot (revised)" || got.Level != domain.LevelWarn {
		t.Errorf("replaced event = %+v", got)
	}
	if missing, err := r.GetByID(ctx, uuid.New().String()); err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}

	res, err := r.Query(ctx, domain.EventQuery{SessionID: sessionID, StartTime: ptr(1000), Limit: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if res.Total != 2 || len(res.Events) != 1 || !res.HasMore || res.Events[0].ID != e2 {
		t.Errorf("Query = total %d, %d events, hasMore %v", res.Total, len(res.Events), res.HasMore)
	}

	idx, err := r.TimeIndex(ctx, sessionID)
	if err != nil {
		t.Fatalf("TimeIndex: %v", err)
	}
	want := []domain.TimeIndexEntry{
		{Second: 0, EventCount: 1, FirstEventID: e1, HasError: false},
		{Second: 1, EventCount: 2, FirstEventID: e2, HasError: true},
	}
	if !reflect.DeepEqual(idx, want) {
		t.Errorf("TimeIndex = %+v, want %+v", idx, want)
	}
}
