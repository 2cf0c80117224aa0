package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"device-inspector/backend/internal/audit/domain"
)

// mockAuditRepo implements the audit repository interface for tests.
type mockAuditRepo struct {
	mu        sync.Mutex
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id string) (*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) List(ctx context.Context, f domain.Filter, limit, offset int) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(ctx context.Context) string { return "192.168.1.1" })

	logger.LogEvent(context.Background(), "sess-1", "dev-1", "end", "session", "idle")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.SessionID != "sess-1" || entry.DeviceID != "dev-1" {
		t.Errorf("session/device = %q/%q", entry.SessionID, entry.DeviceID)
	}
	if entry.Action != "end" || entry.Resource != "session" {
		t.Errorf("action/resource = %q/%q", entry.Action, entry.Resource)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Status != "OK" || entry.Metadata != "idle" {
		t.Errorf("status/metadata = %q/%q", entry.Status, entry.Metadata)
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_NilIPExtractor(t *testing.T) {
	repo := &mockAuditRepo{}
	NewLogger(repo, nil).LogEvent(context.Background(), "", "", "cleanup", "session", "")
	if len(repo.entries) != 1 || repo.entries[0].IP != SystemIP {
		t.Fatalf("entries = %+v, want one with IP %q", repo.entries, SystemIP)
	}
}

func TestLogger_LogEvent_RepositoryError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	// Must not panic or propagate.
	NewLogger(repo, nil).LogEvent(context.Background(), "s", "d", "end", "session", "")
	if len(repo.entries) != 0 {
		t.Errorf("entries = %d, want 0", len(repo.entries))
	}
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	NewLogger(nil, nil).LogEvent(context.Background(), "s", "d", "end", "session", "")
	var l *Logger
	l.LogEvent(context.Background(), "s", "d", "end", "session", "")
}
