package handler

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	auditv1 "device-inspector/backend/api/audit/v1"
	auditdomain "device-inspector/backend/internal/audit/domain"
)

// mockAuditRepo implements Repository for tests.
type mockAuditRepo struct {
	logs    []*auditdomain.AuditLog
	listErr error
	last    auditdomain.Filter
}

func (m *mockAuditRepo) GetByID(ctx context.Context, id string) (*auditdomain.AuditLog, error) {
	for _, l := range m.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}

func (m *mockAuditRepo) List(ctx context.Context, f auditdomain.Filter, limit, offset int) ([]*auditdomain.AuditLog, error) {
	m.last = f
	if m.listErr != nil {
		return nil, m.listErr
	}
	var matched []*auditdomain.AuditLog
	for _, l := range m.logs {
		if (f.SessionID == "" || l.SessionID == f.SessionID) &&
			(f.Action == "" || l.Action == f.Action) &&
			(f.Resource == "" || l.Resource == f.Resource) {
			matched = append(matched, l)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *mockAuditRepo) Create(ctx context.Context, a *auditdomain.AuditLog) error {
	m.logs = append(m.logs, a)
	return nil
}

func seed(n int) []*auditdomain.AuditLog {
	out := make([]*auditdomain.AuditLog, n)
	for i := range out {
		action := "end"
		if i%2 == 0 {
			action = "delete"
		}
		out[i] = &auditdomain.AuditLog{
			ID: strconv.Itoa(i), SessionID: "s1", Action: action, Resource: "session",
			IP: "10.0.0.1", Status: "OK", CreatedAt: time.Now().UTC(),
		}
	}
	return out
}

func TestListAuditLogs_Success(t *testing.T) {
	srv := NewServer(&mockAuditRepo{logs: seed(3)})
	resp, err := srv.ListAuditLogs(context.Background(), &auditv1.ListAuditLogsRequest{})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(resp.Logs) != 3 || resp.NextPageToken != "" {
		t.Errorf("logs = %d token = %q, want 3 and no next page", len(resp.Logs), resp.NextPageToken)
	}
}

func TestListAuditLogs_PassesFilter(t *testing.T) {
	repo := &mockAuditRepo{logs: seed(4)}
	srv := NewServer(repo)
	resp, err := srv.ListAuditLogs(context.Background(), &auditv1.ListAuditLogsRequest{SessionID: "s1", Action: "delete", Resource: "session"})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(resp.Logs) != 2 {
		t.Errorf("logs = %d, want 2", len(resp.Logs))
	}
	if repo.last.Action != "delete" || repo.last.SessionID != "s1" || repo.last.Resource != "session" {
		t.Errorf("filter = %+v", repo.last)
	}
}

func TestListAuditLogs_Pagination(t *testing.T) {
	srv := NewServer(&mockAuditRepo{logs: seed(25)})
	ctx := context.Background()
	first, err := srv.ListAuditLogs(ctx, &auditv1.ListAuditLogsRequest{PageSize: 20})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(first.Logs) != 20 || first.NextPageToken != "20" {
		t.Fatalf("first page = %d token %q", len(first.Logs), first.NextPageToken)
	}
	second, err := srv.ListAuditLogs(ctx, &auditv1.ListAuditLogsRequest{PageSize: 20, PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(second.Logs) != 5 || second.NextPageToken != "" || second.Logs[0].ID != "20" {
		t.Errorf("second page = %d token %q", len(second.Logs), second.NextPageToken)
	}
}

func TestListAuditLogs_MaxPageSize(t *testing.T) {
	srv := NewServer(&mockAuditRepo{logs: seed(150)})
	resp, err := srv.ListAuditLogs(context.Background(), &auditv1.ListAuditLogsRequest{PageSize: 150})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(resp.Logs) != maxPageSize {
		t.Errorf("logs count = %d, want %d", len(resp.Logs), maxPageSize)
	}
}

func TestListAuditLogs_Errors(t *testing.T) {
	tests := []struct {
		name string
		srv  *Server
		req  *auditv1.ListAuditLogsRequest
		want codes.Code
	}{
		{"nil repo", NewServer(nil), &auditv1.ListAuditLogsRequest{}, codes.Unimplemented},
		{"repository error", NewServer(&mockAuditRepo{listErr: errors.New("db error")}), &auditv1.ListAuditLogsRequest{}, codes.Internal},
		{"bad token", NewServer(&mockAuditRepo{}), &auditv1.ListAuditLogsRequest{PageToken: "abc"}, codes.InvalidArgument},
		{"negative token", NewServer(&mockAuditRepo{}), &auditv1.ListAuditLogsRequest{PageToken: "-5"}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.srv.ListAuditLogs(context.Background(), tt.req)
			if got := status.Code(err); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}
