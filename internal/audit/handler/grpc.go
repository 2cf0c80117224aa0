package handler

import (
	"context"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	auditv1 "device-inspector/backend/api/audit/v1"
	"device-inspector/backend/internal/audit/domain"
	"device-inspector/backend/internal/audit/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Server implements AuditService for audit logs.
// API: api/audit/v1 → internal/audit/handler.
type Server struct {
	repo repository.Repository
}

// NewServer returns a new Audit gRPC server. Pass nil repo for stub (Unimplemented).
func NewServer(repo repository.Repository) *Server {
	return &Server{repo: repo}
}

// ListAuditLogs returns audit logs newest first, optionally narrowed by session, action and
// resource. PageToken is the offset handed out as NextPageToken.
func (s *Server) ListAuditLogs(ctx context.Context, req *auditv1.ListAuditLogsRequest) (*auditv1.ListAuditLogsResponse, error) {
	if s.repo == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := 0
	if req.PageToken != "" {
		n, err := strconv.Atoi(req.PageToken)
		if err != nil || n < 0 {
			return nil, status.Error(codes.InvalidArgument, "invalid page_token")
		}
		offset = n
	}
	f := domain.Filter{SessionID: req.SessionID, Action: req.Action, Resource: req.Resource}
	list, err := s.repo.List(ctx, f, pageSize+1, offset)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	resp := &auditv1.ListAuditLogsResponse{Logs: list}
	if len(list) > pageSize {
		resp.Logs = list[:pageSize]
		resp.NextPageToken = strconv.Itoa(offset + pageSize)
	}
	return resp, nil
}
