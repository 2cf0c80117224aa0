// Package auditv1 declares the AuditService wire messages and service descriptor.
package auditv1

import (
	"context"

	"google.golang.org/grpc"

	"device-inspector/backend/internal/audit/domain"
	"device-inspector/backend/internal/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "inspector.audit.v1.AuditService"

type ListAuditLogsRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Action    string `json:"action,omitempty"`
	Resource  string `json:"resource,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	// PageToken is the offset returned as NextPageToken by the previous call.
	PageToken string `json:"pageToken,omitempty"`
}

type ListAuditLogsResponse struct {
	Logs          []*domain.AuditLog `json:"logs"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
}

// AuditServiceServer is the server API for AuditService.
type AuditServiceServer interface {
	ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error)
}

// ServiceDesc is the grpc.ServiceDesc for AuditService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "ListAuditLogs", AuditServiceServer.ListAuditLogs),
	},
	Metadata: "audit/v1/audit",
}

// RegisterAuditServiceServer registers srv on s.
func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
