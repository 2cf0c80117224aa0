// Package ingestv1 declares the IngestService wire messages and service descriptor used by
// device-side producers.
package ingestv1

import (
	"context"

	"google.golang.org/grpc"

	eventdomain "device-inspector/backend/internal/event/domain"
	"device-inspector/backend/internal/rpc"
	sessiondomain "device-inspector/backend/internal/session/domain"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "inspector.ingest.v1.IngestService"

type PushEventsRequest struct {
	SessionID string                     `json:"sessionId"`
	Events    []eventdomain.UnifiedEvent `json:"events"`
}

func (r *PushEventsRequest) GetSessionID() string { return r.SessionID }

type PushEventsResponse struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

type AnnounceSessionRequest struct {
	Session *sessiondomain.DeviceSession `json:"session"`
}

func (r *AnnounceSessionRequest) GetSessionID() string {
	if r.Session == nil {
		return ""
	}
	return r.Session.ID
}

func (r *AnnounceSessionRequest) GetDeviceID() string {
	if r.Session == nil {
		return ""
	}
	return r.Session.DeviceID
}

type AnnounceSessionResponse struct {
	Session *sessiondomain.DeviceSession `json:"session"`
}

// IngestServiceServer is the server API for IngestService.
type IngestServiceServer interface {
	PushEvents(context.Context, *PushEventsRequest) (*PushEventsResponse, error)
	AnnounceSessionStarted(context.Context, *AnnounceSessionRequest) (*AnnounceSessionResponse, error)
	AnnounceSessionEnded(context.Context, *AnnounceSessionRequest) (*AnnounceSessionResponse, error)
}

// ServiceDesc is the grpc.ServiceDesc for IngestService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IngestServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "PushEvents", IngestServiceServer.PushEvents),
		rpc.Unary(ServiceName, "AnnounceSessionStarted", IngestServiceServer.AnnounceSessionStarted),
		rpc.Unary(ServiceName, "AnnounceSessionEnded", IngestServiceServer.AnnounceSessionEnded),
	},
	Metadata: "ingest/v1/ingest",
}

// RegisterIngestServiceServer registers srv on s.
func RegisterIngestServiceServer(s grpc.ServiceRegistrar, srv IngestServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// IngestServiceClient is the producer-side client.
type IngestServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewIngestServiceClient(cc grpc.ClientConnInterface) *IngestServiceClient {
	return &IngestServiceClient{cc: cc}
}

func (c *IngestServiceClient) PushEvents(ctx context.Context, in *PushEventsRequest, opts ...grpc.CallOption) (*PushEventsResponse, error) {
	return rpc.Invoke[PushEventsRequest, PushEventsResponse](ctx, c.cc, ServiceName, "PushEvents", in, opts...)
}

func (c *IngestServiceClient) AnnounceSessionStarted(ctx context.Context, in *AnnounceSessionRequest, opts ...grpc.CallOption) (*AnnounceSessionResponse, error) {
	return rpc.Invoke[AnnounceSessionRequest, AnnounceSessionResponse](ctx, c.cc, ServiceName, "AnnounceSessionStarted", in, opts...)
}

func (c *IngestServiceClient) AnnounceSessionEnded(ctx context.Context, in *AnnounceSessionRequest, opts ...grpc.CallOption) (*AnnounceSessionResponse, error) {
	return rpc.Invoke[AnnounceSessionRequest, AnnounceSessionResponse](ctx, c.cc, ServiceName, "AnnounceSessionEnded", in, opts...)
}
