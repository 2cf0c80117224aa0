// Package healthv1 declares the HealthService wire messages and service descriptor.
package healthv1

import (
	"context"

	"google.golang.org/grpc"

	"device-inspector/backend/internal/rpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "inspector.health.v1.HealthService"

// ServingStatus is the readiness reported by HealthCheck.
type ServingStatus string

const (
	ServingStatusServing    ServingStatus = "SERVING"
	ServingStatusNotServing ServingStatus = "NOT_SERVING"
)

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Status ServingStatus `json:"status"`
	// Checks maps each dependency to "ok" or its error.
	Checks map[string]string `json:"checks,omitempty"`
}

func (r *HealthCheckResponse) GetStatus() ServingStatus {
	if r == nil {
		return ""
	}
	return r.Status
}

// HealthServiceServer is the server API for HealthService.
type HealthServiceServer interface {
	HealthCheck(context.Context, *HealthCheckRequest) (*HealthCheckResponse, error)
}

// ServiceDesc is the grpc.ServiceDesc for HealthService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HealthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "HealthCheck", HealthServiceServer.HealthCheck),
	},
	Metadata: "health/v1/health",
}

// HealthCheckMethod is the full method name, used to exclude health probes from auditing.
var HealthCheckMethod = rpc.FullMethod(ServiceName, "HealthCheck")

// RegisterHealthServiceServer registers srv on s.
func RegisterHealthServiceServer(s grpc.ServiceRegistrar, srv HealthServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
