package handler

import (
	"context"
	"log"

	healthv1 "device-inspector/backend/api/health/v1"
)

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BrokerChecker checks the event broker (e.g. the Kafka producer).
type BrokerChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements HealthService for readiness/liveness.
// API: api/health/v1 → internal/health/handler.
type Server struct {
	pinger Pinger
	broker BrokerChecker
}

// NewServer returns a Health gRPC server. Either dependency may be nil; its check is skipped.
func NewServer(pinger Pinger, broker BrokerChecker) *Server {
	return &Server{pinger: pinger, broker: broker}
}

// HealthCheck reports SERVING when every configured dependency responds. Dependency failures
// are reported in the response, never as a gRPC error.
func (s *Server) HealthCheck(ctx context.Context, req *healthv1.HealthCheckRequest) (*healthv1.HealthCheckResponse, error) {
	resp := &healthv1.HealthCheckResponse{Status: healthv1.ServingStatusServing, Checks: map[string]string{}}
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			log.Printf("health: database ping failed: %v", err)
			resp.Status = healthv1.ServingStatusNotServing
			resp.Checks["database"] = err.Error()
		} else {
			resp.Checks["database"] = "ok"
		}
	}
	if s.broker != nil {
		if err := s.broker.HealthCheck(ctx); err != nil {
			log.Printf("health: broker check failed: %v", err)
			resp.Status = healthv1.ServingStatusNotServing
			resp.Checks["broker"] = err.Error()
		} else {
			resp.Checks["broker"] = "ok"
		}
	}
	return resp, nil
}
