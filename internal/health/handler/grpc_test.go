package handler

import (
	"context"
	"errors"
	"testing"

	healthv1 "device-inspector/backend/api/health/v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockBrokerChecker implements BrokerChecker for tests.
type mockBrokerChecker struct {
	healthErr error
}

func (m *mockBrokerChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestHealthCheck_NilPinger(t *testing.T) {
	srv := NewServer(nil, nil)
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatusServing {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}
}

func TestHealthCheck_PingerSuccess(t *testing.T) {
	srv := NewServer(&mockPinger{}, nil)
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatusServing {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}
}

func TestHealthCheck_PingerFailure(t *testing.T) {
	srv := NewServer(&mockPinger{pingErr: errors.New("connection refused")}, nil)
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck must not return gRPC error on ping failure: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatusNotServing {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestHealthCheck_BrokerSuccess(t *testing.T) {
	srv := NewServer(nil, &mockBrokerChecker{})
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatusServing {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}
}

func TestHealthCheck_BrokerFailure(t *testing.T) {
	srv := NewServer(nil, &mockBrokerChecker{healthErr: errors.New("dial tcp: connection refused")})
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck must not return gRPC error on broker failure: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatusNotServing {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestHealthCheck_DatabaseOKBrokerFails(t *testing.T) {
	srv := NewServer(&mockPinger{}, &mockBrokerChecker{healthErr: errors.New("no broker reachable")})
	resp, err := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if resp.GetStatus() != healthv1.ServingStatusNotServing {
		t.Errorf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestHealthCheck_ReportsChecks(t *testing.T) {
	srv := NewServer(&mockPinger{}, &mockBrokerChecker{healthErr: errors.New("down")})
	resp, _ := srv.HealthCheck(context.Background(), &healthv1.HealthCheckRequest{})
	if resp.Checks["database"] != "ok" || resp.Checks["broker"] != "down" {
		t.Errorf("checks = %v", resp.Checks)
	}
}
