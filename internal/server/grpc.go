package server

import (
	"google.golang.org/grpc"

	auditv1 "device-inspector/backend/api/audit/v1"
	healthv1 "device-inspector/backend/api/health/v1"
	ingestv1 "device-inspector/backend/api/ingest/v1"
	storev1 "device-inspector/backend/api/store/v1"

	audithandler "device-inspector/backend/internal/audit/handler"
	auditrepo "device-inspector/backend/internal/audit/repository"
	"device-inspector/backend/internal/eventstore"
	storehandler "device-inspector/backend/internal/eventstore/handler"
	healthhandler "device-inspector/backend/internal/health/handler"
	"device-inspector/backend/internal/ingest"
	"device-inspector/backend/internal/policy/engine"
	"device-inspector/backend/internal/rpc"
	"device-inspector/backend/internal/security"
	"device-inspector/backend/internal/server/interceptors"
	"device-inspector/backend/internal/telemetry"
	ingesthandler "device-inspector/backend/internal/telemetry/handler"
	"device-inspector/backend/internal/telemetry/producer"
)

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Store backs StoreService. If nil, StoreService is not registered.
	Store *eventstore.Store
	// IngestWriter persists producer output for IngestService. If nil, IngestService is not registered.
	IngestWriter ingesthandler.Writer
	// Producer publishes event batches to Kafka. If nil, batches are written through IngestWriter.
	Producer producer.Producer
	// Bus feeds ingested batches and lifecycle notices to the live store. May be nil.
	Bus *ingest.Bus
	// Emitter receives operational records (session lifecycle, RPCs). May be nil.
	Emitter telemetry.EventEmitter
	// AuditRepo is the audit log repository for AuditService and the audit interceptor. If nil, ListAuditLogs returns Unimplemented and no RPCs are audited.
	AuditRepo auditrepo.Repository
	// HealthPinger is used by HealthService for readiness (e.g. *sql.DB). If nil, HealthCheck skips DB ping.
	HealthPinger healthhandler.Pinger
	// HealthBroker is used by HealthService for readiness (e.g. the Kafka producer). If nil, HealthCheck skips the broker.
	HealthBroker healthhandler.BrokerChecker
	// Recorder counts RPCs (e.g. the Prometheus registry). May be nil.
	Recorder interceptors.RPCRecorder
	// IngestPolicy drops pushed events before storage. May be nil.
	IngestPolicy engine.Evaluator
	// ProducerTokens verifies producer Bearer tokens on IngestService. If nil, ingestion is unauthenticated.
	ProducerTokens *security.TokenProvider
}

// RegisterServices registers all gRPC services with the given server.
//
// API → handler mapping:
//   - StoreService  → internal/eventstore/handler
//   - IngestService → internal/telemetry/handler
//   - AuditService  → internal/audit/handler
//   - HealthService → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	if deps.Store != nil {
		storev1.RegisterStoreServiceServer(s, storehandler.NewServer(deps.Store, deps.Emitter))
	}
	if deps.IngestWriter != nil {
		ingestv1.RegisterIngestServiceServer(s, ingesthandler.NewServer(deps.IngestWriter, deps.Producer, deps.Bus, deps.Emitter).WithAdmission(deps.IngestPolicy))
	}
	auditv1.RegisterAuditServiceServer(s, audithandler.NewServer(deps.AuditRepo))
	healthv1.RegisterHealthServiceServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthBroker))
}

// UnaryInterceptors returns the interceptor chain: RPC telemetry first, then producer
// authentication, then auditing of calls that change stored data.
func UnaryInterceptors(deps Deps) []grpc.UnaryServerInterceptor {
	chain := []grpc.UnaryServerInterceptor{
		interceptors.TelemetryUnary(deps.Emitter, deps.Recorder, map[string]bool{healthv1.HealthCheckMethod: true}),
	}
	if deps.ProducerTokens != nil {
		chain = append(chain, interceptors.ProducerAuthUnary(deps.ProducerTokens, ProducerMethods()))
	}
	if deps.AuditRepo != nil {
		chain = append(chain, interceptors.AuditUnary(deps.AuditRepo, AuditSkipMethods()))
	}
	return chain
}

// ProducerMethods returns the full method names that require a producer token.
func ProducerMethods() map[string]bool {
	return map[string]bool{
		rpc.FullMethod(ingestv1.ServiceName, "PushEvents"):             true,
		rpc.FullMethod(ingestv1.ServiceName, "AnnounceSessionStarted"): true,
		rpc.FullMethod(ingestv1.ServiceName, "AnnounceSessionEnded"):   true,
	}
}

// AuditSkipMethods returns the full method names that are never audited: health probes,
// audit reads, read-only store calls and event pushes (too frequent to audit one by one).
func AuditSkipMethods() map[string]bool {
	skip := map[string]bool{healthv1.HealthCheckMethod: true}
	skip[rpc.FullMethod(auditv1.ServiceName, "ListAuditLogs")] = true
	skip[rpc.FullMethod(ingestv1.ServiceName, "PushEvents")] = true
	for _, m := range storev1.ReadOnlyMethods {
		skip[m] = true
	}
	return skip
}
