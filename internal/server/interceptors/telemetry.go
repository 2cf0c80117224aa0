package interceptors

import (
	"context"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"device-inspector/backend/internal/telemetry"
	"device-inspector/backend/internal/telemetry/domain"
)

// RPCRecorder receives per-call outcomes (e.g. the Prometheus registry).
type RPCRecorder interface {
	RPC(fullMethod string, code codes.Code, d time.Duration)
}

// TelemetryUnary returns a unary server interceptor that records every RPC on recorder and emits
// a grpc_request record after each call not in skipMethods.
// Best-effort: emit failures are logged and do not fail the RPC. emitter and recorder may be nil.
func TelemetryUnary(emitter telemetry.EventEmitter, recorder RPCRecorder, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)
		code := status.Code(err)
		if recorder != nil {
			recorder.RPC(info.FullMethod, code, elapsed)
		}
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		attrs := map[string]string{
			"full_method": info.FullMethod,
			"status_code": code.String(),
			"duration_ms": strconv.FormatInt(elapsed.Milliseconds(), 10),
			"client_ip":   ClientIP(ctx),
		}
		if id := ProducerID(ctx); id != "" {
			attrs["producer_id"] = id
		}
		telemetry.EmitAsync(emitter, &domain.Record{
			Name:       domain.RecordGRPCRequest,
			SessionID:  scopedID(req, resp, err, sessionID),
			DeviceID:   scopedID(req, resp, err, deviceID),
			Source:     "grpc_interceptor",
			Attributes: attrs,
		})
		return resp, err
	}
}
