package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"device-inspector/backend/internal/security"
)

const bearerPrefix = "bearer "

// ProducerAuthUnary returns a unary server interceptor that requires a valid producer Bearer
// token on protectedMethods and stores the producer in the context. A token pinned to a device
// may only act on that device. A nil verifier disables the check.
func ProducerAuthUnary(verifier *security.TokenProvider, protectedMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if verifier == nil || !protectedMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := extractBearer(ctx)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		producer, err := verifier.Validate(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		if d := deviceID(req); producer.DeviceID != "" && d != "" && d != producer.DeviceID {
			return nil, status.Error(codes.PermissionDenied, "token is not valid for this device")
		}
		return handler(WithProducer(ctx, producer), req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
