package interceptors

import (
	"context"
	"log"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"device-inspector/backend/internal/audit"
	"device-inspector/backend/internal/audit/domain"
	auditrepo "device-inspector/backend/internal/audit/repository"

	"github.com/google/uuid"
)

type sessionScoped interface {
	GetSessionID() string
}

type deviceScoped interface {
	GetDeviceID() string
}

// AuditUnary returns a unary server interceptor that records an audit log entry after each RPC.
// skipMethods is the set of full method names to not audit (health probes and read-only calls).
// Create is best-effort: failures are logged and do not fail the RPC. Session and device ids are
// taken from the request, or from the response when the request carries none (e.g. StartSession).
func AuditUnary(auditRepo auditrepo.Repository, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if auditRepo == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		ar := audit.ParseFullMethod(info.FullMethod)
		entry := &domain.AuditLog{
			ID:        uuid.New().String(),
			SessionID: scopedID(req, resp, err, sessionID),
			DeviceID:  scopedID(req, resp, err, deviceID),
			Action:    ar.Action,
			Resource:  ar.Resource,
			IP:        ClientIP(ctx),
			Status:    status.Code(err).String(),
			CreatedAt: time.Now().UTC(),
		}
		if err != nil {
			entry.Metadata = status.Convert(err).Message()
		}
		if createErr := auditRepo.Create(ctx, entry); createErr != nil {
			log.Printf("audit: failed to create audit log: %v", createErr)
		}
		return resp, err
	}
}

func sessionID(v any) string {
	if s, ok := v.(sessionScoped); ok {
		return s.GetSessionID()
	}
	return ""
}

func deviceID(v any) string {
	if d, ok := v.(deviceScoped); ok {
		return d.GetDeviceID()
	}
	return ""
}

func scopedID(req, resp any, err error, get func(any) string) string {
	if id := get(req); id != "" {
		return id
	}
	if err == nil && resp != nil {
		return get(resp)
	}
	return ""
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
