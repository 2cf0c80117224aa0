package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"device-inspector/backend/internal/audit/domain"
	auditrepo "device-inspector/backend/internal/audit/repository"
)

// SystemIP is recorded for entries produced by background jobs rather than a caller.
const SystemIP = "system"

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by the session
// supervisor and the retention job.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, sessionID, deviceID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as SystemIP.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, sessionID, deviceID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := SystemIP
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		DeviceID:  deviceID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Status:    "OK",
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
