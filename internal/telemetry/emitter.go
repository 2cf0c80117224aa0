package telemetry

import (
	"context"

	"device-inspector/backend/internal/telemetry/domain"
)

// EventEmitter emits operational records (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, rec *domain.Record) error
}
