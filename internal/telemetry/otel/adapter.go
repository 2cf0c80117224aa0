package otel

import (
	"context"
	"sort"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"device-inspector/backend/internal/telemetry"
	"device-inspector/backend/internal/telemetry/domain"
)

// loggerName is the instrumentation scope of emitted records.
const loggerName = "device-inspector.store"

// recordLogger is the part of otellog.Logger the emitter needs.
type recordLogger interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends records as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(loggerName)}
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger. Used by tests.
func NewEventEmitterWithLogger(logger recordLogger) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Record) error { return nil }

type otelEmitter struct {
	logger recordLogger
}

// Emit converts rec to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, rec *domain.Record) error {
	if rec == nil {
		return nil
	}
	out := otellog.Record{}
	out.SetTimestamp(rec.Time)
	if rec.Time.IsZero() {
		out.SetTimestamp(time.Now().UTC())
	}
	out.SetEventName(rec.Name)
	if len(rec.Body) > 0 {
		out.SetBody(otellog.BytesValue(rec.Body))
	}
	if rec.Name != "" {
		out.AddAttributes(otellog.String("event_type", rec.Name))
	}
	if rec.SessionID != "" {
		out.AddAttributes(otellog.String("session_id", rec.SessionID))
	}
	if rec.DeviceID != "" {
		out.AddAttributes(otellog.String("device_id", rec.DeviceID))
	}
	if rec.Source != "" {
		out.AddAttributes(otellog.String("source", rec.Source))
	}
	keys := make([]string, 0, len(rec.Attributes))
	for k := range rec.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.AddAttributes(otellog.String(k, rec.Attributes[k]))
	}
	e.logger.Emit(ctx, out)
	return nil
}
