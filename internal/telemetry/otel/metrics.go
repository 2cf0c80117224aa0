package otel

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"device-inspector/backend/internal/telemetry"
	"device-inspector/backend/internal/telemetry/domain"
)

// meterName is the instrumentation scope of the store instruments.
const meterName = "device-inspector.store"

// StoreMetrics records store counters as OTel instruments and reports dropped batches as log
// records through the emitter. It satisfies eventstore.Metrics.
type StoreMetrics struct {
	ingested otelmetric.Int64Counter
	dropped  otelmetric.Int64Counter
	stale    otelmetric.Int64Counter
	cache    otelmetric.Int64Counter
	queries  otelmetric.Float64Histogram
	visible  otelmetric.Int64Gauge
	emitter  telemetry.EventEmitter
}

// NewStoreMetrics creates the instruments on provider. emitter may be nil.
func NewStoreMetrics(provider otelmetric.MeterProvider, emitter telemetry.EventEmitter) (*StoreMetrics, error) {
	meter := provider.Meter(meterName)
	m := &StoreMetrics{emitter: emitter}
	var err error
	if m.ingested, err = meter.Int64Counter("store.events.ingested",
		otelmetric.WithDescription("Live events admitted to the ring buffer")); err != nil {
		return nil, err
	}
	if m.dropped, err = meter.Int64Counter("store.events.dropped",
		otelmetric.WithDescription("Live events rejected, by reason")); err != nil {
		return nil, err
	}
	if m.stale, err = meter.Int64Counter("store.results.stale",
		otelmetric.WithDescription("Backend results discarded because the session or filter changed")); err != nil {
		return nil, err
	}
	if m.cache, err = meter.Int64Counter("store.page_cache.lookups",
		otelmetric.WithDescription("Page cache lookups, by hit")); err != nil {
		return nil, err
	}
	if m.queries, err = meter.Float64Histogram("store.backend.query.duration",
		otelmetric.WithDescription("Backend query latency"), otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.visible, err = meter.Int64Gauge("store.visible.events",
		otelmetric.WithDescription("Events in the visible window")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *StoreMetrics) EventsIngested(n int) {
	m.ingested.Add(context.Background(), int64(n))
}

func (m *StoreMetrics) EventsDropped(reason string, n int) {
	m.dropped.Add(context.Background(), int64(n), otelmetric.WithAttributes(attribute.String("reason", reason)))
	telemetry.EmitAsync(m.emitter, &domain.Record{
		Name:       domain.RecordBatchDropped,
		Source:     "store",
		Attributes: map[string]string{"reason": reason, "count": strconv.Itoa(n)},
	})
}

func (m *StoreMetrics) StaleResult(op string) {
	m.stale.Add(context.Background(), 1, otelmetric.WithAttributes(attribute.String("op", op)))
}

func (m *StoreMetrics) CacheLookup(hit bool) {
	m.cache.Add(context.Background(), 1, otelmetric.WithAttributes(attribute.Bool("hit", hit)))
}

func (m *StoreMetrics) BackendQuery(op string, d time.Duration, err error) {
	m.queries.Record(context.Background(), d.Seconds(), otelmetric.WithAttributes(
		attribute.String("op", op), attribute.Bool("error", err != nil)))
}

func (m *StoreMetrics) VisibleEvents(n int) {
	m.visible.Record(context.Background(), int64(n))
}
