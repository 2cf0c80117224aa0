package otel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"device-inspector/backend/internal/telemetry/domain"
)

type chanEmitter struct {
	mu   sync.Mutex
	recs []*domain.Record
	done chan struct{}
}

func (c *chanEmitter) Emit(ctx context.Context, rec *domain.Record) error {
	c.mu.Lock()
	c.recs = append(c.recs, rec)
	c.mu.Unlock()
	c.done <- struct{}{}
	return nil
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestStoreMetrics_RecordsInstruments(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	em := &chanEmitter{done: make(chan struct{}, 1)}
	m, err := NewStoreMetrics(provider, em)
	if err != nil {
		t.Fatalf("NewStoreMetrics: %v", err)
	}

	m.EventsIngested(3)
	m.EventsIngested(2)
	m.EventsDropped("inactive_session", 4)
	m.StaleResult("load_range")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.BackendQuery("load_range", 15*time.Millisecond, errors.New("boom"))
	m.VisibleEvents(42)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := sumOf(t, rm, "store.events.ingested"); got != 5 {
		t.Errorf("ingested = %d, want 5", got)
	}
	if got := sumOf(t, rm, "store.events.dropped"); got != 4 {
		t.Errorf("dropped = %d, want 4", got)
	}
	if got := sumOf(t, rm, "store.page_cache.lookups"); got != 2 {
		t.Errorf("cache lookups = %d, want 2", got)
	}

	select {
	case <-em.done:
	case <-time.After(time.Second):
		t.Fatal("dropped batch should be emitted as a record")
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if rec := em.recs[0]; rec.Name != domain.RecordBatchDropped || rec.Attributes["reason"] != "inactive_session" || rec.Attributes["count"] != "4" {
		t.Errorf("record = %+v", rec)
	}
}
