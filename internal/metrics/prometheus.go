// Package metrics exposes store and RPC counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
)

const namespace = "inspector"

// Registry owns a private Prometheus registry with the store and RPC collectors.
// It implements eventstore.Metrics.
type Registry struct {
	reg *prometheus.Registry

	ingested      prometheus.Counter
	dropped       *prometheus.CounterVec
	stale         *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	backendQuery  *prometheus.HistogramVec
	backendErrors *prometheus.CounterVec
	visible       prometheus.Gauge
	rpcs          *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
}

// New returns a registry with process and Go runtime collectors registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "events_ingested_total",
			Help: "Events admitted into the live buffer.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "events_dropped_total",
			Help: "Events discarded on ingestion by reason.",
		}, []string{"reason"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "stale_results_total",
			Help: "Backend results discarded because the session or filter changed.",
		}, []string{"op"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "page_cache", Name: "lookups_total",
			Help: "Page cache lookups by result.",
		}, []string{"result"}),
		backendQuery: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "backend", Name: "query_duration_seconds",
			Help:    "Latency of persistence calls made by the store.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		backendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "backend", Name: "errors_total",
			Help: "Failed persistence calls made by the store.",
		}, []string{"op"}),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "store", Name: "visible_events",
			Help: "Events in the current visible list.",
		}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "grpc", Name: "requests_total",
			Help: "Handled RPCs by method and status code.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "grpc", Name: "request_duration_seconds",
			Help:    "RPC handling latency by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	r.reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		r.ingested, r.dropped, r.stale, r.cacheLookups, r.backendQuery,
		r.backendErrors, r.visible, r.rpcs, r.rpcDuration,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) EventsIngested(n int) {
	r.ingested.Add(float64(n))
}

func (r *Registry) EventsDropped(reason string, n int) {
	r.dropped.WithLabelValues(reason).Add(float64(n))
}

func (r *Registry) StaleResult(op string) {
	r.stale.WithLabelValues(op).Inc()
}

func (r *Registry) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Registry) BackendQuery(op string, d time.Duration, err error) {
	r.backendQuery.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		r.backendErrors.WithLabelValues(op).Inc()
	}
}

func (r *Registry) VisibleEvents(n int) {
	r.visible.Set(float64(n))
}

// RPC records one handled call.
func (r *Registry) RPC(fullMethod string, code codes.Code, d time.Duration) {
	r.rpcs.WithLabelValues(fullMethod, code.String()).Inc()
	r.rpcDuration.WithLabelValues(fullMethod).Observe(d.Seconds())
}
