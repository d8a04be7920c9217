package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements every hook interface with Prometheus collectors.
type Prometheus struct {
	registry *prometheus.Registry

	StoreLoadsTotal     *prometheus.CounterVec
	StoreLoadDuration   *prometheus.HistogramVec
	StoreNodes          prometheus.Gauge
	StoreInvalidations  *prometheus.CounterVec
	RendersTotal        *prometheus.CounterVec
	RenderDuration      *prometheus.HistogramVec
	RendersInFlight     prometheus.Gauge
	CacheEventsTotal    *prometheus.CounterVec
	CacheBytesWritten   prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SyncsTotal          *prometheus.CounterVec
	SyncDuration        prometheus.Histogram
}

// NewPrometheus registers the dashboard metrics with registry.
// A nil registry gets a fresh one.
func NewPrometheus(registry *prometheus.Registry) *Prometheus {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	f := promauto.With(registry)

	return &Prometheus{
		registry: registry,
		StoreLoadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchen_store_loads_total",
			Help: "Total number of kitchen loads by kind and status",
		}, []string{"kind", "status"}),
		StoreLoadDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kitchen_store_load_duration_seconds",
			Help:    "Time spent reading the kitchen",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		StoreNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "kitchen_store_nodes",
			Help: "Number of nodes in the last successful load",
		}),
		StoreInvalidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchen_store_invalidations_total",
			Help: "Total number of snapshot invalidations by reason",
		}, []string{"reason"}),
		RendersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchen_renders_total",
			Help: "Total number of node map renders by engine, format and status",
		}, []string{"engine", "format", "status"}),
		RenderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kitchen_render_duration_seconds",
			Help:    "Time spent rendering node maps",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"engine", "format"}),
		RendersInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "kitchen_renders_in_flight",
			Help: "Number of renders currently running",
		}),
		CacheEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchen_cache_events_total",
			Help: "Total number of cache events by key type and result",
		}, []string{"key_type", "result"}),
		CacheBytesWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "kitchen_cache_bytes_written_total",
			Help: "Total bytes written to the artifact cache",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchen_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kitchen_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SyncsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kitchen_repo_syncs_total",
			Help: "Total number of repository syncs by action and status",
		}, []string{"action", "status"}),
		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kitchen_repo_sync_duration_seconds",
			Help:    "Time spent synchronizing the repository",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// Install registers p as the global hook implementation for every category.
func (p *Prometheus) Install() {
	SetStoreHooks(p)
	SetRenderHooks(p)
	SetCacheHooks(p)
	SetHTTPHooks(p)
	SetSyncHooks(p)
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnLoad implements StoreHooks.
func (p *Prometheus) OnLoad(_ context.Context, kind string, count int, d time.Duration, err error) {
	p.StoreLoadsTotal.WithLabelValues(kind, status(err)).Inc()
	p.StoreLoadDuration.WithLabelValues(kind).Observe(d.Seconds())
	if err == nil && kind == "nodes" {
		p.StoreNodes.Set(float64(count))
	}
}

// OnInvalidate implements StoreHooks.
func (p *Prometheus) OnInvalidate(_ context.Context, reason string) {
	p.StoreInvalidations.WithLabelValues(reason).Inc()
}

// OnRenderStart implements RenderHooks.
func (p *Prometheus) OnRenderStart(context.Context, string, string) {
	p.RendersInFlight.Inc()
}

// OnRenderComplete implements RenderHooks.
func (p *Prometheus) OnRenderComplete(_ context.Context, engine, format string, d time.Duration, err error) {
	p.RendersInFlight.Dec()
	p.RendersTotal.WithLabelValues(engine, format, status(err)).Inc()
	p.RenderDuration.WithLabelValues(engine, format).Observe(d.Seconds())
}

// OnCacheHit implements CacheHooks.
func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.CacheEventsTotal.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements CacheHooks.
func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.CacheEventsTotal.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements CacheHooks.
func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.CacheEventsTotal.WithLabelValues(keyType, "set").Inc()
	p.CacheBytesWritten.Add(float64(size))
}

// OnRequest implements HTTPHooks.
func (p *Prometheus) OnRequest(context.Context, string, string) {}

// OnResponse implements HTTPHooks.
func (p *Prometheus) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	p.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	p.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// OnSync implements SyncHooks.
func (p *Prometheus) OnSync(_ context.Context, action string, d time.Duration, err error) {
	p.SyncsTotal.WithLabelValues(action, status(err)).Inc()
	p.SyncDuration.Observe(d.Seconds())
}

var (
	_ StoreHooks  = (*Prometheus)(nil)
	_ RenderHooks = (*Prometheus)(nil)
	_ CacheHooks  = (*Prometheus)(nil)
	_ HTTPHooks   = (*Prometheus)(nil)
	_ SyncHooks   = (*Prometheus)(nil)
)
