// Package metrics exports Prometheus collectors for the asset pipeline and
// implements the observability hooks on top of them.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	jerrors "github.com/matzehuels/jenny/pkg/errors"
	"github.com/matzehuels/jenny/pkg/observability"
)

var (
	// renderDuration measures page renders, including resolution and emission.
	renderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jenny_render_duration_seconds",
		Help:    "Page render latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"page", "outcome"})

	// renderModules tracks how many modules ended up on each rendered page.
	renderModules = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jenny_render_modules",
		Help:    "Number of resolved modules per rendered page",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	})

	// resolveErrors counts failed dependency resolutions by error kind.
	resolveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jenny_resolve_errors_total",
		Help: "Total number of failed dependency resolutions",
	}, []string{"kind"})

	// mountedModules is the current number of mounted web modules.
	mountedModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jenny_mounted_modules",
		Help: "Current number of mounted web modules",
	})

	// cacheOps counts cache lookups and writes.
	cacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jenny_cache_operations_total",
		Help: "Total number of cache operations",
	}, []string{"key_type", "op"})

	// upstreamRequests counts outgoing registry and CDN requests.
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jenny_upstream_requests_total",
		Help: "Total number of outgoing npm registry and CDN requests",
	}, []string{"host", "status"})

	// upstreamLatency measures outgoing request latency.
	upstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jenny_upstream_latency_seconds",
		Help:    "Outgoing request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"host"})

	// moduleRequests counts requests served from mounted modules.
	moduleRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jenny_module_requests_total",
		Help: "Total number of requests served by web modules",
	}, []string{"module", "status"})

	// moduleLatency measures how long module handlers take.
	moduleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jenny_module_request_duration_seconds",
		Help:    "Web module request latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// Hooks implements every observability hook interface with the collectors
// above.
type Hooks struct{}

// Install registers Hooks for every observability category.
func Install() {
	h := Hooks{}
	observability.SetRenderHooks(h)
	observability.SetRegistryHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (Hooks) OnRenderStart(context.Context, string) {}

func (Hooks) OnRenderComplete(_ context.Context, page string, modules int, d time.Duration, err error) {
	renderDuration.WithLabelValues(page, outcome(err)).Observe(d.Seconds())
	if err == nil {
		renderModules.Observe(float64(modules))
	}
}

func (Hooks) OnResolve(_ context.Context, _, _ int, _ time.Duration, err error) {
	if err != nil {
		resolveErrors.WithLabelValues(errorKind(err)).Inc()
	}
}

func (Hooks) OnMount(string, string)   { mountedModules.Inc() }
func (Hooks) OnUnmount(string, string) { mountedModules.Dec() }

func (Hooks) OnCacheHit(_ context.Context, keyType string) {
	cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (Hooks) OnCacheMiss(_ context.Context, keyType string) {
	cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (Hooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	cacheOps.WithLabelValues(keyType, "set").Inc()
}

func (Hooks) OnRequest(context.Context, string, string, string) {}

func (Hooks) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	upstreamRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	upstreamLatency.WithLabelValues(host).Observe(d.Seconds())
}

func (Hooks) OnError(_ context.Context, _, host, _ string, _ error) {
	upstreamRequests.WithLabelValues(host, "error").Inc()
}

func (Hooks) OnServe(_ context.Context, module string, status int, d time.Duration) {
	moduleRequests.WithLabelValues(module, strconv.Itoa(status)).Inc()
	moduleLatency.Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func errorKind(err error) string {
	if code := jerrors.GetCode(err); code != "" {
		return string(code)
	}
	return "other"
}

var (
	_ observability.RenderHooks   = Hooks{}
	_ observability.RegistryHooks = Hooks{}
	_ observability.CacheHooks    = Hooks{}
	_ observability.HTTPHooks     = Hooks{}
)
