// Package promhooks implements the observability hooks with Prometheus
// collectors.
//
// Each constructor registers its collectors with the given registerer, so
// tests can use a fresh [prometheus.Registry] while main passes
// [prometheus.DefaultRegisterer] and serves it with promhttp:
//
//	observability.SetPipelineHooks(promhooks.NewPipeline(prometheus.DefaultRegisterer))
package promhooks

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/btgraph/pkg/errors"
	"github.com/matzehuels/btgraph/pkg/observability"
)

const namespace = "btgraph"

var durationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline records document processing metrics.
type Pipeline struct {
	migrations       *prometheus.CounterVec
	migrateDuration  prometheus.Histogram
	validations      *prometheus.CounterVec
	validateDuration prometheus.Histogram
	diagnostics      prometheus.Histogram
	placed           prometheus.Counter
	layoutDuration   prometheus.Histogram
	saves            *prometheus.CounterVec
	saveDuration     *prometheus.HistogramVec
}

// NewPipeline creates and registers pipeline collectors.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	f := promauto.With(reg)
	return &Pipeline{
		// Labels: from_version, result (current, migrated, error_code)
		migrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migrate",
			Name:      "documents_total",
			Help:      "Documents opened, by source schema version and result",
		}, []string{"from_version", "result"}),
		migrateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "migrate",
			Name:      "duration_seconds",
			Help:      "Time to migrate a document",
			Buckets:   durationBuckets,
		}),
		// Labels: valid (true, false)
		validations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validate",
			Name:      "runs_total",
			Help:      "Validation runs, by outcome",
		}, []string{"valid"}),
		validateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validate",
			Name:      "duration_seconds",
			Help:      "Time to validate a graph",
			Buckets:   durationBuckets,
		}),
		diagnostics: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validate",
			Name:      "diagnostics",
			Help:      "Diagnostics produced per validation run",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		placed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "nodes_placed_total",
			Help:      "Nodes moved by the layout engine",
		}),
		layoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "layout",
			Name:      "duration_seconds",
			Help:      "Time to lay out a graph",
			Buckets:   durationBuckets,
		}),
		// Labels: backend (file, mongo), status (ok, error)
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "saves_total",
			Help:      "Documents written to a store",
		}, []string{"backend", "status"}),
		saveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "save_duration_seconds",
			Help:      "Time to write a document to a store",
			Buckets:   durationBuckets,
		}, []string{"backend"}),
	}
}

func (p *Pipeline) OnMigrateStart(context.Context, int) {}

func (p *Pipeline) OnMigrateComplete(_ context.Context, version int, migrated bool, d time.Duration, err error) {
	result := "current"
	switch {
	case err != nil:
		result = string(errors.GetCode(err))
		if result == "" {
			result = "error"
		}
	case migrated:
		result = "migrated"
	}
	p.migrations.WithLabelValues(strconv.Itoa(version), result).Inc()
	p.migrateDuration.Observe(d.Seconds())
}

func (p *Pipeline) OnValidateStart(context.Context, int) {}

func (p *Pipeline) OnValidateComplete(_ context.Context, _, diagnostics int, valid bool, d time.Duration) {
	p.validations.WithLabelValues(strconv.FormatBool(valid)).Inc()
	p.validateDuration.Observe(d.Seconds())
	p.diagnostics.Observe(float64(diagnostics))
}

func (p *Pipeline) OnLayoutStart(context.Context, int) {}

func (p *Pipeline) OnLayoutComplete(_ context.Context, placed int, d time.Duration) {
	p.placed.Add(float64(placed))
	p.layoutDuration.Observe(d.Seconds())
}

func (p *Pipeline) OnSaveComplete(_ context.Context, backend string, d time.Duration, err error) {
	p.saves.WithLabelValues(backend, status(err)).Inc()
	p.saveDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// Cache
// =============================================================================

// Cache records cache effectiveness per key type.
type Cache struct {
	lookups *prometheus.CounterVec
	bytes   *prometheus.CounterVec
}

// NewCache creates and registers cache collectors.
func NewCache(reg prometheus.Registerer) *Cache {
	f := promauto.With(reg)
	return &Cache{
		// Labels: key_type (migration, report), result (hit, miss)
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by key type and result",
		}, []string{"key_type", "result"}),
		bytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache",
		}, []string{"key_type"}),
	}
}

func (c *Cache) OnCacheHit(_ context.Context, keyType string) {
	c.lookups.WithLabelValues(keyType, "hit").Inc()
}

func (c *Cache) OnCacheMiss(_ context.Context, keyType string) {
	c.lookups.WithLabelValues(keyType, "miss").Inc()
}

func (c *Cache) OnCacheSet(_ context.Context, keyType string, size int) {
	c.bytes.WithLabelValues(keyType).Add(float64(size))
}

// =============================================================================
// HTTP
// =============================================================================

// HTTP records API request metrics.
type HTTP struct {
	inFlight  prometheus.Gauge
	responses *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewHTTP creates and registers HTTP collectors.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	f := promauto.With(reg)
	return &HTTP{
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Requests currently being served",
		}),
		// Labels: method, route (chi route pattern), code
		responses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "responses_total",
			Help:      "Responses by route and status code",
		}, []string{"method", "route", "code"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (h *HTTP) OnRequest(context.Context, string, string) {
	h.inFlight.Inc()
}

func (h *HTTP) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	h.inFlight.Dec()
	h.responses.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	h.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Pipeline)(nil)
	_ observability.CacheHooks    = (*Cache)(nil)
	_ observability.HTTPHooks     = (*HTTP)(nil)
)
