package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusHooks implements BuildHooks and CacheHooks on a private
// Prometheus registry. A CLI process has no scrape endpoint, so the
// registry is exported once with WriteTextfile for a node exporter
// textfile collector.
type PrometheusHooks struct {
	Registry *prometheus.Registry

	stages   *prometheus.HistogramVec
	removed  *prometheus.CounterVec
	ions     *prometheus.CounterVec
	cacheOps *prometheus.CounterVec
	cacheSet *prometheus.CounterVec
}

// NewPrometheusHooks creates hooks with all collectors registered.
func NewPrometheusHooks() *PrometheusHooks {
	h := &PrometheusHooks{
		Registry: prometheus.NewRegistry(),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dabble",
			Name:      "stage_duration_seconds",
			Help:      "Duration of build stages.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage", "status"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dabble",
			Name:      "atoms_removed_total",
			Help:      "Atoms marked for deletion, by step.",
		}, []string{"step"}),
		ions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dabble",
			Name:      "ions_placed_total",
			Help:      "Waters converted to ions, by species.",
		}, []string{"species"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dabble",
			Name:      "cache_requests_total",
			Help:      "Cache lookups, by key type and result.",
		}, []string{"key_type", "result"}),
		cacheSet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dabble",
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache, by key type.",
		}, []string{"key_type"}),
	}
	h.Registry.MustRegister(h.stages, h.removed, h.ions, h.cacheOps, h.cacheSet)
	return h
}

func (h *PrometheusHooks) OnStageStart(context.Context, string) {}

func (h *PrometheusHooks) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	h.stages.WithLabelValues(stage, status).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnAtomsRemoved(_ context.Context, step string, n int) {
	h.removed.WithLabelValues(step).Add(float64(n))
}

func (h *PrometheusHooks) OnIonsPlaced(_ context.Context, species string, n int) {
	h.ions.WithLabelValues(species).Add(float64(n))
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheSet.WithLabelValues(keyType).Add(float64(size))
}

// WriteTextfile writes all metrics in the text exposition format.
func (h *PrometheusHooks) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, h.Registry)
}

var (
	_ BuildHooks = (*PrometheusHooks)(nil)
	_ CacheHooks = (*PrometheusHooks)(nil)
)
