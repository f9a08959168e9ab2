package obs

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector is the operational-metrics sink both servers report
// to, in the style of metrics.go's MetricsCollector interface, narrowed
// to this system's operation set.
type MetricsCollector interface {
	RecordInsert(d time.Duration, err error)
	RecordDelete(d time.Duration, err error)
	RecordSearch(k int, d time.Duration, err error)
	RecordPut(d time.Duration, err error)
	RecordGet(d time.Duration, err error)
	RecordCheckpoint(d time.Duration, err error)
	RecordConnection(accepted bool)
}

// NoopMetricsCollector discards everything. The default when
// VICTOR_METRICS_ADDR is unset.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)      {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)      {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordPut(time.Duration, error)         {}
func (NoopMetricsCollector) RecordGet(time.Duration, error)         {}
func (NoopMetricsCollector) RecordCheckpoint(time.Duration, error)  {}
func (NoopMetricsCollector) RecordConnection(bool)                  {}

// PrometheusCollector implements MetricsCollector on top of
// github.com/prometheus/client_golang, serving /metrics on an HTTP
// listener bound at construction (VICTOR_METRICS_ADDR).
type PrometheusCollector struct {
	ops         *prometheus.CounterVec
	opErrors    *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	connections *prometheus.CounterVec
}

// NewPrometheusCollector registers the collector's metrics under a fresh
// registry and starts serving them on addr. A failure to bind or serve is
// logged through logger rather than discarded, since it happens in a
// background goroutine after NewPrometheusCollector has already returned.
func NewPrometheusCollector(server, addr string, logger *Logger) (*PrometheusCollector, error) {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"server": server}

	c := &PrometheusCollector{
		ops: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace:   "victordb",
			Name:        "operations_total",
			Help:        "Total operations handled, by kind.",
			ConstLabels: labels,
		}, []string{"op"}),
		opErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace:   "victordb",
			Name:        "operation_errors_total",
			Help:        "Total operation failures, by kind.",
			ConstLabels: labels,
		}, []string{"op"}),
		opDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "victordb",
			Name:        "operation_duration_seconds",
			Help:        "Operation latency, by kind.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"op"}),
		connections: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace:   "victordb",
			Name:        "connections_total",
			Help:        "Accepted vs. rejected connection attempts.",
			ConstLabels: labels,
		}, []string{"result"}),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	return c, nil
}

func (c *PrometheusCollector) record(op string, d time.Duration, err error) {
	c.ops.WithLabelValues(op).Inc()
	c.opDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		c.opErrors.WithLabelValues(op).Inc()
	}
}

func (c *PrometheusCollector) RecordInsert(d time.Duration, err error) { c.record("insert", d, err) }
func (c *PrometheusCollector) RecordDelete(d time.Duration, err error) { c.record("delete", d, err) }
func (c *PrometheusCollector) RecordSearch(k int, d time.Duration, err error) {
	c.record("search", d, err)
}
func (c *PrometheusCollector) RecordPut(d time.Duration, err error) { c.record("put", d, err) }
func (c *PrometheusCollector) RecordGet(d time.Duration, err error) { c.record("get", d, err) }
func (c *PrometheusCollector) RecordCheckpoint(d time.Duration, err error) {
	c.record("checkpoint", d, err)
}
func (c *PrometheusCollector) RecordConnection(accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	c.connections.WithLabelValues(result).Inc()
}
