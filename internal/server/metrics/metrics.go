// Package metrics exposes Prometheus counters for the HTTP boundary and the
// asset pipelines. All Record methods are safe on a nil *Collector.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "gophgallery"

// Operation outcomes used as the status label.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector owns a private registry and the metric vectors registered on it.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	AssetOperations     *prometheus.CounterVec
	BlobOperations      *prometheus.CounterVec
	SweepRemoved        prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		AssetOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "asset_operations_total",
			Help:      "Asset pipeline operations by outcome",
		}, []string{"operation", "status"}),
		BlobOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "blob_operations_total",
			Help:      "Blob store calls by backend and outcome",
		}, []string{"backend", "operation", "status"}),
		SweepRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sweep_removed_records_total",
			Help:      "Dangling asset records removed by the reconciliation sweep",
		}),
	}

	reg.MustRegister(c.HTTPRequestsTotal, c.HTTPRequestDuration, c.AssetOperations, c.BlobOperations, c.SweepRemoved)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAssetOperation counts n assets handled by operation.
func (c *Collector) RecordAssetOperation(operation string, err error, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.AssetOperations.WithLabelValues(operation, status(err)).Add(float64(n))
}

func (c *Collector) RecordBlobOperation(backend, operation string, err error) {
	if c == nil {
		return
	}
	c.BlobOperations.WithLabelValues(backend, operation, status(err)).Inc()
}

func (c *Collector) RecordSweepRemoved(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.SweepRemoved.Add(float64(n))
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
