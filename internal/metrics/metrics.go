// Package metrics holds the Prometheus collectors for the upload pipeline.
// All methods are safe on a nil *Metrics so components can run without metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ingestd"

// Metrics groups the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	storageUploads  *prometheus.CounterVec
	storageFailures prometheus.Counter
	completions     *prometheus.CounterVec
	evictionItems   *prometheus.CounterVec
	evictionBytes   prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		storageUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_uploads_total",
			Help:      "Successful storage uploads by origin node (primary or fallback).",
		}, []string{"origin"}),
		storageFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_upload_failures_total",
			Help:      "Uploads where both primary and fallback nodes failed.",
		}),
		completions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion pipeline outcomes.",
		}, []string{"outcome"}),
		evictionItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eviction_items_total",
			Help:      "Fallback unpin attempts by result.",
		}, []string{"result"}),
		evictionBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eviction_reclaimed_bytes_total",
			Help:      "Bytes unpinned from the fallback node.",
		}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// StorageUploaded counts a stored object by origin.
func (m *Metrics) StorageUploaded(origin string) {
	if m == nil {
		return
	}
	m.storageUploads.WithLabelValues(origin).Inc()
}

// StorageFailed counts an upload that exhausted both nodes.
func (m *Metrics) StorageFailed() {
	if m == nil {
		return
	}
	m.storageFailures.Inc()
}

// Completion counts a completion pipeline outcome ("dispatched", "duplicate", "attached", "storage_failed", "error").
func (m *Metrics) Completion(outcome string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(outcome).Inc()
}

// Evicted counts one unpin result and, on success, the bytes reclaimed.
func (m *Metrics) Evicted(ok bool, bytes int64) {
	if m == nil {
		return
	}
	if !ok {
		m.evictionItems.WithLabelValues("failed").Inc()
		return
	}
	m.evictionItems.WithLabelValues("succeeded").Inc()
	if bytes > 0 {
		m.evictionBytes.Add(float64(bytes))
	}
}
