package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.StorageUploaded("primary")
	m.StorageFailed()
	m.Completion("dispatched")
	m.Evicted(true, 10)
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.StorageUploaded("fallback")
	m.StorageUploaded("fallback")
	m.StorageFailed()
	m.Completion("duplicate")
	m.Evicted(true, 2048)
	m.Evicted(false, 4096)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.storageUploads.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completions.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictionItems.WithLabelValues("failed")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.evictionBytes))
}
