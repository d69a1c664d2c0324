package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRefresh(20 * time.Millisecond)
	m.IncrementRefreshFailure("fetch")
	m.IncrementInvariantViolation("sale")
	m.IncrementInvariantViolation("sale")
	m.IncrementPublished("ok")
	m.SetNotifications(map[string]int{"overdue": 3}, []string{"overdue", "urgent"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshFailures.WithLabelValues("fetch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.InvariantViolations.WithLabelValues("sale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Published.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Notifications.WithLabelValues("overdue")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Notifications.WithLabelValues("urgent")))

	n, err := testutil.GatherAndCount(reg, "medrent_refresh_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRefresh(time.Second)
		m.IncrementRefreshFailure("fetch")
		m.SetNotifications(nil, []string{"overdue"})
		m.IncrementInvariantViolation("rental")
		m.IncrementPublished("error")
		m.ObserveHTTP("/api/stats", 200, time.Millisecond)
	})
}

func TestMetrics_ObserveHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTP("/api/notifications/{id}/dismiss", 204, time.Millisecond)
	m.ObserveHTTP("/api/notifications/{id}/dismiss", 404, time.Millisecond)
	m.ObserveHTTP("", 404, time.Millisecond)

	n, err := testutil.GatherAndCount(reg, "medrent_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 304: "3xx", 422: "4xx", 503: "5xx"}
	for status, want := range tests {
		assert.Equal(t, want, statusClass(status), "status %d", status)
	}
}
