package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncLookup(LookupHit)
	pr.IncLookup(LookupHit)
	pr.IncLookup(LookupReplaced)
	pr.IncBroadcast("command-line", "done", true)
	pr.IncBroadcast("command-line", "done", false)
	pr.IncForwardDropped("source-control")
	pr.SetCachedSites(3)
	pr.ObserveConstruction("deploy", 2*time.Millisecond)
	pr.SetSubscribers("command-line", 2)
	pr.IncSubscriberDropped("command-line")
	pr.ObserveHTTPRequest("/healthz", http.StatusOK, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.lookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.lookups.WithLabelValues("replaced")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.broadcasts.WithLabelValues("command-line", "done", "failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.dropped.WithLabelValues("source-control")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.cachedSites), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(pr.subscribers.WithLabelValues("command-line")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.slowDropped.WithLabelValues("command-line")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(pr.httpRequests))

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitehub_registry_lookups_total")
}

func TestNilAndNoopRecorders(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncLookup(LookupMiss)
		pr.SetCachedSites(1)
		NoopRecorder{}.IncBroadcast("a", "b", true)
	})
}
