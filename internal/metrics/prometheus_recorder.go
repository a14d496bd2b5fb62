package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	lookups      *prom.CounterVec
	construction *prom.HistogramVec
	broadcasts   *prom.CounterVec
	dropped      *prom.CounterVec
	cachedSites  prom.Gauge
	subscribers  *prom.GaugeVec
	slowDropped  *prom.CounterVec
	httpRequests *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers the sitehub metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		lookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitehub",
			Name:      "registry_lookups_total",
			Help:      "Site registry lookups by outcome",
		}, []string{"result"}),
		construction: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitehub",
			Name:      "handle_construction_seconds",
			Help:      "Time spent constructing site handles",
			Buckets:   prom.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
		broadcasts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitehub",
			Name:      "broadcasts_total",
			Help:      "Events forwarded to real-time channels",
		}, []string{"channel", "signal", "result"}),
		dropped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitehub",
			Name:      "forward_dropped_total",
			Help:      "Events from retired handles that were not forwarded",
		}, []string{"channel"}),
		cachedSites: prom.NewGauge(prom.GaugeOpts{
			Namespace: "sitehub",
			Name:      "registry_sites",
			Help:      "Number of sites currently cached in the registry",
		}),
		subscribers: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "sitehub",
			Name:      "sse_subscribers",
			Help:      "Connected SSE subscribers per channel",
		}, []string{"channel"}),
		slowDropped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitehub",
			Name:      "sse_dropped_subscribers_total",
			Help:      "SSE subscribers disconnected because their buffer was full",
		}, []string{"channel"}),
		httpRequests: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitehub",
			Name:      "http_request_duration_seconds",
			Help:      "Admin HTTP request latency",
			Buckets:   prom.DefBuckets,
		}, []string{"route", "code"}),
	}
	reg.MustRegister(pr.lookups, pr.construction, pr.broadcasts, pr.dropped, pr.cachedSites,
		pr.subscribers, pr.slowDropped, pr.httpRequests)
	return pr
}

func (p *PrometheusRecorder) IncLookup(result LookupResult) {
	if p == nil {
		return
	}
	p.lookups.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveConstruction(kind string, d time.Duration) {
	if p == nil {
		return
	}
	p.construction.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBroadcast(channel, signal string, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.broadcasts.WithLabelValues(channel, signal, res).Inc()
}

func (p *PrometheusRecorder) IncForwardDropped(channel string) {
	if p == nil {
		return
	}
	p.dropped.WithLabelValues(channel).Inc()
}

func (p *PrometheusRecorder) SetCachedSites(n int) {
	if p == nil {
		return
	}
	p.cachedSites.Set(float64(n))
}

func (p *PrometheusRecorder) SetSubscribers(channel string, n int) {
	if p == nil {
		return
	}
	p.subscribers.WithLabelValues(channel).Set(float64(n))
}

func (p *PrometheusRecorder) IncSubscriberDropped(channel string) {
	if p == nil {
		return
	}
	p.slowDropped.WithLabelValues(channel).Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(route string, status int, d time.Duration) {
	if p == nil {
		return
	}
	p.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}
