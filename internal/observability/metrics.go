package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the API. All methods are safe on
// a nil receiver so callers never need to check whether metrics are enabled.
//
// Metrics:
//   - artvision_http_requests_total{method,route,status}
//   - artvision_http_request_duration_seconds{method,route}
//   - artvision_http_requests_inflight
//   - artvision_ai_requests_total{op,status}
//   - artvision_ai_request_duration_seconds{op}
//   - artvision_chat_turns_total{caller}
//   - artvision_tier_ups_total{tier}
//   - artvision_analysis_cache_total{result}
//   - artvision_rate_limited_total{route}
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	httpInflight prometheus.Gauge

	aiRequests *prometheus.CounterVec
	aiLatency  *prometheus.HistogramVec

	chatTurns     *prometheus.CounterVec
	tierUps       *prometheus.CounterVec
	analysisCache *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "artvision_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "artvision_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "artvision_http_requests_inflight",
			Help: "HTTP requests currently being served.",
		}),
		aiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "artvision_ai_requests_total",
			Help: "Calls to the generative model by operation and outcome.",
		}, []string{"op", "status"}),
		aiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "artvision_ai_request_duration_seconds",
			Help:    "Generative model call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}, []string{"op"}),
		chatTurns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "artvision_chat_turns_total",
			Help: "Completed chat turns by caller kind.",
		}, []string{"caller"}),
		tierUps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "artvision_tier_ups_total",
			Help: "Tier promotions by reached tier.",
		}, []string{"tier"}),
		analysisCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "artvision_analysis_cache_total",
			Help: "Analysis cache lookups by result.",
		}, []string{"result"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "artvision_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"route"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncInflight() {
	if m == nil {
		return
	}
	m.httpInflight.Inc()
}

func (m *Metrics) DecInflight() {
	if m == nil {
		return
	}
	m.httpInflight.Dec()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ObserveAI(op string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.aiRequests.WithLabelValues(op, status).Inc()
	m.aiLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func (m *Metrics) ChatTurn(authenticated bool) {
	if m == nil {
		return
	}
	caller := "anonymous"
	if authenticated {
		caller = "user"
	}
	m.chatTurns.WithLabelValues(caller).Inc()
}

func (m *Metrics) TierUp(tier string) {
	if m == nil {
		return
	}
	m.tierUps.WithLabelValues(tier).Inc()
}

func (m *Metrics) AnalysisCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.analysisCache.WithLabelValues(result).Inc()
}

func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}
