package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//Metrics collects the service counters and histograms on a registry of its own.
//All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal      *prometheus.CounterVec
	httpDuration           *prometheus.HistogramVec
	aggregationDuration    *prometheus.HistogramVec
	recommendationsCreated prometheus.Counter
	recommendationsReused  prometheus.Counter
	readingsAppended       prometheus.Counter
}

//NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		aggregationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "energy_aggregation_duration_seconds",
			Help:    "Time spent aggregating readings by period.",
			Buckets: prometheus.DefBuckets,
		}, []string{"period"}),
		recommendationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energy_recommendations_created_total",
			Help: "Recommendations generated and stored on first request for an area.",
		}),
		recommendationsReused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energy_recommendations_reused_total",
			Help: "Recommendation requests answered from a stored row.",
		}),
		readingsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energy_readings_appended_total",
			Help: "Consumption readings accepted into the reading store.",
		}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.aggregationDuration,
		m.recommendationsCreated,
		m.recommendationsReused,
		m.readingsAppended,
	)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

//WrapHandler counts and times every request served by next under the given route label
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

//Handler exposes the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

//AggregationDone records how long aggregating readings over a period took
func (m *Metrics) AggregationDone(period string, duration time.Duration) {
	if m == nil {
		return
	}
	m.aggregationDuration.WithLabelValues(period).Observe(duration.Seconds())
}

//RecommendationCreated counts a recommendation that was generated and stored
func (m *Metrics) RecommendationCreated() {
	if m == nil {
		return
	}
	m.recommendationsCreated.Inc()
}

//RecommendationReused counts a request answered from a stored recommendation
func (m *Metrics) RecommendationReused() {
	if m == nil {
		return
	}
	m.recommendationsReused.Inc()
}

//ReadingsAppended counts readings added to the reading store
func (m *Metrics) ReadingsAppended(count int) {
	if m == nil {
		return
	}
	m.readingsAppended.Add(float64(count))
}
