// Package metrics содержит метрики Prometheus для HTTP запросов и мутаций коллекций.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics хранит зарегистрированные коллекторы.
type Metrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	mutations       *prometheus.CounterVec
	mutationRetries *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "directory",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "collection_mutations_total",
			Help:      "Collection mutations by key and outcome.",
		}, []string{"key", "outcome"}),
		mutationRetries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "directory",
			Name:      "collection_mutation_attempts",
			Help:      "Compare-and-set attempts per mutation.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13},
		}, []string{"key"}),
	}
	reg.MustRegister(m.requests, m.duration, m.mutations, m.mutationRetries)
	return m
}

// ObserveMutation реализует collection.Observer.
func (m *Metrics) ObserveMutation(key, outcome string, attempts int) {
	m.mutations.WithLabelValues(key, outcome).Inc()
	m.mutationRetries.WithLabelValues(key).Observe(float64(attempts))
}

// Middleware считает запросы и их длительность. Метка route содержит шаблон маршрута chi,
// а не сырой путь, чтобы id не раздували число серий.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
