// Package metrics exposes Prometheus counters for HTTP traffic and
// outbound email.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	emailsSent    *prometheus.CounterVec
	emailFailures *prometheus.CounterVec
	documents     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "emails_sent_total",
			Help:      "Emails accepted by the transport, by document type.",
		}, []string{"type"}),
		emailFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "email_delivery_failures_total",
			Help:      "Emails the transport rejected, by document type.",
		}, []string{"type"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "documents_created_total",
			Help:      "Quotes and invoices created.",
		}, []string{"type"}),
	}
	reg.MustRegister(
		m.requests, m.duration, m.emailsSent, m.emailFailures, m.documents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records every request under its chi route pattern, so ids in
// paths do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
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

// EmailSent counts a delivered email of the given document type.
func (m *Metrics) EmailSent(kind string) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(kind).Inc()
}

// EmailFailed counts a transport failure.
func (m *Metrics) EmailFailed(kind string) {
	if m == nil {
		return
	}
	m.emailFailures.WithLabelValues(kind).Inc()
}

// DocumentCreated counts a new quote or invoice.
func (m *Metrics) DocumentCreated(kind string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(kind).Inc()
}
