package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ticketd/cmd/internal/auth"
	"ticketd/cmd/internal/realtime"
	"ticketd/cmd/internal/ticket"
)

const metricsNamespace = "ticketd"

// Metrics owns a private Prometheus registry for the process.
type Metrics struct {
	reg *prometheus.Registry

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	inflight    prometheus.Gauge
	resolutions *prometheus.CounterVec
}

// NewMetrics registers HTTP, auth and runtime collectors. store and hub are
// sampled at scrape time; either may be nil.
func NewMetrics(store *ticket.Store, hub *realtime.Hub) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "auth",
			Name:      "resolutions_total",
			Help:      "Session cookie resolutions by outcome.",
		}, []string{"outcome"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.latency,
		m.inflight,
		m.resolutions,
	)

	if store != nil {
		m.reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "ticket",
				Name:      "slots",
				Help:      "Slots in the ticket table, including deleted ones.",
			}, func() float64 { return float64(store.Stats().Slots) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "ticket",
				Name:      "live",
				Help:      "Tickets currently stored.",
			}, func() float64 { return float64(store.Stats().Occupied) }),
		)
	}

	if hub != nil {
		m.reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "feed",
				Name:      "subscribers",
				Help:      "Connected ticket event feed clients.",
			}, func() float64 { return float64(hub.Len()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "feed",
				Name:      "dropped_total",
				Help:      "Feed events skipped because a client queue was full.",
			}, func() float64 { return float64(hub.Dropped()) }),
		)
	}

	return m
}

// ObserveResolution counts one resolver outcome. It is an auth.Resolver observer.
func (m *Metrics) ObserveResolution(o auth.Outcome) {
	m.resolutions.WithLabelValues(o.String()).Inc()
}

// Middleware records request count, latency and in-flight gauge.
// Routes are labelled by chi pattern so ids do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		rw := newLoggingResponseWriter(w)
		next.ServeHTTP(rw, r)

		route := routePattern(r)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
