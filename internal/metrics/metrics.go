// Package metrics содержит счётчики Prometheus приложения.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Исходы проверки доступа к карточке.
const (
	DecisionSubscription = "subscription"
	DecisionPurchase     = "purchase"
	DecisionCounted      = "counted"
	DecisionUnlimited    = "unlimited"
	DecisionLimitReached = "limit_reached"
)

// Metrics набор счётчиков приложения.
type Metrics struct {
	EntitlementDecisions *prometheus.CounterVec
	UsageResets          prometheus.Counter
	HistoryFailures      *prometheus.CounterVec
	Exports              *prometheus.CounterVec
	PaymentEvents        *prometheus.CounterVec
	ScriptRuns           *prometheus.CounterVec
	EmailsSent           *prometheus.CounterVec
	HTTPRequests         *prometheus.HistogramVec
}

// New создает счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EntitlementDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datesantiere",
			Name:      "entitlement_decisions_total",
			Help:      "Entitlement decisions for santier details by outcome.",
		}, []string{"outcome"}),
		UsageResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "datesantiere",
			Name:      "usage_resets_total",
			Help:      "Monthly usage counter resets.",
		}),
		HistoryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datesantiere",
			Name:      "history_write_failures_total",
			Help:      "History entries that could not be written.",
		}, []string{"action"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datesantiere",
			Name:      "exports_total",
			Help:      "Generated Excel exports by variant.",
		}, []string{"variant"}),
		PaymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datesantiere",
			Name:      "payment_events_total",
			Help:      "Processed payment gateway events by type.",
		}, []string{"type"}),
		ScriptRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datesantiere",
			Name:      "script_runs_total",
			Help:      "Executed maintenance scripts by result.",
		}, []string{"result"}),
		EmailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datesantiere",
			Name:      "emails_sent_total",
			Help:      "Delivered e-mails by kind.",
		}, []string{"kind"}),
		HTTPRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "datesantiere",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.EntitlementDecisions,
		m.UsageResets,
		m.HistoryFailures,
		m.Exports,
		m.PaymentEvents,
		m.ScriptRuns,
		m.EmailsSent,
		m.HTTPRequests,
	)
	return m
}

// NewNoop создает счётчики, не зарегистрированные ни в каком реестре. Используется в тестах.
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Middleware измеряет длительность запросов по шаблону маршрута chi.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
