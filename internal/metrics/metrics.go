// Package metrics holds the prometheus collectors for persistence and HTTP.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Persist outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics is the set of collectors the server and store report to.
type Metrics struct {
	PersistTotal        *prometheus.CounterVec
	DirtyEntities       *prometheus.GaugeVec
	SyncTotal           *prometheus.CounterVec
	RequestsTotal       *prometheus.CounterVec
	HistRequestDuration prometheus.Histogram
	NutritionTotal      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. When reg is also a Gatherer, Handler
// serves it.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		PersistTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wotracker",
			Name:      "persist_total",
			Help:      "Repository writes by entity and outcome",
		}, []string{"entity", "outcome"}),
		DirtyEntities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wotracker",
			Name:      "dirty_entities",
			Help:      "In-memory entities whose last write failed",
		}, []string{"entity"}),
		SyncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wotracker",
			Name:      "sync_total",
			Help:      "Sync runs by outcome",
		}, []string{"outcome"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wotracker",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wotracker",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request handling duration",
			Buckets:   prometheus.DefBuckets,
		}),
		NutritionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wotracker",
			Name:      "nutrition_requests_total",
			Help:      "Nutrition analysis calls by outcome",
		}, []string{"outcome"}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// NewTest returns Metrics on a private registry.
func NewTest() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObservePersist counts one repository write.
func (m *Metrics) ObservePersist(entity string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.PersistTotal.WithLabelValues(entity, outcome).Inc()
}

// SetDirty reports the number of unsynced entities of a kind.
func (m *Metrics) SetDirty(entity string, n int) {
	if m == nil {
		return
	}
	m.DirtyEntities.WithLabelValues(entity).Set(float64(n))
}

// ObserveSync counts one Sync run.
func (m *Metrics) ObserveSync(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.SyncTotal.WithLabelValues(outcome).Inc()
}

// ObserveNutrition counts one nutrition call.
func (m *Metrics) ObserveNutrition(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.NutritionTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest counts one HTTP request and its duration.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.HistRequestDuration.Observe(d.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
