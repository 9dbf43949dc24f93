// Package metrics exposes the lottery server's Prometheus collectors.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lotto"

// Batch results.
const (
	ResultSuccess = "success"
	ResultFail    = "fail"
)

// Metrics groups every collector the server updates.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	Batches           *prometheus.CounterVec
	BetsStored        prometheus.Counter
	AgenciesFinished  prometheus.Gauge
	BarrierReleased   prometheus.Gauge
	WinnerQueries     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Client connections currently open.",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted.",
		}),
		Batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Bet batches received, by result.",
		}, []string{"result"}),
		BetsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_stored_total",
			Help:      "Bets persisted.",
		}),
		AgenciesFinished: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agencies_finished",
			Help:      "Distinct agencies that reported they finished sending bets.",
		}),
		BarrierReleased: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "barrier_released",
			Help:      "1 once every expected agency has finished, 0 before.",
		}),
		WinnerQueries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "winner_queries_total",
			Help:      "Winners queries answered.",
		}),
	}
}

// ConnectionOpened records an accepted connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsTotal.Inc()
	m.ConnectionsActive.Inc()
}

// ConnectionClosed records a closed connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
}

// BatchStored records a persisted batch of n bets.
func (m *Metrics) BatchStored(n int) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(ResultSuccess).Inc()
	m.BetsStored.Add(float64(n))
}

// BatchFailed records a rejected batch.
func (m *Metrics) BatchFailed() {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(ResultFail).Inc()
}

// AgencyFinished records the number of finished agencies and whether the
// barrier has released.
func (m *Metrics) AgencyFinished(finished int, released bool) {
	if m == nil {
		return
	}
	m.AgenciesFinished.Set(float64(finished))
	if released {
		m.BarrierReleased.Set(1)
	}
}

// WinnersAnswered records an answered winners query.
func (m *Metrics) WinnersAnswered() {
	if m == nil {
		return
	}
	m.WinnerQueries.Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
