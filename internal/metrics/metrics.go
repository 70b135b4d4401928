// Package metrics exposes Prometheus instrumentation for the trading loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the bot.
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal   *prometheus.CounterVec // labels: result
	signalsTotal  *prometheus.CounterVec // labels: direction
	ordersTotal   *prometheus.CounterVec // labels: kind=open|close, status=filled|rejected
	cycleDuration prometheus.Histogram
	equity        prometheus.Gauge
	openPositions prometheus.Gauge
	paused        prometheus.Gauge
}

// New registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		cyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confluence_cycles_total",
			Help: "Polling cycles by outcome",
		}, []string{"result"}),
		signalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confluence_signals_total",
			Help: "Actionable signals by direction",
		}, []string{"direction"}),
		ordersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confluence_orders_total",
			Help: "Orders submitted by kind and status",
		}, []string{"kind", "status"}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "confluence_cycle_duration_seconds",
			Help:    "Wall time of one polling cycle",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		equity: f.NewGauge(prometheus.GaugeOpts{
			Name: "confluence_account_equity",
			Help: "Account equity at the last cycle",
		}),
		openPositions: f.NewGauge(prometheus.GaugeOpts{
			Name: "confluence_open_positions",
			Help: "Open positions at the last cycle",
		}),
		paused: f.NewGauge(prometheus.GaugeOpts{
			Name: "confluence_paused",
			Help: "1 while trading is paused",
		}),
	}
}

func (m *Metrics) ObserveCycle(result string, d time.Duration) {
	m.cyclesTotal.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) Signal(direction string) {
	m.signalsTotal.WithLabelValues(direction).Inc()
}

func (m *Metrics) Order(kind string, filled bool) {
	status := "filled"
	if !filled {
		status = "rejected"
	}
	m.ordersTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) Account(equity float64, positions int) {
	m.equity.Set(equity)
	m.openPositions.Set(float64(positions))
}

func (m *Metrics) SetPaused(p bool) {
	if p {
		m.paused.Set(1)
		return
	}
	m.paused.Set(0)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
