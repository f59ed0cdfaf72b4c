package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scanner. The set is registered
// on its own registry and injected into the components that report to it, so
// nothing in the engine depends on process-wide state.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec

	SyncOperationsTotal *prometheus.CounterVec
	SyncErrorsTotal     *prometheus.CounterVec
	SyncDuration        *prometheus.HistogramVec

	SignalsCalculatedTotal *prometheus.CounterVec
	SignalDuration         *prometheus.HistogramVec

	TickersAdded   prometheus.Counter
	TickersDeleted prometheus.Counter

	ActiveTickers prometheus.Gauge
	TotalTickers  prometheus.Gauge
	TotalPrices   prometheus.Gauge
}

// New registers and returns the scanner metric set.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		SyncOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_operations_total",
			Help: "Total sync operations",
		}, []string{"symbol", "status"}),
		SyncErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total sync errors",
		}, []string{"symbol", "error_type"}),
		SyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Sync latency per ticker",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"symbol"}),

		SignalsCalculatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_calculated_total",
			Help: "Total signals calculated",
		}, []string{"strategy", "symbol"}),
		SignalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signal_calculation_duration_seconds",
			Help:    "Signal calculation latency",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		}, []string{"strategy"}),

		TickersAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickers_added_total",
			Help: "Total tickers added",
		}),
		TickersDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickers_deleted_total",
			Help: "Total tickers deleted",
		}),

		ActiveTickers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_tickers_count",
			Help: "Number of active tickers",
		}),
		TotalTickers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "total_tickers_count",
			Help: "Total number of tickers",
		}),
		TotalPrices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "total_prices_count",
			Help: "Total number of stored price rows",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPDuration,
		m.SyncOperationsTotal,
		m.SyncErrorsTotal,
		m.SyncDuration,
		m.SignalsCalculatedTotal,
		m.SignalDuration,
		m.TickersAdded,
		m.TickersDeleted,
		m.ActiveTickers,
		m.TotalTickers,
		m.TotalPrices,
	)
	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
