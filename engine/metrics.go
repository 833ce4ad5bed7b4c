package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks settlement attempt outcomes.
type Metrics struct {
	attempts       prometheus.Counter
	settled        prometheus.Counter
	aborts         *prometheus.CounterVec
	profitVolume   prometheus.Counter
	settleLatency  prometheus.Histogram
	activeAttempts prometheus.Gauge
}

// NewMetrics creates the engine metrics, registering them when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbitrage_attempts_total",
			Help: "Total number of settlement attempts started",
		}),
		settled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbitrage_settled_total",
			Help: "Number of attempts that reached full settlement",
		}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbitrage_aborts_total",
			Help: "Number of aborted attempts by reason",
		}, []string{"reason"}),
		profitVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbitrage_profit_volume",
			Help: "Cumulative profit distributed, in smallest asset units",
		}),
		settleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbitrage_settlement_latency_seconds",
			Help:    "Latency of settlement attempts",
			Buckets: prometheus.DefBuckets,
		}),
		activeAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbitrage_active_attempts",
			Help: "Number of settlement attempts currently in flight",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.attempts, m.settled, m.aborts, m.profitVolume, m.settleLatency, m.activeAttempts)
	}
	return m
}
