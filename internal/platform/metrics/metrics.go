package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const subsystem = "proxy"

// Proxy holds the dispatch collectors. Each instance owns its registry so
// that tests and multiple processes never share collectors.
type Proxy struct {
	registry         *prometheus.Registry
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	upgradesTotal    prometheus.Counter
}

func NewProxy() *Proxy {
	m := &Proxy{
		registry: prometheus.NewRegistry(),
		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      "dispatch_total",
				Help:      "Count of proxy calls by route and outcome.",
			},
			[]string{"route", "outcome"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      "dispatch_duration_seconds",
				Help:      "Latency of proxy calls including the storage transaction.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"route"},
		),
		upgradesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      "upgrades_total",
				Help:      "Count of committed implementation upgrades.",
			},
		),
	}
	m.registry.MustRegister(
		m.dispatchTotal,
		m.dispatchDuration,
		m.upgradesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDispatch records one proxy call.
func (m *Proxy) ObserveDispatch(route string, outcome string, elapsed time.Duration) {
	m.dispatchTotal.WithLabelValues(route, outcome).Inc()
	m.dispatchDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveUpgrade records a committed upgrade.
func (m *Proxy) ObserveUpgrade() {
	m.upgradesTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Proxy) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
