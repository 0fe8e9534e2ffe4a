package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "condenser"

// Metrics holds the process counters on a private registry. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	zomeCalls      *prometheus.CounterVec
	pollCycles     *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	indexRefreshes *prometheus.CounterVec
	excludedUnits  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		zomeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zome_calls_total",
			Help:      "Zome calls issued to the conductor by function and outcome.",
		}, []string{"fn", "outcome"}),
		pollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Polling fetch cycles by collection and outcome.",
		}, []string{"collection", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications surfaced by collection kind.",
		}, []string{"kind"}),
		indexRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_refreshes_total",
			Help:      "Collection index rebuilds by outcome.",
		}, []string{"outcome"}),
		excludedUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_excluded_units_total",
			Help:      "Cells left out of an index rebuild because connecting to them failed.",
		}, []string{"role"}),
	}

	m.registry.MustRegister(
		m.zomeCalls,
		m.pollCycles,
		m.notifications,
		m.indexRefreshes,
		m.excludedUnits,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ZomeCall(fn string, outcome string) {
	if m == nil {
		return
	}
	m.zomeCalls.WithLabelValues(fn, outcome).Inc()
}

func (m *Metrics) PollCycle(collection string, outcome string) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(collection, outcome).Inc()
}

func (m *Metrics) Notification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

func (m *Metrics) IndexRefresh(outcome string) {
	if m == nil {
		return
	}
	m.indexRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ExcludedUnit(role string) {
	if m == nil {
		return
	}
	m.excludedUnits.WithLabelValues(role).Inc()
}

// ZomeCallCounter returns the counter behind ZomeCall, for assertions.
func (m *Metrics) ZomeCallCounter(fn string, outcome string) prometheus.Counter {
	return m.zomeCalls.WithLabelValues(fn, outcome)
}

func (m *Metrics) PollCycleCounter(collection string, outcome string) prometheus.Counter {
	return m.pollCycles.WithLabelValues(collection, outcome)
}

func (m *Metrics) NotificationCounter(kind string) prometheus.Counter {
	return m.notifications.WithLabelValues(kind)
}
