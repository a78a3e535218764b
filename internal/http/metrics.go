package http

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"audioflow/internal/flood"
	"audioflow/internal/store"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	PageLoadsTotal       *prometheus.CounterVec
	LookupsTotal         *prometheus.CounterVec
	ResolveDuration      *prometheus.HistogramVec
	SessionEventsTotal   *prometheus.CounterVec
	FloodRejectionsTotal *prometheus.CounterVec
	ActiveSessions       prometheus.Gauge

	reg prometheus.Registerer
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		PageLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audioflow_page_loads_total",
				Help: "Total number of page loads by resulting state",
			},
			[]string{"state"},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audioflow_lookups_total",
				Help: "Total number of lookup API calls by outcome",
			},
			[]string{"outcome"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audioflow_resolve_duration_seconds",
				Help:    "Time spent resolving identifiers",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		SessionEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audioflow_session_events_total",
				Help: "Total number of player session messages by type",
			},
			[]string{"type"},
		),
		FloodRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audioflow_flood_rejections_total",
				Help: "Total number of requests rejected by flood control",
			},
			[]string{"route"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "audioflow_active_sessions",
				Help: "Number of open player sessions",
			},
		),
		reg: reg,
	}

	reg.MustRegister(
		metrics.PageLoadsTotal,
		metrics.LookupsTotal,
		metrics.ResolveDuration,
		metrics.SessionEventsTotal,
		metrics.FloodRejectionsTotal,
		metrics.ActiveSessions,
	)

	return metrics
}

// ObserveCache exports the lookup cache counters, read at scrape time.
func (m *Metrics) ObserveCache(cache *store.CachedLookup) error {
	return m.register(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "audioflow_cache_hits_total",
			Help: "Lookups answered from the record cache",
		}, func() float64 { return float64(cache.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "audioflow_cache_misses_total",
			Help: "Lookups passed through to the metadata backend",
		}, func() float64 { return float64(cache.Stats().Misses) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "audioflow_cache_short_circuits_total",
			Help: "Lookups for unknown identifiers answered by the bloom filter",
		}, func() float64 { return float64(cache.Stats().ShortCircuits) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "audioflow_cache_entries",
			Help: "Records currently held in the cache",
		}, func() float64 { return float64(cache.Len()) }),
	)
}

// ObserveFloodgate exports the flood limiter's state, read at scrape time.
func (m *Metrics) ObserveFloodgate(fg *flood.Floodgate) error {
	return m.register(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "audioflow_flood_active_clients",
			Help: "Client and route pairs tracked by flood control",
		}, func() float64 { return float64(fg.GetStats().ActiveClients) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "audioflow_flood_limit_per_minute",
			Help: "Configured requests per client per minute (0 means unlimited)",
		}, func() float64 { return float64(fg.GetStats().LimitPerMinute) }),
	)
}

func (m *Metrics) register(collectors ...prometheus.Collector) error {
	var errs []error
	for _, c := range collectors {
		if err := m.reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordPageLoad counts a rendered page by its controller state.
func (m *Metrics) RecordPageLoad(state string) {
	m.PageLoadsTotal.WithLabelValues(state).Inc()
}

// RecordLookup counts a lookup API call by outcome.
func (m *Metrics) RecordLookup(outcome string) {
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordResolve observes how long a resolution from source took.
func (m *Metrics) RecordResolve(source string, duration time.Duration) {
	m.ResolveDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordSessionEvent counts an inbound session message.
func (m *Metrics) RecordSessionEvent(msgType string) {
	m.SessionEventsTotal.WithLabelValues(msgType).Inc()
}

// RecordFloodRejection counts a request refused by flood control.
func (m *Metrics) RecordFloodRejection(route string) {
	m.FloodRejectionsTotal.WithLabelValues(route).Inc()
}

// SessionOpened increments the open session gauge.
func (m *Metrics) SessionOpened() {
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the open session gauge.
func (m *Metrics) SessionClosed() {
	m.ActiveSessions.Dec()
}
