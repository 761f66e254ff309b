package syncer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	runs     *prometheus.CounterVec
	entries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	unsynced prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salahlog_sync_runs_total",
				Help: "Total number of sync engine runs by operation and outcome",
			},
			[]string{"op", "status"},
		),
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "salahlog_sync_entries_total",
				Help: "Total number of entries pushed or pulled",
			},
			[]string{"op"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "salahlog_sync_duration_seconds",
				Help:    "Duration of sync engine runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		unsynced: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "salahlog_sync_unsynced_entries",
				Help: "Entries still waiting to be pushed after the last sync",
			},
		),
	}
}

// register adds the collectors to reg. Collectors that are already
// registered (a second engine on the same registry) are reused.
func (m *metrics) register(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	m.runs = registerOrReuse(reg, m.runs)
	m.entries = registerOrReuse(reg, m.entries)
	m.duration = registerOrReuse(reg, m.duration)
	m.unsynced = registerOrReuse(reg, m.unsynced)
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *metrics) observe(op string, r Report) {
	m.runs.WithLabelValues(op, string(r.Status)).Inc()
	m.duration.WithLabelValues(op).Observe(r.Duration.Seconds())
	switch op {
	case opPush:
		m.entries.WithLabelValues(op).Add(float64(r.Pushed))
	case opHydrate:
		m.entries.WithLabelValues(op).Add(float64(r.Pulled))
	}
}
