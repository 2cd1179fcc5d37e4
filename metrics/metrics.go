// Package metrics holds the prometheus collectors of the process cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Hits          prometheus.Counter
	Loads         prometheus.Counter
	LoadFailures  prometheus.Counter
	Invalidations prometheus.Counter
	LoadDuration  prometheus.Histogram
}

// New creates the collectors and registers them on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rastercache_hits_total",
			Help: "Total lookups answered from the process cache",
		}),
		Loads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rastercache_loads_total",
			Help: "Total grids loaded from the cache directory",
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rastercache_load_failures_total",
			Help: "Total grid loads that failed",
		}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rastercache_invalidations_total",
			Help: "Total times the process cache was dropped for a new epoch",
		}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rastercache_load_duration_ms",
			Help:    "Grid load duration in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Hits, m.Loads, m.LoadFailures, m.Invalidations, m.LoadDuration)
	}
	return m
}

func (m *Metrics) ObserveLoad(start time.Time, err error) {
	m.LoadDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		m.LoadFailures.Inc()
		return
	}
	m.Loads.Inc()
}
