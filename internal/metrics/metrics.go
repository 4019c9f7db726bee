// Package metrics exposes the coordinator's operational counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instruments published on /metrics.
type Metrics struct {
	MutationsApplied prometheus.Counter
	SaveTotal        prometheus.Counter
	SaveFailures     prometheus.Counter
	FlushDuration    prometheus.Observer
	Degraded         prometheus.Gauge
	EventsPublished  *prometheus.CounterVec
	EventsDropped    prometheus.Counter
	SessionsOnline   prometheus.Gauge
}

var (
	defaultOnce sync.Once
	defaultInst *Metrics
)

// Default returns the process-wide metrics instance, registering the
// instruments on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultInst = newMetrics()
	})
	return defaultInst
}

func newMetrics() *Metrics {
	return &Metrics{
		MutationsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "nullgrid",
			Subsystem: "coordinator",
			Name:      "mutations_applied_total",
			Help:      "Mutations applied to the in-memory store",
		}),
		SaveTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "nullgrid",
			Subsystem: "persist",
			Name:      "saves_total",
			Help:      "Store saves attempted",
		}),
		SaveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "nullgrid",
			Subsystem: "persist",
			Name:      "save_failures_total",
			Help:      "Store saves that failed after retries",
		}),
		FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nullgrid",
			Subsystem: "persist",
			Name:      "flush_duration_seconds",
			Help:      "Duration of store flushes including retries",
			Buckets:   prometheus.DefBuckets,
		}),
		Degraded: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "nullgrid",
			Subsystem: "persist",
			Name:      "degraded",
			Help:      "1 while saves are failing and events are held back",
		}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nullgrid",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Events delivered to session outboxes, labeled by kind",
		}, []string{"kind"}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "nullgrid",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Sessions cut off because their outbound queue overflowed",
		}),
		SessionsOnline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "nullgrid",
			Subsystem: "presence",
			Name:      "sessions_online",
			Help:      "Live sessions currently registered",
		}),
	}
}
