// Package metrics holds the Prometheus instruments for the propagation
// engine, the risk aggregator, the event dispatcher, and the cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the instruments shared across the engines. Construct one
// per process with the registry the metrics endpoint serves.
type Metrics struct {
	PropagationRuns     prometheus.Counter   // completed propagation runs
	PropagationDuration prometheus.Histogram // per-run wall clock in seconds
	EdgesVisited        prometheus.Counter   // edges examined across all runs
	NodesReached        prometheus.Counter   // nodes accepted across all runs
	RiskCalcDuration    prometheus.Histogram // full risk recalculation wall clock
	EventsPublished     prometheus.Counter   // events handed to the publisher
	EventsDropped       prometheus.Counter   // events dropped by a full queue
	QueueDepth          prometheus.Gauge     // dispatcher backlog
}

// NewMetrics creates and registers the shared instruments against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PropagationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regwave_propagation_runs_total",
			Help: "Total number of completed propagation runs",
		}),
		PropagationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "regwave_propagation_duration_seconds",
			Help:    "Wall-clock duration of propagation runs",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		EdgesVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regwave_propagation_edges_visited_total",
			Help: "Total number of edges examined during propagation",
		}),
		NodesReached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regwave_propagation_nodes_reached_total",
			Help: "Total number of nodes accepted into propagation results",
		}),
		RiskCalcDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "regwave_risk_calculation_duration_seconds",
			Help:    "Wall-clock duration of full risk recalculations",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 30},
		}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regwave_events_published_total",
			Help: "Total number of events handed to the publisher",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "regwave_events_dropped_total",
			Help: "Total number of events dropped because the queue was full",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "regwave_event_queue_depth",
			Help: "Current number of events waiting in the dispatcher queue",
		}),
	}

	reg.MustRegister(
		m.PropagationRuns,
		m.PropagationDuration,
		m.EdgesVisited,
		m.NodesReached,
		m.RiskCalcDuration,
		m.EventsPublished,
		m.EventsDropped,
		m.QueueDepth,
	)
	return m
}
