// Package metrics exposes planner activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/elektrokombinacija/warehouse-planner/internal/algo"
	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// Collector implements algo.Observer using Prometheus.
type Collector struct {
	results       *prometheus.CounterVec
	errors        *prometheus.CounterVec
	searches      *prometheus.CounterVec
	locks         prometheus.Counter
	unlocks       prometheus.Counter
	expandedNodes prometheus.Histogram
	movingRobots  prometheus.Gauge
	reservedCells prometheus.Gauge
}

var _ algo.Observer = (*Collector)(nil)

// NewCollector creates a collector and registers it with reg. A nil reg
// uses the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_results_total",
				Help: "NextStep outcomes by kind and wait reason",
			},
			[]string{"kind", "reason"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_errors_total",
				Help: "Planner errors by kind",
			},
			[]string{"kind"},
		),
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_searches_total",
				Help: "Breadth-first searches by outcome",
			},
			[]string{"found"},
		),
		locks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_locks_total",
				Help: "Successful lock calls",
			},
		),
		unlocks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "planner_unlocks_total",
				Help: "Successful unlock calls",
			},
		),
		expandedNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "planner_search_expanded_nodes",
				Help:    "Nodes expanded per breadth-first search",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		movingRobots: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "planner_moving_robots",
				Help: "Robots currently holding a reservation",
			},
		),
		reservedCells: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "planner_reserved_cells",
				Help: "Cells currently reserved by in-flight moves",
			},
		),
	}
	reg.MustRegister(
		c.results, c.errors, c.searches, c.locks, c.unlocks,
		c.expandedNodes, c.movingRobots, c.reservedCells,
	)
	return c
}

// OnSearch records one search.
func (c *Collector) OnSearch(_ core.RobotID, expanded int, found bool) {
	label := "false"
	if found {
		label = "true"
	}
	c.searches.WithLabelValues(label).Inc()
	c.expandedNodes.Observe(float64(expanded))
}

// OnResult records a NextStep outcome.
func (c *Collector) OnResult(res algo.Result) {
	kind := res.Kind.String()
	if res.Kind == algo.ResultStep && res.Sidestep {
		kind = "sidestep"
	}
	c.results.WithLabelValues(kind, string(res.Reason)).Inc()
}

// OnError records a planner error by kind.
func (c *Collector) OnError(_ core.RobotID, err error) {
	c.errors.WithLabelValues(algo.KindOf(err).String()).Inc()
}

// OnLock records a reservation.
func (c *Collector) OnLock(_ core.RobotID, _ core.Cell, ledger *algo.Ledger) {
	c.locks.Inc()
	c.setLedger(ledger)
}

// OnUnlock records a release.
func (c *Collector) OnUnlock(_ core.RobotID, _ core.Cell, ledger *algo.Ledger) {
	c.unlocks.Inc()
	c.setLedger(ledger)
}

func (c *Collector) setLedger(l *algo.Ledger) {
	c.movingRobots.Set(float64(l.MovingCount()))
	c.reservedCells.Set(float64(l.ReservedCount()))
}
