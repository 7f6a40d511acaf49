package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/repairsched/core/metrics"
)

// PromSink records solve results in Prometheus metrics.
type PromSink struct {
	solves     *prometheus.CounterVec
	duration   prometheus.Histogram
	objective  prometheus.Gauge
	gap        prometheus.Gauge
	nodes      prometheus.Histogram
	components *prometheus.GaugeVec
	products   *prometheus.CounterVec
	batches    *prometheus.CounterVec
	incumbents prometheus.Counter
	failures   prometheus.Counter
}

// NewPromSink registers solve metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairsched_solves_total",
			Help: "Number of completed solves by status",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "repairsched_solve_duration_seconds",
			Help:    "Wall-clock time spent in the solver",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		objective: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repairsched_objective",
			Help: "Objective value of the last accepted schedule",
		}),
		gap: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repairsched_gap_ratio",
			Help: "Relative optimality gap of the last accepted schedule",
		}),
		nodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "repairsched_search_nodes",
			Help:    "Branch and bound nodes explored per solve",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		components: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "repairsched_objective_component",
			Help: "Unweighted objective components of the last accepted schedule",
		}, []string{"component"}),
		products: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairsched_products_shipped_total",
			Help: "Products planned for shipment per repairer",
		}, []string{"repairer_id", "repairer"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repairsched_batches_total",
			Help: "Batches planned per repairer",
		}, []string{"repairer_id", "repairer"}),
		incumbents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repairsched_incumbents_total",
			Help: "Improved solutions found during search",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repairsched_failed_runs_total",
			Help: "Runs that ended without a schedule",
		}),
	}
	var err error
	if s.solves, err = register(reg, s.solves); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, s.objective); err != nil {
		return nil, err
	}
	if s.gap, err = register(reg, s.gap); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, s.nodes); err != nil {
		return nil, err
	}
	if s.components, err = register(reg, s.components); err != nil {
		return nil, err
	}
	if s.products, err = register(reg, s.products); err != nil {
		return nil, err
	}
	if s.batches, err = register(reg, s.batches); err != nil {
		return nil, err
	}
	if s.incumbents, err = register(reg, s.incumbents); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, s.failures); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSolve updates the solve counters and gauges.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.Status).Inc()
	s.duration.Observe(ev.Duration.Seconds())
	s.nodes.Observe(float64(ev.Nodes))
	s.objective.Set(ev.Objective)
	s.gap.Set(ev.Gap)
	c := ev.Components
	s.components.WithLabelValues("lead_time").Set(c.LeadTime)
	s.components.WithLabelValues("max_lead_time").Set(c.MaxLeadTime)
	s.components.WithLabelValues("shipping_cost").Set(c.ShippingCost)
	s.components.WithLabelValues("quality_drop").Set(c.QualityDrop)
	s.components.WithLabelValues("repair_cost").Set(c.RepairCost)
	s.components.WithLabelValues("emissions").Set(c.Emissions)
	return nil
}

// RecordShipments counts the planned products and batches per repairer.
func (s *PromSink) RecordShipments(evs []coremetrics.ShipmentEvent) error {
	for _, ev := range evs {
		id := strconv.Itoa(ev.RepairerID)
		s.products.WithLabelValues(id, ev.RepairerName).Add(float64(ev.Products))
		s.batches.WithLabelValues(id, ev.RepairerName).Add(float64(ev.Batches))
	}
	return nil
}

// RecordIncumbent counts improved solutions.
func (s *PromSink) RecordIncumbent(coremetrics.IncumbentEvent) error {
	s.incumbents.Inc()
	return nil
}

// RecordFailure counts failed runs.
func (s *PromSink) RecordFailure(coremetrics.FailureEvent) error {
	s.failures.Inc()
	return nil
}
