package metrics

import (
	"time"

	"github.com/kilianp07/repairsched/core/optimize"
)

// SolveEvent summarizes one completed solve.
type SolveEvent struct {
	RunID      string
	Scenario   string
	Status     string
	Objective  float64
	Bound      float64
	Gap        float64
	Nodes      int
	Duration   time.Duration
	Products   int
	Repairers  int
	Components optimize.Components
	Time       time.Time
}

// MetricsSink records solve results for observability purposes.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// ShipmentEvent describes the batches leaving for one repairer on one day.
type ShipmentEvent struct {
	RunID        string
	RepairerID   int
	RepairerName string
	Day          int
	Products     int
	Batches      int
	ShippingCost float64
	Emissions    float64
	Time         time.Time
}

// ShipmentRecorder records the planned shipments of a run.
type ShipmentRecorder interface {
	RecordShipments(evs []ShipmentEvent) error
}

// IncumbentEvent is emitted each time the search finds a better solution.
type IncumbentEvent struct {
	RunID     string
	Objective float64
	Nodes     int
	Elapsed   time.Duration
	Time      time.Time
}

// IncumbentRecorder records search progress.
type IncumbentRecorder interface {
	RecordIncumbent(ev IncumbentEvent) error
}

// FailureEvent records a run that ended without a schedule.
type FailureEvent struct {
	RunID  string
	Reason string
	Time   time.Time
}

// FailureRecorder records failed runs.
type FailureRecorder interface {
	RecordFailure(ev FailureEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error          { return nil }
func (NopSink) RecordShipments([]ShipmentEvent) error { return nil }
func (NopSink) RecordIncumbent(IncumbentEvent) error  { return nil }
func (NopSink) RecordFailure(FailureEvent) error      { return nil }
