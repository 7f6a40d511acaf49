// Package optimize formulates repair routing and shipment scheduling as a
// mixed-integer program and solves it with the branch and bound engine.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/repairsched/core/logger"
	"github.com/kilianp07/repairsched/core/params"
	"github.com/kilianp07/repairsched/core/solver"
)

// InfeasibleModelError is returned when the engine proves that no schedule
// satisfies the constraints.
type InfeasibleModelError struct {
	Products  int
	Repairers int
	Err       error
}

func (e *InfeasibleModelError) Error() string {
	return fmt.Sprintf("model infeasible (%d products, %d repairers): %v", e.Products, e.Repairers, e.Err)
}

func (e *InfeasibleModelError) Unwrap() error { return e.Err }

// Assignment is the decision for one product.
type Assignment struct {
	Product  int // index into Params.Products
	Repairer int // index into Params.Repairers
	Day      int
}

// Solution is the accepted result of a solve.
type Solution struct {
	Status      solver.Status
	Objective   float64
	Bound       float64
	Gap         float64
	Nodes       int
	Duration    time.Duration
	Components  Components
	Assignments []Assignment
	// Shipments holds n[r,t] for every (repairer, day) with at least one batch.
	Shipments map[BatchKey]int
	// Values is the raw variable vector, kept for consistency checks.
	Values []float64
}

// Optimizer builds and solves the model for a parameter set.
type Optimizer struct {
	cfg     Config
	log     logger.Logger
	onEvent func(solver.Event)
}

// New returns an Optimizer. A nil logger discards output.
func New(cfg Config, log logger.Logger) (*Optimizer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("solver config: %w", err)
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Optimizer{cfg: cfg, log: log}, nil
}

// OnEvent registers a progress observer called synchronously by the engine.
func (o *Optimizer) OnEvent(fn func(solver.Event)) { o.onEvent = fn }

// Solve builds the model once and solves it within the configured limits.
// It returns *InfeasibleModelError when the model has no solution.
func (o *Optimizer) Solve(ctx context.Context, p *params.Params) (*Solution, error) {
	m, err := Build(p)
	if err != nil {
		return nil, err
	}
	o.log.Debugw("model built", map[string]any{
		"products":    len(p.Products),
		"repairers":   len(p.Repairers),
		"variables":   m.Problem.NumVars(),
		"constraints": m.Problem.NumConstraints(),
		"first_day":   p.FirstDay,
		"last_day":    p.LastDay,
	})

	if !o.cfg.SkipHeuristic {
		if x := m.greedy(); x != nil {
			if err := m.Problem.SetIncumbent(x); err != nil {
				o.log.Warnf("greedy incumbent rejected: %v", err)
			} else {
				o.log.Debugf("greedy incumbent objective %.4f", m.Problem.Objective(x))
			}
		} else {
			o.log.Debugf("greedy heuristic found no complete assignment")
		}
	}

	res, err := solver.Solve(ctx, m.Problem, solver.Options{
		TimeLimit: o.cfg.TimeLimit(),
		Gap:       o.cfg.Gap,
		NodeLimit: o.cfg.NodeLimit,
		OnEvent:   o.onEvent,
	})
	switch {
	case errors.Is(err, solver.ErrInfeasible):
		return nil, &InfeasibleModelError{Products: len(p.Products), Repairers: len(p.Repairers), Err: err}
	case err != nil:
		return nil, fmt.Errorf("solve: %w", err)
	}
	if res.Status == solver.StatusLimitReached {
		o.log.Warnf("solver limit reached after %d nodes, gap %.4g", res.Nodes, res.Gap)
	}
	o.log.Infof("solved %d products: status=%s objective=%.4f nodes=%d in %s",
		len(p.Products), res.Status, res.Objective, res.Nodes, res.Duration)
	return m.Solution(res), nil
}

// Solution decodes an engine result.
func (m *Model) Solution(res *solver.Result) *Solution {
	sol := &Solution{
		Status:     res.Status,
		Objective:  res.Objective,
		Bound:      res.Bound,
		Gap:        res.Gap,
		Nodes:      res.Nodes,
		Duration:   res.Duration,
		Components: m.Components(res.X),
		Shipments:  make(map[BatchKey]int),
		Values:     res.X,
	}
	for _, sv := range m.Ship {
		if math.Round(res.X[sv.Var]) == 1 {
			sol.Assignments = append(sol.Assignments, Assignment{Product: sv.Product, Repairer: sv.Repairer, Day: sv.Day})
		}
	}
	sort.Slice(sol.Assignments, func(a, b int) bool {
		return sol.Assignments[a].Product < sol.Assignments[b].Product
	})
	for k, v := range m.Batches {
		if n := int(math.Round(res.X[v])); n > 0 {
			sol.Shipments[k] = n
		}
	}
	return sol
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
