package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	coremetrics "github.com/kilianp07/repairsched/core/metrics"
	"github.com/kilianp07/repairsched/core/model"
	"github.com/kilianp07/repairsched/core/optimize"
	"github.com/kilianp07/repairsched/core/params"
	"github.com/kilianp07/repairsched/core/runlog"
	"github.com/kilianp07/repairsched/core/schedule"
	"github.com/kilianp07/repairsched/core/solver"
	"github.com/kilianp07/repairsched/infra/dataset"
	inframetrics "github.com/kilianp07/repairsched/infra/metrics"
	"github.com/kilianp07/repairsched/internal/eventbus"
	"github.com/kilianp07/repairsched/pkg/export"
)

// Run statuses recorded for runs that ended without a schedule.
const (
	StatusInvalidData = "invalid_data"
	StatusInfeasible  = "infeasible"
	StatusNoSolution  = "no_solution"
	StatusError       = "error"
)

// Result is the outcome of a successful run.
type Result struct {
	RunID    string
	Params   *params.Params
	Solution *optimize.Solution
	Schedule *schedule.Schedule
	// Files lists the reports written.
	Files []string
	// Published counts the shipment orders sent to repairers.
	Published int
	// Unacked lists the orders no repairer acknowledged in time.
	Unacked []string
	// PublishErr joins the publication failures. They do not fail the run.
	PublishErr error
}

// Run loads the dataset, solves the model, writes the reports and records
// the run. Every run, failed or not, is appended to the run log.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()
	s.log.Infof("run %s started", runID)

	ds, err := dataset.Load(s.cfg.Data)
	if err != nil {
		return nil, s.fail(ctx, runID, start, fmt.Errorf("load dataset: %w", err))
	}
	res, err := s.solve(ctx, runID, ds, s.cfg.Model)
	if err != nil {
		return nil, s.fail(ctx, runID, start, err)
	}
	res.RunID = runID

	doc := export.Document{
		RunID:     runID,
		Scenario:  s.cfg.Scenario,
		Generated: start.UTC().Format(time.RFC3339),
		Schedule:  res.Schedule,
	}
	if res.Files, err = export.WriteAll(s.cfg.Output, doc); err != nil {
		return nil, s.fail(ctx, runID, start, fmt.Errorf("export: %w", err))
	}

	rec := runlog.Record{
		RunID:       runID,
		Timestamp:   start,
		Scenario:    s.cfg.Scenario,
		Status:      res.Solution.Status.String(),
		Objective:   res.Solution.Objective,
		Gap:         res.Solution.Gap,
		Nodes:       res.Solution.Nodes,
		DurationMS:  time.Since(start).Milliseconds(),
		Products:    len(res.Params.Products),
		Repairers:   len(res.Params.Repairers),
		Components:  res.Solution.Components,
		Assignments: assignments(res.Schedule),
	}
	if err := s.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append run log: %w", err)
	}
	s.record(res, start)

	if s.publisher != nil {
		res.Published, res.Unacked, res.PublishErr = s.publish(runID, res.Schedule)
		if res.PublishErr != nil {
			s.log.Errorf("run %s: publish shipments: %v", runID, res.PublishErr)
		}
	}
	s.push(ctx, runID)
	s.log.Infof("run %s finished: status=%s objective=%.4f reports=%d", runID, res.Solution.Status, res.Solution.Objective, len(res.Files))
	return res, nil
}

// solve builds and solves one model instance and projects the solution.
// Solver progress is forwarded to the metrics sink through an event bus.
func (s *Service) solve(ctx context.Context, runID string, ds *model.Dataset, mcfg params.Config) (*Result, error) {
	p, err := params.Build(ds, mcfg)
	if err != nil {
		return nil, err
	}
	opt, err := optimize.New(s.cfg.Solver, s.log)
	if err != nil {
		return nil, err
	}
	bus := eventbus.NewTyped[solver.Event](eventbus.DefaultBuffer)
	done := inframetrics.StartEventCollector(ctx, bus, runID, s.sink)
	opt.OnEvent(bus.Publish)
	sol, err := opt.Solve(ctx, p)
	bus.Close()
	<-done
	if err != nil {
		return nil, err
	}
	sched, err := schedule.Project(p, sol)
	if err != nil {
		return nil, err
	}
	return &Result{Params: p, Solution: sol, Schedule: sched}, nil
}

// fail records a run that ended without a schedule and returns err.
func (s *Service) fail(ctx context.Context, runID string, start time.Time, err error) error {
	status := failureStatus(err)
	s.log.Errorf("run %s failed (%s): %v", runID, status, err)
	rec := runlog.Record{
		RunID:      runID,
		Timestamp:  start,
		Scenario:   s.cfg.Scenario,
		Status:     status,
		DurationMS: time.Since(start).Milliseconds(),
		Error:      err.Error(),
	}
	if aerr := s.store.Append(ctx, rec); aerr != nil {
		s.log.Errorf("run %s: append run log: %v", runID, aerr)
	}
	if rec, ok := s.sink.(coremetrics.FailureRecorder); ok {
		if merr := rec.RecordFailure(coremetrics.FailureEvent{RunID: runID, Reason: status, Time: time.Now()}); merr != nil {
			s.log.Warnf("record failure: %v", merr)
		}
	}
	s.push(ctx, runID)
	return err
}

func failureStatus(err error) string {
	var die *params.DataIntegrityError
	var inf *optimize.InfeasibleModelError
	switch {
	case errors.As(err, &die):
		return StatusInvalidData
	case errors.As(err, &inf):
		return StatusInfeasible
	case errors.Is(err, solver.ErrNoSolution):
		return StatusNoSolution
	default:
		return StatusError
	}
}

func (s *Service) record(res *Result, start time.Time) {
	now := time.Now()
	sol := res.Solution
	if err := s.sink.RecordSolve(coremetrics.SolveEvent{
		RunID:      res.RunID,
		Scenario:   s.cfg.Scenario,
		Status:     sol.Status.String(),
		Objective:  sol.Objective,
		Bound:      sol.Bound,
		Gap:        sol.Gap,
		Nodes:      sol.Nodes,
		Duration:   sol.Duration,
		Products:   len(res.Params.Products),
		Repairers:  len(res.Params.Repairers),
		Components: sol.Components,
		Time:       now,
	}); err != nil {
		s.log.Warnf("record solve: %v", err)
	}
	rec, ok := s.sink.(coremetrics.ShipmentRecorder)
	if !ok {
		return
	}
	evs := make([]coremetrics.ShipmentEvent, 0, len(res.Schedule.Batches))
	for _, b := range res.Schedule.Batches {
		n := 0
		for _, sh := range b.Shipments {
			n += len(sh.Products)
		}
		evs = append(evs, coremetrics.ShipmentEvent{
			RunID:        res.RunID,
			RepairerID:   b.RepairerID,
			RepairerName: b.RepairerName,
			Day:          b.Day,
			Products:     n,
			Batches:      len(b.Shipments),
			ShippingCost: b.ShippingCost,
			Emissions:    b.Emissions,
			Time:         now,
		})
	}
	if err := rec.RecordShipments(evs); err != nil {
		s.log.Warnf("record shipments: %v", err)
	}
}

// push sends the registry to the Pushgateway when one is configured.
func (s *Service) push(ctx context.Context, runID string) {
	url := s.cfg.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	if err := inframetrics.Push(ctx, url, s.cfg.Metrics.PushJob, runID, s.gatherer); err != nil {
		s.log.Warnf("%v", err)
	}
}

func assignments(sched *schedule.Schedule) map[string]int {
	out := make(map[string]int)
	for _, e := range sched.Entries {
		out[e.RepairerName]++
	}
	return out
}
