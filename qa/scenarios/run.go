package scenarios

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kilianp07/repairsched/app"
	"github.com/kilianp07/repairsched/config"
	"github.com/kilianp07/repairsched/core/runlog"
	"github.com/kilianp07/repairsched/infra/logger"
	"github.com/kilianp07/repairsched/infra/metrics"
	"github.com/kilianp07/repairsched/infra/mqtt"
)

// RunScenario solves the scenario through the full run pipeline and checks
// the expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	dir := t.TempDir()
	if err := sc.WriteDataset(filepath.Join(dir, "data")); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	cfg := config.Default()
	cfg.Scenario = sc.Name
	cfg.Model = sc.Model.ToConfig()
	cfg.Solver.Gap = 1e-9
	cfg.Data.Dir = filepath.Join(dir, "data")
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.RunLog.Path = filepath.Join(dir, "runs.jsonl")

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	pub := mqtt.NewMockPublisher()
	for _, id := range sc.FailRepairers {
		pub.FailRepairers[id] = true
	}
	svc, err := app.New(cfg, app.WithLogger(logger.NopLogger{}), app.WithSink(sink),
		app.WithPublisher(pub), app.WithGatherer(reg))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer func() { _ = svc.Close() }()

	res, runErr := svc.Run(context.Background())
	recs, err := svc.Store().Query(context.Background(), runlog.Query{})
	if err != nil || len(recs) != 1 {
		t.Fatalf("run log: %v, %d records", err, len(recs))
	}
	if got := recs[0].Status; got != sc.Expected.Status {
		t.Fatalf("scenario %s expected status %s, got %s (%v)", sc.Name, sc.Expected.Status, got, runErr)
	}
	if runErr != nil {
		if got := counter(reg, "repairsched_failed_runs_total", ""); got != 1 {
			t.Errorf("expected one failed run metric, got %v", got)
		}
		return
	}

	if want := sc.Expected.Objective; want != nil && math.Abs(res.Solution.Objective-*want) > 1e-6 {
		t.Errorf("expected objective %v, got %v", *want, res.Solution.Objective)
	}
	if got := res.Solution.Components.Shipments; got != sc.Expected.Shipments {
		t.Errorf("expected %d shipments, got %d", sc.Expected.Shipments, got)
	}
	for name, n := range sc.Expected.Assignments {
		if got := recs[0].Assignments[name]; got != n {
			t.Errorf("expected %d products at %s, got %d", n, name, got)
		}
	}
	if res.Published != sc.Expected.Published {
		t.Errorf("expected %d published orders, got %d", sc.Expected.Published, res.Published)
	}
	if (res.PublishErr != nil) != sc.Expected.PublishFail {
		t.Errorf("unexpected publish error: %v", res.PublishErr)
	}
	if got := counter(reg, "repairsched_solves_total", sc.Expected.Status); got != 1 {
		t.Errorf("expected one %s solve metric, got %v", sc.Expected.Status, got)
	}
}

// counter returns the value of the named counter, restricted to the series
// whose first label has the given value when label is not empty.
func counter(g prometheus.Gatherer, name, label string) float64 {
	families, err := g.Gather()
	if err != nil {
		return -1
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if label != "" && !hasLabel(m, label) {
				continue
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func hasLabel(m *dto.Metric, v string) bool {
	for _, l := range m.GetLabel() {
		if l.GetValue() == v {
			return true
		}
	}
	return false
}
