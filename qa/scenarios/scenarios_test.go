package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/repairsched/core/params"
	"github.com/kilianp07/repairsched/infra/dataset"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestWriteDataset_RoundTrip(t *testing.T) {
	sc, err := Load("small.yaml")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := sc.WriteDataset(dir); err != nil {
		t.Fatal(err)
	}
	cfg := dataset.Config{Dir: dir}
	cfg.SetDefaults()
	ds, err := dataset.Load(cfg)
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	if len(ds.Products) != 3 || len(ds.Repairers) != 2 {
		t.Fatalf("unexpected dataset %+v", ds)
	}
	if c, ok := ds.Repairers[1].Cost(1, "Sweater"); !ok || c.RepairCost != 5 {
		t.Fatalf("cost not written: %+v", ds.Repairers[1].Costs)
	}
}

func TestModelDef_ToConfig(t *testing.T) {
	tau, two, zero := 6, 2.0, 0.0
	m := ModelDef{Tau: &tau, LeadTimeObjective: params.LeadTimeMax, Weights: WeightsDef{LeadTime: &two, Emissions: &zero}}
	c := m.ToConfig()
	if c.Tau != 6 || c.LeadTimeObjective != params.LeadTimeMax || c.Weights.LeadTime != 2 {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.Weights.Emissions != 0 || c.Weights.RepairCost != 1 {
		t.Fatalf("expected explicit zero kept and unset weight defaulted: %+v", c.Weights)
	}
	if d := (ModelDef{}).ToConfig(); d.Tau != params.DefaultTau || d.Weights != params.DefaultWeights() {
		t.Fatalf("expected defaults got %+v", d)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString(":"); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
