package params

import (
	"errors"
	"strings"
	"testing"

	"github.com/kilianp07/repairsched/core/model"
)

func entry(cost, drop float64) model.CostEntry { return model.CostEntry{RepairCost: cost, QualityDrop: drop} }

func dataset(repairers ...model.Repairer) *model.Dataset {
	return model.NewDataset(
		[]model.Product{
			{ID: 1, Category: "Shirt", Color: "white", ArrivalDay: 0, Defects: []int{1, 2}},
			{ID: 2, Category: "Dress", Color: "black", ArrivalDay: 4, Defects: []int{1}},
		},
		[]model.Defect{{ID: 1, Severity: "stain"}, {ID: 2, Severity: "tear"}},
		repairers, nil, nil,
	)
}

func fullCosts() map[model.CostKey]model.CostEntry {
	return map[model.CostKey]model.CostEntry{
		{Defect: 1, Category: "Shirt"}: entry(2, 0.01),
		{Defect: 2, Category: "Shirt"}: entry(3, 0.02),
		{Defect: 1, Category: "Dress"}: entry(4, 0.03),
	}
}

func TestBuild_Candidates(t *testing.T) {
	ds := dataset(
		model.Repairer{ID: 1, Name: "fast", LeadTimeDays: 2, BatchCapacity: 5, ShippingCost: 10, EmissionsPerBatch: 50, Costs: fullCosts()},
		model.Repairer{ID: 2, Name: "slow", LeadTimeDays: 9, BatchCapacity: 5, ShippingCost: 4, EmissionsPerBatch: 20, Costs: fullCosts()},
	)
	p, err := Build(ds, Config{Tau: 10, PlanningStartDay: 2})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if p.FirstDay != 2 || p.LastDay != 14 {
		t.Fatalf("unexpected horizon [%d, %d]", p.FirstDay, p.LastDay)
	}
	shirt := p.Products[0]
	// slow repairer: latest day 0+10-9=1 is before the planning start
	if len(shirt.Candidates) != 1 || shirt.Candidates[0].Repairer != 0 {
		t.Fatalf("unexpected shirt candidates %+v", shirt.Candidates)
	}
	c := shirt.Candidates[0]
	if c.LatestDay != 8 || c.RepairCost != 5 || c.QualityDrop != 0.03 {
		t.Fatalf("unexpected candidate %+v", c)
	}
	if shirt.StockAge != 2 || shirt.EarliestDay != 2 {
		t.Fatalf("unexpected stock data %+v", shirt)
	}
	dress := p.Products[1]
	if len(dress.Candidates) != 2 || dress.Candidates[1].LatestDay != 5 || dress.EarliestDay != 4 {
		t.Fatalf("unexpected dress %+v", dress)
	}
	if p.Days() != 13 {
		t.Fatalf("expected 13 days got %d", p.Days())
	}
	if lt := p.LeadTime(1, 1, 5); lt != 10 {
		t.Fatalf("expected lead time 10 got %d", lt)
	}
	if p.Config.MaxShipmentsPerDay != 1 || p.Config.LeadTimeObjective != LeadTimeTotal {
		t.Fatalf("defaults not applied: %+v", p.Config)
	}
}

func TestBuild_ExplicitHorizon(t *testing.T) {
	ds := dataset(model.Repairer{ID: 1, LeadTimeDays: 1, BatchCapacity: 1, Costs: fullCosts()})
	p, err := Build(ds, Config{Tau: 10, HorizonDays: 6})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if p.LastDay != 5 || p.Products[0].Candidates[0].LatestDay != 5 {
		t.Fatalf("horizon not applied: last=%d %+v", p.LastDay, p.Products[0].Candidates)
	}
}

func TestBuild_NoCandidate(t *testing.T) {
	ds := dataset(model.Repairer{ID: 1, LeadTimeDays: 12, BatchCapacity: 2, Costs: fullCosts()})
	_, err := Build(ds, Config{Tau: 10})
	var die *DataIntegrityError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataIntegrityError got %v", err)
	}
	ids := die.ProductIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected both products reported got %v", ids)
	}
	if !strings.Contains(err.Error(), "[1, 2]") {
		t.Fatalf("ids missing from message: %v", err)
	}
}

func TestBuild_MissingCostEntry(t *testing.T) {
	costs := fullCosts()
	delete(costs, model.CostKey{Defect: 2, Category: "Shirt"})
	ds := dataset(model.Repairer{ID: 3, LeadTimeDays: 1, BatchCapacity: 2, Costs: costs})
	_, err := Build(ds, Config{Tau: 10})
	var die *DataIntegrityError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataIntegrityError got %v", err)
	}
	if len(die.Issues) != 1 || die.Issues[0].ProductID != 1 || die.Issues[0].RepairerID != 3 {
		t.Fatalf("unexpected issues %+v", die.Issues)
	}
}

func TestBuild_ProductWithoutDefect(t *testing.T) {
	ds := model.NewDataset(
		[]model.Product{{ID: 1, Category: "Shirt"}},
		nil,
		[]model.Repairer{{ID: 1, BatchCapacity: 1}},
		nil, nil,
	)
	_, err := Build(ds, Config{})
	var die *DataIntegrityError
	if !errors.As(err, &die) || die.Issues[0].Reason != "product has no defect" {
		t.Fatalf("expected no-defect issue got %v", err)
	}
}

func TestBuild_NonPositiveCapacity(t *testing.T) {
	ds := dataset(
		model.Repairer{ID: 1, LeadTimeDays: 1, BatchCapacity: 2, Costs: fullCosts()},
		model.Repairer{ID: 7, LeadTimeDays: 1, BatchCapacity: 0, Costs: fullCosts()},
	)
	_, err := Build(ds, Config{Tau: 10})
	var die *DataIntegrityError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataIntegrityError got %v", err)
	}
	if ids := die.ProductIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("expected both products reported got %v", ids)
	}
	for _, is := range die.Issues {
		if is.RepairerID != 7 || !strings.Contains(is.Reason, "batch capacity") {
			t.Fatalf("unexpected issue %+v", is)
		}
	}
}

func TestBuild_NonPositiveCapacityNotCandidate(t *testing.T) {
	ds := dataset(
		model.Repairer{ID: 1, LeadTimeDays: 1, BatchCapacity: 2, Costs: fullCosts()},
		model.Repairer{ID: 7, LeadTimeDays: 30, BatchCapacity: -1, Costs: fullCosts()},
	)
	_, err := Build(ds, Config{Tau: 10})
	var die *DataIntegrityError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataIntegrityError got %v", err)
	}
	if len(die.Issues) != 1 || die.Issues[0].ProductID != -1 || die.Issues[0].RepairerID != 7 {
		t.Fatalf("unexpected issues %+v", die.Issues)
	}
	if len(die.ProductIDs()) != 0 || strings.Contains(err.Error(), "[") {
		t.Fatalf("no product should be reported: %v", err)
	}
}

func TestConfig_ExplicitZeros(t *testing.T) {
	c := Config{Tau: 0}
	c.SetDefaults()
	if c.Tau != 0 || c.Weights != (Weights{}) {
		t.Fatalf("explicit zeros replaced: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("zero tau and weights are valid: %v", err)
	}
	d := DefaultConfig()
	if d.Tau != DefaultTau || d.Weights != DefaultWeights() || d.MaxShipmentsPerDay != 1 || d.LeadTimeObjective != LeadTimeTotal {
		t.Fatalf("unexpected defaults %+v", d)
	}
}

func TestBuild_InvalidInput(t *testing.T) {
	cases := []struct {
		name string
		ds   *model.Dataset
		cfg  Config
	}{
		{"bad objective", dataset(model.Repairer{ID: 1, BatchCapacity: 1, Costs: fullCosts()}), Config{LeadTimeObjective: "mean"}},
		{"negative weight", dataset(model.Repairer{ID: 1, BatchCapacity: 1, Costs: fullCosts()}), Config{Weights: Weights{LeadTime: -1}}},
		{"no repairer", dataset(), Config{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Build(tc.ds, tc.cfg); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDataIntegrityError_Empty(t *testing.T) {
	e := &DataIntegrityError{}
	if e.Error() == "" {
		t.Fatalf("expected message")
	}
}
