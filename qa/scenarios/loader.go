// Package scenarios runs end-to-end scheduling scenarios described in YAML.
package scenarios

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/repairsched/core/params"
)

type ProductDef struct {
	ID         int    `yaml:"id"`
	Category   string `yaml:"category"`
	Color      string `yaml:"color"`
	ArrivalDay int    `yaml:"arrival_day"`
	Defects    []int  `yaml:"defects"`
}

type DefectDef struct {
	ID       int    `yaml:"id"`
	Severity string `yaml:"severity"`
}

type CostDef struct {
	Defect      int     `yaml:"defect"`
	Category    string  `yaml:"category"`
	RepairCost  float64 `yaml:"repair_cost"`
	QualityDrop float64 `yaml:"quality_drop"`
}

type RepairerDef struct {
	ID                int       `yaml:"id"`
	Name              string    `yaml:"name"`
	LeadTimeDays      int       `yaml:"lead_time_days"`
	BatchCapacity     int       `yaml:"batch_capacity"`
	ShippingCost      float64   `yaml:"shipping_cost"`
	EmissionsPerBatch float64   `yaml:"emissions_per_batch"`
	Costs             []CostDef `yaml:"costs"`
}

// WeightsDef leaves unset weights at their default.
type WeightsDef struct {
	LeadTime     *float64 `yaml:"lead_time"`
	ShippingCost *float64 `yaml:"shipping_cost"`
	QualityDrop  *float64 `yaml:"quality_drop"`
	RepairCost   *float64 `yaml:"repair_cost"`
	Emissions    *float64 `yaml:"emissions"`
}

func (w WeightsDef) apply(out *params.Weights) {
	for _, f := range []struct {
		dst *float64
		v   *float64
	}{
		{&out.LeadTime, w.LeadTime},
		{&out.ShippingCost, w.ShippingCost},
		{&out.QualityDrop, w.QualityDrop},
		{&out.RepairCost, w.RepairCost},
		{&out.Emissions, w.Emissions},
	} {
		if f.v != nil {
			*f.dst = *f.v
		}
	}
}

type ModelDef struct {
	Tau                *int       `yaml:"tau"`
	PlanningStartDay   int        `yaml:"planning_start_day"`
	MaxShipmentsPerDay int        `yaml:"max_shipments_per_day"`
	LeadTimeObjective  string     `yaml:"lead_time_objective"`
	Weights            WeightsDef `yaml:"weights"`
}

// ToConfig overlays the scenario model settings on the defaults.
func (m ModelDef) ToConfig() params.Config {
	c := params.DefaultConfig()
	if m.Tau != nil {
		c.Tau = *m.Tau
	}
	c.PlanningStartDay = m.PlanningStartDay
	if m.MaxShipmentsPerDay > 0 {
		c.MaxShipmentsPerDay = m.MaxShipmentsPerDay
	}
	if m.LeadTimeObjective != "" {
		c.LeadTimeObjective = m.LeadTimeObjective
	}
	m.Weights.apply(&c.Weights)
	return c
}

type Expected struct {
	Status      string         `yaml:"status"`
	Objective   *float64       `yaml:"objective,omitempty"`
	Shipments   int            `yaml:"shipments"`
	Assignments map[string]int `yaml:"assignments,omitempty"`
	Published   int            `yaml:"published"`
	PublishFail bool           `yaml:"publish_fail,omitempty"`
}

type Scenario struct {
	Name          string        `yaml:"name"`
	Description   string        `yaml:"description,omitempty"`
	Model         ModelDef      `yaml:"model"`
	Products      []ProductDef  `yaml:"products"`
	Defects       []DefectDef   `yaml:"defects"`
	Repairers     []RepairerDef `yaml:"repairers"`
	FailRepairers []int         `yaml:"fail_repairers,omitempty"`
	Expected      Expected      `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// WriteDataset writes the scenario as the CSV files read by the dataset
// loader.
func (sc *Scenario) WriteDataset(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	itoa := strconv.Itoa
	ftoa := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

	products := [][]string{{"id", "category", "color", "arrival_day", "defects"}}
	for _, p := range sc.Products {
		ids := make([]string, len(p.Defects))
		for i, d := range p.Defects {
			ids[i] = itoa(d)
		}
		products = append(products, []string{itoa(p.ID), p.Category, p.Color, itoa(p.ArrivalDay), strings.Join(ids, ";")})
	}
	defects := [][]string{{"id", "severity", "description"}}
	for _, d := range sc.Defects {
		defects = append(defects, []string{itoa(d.ID), d.Severity, ""})
	}
	repairers := [][]string{{"id", "name", "lead_time_days", "batch_capacity", "shipping_cost", "emissions_per_batch"}}
	costs := [][]string{{"repairer_id", "defect_id", "category", "repair_cost", "quality_drop"}}
	for _, r := range sc.Repairers {
		repairers = append(repairers, []string{itoa(r.ID), r.Name, itoa(r.LeadTimeDays), itoa(r.BatchCapacity),
			ftoa(r.ShippingCost), ftoa(r.EmissionsPerBatch)})
		for _, c := range r.Costs {
			costs = append(costs, []string{itoa(r.ID), itoa(c.Defect), c.Category, ftoa(c.RepairCost), ftoa(c.QualityDrop)})
		}
	}
	for name, rows := range map[string][][]string{
		"products.csv":     products,
		"defects.csv":      defects,
		"repairers.csv":    repairers,
		"repair_costs.csv": costs,
	} {
		if err := writeCSV(filepath.Join(dir, name), rows); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
