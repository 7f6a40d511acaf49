// Package params turns the loaded entities into the numeric parameters used
// by the optimization model: candidate repairers per product, aggregated
// cost and quality tables, batch data and the objective weights.
package params

import (
	"fmt"

	"github.com/kilianp07/repairsched/core/model"
)

// Repairer holds the per-batch data of a repairer.
type Repairer struct {
	ID           int
	Name         string
	LeadTime     int     // lambda_r
	Capacity     int     // beta_r
	ShippingCost float64 // chi_r_s
	Emissions    float64 // pi_r
}

// Candidate is a repairer able to return the product within tau. Repairer
// indexes Params.Repairers.
type Candidate struct {
	Repairer    int
	LatestDay   int     // last shipping day keeping the lead time within tau
	RepairCost  float64 // sum over the product defects
	QualityDrop float64 // sum over the product defects, fraction
}

// Product holds the routing data of a product.
type Product struct {
	ID          int
	Category    string
	Color       string
	ArrivalDay  int
	EarliestDay int // first admissible shipping day
	StockAge    int // days in stock at the planning start
	Defects     []int
	Candidates  []Candidate
}

// Params is the immutable input of the optimization model.
type Params struct {
	Config    Config
	Products  []Product
	Repairers []Repairer
	FirstDay  int // first shipping day of the horizon
	LastDay   int // last shipping day of the horizon, inclusive
}

// Days returns the number of shipping days in the horizon.
func (p *Params) Days() int { return p.LastDay - p.FirstDay + 1 }

// LeadTime returns the lead time of product i shipped on day to repairer r.
func (p *Params) LeadTime(i, r, day int) int {
	return day + p.Repairers[r].LeadTime - p.Products[i].ArrivalDay
}

// Build computes the model parameters. Products that cannot be routed are all
// reported in a single *DataIntegrityError.
func Build(ds *model.Dataset, cfg Config) (*Params, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("model config: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	if len(ds.Repairers) == 0 {
		return nil, fmt.Errorf("dataset: no repairer")
	}

	out := &Params{Config: cfg, FirstDay: cfg.PlanningStartDay}
	out.LastDay = horizonEnd(ds, cfg)

	out.Repairers = make([]Repairer, len(ds.Repairers))
	for i, r := range ds.Repairers {
		out.Repairers[i] = Repairer{
			ID:           r.ID,
			Name:         r.Name,
			LeadTime:     r.LeadTimeDays,
			Capacity:     r.BatchCapacity,
			ShippingCost: r.ShippingCost,
			Emissions:    r.EmissionsPerBatch,
		}
	}

	var issues []Issue
	out.Products = make([]Product, 0, len(ds.Products))
	for _, p := range ds.Products {
		pp := Product{
			ID:          p.ID,
			Category:    p.Category,
			Color:       p.Color,
			ArrivalDay:  p.ArrivalDay,
			EarliestDay: max(cfg.PlanningStartDay, ds.EligibleDay(p.ID)),
			StockAge:    max(0, cfg.PlanningStartDay-p.ArrivalDay),
			Defects:     ds.DefectsOf(p.ID),
		}
		if len(pp.Defects) == 0 {
			issues = append(issues, Issue{ProductID: p.ID, RepairerID: -1, Reason: "product has no defect"})
			continue
		}
		cands, pissues := candidates(ds, out, p, pp)
		issues = append(issues, pissues...)
		if len(pissues) > 0 {
			continue
		}
		if len(cands) == 0 {
			issues = append(issues, Issue{ProductID: p.ID, RepairerID: -1,
				Reason: fmt.Sprintf("no repairer can return the product within tau=%d", cfg.Tau)})
			continue
		}
		pp.Candidates = cands
		out.Products = append(out.Products, pp)
	}
	issues = append(issues, idleCapacityIssues(ds, issues)...)
	if len(issues) > 0 {
		return nil, &DataIntegrityError{Issues: issues}
	}
	return out, nil
}

func candidates(ds *model.Dataset, out *Params, p model.Product, pp Product) ([]Candidate, []Issue) {
	var (
		cands  []Candidate
		issues []Issue
	)
	for ri, r := range ds.Repairers {
		latest := min(p.ArrivalDay+out.Config.Tau-r.LeadTimeDays, out.LastDay)
		if latest < pp.EarliestDay {
			continue
		}
		if r.BatchCapacity <= 0 {
			issues = append(issues, Issue{ProductID: p.ID, RepairerID: r.ID, Reason: capacityReason(r)})
			continue
		}
		c := Candidate{Repairer: ri, LatestDay: latest}
		for _, d := range pp.Defects {
			e, ok := r.Cost(d, p.Category)
			if !ok {
				issues = append(issues, Issue{ProductID: p.ID, RepairerID: r.ID,
					Reason: fmt.Sprintf("repairer %d has no cost entry for defect %d on %s", r.ID, d, p.Category)})
				continue
			}
			c.RepairCost += e.RepairCost
			c.QualityDrop += e.QualityDrop
		}
		cands = append(cands, c)
	}
	return cands, issues
}

func capacityReason(r model.Repairer) string {
	return fmt.Sprintf("repairer %d has batch capacity %d, must be positive", r.ID, r.BatchCapacity)
}

// idleCapacityIssues reports repairers without batch capacity that are not a
// candidate of any product, so no product issue names them.
func idleCapacityIssues(ds *model.Dataset, issues []Issue) []Issue {
	named := make(map[int]struct{})
	for _, is := range issues {
		named[is.RepairerID] = struct{}{}
	}
	var out []Issue
	for _, r := range ds.Repairers {
		if r.BatchCapacity > 0 {
			continue
		}
		if _, ok := named[r.ID]; !ok {
			out = append(out, Issue{ProductID: -1, RepairerID: r.ID, Reason: capacityReason(r)})
		}
	}
	return out
}

// horizonEnd returns the last shipping day. Without an explicit horizon it is
// the last day any product could still ship and meet tau.
func horizonEnd(ds *model.Dataset, cfg Config) int {
	if cfg.HorizonDays > 0 {
		return cfg.PlanningStartDay + cfg.HorizonDays - 1
	}
	last := cfg.PlanningStartDay
	for _, p := range ds.Products {
		last = max(last, p.ArrivalDay+cfg.Tau)
	}
	return last
}
