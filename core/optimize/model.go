package optimize

import (
	"fmt"
	"math"

	"github.com/kilianp07/repairsched/core/params"
	"github.com/kilianp07/repairsched/core/solver"
)

// ShipVar is a shipping decision x[p,r,t]: product Product (index into
// Params.Products) leaves for candidate Candidate on Day.
type ShipVar struct {
	Product   int
	Candidate int
	Repairer  int
	Day       int
	Var       int
}

// BatchKey identifies a (repairer, day) pair by repairer index.
type BatchKey struct {
	Repairer int
	Day      int
}

// Model is the MIP built from a parameter set. It is built once per run and
// solved at most once.
type Model struct {
	Params  *params.Params
	Problem *solver.Problem

	Ship    []ShipVar
	Batches map[BatchKey]int
	// MaxLead is the makespan variable in max mode, -1 otherwise.
	MaxLead int

	byProduct [][]int
	// batchKeys lists the keys of Batches in creation order.
	batchKeys []BatchKey
}

// Build creates the model variables, constraints and objective.
func Build(p *params.Params) (*Model, error) {
	if len(p.Products) == 0 {
		return nil, fmt.Errorf("model: no product to schedule")
	}
	w := p.Config.Weights
	maxMode := p.Config.LeadTimeObjective == params.LeadTimeMax
	m := &Model{
		Params:    p,
		Problem:   solver.NewProblem("repair-routing"),
		Batches:   make(map[BatchKey]int),
		MaxLead:   -1,
		byProduct: make([][]int, len(p.Products)),
	}

	load := make(map[BatchKey][]solver.Term)
	var keys []BatchKey
	for i, prod := range p.Products {
		assign := make([]solver.Term, 0, len(prod.Candidates))
		for ci, c := range prod.Candidates {
			rep := p.Repairers[c.Repairer]
			for day := prod.EarliestDay; day <= c.LatestDay; day++ {
				cost := w.QualityDrop*c.QualityDrop + w.RepairCost*c.RepairCost
				if !maxMode {
					cost += w.LeadTime * float64(p.LeadTime(i, c.Repairer, day))
				}
				v := m.Problem.AddBinary(fmt.Sprintf("x[%d,%d,%d]", prod.ID, rep.ID, day), cost)
				m.byProduct[i] = append(m.byProduct[i], len(m.Ship))
				m.Ship = append(m.Ship, ShipVar{Product: i, Candidate: ci, Repairer: c.Repairer, Day: day, Var: v})
				assign = append(assign, solver.Term{Var: v, Coef: 1})
				k := BatchKey{Repairer: c.Repairer, Day: day}
				if _, ok := load[k]; !ok {
					keys = append(keys, k)
				}
				load[k] = append(load[k], solver.Term{Var: v, Coef: 1})
			}
		}
		if len(assign) == 0 {
			return nil, fmt.Errorf("model: product %d has no shipping option", prod.ID)
		}
		m.Problem.AddConstraint(fmt.Sprintf("assign[%d]", prod.ID), assign, solver.Equal, 1)
	}

	for _, k := range keys {
		rep := p.Repairers[k.Repairer]
		cost := w.ShippingCost*rep.ShippingCost + w.Emissions*rep.Emissions
		n := m.Problem.AddVar(fmt.Sprintf("n[%d,%d]", rep.ID, k.Day), 0, float64(p.Config.MaxShipmentsPerDay), true, cost)
		m.Batches[k] = n
		m.batchKeys = append(m.batchKeys, k)
		terms := append(load[k], solver.Term{Var: n, Coef: -float64(rep.Capacity)})
		m.Problem.AddConstraint(fmt.Sprintf("capacity[%d,%d]", rep.ID, k.Day), terms, solver.LessEq, 0)
	}

	if maxMode {
		m.MaxLead = m.Problem.AddVar("L", 0, float64(p.Config.Tau), true, w.LeadTime)
		for i, prod := range p.Products {
			terms := make([]solver.Term, 0, len(m.byProduct[i])+1)
			for _, s := range m.byProduct[i] {
				sv := m.Ship[s]
				if lt := p.LeadTime(i, sv.Repairer, sv.Day); lt != 0 {
					terms = append(terms, solver.Term{Var: sv.Var, Coef: float64(lt)})
				}
			}
			if len(terms) == 0 {
				continue
			}
			terms = append(terms, solver.Term{Var: m.MaxLead, Coef: -1})
			m.Problem.AddConstraint(fmt.Sprintf("makespan[%d]", prod.ID), terms, solver.LessEq, 0)
		}
	}
	return m, nil
}

// ShipOptions returns the shipping variables of product i.
func (m *Model) ShipOptions(i int) []ShipVar {
	out := make([]ShipVar, len(m.byProduct[i]))
	for k, s := range m.byProduct[i] {
		out[k] = m.Ship[s]
	}
	return out
}

// Components breaks the objective down at x into its unweighted parts.
func (m *Model) Components(x []float64) Components {
	var c Components
	p := m.Params
	for _, sv := range m.Ship {
		if math.Round(x[sv.Var]) != 1 {
			continue
		}
		cand := p.Products[sv.Product].Candidates[sv.Candidate]
		lt := float64(p.LeadTime(sv.Product, sv.Repairer, sv.Day))
		c.LeadTime += lt
		c.MaxLeadTime = math.Max(c.MaxLeadTime, lt)
		c.QualityDrop += cand.QualityDrop
		c.RepairCost += cand.RepairCost
	}
	for _, k := range m.batchKeys {
		n := math.Round(x[m.Batches[k]])
		c.ShippingCost += n * p.Repairers[k.Repairer].ShippingCost
		c.Emissions += n * p.Repairers[k.Repairer].Emissions
		c.Shipments += int(n)
	}
	return c
}

// Components are the unweighted objective terms of a solution.
type Components struct {
	// LeadTime is the total lead time over all products in days.
	LeadTime     float64 `json:"lead_time"`
	MaxLeadTime  float64 `json:"max_lead_time"`
	ShippingCost float64 `json:"shipping_cost"`
	QualityDrop  float64 `json:"quality_drop"`
	RepairCost   float64 `json:"repair_cost"`
	Emissions    float64 `json:"emissions"`
	Shipments    int     `json:"shipments"`
}

// Weighted returns the objective value of the components under w.
func (c Components) Weighted(w params.Weights, mode string) float64 {
	lead := c.LeadTime
	if mode == params.LeadTimeMax {
		lead = c.MaxLeadTime
	}
	return w.LeadTime*lead + w.ShippingCost*c.ShippingCost + w.QualityDrop*c.QualityDrop +
		w.RepairCost*c.RepairCost + w.Emissions*c.Emissions
}
