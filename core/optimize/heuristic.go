package optimize

import (
	"math"
	"sort"
)

// greedy builds a feasible assignment: products are taken by earliest
// deadline and each goes to the (repairer, day) slot with the lowest
// marginal weighted cost that still has batch room. It returns nil when a
// product finds no slot.
func (m *Model) greedy() []float64 {
	p := m.Params
	w := p.Config.Weights
	maxMode := m.MaxLead >= 0

	order := make([]int, len(p.Products))
	deadline := make([]int, len(p.Products))
	for i, prod := range p.Products {
		order[i] = i
		deadline[i] = math.MaxInt
		for _, c := range prod.Candidates {
			deadline[i] = min(deadline[i], c.LatestDay)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if deadline[ia] != deadline[ib] {
			return deadline[ia] < deadline[ib]
		}
		return p.Products[ia].ID < p.Products[ib].ID
	})

	x := make([]float64, m.Problem.NumVars())
	load := make(map[BatchKey]int, len(m.Batches))
	maxLead := 0
	for _, i := range order {
		best, bestCost := -1, math.Inf(1)
		for _, s := range m.byProduct[i] {
			sv := m.Ship[s]
			rep := p.Repairers[sv.Repairer]
			k := BatchKey{Repairer: sv.Repairer, Day: sv.Day}
			used := load[k]
			if used >= rep.Capacity*p.Config.MaxShipmentsPerDay {
				continue
			}
			cost := m.Problem.Var(sv.Var).Cost
			if used%rep.Capacity == 0 {
				cost += m.Problem.Var(m.Batches[k]).Cost
			}
			if maxMode {
				if lt := p.LeadTime(i, sv.Repairer, sv.Day); lt > maxLead {
					cost += w.LeadTime * float64(lt-maxLead)
				}
			}
			if cost < bestCost {
				best, bestCost = s, cost
			}
		}
		if best < 0 {
			return nil
		}
		sv := m.Ship[best]
		x[sv.Var] = 1
		load[BatchKey{Repairer: sv.Repairer, Day: sv.Day}]++
		maxLead = max(maxLead, p.LeadTime(i, sv.Repairer, sv.Day))
	}
	for k, v := range m.Batches {
		c := p.Repairers[k.Repairer].Capacity
		x[v] = float64((load[k] + c - 1) / c)
	}
	if maxMode {
		x[m.MaxLead] = float64(maxLead)
	}
	return x
}
