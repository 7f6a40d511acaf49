// Package schedule projects a solved model onto per-product schedule
// entries, shipment batches and daily basket status.
package schedule

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/repairsched/core/optimize"
	"github.com/kilianp07/repairsched/core/params"
	"github.com/kilianp07/repairsched/core/solver"
)

// Entry is the schedule of one product. Field order is the public report
// order.
type Entry struct {
	ProductID    int     `json:"product_id"`
	Category     string  `json:"category"`
	Color        string  `json:"color"`
	RepairerID   int     `json:"repairer_id"`
	RepairerName string  `json:"repairer_name"`
	RepairCost   float64 `json:"repair_cost"`
	QualityDrop  float64 `json:"quality_drop_pct"`
	Emissions    float64 `json:"emissions"`
	StockAge     int     `json:"stock_age_days"`
	ShippingDay  int     `json:"shipping_day"`
	LeadTime     int     `json:"lead_time_days"`
	ReturnDay    int     `json:"return_day"`
}

// Shipment is one physical batch sent to a repairer.
type Shipment struct {
	Products []int `json:"products"`
}

// Batch groups the shipments leaving for one repairer on one day.
type Batch struct {
	RepairerID   int        `json:"repairer_id"`
	RepairerName string     `json:"repairer_name"`
	Day          int        `json:"day"`
	ReturnDay    int        `json:"return_day"`
	Shipments    []Shipment `json:"shipments"`
	ShippingCost float64    `json:"shipping_cost"`
	Emissions    float64    `json:"emissions"`
}

// Basket is the state of a repairer on a day of the horizon.
type Basket struct {
	RepairerID int `json:"repairer_id"`
	Day        int `json:"day"`
	// Shipped is the number of products leaving on this day.
	Shipped int `json:"shipped"`
	// Assigned is the running total of products sent to the repairer so far.
	Assigned int `json:"assigned"`
	// InRepair is the number of products at the repairer on this day.
	InRepair int `json:"in_repair"`
}

// Schedule is the read-only projection of a solution.
type Schedule struct {
	Status     solver.Status       `json:"status"`
	Objective  float64             `json:"objective"`
	Gap        float64             `json:"gap"`
	Components optimize.Components `json:"components"`
	Entries    []Entry             `json:"entries"`
	Batches    []Batch             `json:"batches"`
	Baskets    []Basket            `json:"baskets"`
}

// MarshalJSON encodes an unknown gap, as left by a search stopped without
// a bound, as null.
func (s Schedule) MarshalJSON() ([]byte, error) {
	type plain Schedule
	out := struct {
		plain
		Gap *float64 `json:"gap"`
	}{plain: plain(s)}
	if !math.IsNaN(s.Gap) && !math.IsInf(s.Gap, 0) {
		out.Gap = &s.Gap
	}
	return json.Marshal(out)
}

// ProjectionConsistencyError reports a solution that violates the model
// structure. It always indicates an upstream defect.
type ProjectionConsistencyError struct {
	ProductID int
	Reason    string
}

func (e *ProjectionConsistencyError) Error() string {
	if e.ProductID < 0 {
		return "inconsistent solution: " + e.Reason
	}
	return fmt.Sprintf("inconsistent solution for product %d: %s", e.ProductID, e.Reason)
}

// Project maps a solution to the schedule.
func Project(p *params.Params, sol *optimize.Solution) (*Schedule, error) {
	if sol == nil {
		return nil, &ProjectionConsistencyError{ProductID: -1, Reason: "no solution"}
	}
	chosen := make([]*optimize.Assignment, len(p.Products))
	for k := range sol.Assignments {
		a := &sol.Assignments[k]
		if a.Product < 0 || a.Product >= len(p.Products) {
			return nil, &ProjectionConsistencyError{ProductID: -1, Reason: fmt.Sprintf("unknown product index %d", a.Product)}
		}
		id := p.Products[a.Product].ID
		if chosen[a.Product] != nil {
			return nil, &ProjectionConsistencyError{ProductID: id, Reason: "assigned more than once"}
		}
		chosen[a.Product] = a
	}

	type slot struct {
		products []int
		batches  int
	}
	slots := make(map[optimize.BatchKey]*slot)
	var keys []optimize.BatchKey
	entries := make([]Entry, 0, len(p.Products))
	for i, prod := range p.Products {
		a := chosen[i]
		if a == nil {
			return nil, &ProjectionConsistencyError{ProductID: prod.ID, Reason: "not assigned"}
		}
		cand, ok := candidate(prod, a.Repairer)
		if !ok {
			return nil, &ProjectionConsistencyError{ProductID: prod.ID, Reason: fmt.Sprintf("repairer index %d is not a candidate", a.Repairer)}
		}
		if a.Day < prod.EarliestDay || a.Day > cand.LatestDay {
			return nil, &ProjectionConsistencyError{ProductID: prod.ID,
				Reason: fmt.Sprintf("shipping day %d outside [%d, %d]", a.Day, prod.EarliestDay, cand.LatestDay)}
		}
		rep := p.Repairers[a.Repairer]
		k := optimize.BatchKey{Repairer: a.Repairer, Day: a.Day}
		s, ok := slots[k]
		if !ok {
			s = &slot{batches: sol.Shipments[k]}
			slots[k] = s
			keys = append(keys, k)
		}
		s.products = append(s.products, prod.ID)
		entries = append(entries, Entry{
			ProductID:    prod.ID,
			Category:     prod.Category,
			Color:        prod.Color,
			RepairerID:   rep.ID,
			RepairerName: rep.Name,
			RepairCost:   cand.RepairCost,
			QualityDrop:  cand.QualityDrop * 100,
			StockAge:     prod.StockAge,
			ShippingDay:  a.Day,
			LeadTime:     p.LeadTime(i, a.Repairer, a.Day),
			ReturnDay:    a.Day + rep.LeadTime,
		})
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Day != keys[j].Day {
			return keys[i].Day < keys[j].Day
		}
		return p.Repairers[keys[i].Repairer].ID < p.Repairers[keys[j].Repairer].ID
	})
	batches := make([]Batch, 0, len(keys))
	share := make(map[optimize.BatchKey]float64, len(keys))
	for _, k := range keys {
		s := slots[k]
		rep := p.Repairers[k.Repairer]
		if len(s.products) > rep.Capacity*s.batches {
			return nil, &ProjectionConsistencyError{ProductID: s.products[0],
				Reason: fmt.Sprintf("%d products exceed %d batch(es) of %d at repairer %d on day %d",
					len(s.products), s.batches, rep.Capacity, rep.ID, k.Day)}
		}
		sort.Ints(s.products)
		b := Batch{
			RepairerID:   rep.ID,
			RepairerName: rep.Name,
			Day:          k.Day,
			ReturnDay:    k.Day + rep.LeadTime,
			ShippingCost: float64(s.batches) * rep.ShippingCost,
			Emissions:    float64(s.batches) * rep.Emissions,
		}
		for start := 0; start < len(s.products); start += rep.Capacity {
			end := min(start+rep.Capacity, len(s.products))
			b.Shipments = append(b.Shipments, Shipment{Products: s.products[start:end]})
		}
		batches = append(batches, b)
		share[k] = b.Emissions / float64(len(s.products))
	}
	for i := range entries {
		a := chosen[i]
		entries[i].Emissions = share[optimize.BatchKey{Repairer: a.Repairer, Day: a.Day}]
	}

	return &Schedule{
		Status:     sol.Status,
		Objective:  sol.Objective,
		Gap:        sol.Gap,
		Components: sol.Components,
		Entries:    entries,
		Batches:    batches,
		Baskets:    baskets(p, batches),
	}, nil
}

func candidate(prod params.Product, repairer int) (params.Candidate, bool) {
	for _, c := range prod.Candidates {
		if c.Repairer == repairer {
			return c, true
		}
	}
	return params.Candidate{}, false
}

// baskets lists, per repairer and for every day of the horizon, the products
// shipped, the running total and the products under repair.
func baskets(p *params.Params, batches []Batch) []Basket {
	shipped := make(map[[2]int]int)
	lastDay := p.LastDay
	for _, b := range batches {
		n := 0
		for _, s := range b.Shipments {
			n += len(s.Products)
		}
		shipped[[2]int{b.RepairerID, b.Day}] += n
		lastDay = max(lastDay, b.ReturnDay)
	}
	out := make([]Basket, 0, len(p.Repairers)*(lastDay-p.FirstDay+1))
	for _, rep := range p.Repairers {
		total := 0
		for day := p.FirstDay; day <= lastDay; day++ {
			n := shipped[[2]int{rep.ID, day}]
			total += n
			inRepair := 0
			for d := max(p.FirstDay, day-rep.LeadTime+1); d <= day; d++ {
				inRepair += shipped[[2]int{rep.ID, d}]
			}
			out = append(out, Basket{RepairerID: rep.ID, Day: day, Shipped: n, Assigned: total, InRepair: inRepair})
		}
	}
	return out
}
