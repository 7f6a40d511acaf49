package model

import "fmt"

// CostKey indexes a repairer's cost table by defect and product category.
type CostKey struct {
	Defect   int
	Category string
}

// CostEntry holds the unit repair cost and the quality degradation, as a
// fraction in [0,1], for one defect on one product category.
type CostEntry struct {
	RepairCost  float64
	QualityDrop float64
}

// Repairer is an external repair center receiving products in batches.
type Repairer struct {
	ID                int
	Name              string
	LeadTimeDays      int     // fixed processing lead time of a batch
	BatchCapacity     int     // max products per shipment
	ShippingCost      float64 // cost per shipped batch (round trip)
	EmissionsPerBatch float64 // g CO2 per shipped batch
	Costs             map[CostKey]CostEntry
}

// Cost returns the cost entry for the defect on the given category.
func (r Repairer) Cost(defect int, category string) (CostEntry, bool) {
	e, ok := r.Costs[CostKey{Defect: defect, Category: category}]
	return e, ok
}

// Validate checks the repairer attributes. Batch capacity is checked by the
// parameter builder, which reports the products it strands.
func (r Repairer) Validate() error {
	if r.LeadTimeDays < 0 {
		return fmt.Errorf("repairer %d: lead time must not be negative", r.ID)
	}
	if r.ShippingCost < 0 || r.EmissionsPerBatch < 0 {
		return fmt.Errorf("repairer %d: shipping cost and emissions must not be negative", r.ID)
	}
	return nil
}
