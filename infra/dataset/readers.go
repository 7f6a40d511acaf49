package dataset

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/repairsched/core/model"
)

// readProducts parses products.csv: id, category, color, size, arrival_day
// and an optional semicolon separated defects column.
func readProducts(r io.Reader) ([]model.Product, error) {
	t, err := newTable(r, "id", "category")
	if err != nil {
		return nil, err
	}
	var out []model.Product
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return out, err
		}
		p := model.Product{Category: t.str("category"), Color: t.str("color"), Size: t.str("size")}
		if p.ID, err = t.integer("id"); err != nil {
			return nil, err
		}
		if p.Category == "" {
			return nil, t.errorf("product %d has no category", p.ID)
		}
		if p.ArrivalDay, err = t.optInt("arrival_day", 0); err != nil {
			return nil, err
		}
		if p.Defects, err = idList(t, "defects"); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}

func idList(t *table, col string) ([]int, error) {
	v := t.str(col)
	if v == "" {
		return nil, nil
	}
	var ids []int
	for _, f := range strings.Split(v, ";") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, t.fail(col, v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// readDefects parses defects.csv: id, severity, description.
func readDefects(r io.Reader) ([]model.Defect, error) {
	t, err := newTable(r, "id")
	if err != nil {
		return nil, err
	}
	var out []model.Defect
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return out, err
		}
		d := model.Defect{Severity: t.str("severity"), Description: t.str("description")}
		if d.ID, err = t.integer("id"); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
}

// readRepairers parses repairers.csv: id, name, lead_time_days,
// batch_capacity, shipping_cost, emissions_per_batch.
func readRepairers(r io.Reader) ([]model.Repairer, error) {
	t, err := newTable(r, "id", "name", "lead_time_days", "batch_capacity", "shipping_cost", "emissions_per_batch")
	if err != nil {
		return nil, err
	}
	var out []model.Repairer
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return out, err
		}
		rep := model.Repairer{Name: t.str("name"), Costs: make(map[model.CostKey]model.CostEntry)}
		if rep.ID, err = t.integer("id"); err != nil {
			return nil, err
		}
		if rep.LeadTimeDays, err = t.integer("lead_time_days"); err != nil {
			return nil, err
		}
		if rep.BatchCapacity, err = t.integer("batch_capacity"); err != nil {
			return nil, err
		}
		if rep.ShippingCost, err = t.amount("shipping_cost"); err != nil {
			return nil, err
		}
		if rep.EmissionsPerBatch, err = t.amount("emissions_per_batch"); err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
}

type costRow struct {
	repairer int
	key      model.CostKey
	entry    model.CostEntry
	line     int
}

// readCosts parses repair_costs.csv: repairer_id, defect_id, category,
// repair_cost, quality_drop. Quality drop is a fraction in [0,1].
func readCosts(r io.Reader) ([]costRow, error) {
	t, err := newTable(r, "repairer_id", "defect_id", "category", "repair_cost", "quality_drop")
	if err != nil {
		return nil, err
	}
	var out []costRow
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return out, err
		}
		c := costRow{line: t.line, key: model.CostKey{Category: t.str("category")}}
		if c.repairer, err = t.integer("repairer_id"); err != nil {
			return nil, err
		}
		if c.key.Defect, err = t.integer("defect_id"); err != nil {
			return nil, err
		}
		if c.entry.RepairCost, err = t.amount("repair_cost"); err != nil {
			return nil, err
		}
		if c.entry.QualityDrop, err = t.amount("quality_drop"); err != nil {
			return nil, err
		}
		if c.entry.RepairCost < 0 {
			return nil, t.errorf("repair_cost must not be negative")
		}
		if c.entry.QualityDrop < 0 || c.entry.QualityDrop > 1 {
			return nil, t.errorf("quality_drop %v outside [0, 1]", c.entry.QualityDrop)
		}
		out = append(out, c)
	}
}

func attachCosts(repairers []model.Repairer, rows []costRow) error {
	idx := make(map[int]int, len(repairers))
	for i, r := range repairers {
		idx[r.ID] = i
	}
	for _, c := range rows {
		i, ok := idx[c.repairer]
		if !ok {
			return fmt.Errorf("repair costs row %d: unknown repairer %d", c.line, c.repairer)
		}
		if _, dup := repairers[i].Costs[c.key]; dup {
			return fmt.Errorf("repair costs row %d: duplicate entry for repairer %d, defect %d, category %s",
				c.line, c.repairer, c.key.Defect, c.key.Category)
		}
		repairers[i].Costs[c.key] = c.entry
	}
	return nil
}

// readCustomers parses customers.csv: id, first_name, last_name, email,
// country.
func readCustomers(r io.Reader) ([]model.Customer, error) {
	t, err := newTable(r, "id")
	if err != nil {
		return nil, err
	}
	var out []model.Customer
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return out, err
		}
		c := model.Customer{
			FirstName: t.str("first_name"),
			LastName:  t.str("last_name"),
			Email:     t.str("email"),
			Country:   t.str("country"),
		}
		if c.ID, err = t.integer("id"); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
}

// readRequests parses repair_requests.csv: id, customer_id, product_id,
// defect_id and an optional eligible_day.
func readRequests(r io.Reader) ([]model.RepairRequest, error) {
	t, err := newTable(r, "id", "product_id", "defect_id")
	if err != nil {
		return nil, err
	}
	var out []model.RepairRequest
	for {
		ok, err := t.next()
		if err != nil || !ok {
			return out, err
		}
		var q model.RepairRequest
		if q.ID, err = t.integer("id"); err != nil {
			return nil, err
		}
		if q.CustomerID, err = t.optInt("customer_id", 0); err != nil {
			return nil, err
		}
		if q.ProductID, err = t.integer("product_id"); err != nil {
			return nil, err
		}
		if q.DefectID, err = t.integer("defect_id"); err != nil {
			return nil, err
		}
		if q.EligibleDay, err = t.optInt("eligible_day", 0); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
}
