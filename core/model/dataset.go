package model

import (
	"errors"
	"fmt"
	"sort"
)

// Dataset groups the entities loaded for one planning run. It is read-only
// once built.
type Dataset struct {
	Products  []Product
	Defects   []Defect
	Repairers []Repairer
	Customers []Customer
	Requests  []RepairRequest

	products  map[int]int
	repairers map[int]int
	defects   map[int]int
}

// NewDataset indexes the collections. Products and repairers are sorted by id
// so every downstream iteration is deterministic.
func NewDataset(products []Product, defects []Defect, repairers []Repairer, customers []Customer, requests []RepairRequest) *Dataset {
	ds := &Dataset{
		Products:  append([]Product(nil), products...),
		Defects:   append([]Defect(nil), defects...),
		Repairers: append([]Repairer(nil), repairers...),
		Customers: append([]Customer(nil), customers...),
		Requests:  append([]RepairRequest(nil), requests...),
	}
	sort.Slice(ds.Products, func(i, j int) bool { return ds.Products[i].ID < ds.Products[j].ID })
	sort.Slice(ds.Repairers, func(i, j int) bool { return ds.Repairers[i].ID < ds.Repairers[j].ID })
	ds.reindex()
	return ds
}

func (d *Dataset) reindex() {
	d.products = make(map[int]int, len(d.Products))
	for i, p := range d.Products {
		d.products[p.ID] = i
	}
	d.repairers = make(map[int]int, len(d.Repairers))
	for i, r := range d.Repairers {
		d.repairers[r.ID] = i
	}
	d.defects = make(map[int]int, len(d.Defects))
	for i, df := range d.Defects {
		d.defects[df.ID] = i
	}
}

// Product returns the product with the given id.
func (d *Dataset) Product(id int) (Product, bool) {
	i, ok := d.products[id]
	if !ok {
		return Product{}, false
	}
	return d.Products[i], true
}

// Repairer returns the repairer with the given id.
func (d *Dataset) Repairer(id int) (Repairer, bool) {
	i, ok := d.repairers[id]
	if !ok {
		return Repairer{}, false
	}
	return d.Repairers[i], true
}

// Defect returns the defect with the given id.
func (d *Dataset) Defect(id int) (Defect, bool) {
	i, ok := d.defects[id]
	if !ok {
		return Defect{}, false
	}
	return d.Defects[i], true
}

// DefectsOf returns the sorted, de-duplicated defect ids of a product: the
// ones attached to the product itself plus those named by its repair
// requests.
func (d *Dataset) DefectsOf(productID int) []int {
	seen := make(map[int]struct{})
	if p, ok := d.Product(productID); ok {
		for _, id := range p.Defects {
			seen[id] = struct{}{}
		}
	}
	for _, r := range d.Requests {
		if r.ProductID == productID {
			seen[r.DefectID] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// EligibleDay is the first day a product may ship: its arrival day, delayed
// by the latest eligibility day of its repair requests.
func (d *Dataset) EligibleDay(productID int) int {
	p, _ := d.Product(productID)
	day := p.ArrivalDay
	for _, r := range d.Requests {
		if r.ProductID == productID && r.EligibleDay > day {
			day = r.EligibleDay
		}
	}
	return day
}

// Validate reports duplicate identifiers and references to unknown entities.
func (d *Dataset) Validate() error {
	var errs []error
	dup := func(kind string, ids []int) {
		seen := make(map[int]struct{}, len(ids))
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				errs = append(errs, fmt.Errorf("duplicate %s id %d", kind, id))
			}
			seen[id] = struct{}{}
		}
	}
	ids := func(n int, at func(int) int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = at(i)
		}
		return out
	}
	dup("product", ids(len(d.Products), func(i int) int { return d.Products[i].ID }))
	dup("repairer", ids(len(d.Repairers), func(i int) int { return d.Repairers[i].ID }))
	dup("defect", ids(len(d.Defects), func(i int) int { return d.Defects[i].ID }))

	customers := make(map[int]struct{}, len(d.Customers))
	for _, c := range d.Customers {
		customers[c.ID] = struct{}{}
	}
	for _, p := range d.Products {
		for _, df := range p.Defects {
			if _, ok := d.Defect(df); !ok {
				errs = append(errs, fmt.Errorf("product %d references unknown defect %d", p.ID, df))
			}
		}
	}
	for _, r := range d.Requests {
		if _, ok := d.Product(r.ProductID); !ok {
			errs = append(errs, fmt.Errorf("request %d references unknown product %d", r.ID, r.ProductID))
		}
		if _, ok := d.Defect(r.DefectID); !ok {
			errs = append(errs, fmt.Errorf("request %d references unknown defect %d", r.ID, r.DefectID))
		}
		if len(d.Customers) > 0 {
			if _, ok := customers[r.CustomerID]; !ok {
				errs = append(errs, fmt.Errorf("request %d references unknown customer %d", r.ID, r.CustomerID))
			}
		}
	}
	for _, r := range d.Repairers {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
