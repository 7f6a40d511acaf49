package model

import "fmt"

// Product represents a single garment or item waiting in stock for repair.
type Product struct {
	ID         int
	Category   string // garment type, e.g. Sweater; indexes the repairer cost tables
	Color      string
	Size       string
	ArrivalDay int   // day the product entered stock
	Defects    []int // defect ids attached to the product
}

func (p Product) String() string {
	return fmt.Sprintf("Product(id=%d, category=%s, color=%s)", p.ID, p.Category, p.Color)
}

// Defect is a type of damage found on a product. Severity is the tag used
// together with the product category to look up repair cost and quality drop.
type Defect struct {
	ID          int
	Severity    string
	Description string
}

// Customer owns repair requests. It is never consulted by the optimizer.
type Customer struct {
	ID        int
	FirstName string
	LastName  string
	Email     string
	Country   string
}

// RepairRequest links a product and one of its defects to the customer who
// asked for the repair. EligibleDay is the first day the product may be
// routed to a repairer.
type RepairRequest struct {
	ID          int
	CustomerID  int
	ProductID   int
	DefectID    int
	EligibleDay int
}
