package params

import (
	"fmt"
	"sort"
	"strings"
)

// Issue describes one data problem found while building parameters.
// RepairerID is -1 when the issue is not tied to a repairer, ProductID is -1
// when it is not tied to a product.
type Issue struct {
	ProductID  int
	RepairerID int
	Reason     string
}

// DataIntegrityError is returned before model construction when products
// cannot be routed: no repairer satisfies tau, a cost entry is missing, a
// repairer has no batch capacity, or the product carries no defect.
type DataIntegrityError struct {
	Issues []Issue
}

func (e *DataIntegrityError) Error() string {
	if len(e.Issues) == 0 {
		return "data integrity"
	}
	ids := e.ProductIDs()
	if len(ids) == 0 {
		return fmt.Sprintf("data integrity: %d issue(s): %s", len(e.Issues), e.Issues[0].Reason)
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("data integrity: %d issue(s) on product(s) [%s]: %s",
		len(e.Issues), strings.Join(parts, ", "), e.Issues[0].Reason)
}

// ProductIDs returns the sorted ids of the affected products.
func (e *DataIntegrityError) ProductIDs() []int {
	seen := make(map[int]struct{}, len(e.Issues))
	var ids []int
	for _, is := range e.Issues {
		if _, ok := seen[is.ProductID]; ok || is.ProductID < 0 {
			continue
		}
		seen[is.ProductID] = struct{}{}
		ids = append(ids, is.ProductID)
	}
	sort.Ints(ids)
	return ids
}
