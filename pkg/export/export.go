// Package export renders a schedule as CSV, JSON and a static HTML
// dashboard.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/repairsched/core/schedule"
)

// ScheduleHeader is the column order of the schedule CSV.
var ScheduleHeader = []string{
	"Product ID", "Product Category", "Product Color",
	"Assigned Repairer", "Repairer Name",
	"Repair Cost (€)", "Quality Drop (%)", "Emissions (g CO2)",
	"Time in Stock (days)", "Shipping Day", "Lead Time (days)", "Return Day",
}

// BatchHeader is the column order of the batch CSV.
var BatchHeader = []string{
	"Repairer ID", "Repairer Name", "Shipping Day", "Return Day",
	"Shipment", "Products", "Product IDs", "Shipping Cost (€)", "Emissions (g CO2)",
}

// fixed formats v with exactly places decimals, rounding half away from zero.
func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// WriteScheduleCSV writes one row per product.
func WriteScheduleCSV(w io.Writer, entries []schedule.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ScheduleHeader); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			strconv.Itoa(e.ProductID),
			e.Category,
			e.Color,
			strconv.Itoa(e.RepairerID),
			e.RepairerName,
			fixed(e.RepairCost, 2),
			fixed(e.QualityDrop, 2),
			fixed(e.Emissions, 2),
			fixed(float64(e.StockAge), 1),
			strconv.Itoa(e.ShippingDay),
			fixed(float64(e.LeadTime), 1),
			strconv.Itoa(e.ReturnDay),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBatchCSV writes one row per physical shipment. Cost and emissions of
// a (repairer, day) batch group are split evenly over its shipments.
func WriteBatchCSV(w io.Writer, batches []schedule.Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BatchHeader); err != nil {
		return err
	}
	for _, b := range batches {
		n := decimal.NewFromInt(int64(max(len(b.Shipments), 1)))
		cost := decimal.NewFromFloat(b.ShippingCost).Div(n)
		emis := decimal.NewFromFloat(b.Emissions).Div(n)
		for i, s := range b.Shipments {
			ids := make([]string, len(s.Products))
			for k, id := range s.Products {
				ids[k] = strconv.Itoa(id)
			}
			rec := []string{
				strconv.Itoa(b.RepairerID),
				b.RepairerName,
				strconv.Itoa(b.Day),
				strconv.Itoa(b.ReturnDay),
				strconv.Itoa(i + 1),
				strconv.Itoa(len(s.Products)),
				strings.Join(ids, ";"),
				cost.StringFixed(2),
				emis.StringFixed(2),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Document is the JSON representation of a run.
type Document struct {
	RunID     string             `json:"run_id,omitempty"`
	Scenario  string             `json:"scenario,omitempty"`
	Generated string             `json:"generated,omitempty"`
	Schedule  *schedule.Schedule `json:"schedule"`
}

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
