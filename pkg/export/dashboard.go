package export

import (
	_ "embed"
	"html/template"
	"io"
	"math"
	"sort"

	"github.com/kilianp07/repairsched/core/schedule"
)

//go:embed dashboard.html.tmpl
var dashboardSource string

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"fixed": fixed,
	"pct": func(v, of int) float64 {
		if of == 0 {
			return 0
		}
		return math.Round(float64(v)*1000/float64(of)) / 10
	},
}).Parse(dashboardSource))

// RepairerLoad summarizes the work sent to one repairer.
type RepairerLoad struct {
	ID           int
	Name         string
	Products     int
	Shipments    int
	ShippingCost float64
	Emissions    float64
	RepairCost   float64
	PeakInRepair int
}

// TimelineRow is the in-repair count of every repairer on one day.
type TimelineRow struct {
	Day      int
	InRepair []int
	Shipped  []int
}

type dashboardData struct {
	Doc      Document
	S        *schedule.Schedule
	Gap      string
	Loads    []RepairerLoad
	MaxLoad  int
	Timeline []TimelineRow
}

// Loads aggregates the schedule per repairer, ordered by repairer id.
func Loads(s *schedule.Schedule) []RepairerLoad {
	byID := make(map[int]*RepairerLoad)
	get := func(id int, name string) *RepairerLoad {
		l, ok := byID[id]
		if !ok {
			l = &RepairerLoad{ID: id, Name: name}
			byID[id] = l
		}
		return l
	}
	for _, e := range s.Entries {
		l := get(e.RepairerID, e.RepairerName)
		l.Products++
		l.RepairCost += e.RepairCost
	}
	for _, b := range s.Batches {
		l := get(b.RepairerID, b.RepairerName)
		l.Shipments += len(b.Shipments)
		l.ShippingCost += b.ShippingCost
		l.Emissions += b.Emissions
	}
	for _, k := range s.Baskets {
		if l, ok := byID[k.RepairerID]; ok {
			l.PeakInRepair = max(l.PeakInRepair, k.InRepair)
		}
	}
	out := make([]RepairerLoad, 0, len(byID))
	for _, l := range byID {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func timeline(s *schedule.Schedule, loads []RepairerLoad) []TimelineRow {
	col := make(map[int]int, len(loads))
	for i, l := range loads {
		col[l.ID] = i
	}
	rows := make(map[int]*TimelineRow)
	var days []int
	for _, k := range s.Baskets {
		i, ok := col[k.RepairerID]
		if !ok {
			continue
		}
		r, ok := rows[k.Day]
		if !ok {
			r = &TimelineRow{Day: k.Day, InRepair: make([]int, len(loads)), Shipped: make([]int, len(loads))}
			rows[k.Day] = r
			days = append(days, k.Day)
		}
		r.InRepair[i] = k.InRepair
		r.Shipped[i] = k.Shipped
	}
	sort.Ints(days)
	out := make([]TimelineRow, len(days))
	for i, d := range days {
		out[i] = *rows[d]
	}
	return out
}

// WriteDashboard renders a self-contained HTML page with summary cards, the
// load of each repairer, a daily timeline and the product table.
func WriteDashboard(w io.Writer, doc Document) error {
	s := doc.Schedule
	loads := Loads(s)
	data := dashboardData{Doc: doc, S: s, Gap: "n/a", Loads: loads, Timeline: timeline(s, loads)}
	if !math.IsNaN(s.Gap) && !math.IsInf(s.Gap, 0) {
		data.Gap = fixed(s.Gap*100, 2) + " %"
	}
	for _, l := range loads {
		data.MaxLoad = max(data.MaxLoad, l.Products)
	}
	return dashboardTmpl.Execute(w, data)
}
