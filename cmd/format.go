package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kilianp07/repairsched/app"
	"github.com/kilianp07/repairsched/core/runlog"
	"github.com/kilianp07/repairsched/pkg/export"
)

var (
	primary = lipgloss.Color("#7C3AED")
	green   = lipgloss.Color("#10B981")
	amber   = lipgloss.Color("#F59E0B")
	red     = lipgloss.Color("#EF4444")
	muted   = lipgloss.Color("#6B7280")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(primary)
	labelStyle  = lipgloss.NewStyle().Foreground(muted)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(primary).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func statusStyle(status string) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch status {
	case "optimal":
		return s.Foreground(green)
	case "limit_reached":
		return s.Foreground(amber)
	default:
		return s.Foreground(red)
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(muted)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func num(v float64, places int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', places, 64)
}

func gap(v float64) string {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return num(v*100, 2) + "%"
}

func formatRun(res *app.Result) string {
	var b strings.Builder
	sol := res.Solution
	c := sol.Components
	fmt.Fprintf(&b, "%s %s\n\n", titleStyle.Render("Run"), res.RunID)
	kv := func(k, v string) { fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-14s", k)), v) }
	kv("status", statusStyle(sol.Status.String()).Render(sol.Status.String()))
	kv("objective", num(sol.Objective, 4))
	kv("gap", gap(sol.Gap))
	kv("nodes", strconv.Itoa(sol.Nodes))
	kv("duration", sol.Duration.Round(time.Millisecond).String())
	kv("products", strconv.Itoa(len(res.Schedule.Entries)))
	kv("lead time", num(c.LeadTime, 1)+" days (max "+num(c.MaxLeadTime, 0)+")")
	kv("shipping cost", num(c.ShippingCost, 2))
	kv("repair cost", num(c.RepairCost, 2))
	kv("quality drop", num(c.QualityDrop, 3))
	kv("emissions", num(c.Emissions, 2))
	kv("shipments", strconv.Itoa(c.Shipments))
	if res.Published > 0 || res.PublishErr != nil {
		kv("orders sent", fmt.Sprintf("%d (%d unacknowledged)", res.Published, len(res.Unacked)))
	}
	b.WriteString("\n")

	t := newTable("Repairer", "Products", "Shipments", "Shipping", "Repair", "Emissions", "Peak")
	for _, l := range export.Loads(res.Schedule) {
		t.Row(fmt.Sprintf("%d %s", l.ID, l.Name), strconv.Itoa(l.Products), strconv.Itoa(l.Shipments),
			num(l.ShippingCost, 2), num(l.RepairCost, 2), num(l.Emissions, 2), strconv.Itoa(l.PeakInRepair))
	}
	b.WriteString(t.String())
	b.WriteString("\n")
	for _, f := range res.Files {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("wrote"), f)
	}
	return b.String()
}

func formatSensitivity(res []app.VariantResult) string {
	t := newTable("Variant", "Status", "Objective", "Lead time", "Shipping", "Quality", "Repair", "Emissions")
	for _, r := range res {
		if r.Err != nil {
			t.Row(r.Variant.Name, statusStyle(r.Status).Render(r.Status), "-", "-", "-", "-", "-", "-")
			continue
		}
		c := r.Components
		t.Row(r.Variant.Name, statusStyle(r.Status).Render(r.Status), num(r.Objective, 4),
			num(c.LeadTime, 1), num(c.ShippingCost, 2), num(c.QualityDrop, 3), num(c.RepairCost, 2), num(c.Emissions, 2))
	}
	return t.String() + "\n"
}

func formatHistory(recs []runlog.Record) string {
	if len(recs) == 0 {
		return labelStyle.Render("No runs recorded") + "\n"
	}
	t := newTable("Run", "Time", "Scenario", "Status", "Objective", "Gap", "Products", "Duration")
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		obj, g := num(r.Objective, 4), gap(r.Gap)
		if r.Error != "" {
			obj, g = "-", "-"
		}
		t.Row(r.RunID, r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Scenario,
			statusStyle(r.Status).Render(r.Status), obj, g, strconv.Itoa(r.Products),
			fmt.Sprintf("%dms", r.DurationMS))
	}
	return t.String() + "\n"
}
