package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/repairsched/core/optimize"
	"github.com/kilianp07/repairsched/core/schedule"
	"github.com/kilianp07/repairsched/core/solver"
)

func sample() *schedule.Schedule {
	return &schedule.Schedule{
		Status:     solver.StatusOptimal,
		Objective:  47.3,
		Components: optimize.Components{LeadTime: 21, ShippingCost: 10, QualityDrop: 0.3, RepairCost: 15, Emissions: 1},
		Entries: []schedule.Entry{
			{ProductID: 1, Category: "Sweater", Color: "red", RepairerID: 20, RepairerName: "B", RepairCost: 5, QualityDrop: 10,
				Emissions: 1.0 / 3, StockAge: 0, ShippingDay: 0, LeadTime: 7, ReturnDay: 7},
			{ProductID: 2, Category: "Sweater", Color: "blue", RepairerID: 20, RepairerName: "B", RepairCost: 5.125, QualityDrop: 10,
				Emissions: 1.0 / 3, StockAge: 2, ShippingDay: 0, LeadTime: 7, ReturnDay: 7},
		},
		Batches: []schedule.Batch{{RepairerID: 20, RepairerName: "B", Day: 0, ReturnDay: 7, ShippingCost: 10, Emissions: 1,
			Shipments: []schedule.Shipment{{Products: []int{1}}, {Products: []int{2}}}}},
		Baskets: []schedule.Basket{
			{RepairerID: 20, Day: 0, Shipped: 2, Assigned: 2, InRepair: 2},
			{RepairerID: 20, Day: 1, Assigned: 2, InRepair: 2},
		},
	}
}

func TestWriteScheduleCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScheduleCSV(&buf, sample().Entries))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Product ID,Product Category,Product Color,Assigned Repairer,Repairer Name,Repair Cost (€),Quality Drop (%),Emissions (g CO2),Time in Stock (days),Shipping Day,Lead Time (days),Return Day",
		strings.Join(rows[0], ","))
	assert.Equal(t, []string{"1", "Sweater", "red", "20", "B", "5.00", "10.00", "0.33", "0.0", "0", "7.0", "7"}, rows[1])
	assert.Equal(t, "5.13", rows[2][5], "half away from zero")
	assert.Equal(t, "2.0", rows[2][8])
}

func TestWriteBatchCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBatchCSV(&buf, sample().Batches))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, BatchHeader, rows[0])
	assert.Equal(t, []string{"20", "B", "0", "7", "2", "1", "2", "5.00", "0.50"}, rows[2])
}

func TestWriteJSON_UnknownGap(t *testing.T) {
	s := sample()
	s.Status = solver.StatusLimitReached
	s.Gap = math.Inf(1)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Document{RunID: "r1", Schedule: s}))
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "r1", out["run_id"])
	sch := out["schedule"].(map[string]any)
	assert.Nil(t, sch["gap"])
	assert.Equal(t, "limit_reached", sch["status"])
}

func TestWriteDashboard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDashboard(&buf, Document{RunID: "r1", Scenario: "<base>", Schedule: sample()}))
	html := buf.String()
	assert.Contains(t, html, "run r1")
	assert.Contains(t, html, "&lt;base&gt;", "scenario is escaped")
	assert.Contains(t, html, "47.30")
	assert.Contains(t, html, "B (20)")
	assert.Contains(t, html, "2 (+2)")
	assert.Contains(t, html, "width: 100%")
}

func TestLoads(t *testing.T) {
	l := Loads(sample())
	require.Len(t, l, 1)
	assert.Equal(t, RepairerLoad{ID: 20, Name: "B", Products: 2, Shipments: 2, ShippingCost: 10, Emissions: 1, RepairCost: 10.125, PeakInRepair: 2}, l[0])
}

func TestWriteAll(t *testing.T) {
	cfg := Config{Dir: filepath.Join(t.TempDir(), "out")}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	paths, err := WriteAll(cfg, Document{Schedule: sample()})
	require.NoError(t, err)
	require.Len(t, paths, 4)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), p)
	}

	only := Config{Dir: cfg.Dir, JSON: "only.json"}
	only.SetDefaults()
	paths, err = WriteAll(only, Document{Schedule: sample()})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(cfg.Dir, "only.json")}, paths)

	_, err = WriteAll(cfg, Document{})
	assert.Error(t, err)
}
