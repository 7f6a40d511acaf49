package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/repairsched/core/metrics"
	"github.com/kilianp07/repairsched/core/optimize"
)

type lineServer struct {
	mu     sync.Mutex
	bodies []string
	srv    *httptest.Server
}

func newLineServer(t *testing.T) *lineServer {
	t.Helper()
	ls := &lineServer{}
	ls.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.bodies = append(ls.bodies, strings.TrimSpace(string(data)))
		ls.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ls.srv.Close)
	return ls
}

func (ls *lineServer) sink() *InfluxSink {
	return NewInfluxSink(InfluxConfig{URL: ls.srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordSolve(t *testing.T) {
	ls := newLineServer(t)
	now := time.Now()
	ev := coremetrics.SolveEvent{
		RunID:      "r1",
		Status:     "optimal",
		Objective:  47.3,
		Gap:        0,
		Nodes:      12,
		Duration:   1500 * time.Millisecond,
		Products:   3,
		Components: optimize.Components{LeadTime: 21, ShippingCost: 10, QualityDrop: 0.3, RepairCost: 15, Emissions: 1},
		Time:       now,
	}
	if err := ls.sink().RecordSolve(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("solve_run").
		AddTag("run_id", "r1").
		AddTag("status", "optimal").
		AddField("objective", 47.3).
		AddField("gap", 0.0).
		AddField("nodes", 12).
		AddField("duration_ms", int64(1500)).
		AddField("products", 3).
		AddField("lead_time", 21.0).
		AddField("shipping_cost", 10.0).
		AddField("quality_drop", 0.3).
		AddField("repair_cost", 15.0).
		AddField("emissions", 1.0).
		SetTime(now)
	if len(ls.bodies) != 1 || ls.bodies[0] != line(p) {
		t.Errorf("unexpected body: %#v", ls.bodies)
	}
}

func TestInfluxSink_RecordShipments(t *testing.T) {
	ls := newLineServer(t)
	now := time.Now()
	evs := []coremetrics.ShipmentEvent{
		{RunID: "r1", RepairerID: 1, RepairerName: "A", Day: 0, Products: 2, Batches: 1, ShippingCost: 10, Emissions: 5, Time: now},
		{RunID: "r1", RepairerID: 2, RepairerName: "B", Day: 1, Products: 1, Batches: 1, ShippingCost: 4, Emissions: 2, Time: now},
	}
	if err := ls.sink().RecordShipments(evs); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(ls.bodies) != 2 {
		t.Fatalf("expected 2 writes got %d", len(ls.bodies))
	}
	p := write.NewPointWithMeasurement("shipment_batch").
		AddTag("run_id", "r1").
		AddTag("repairer_id", "2").
		AddTag("repairer", "B").
		AddField("day", 1).
		AddField("products", 1).
		AddField("batches", 1).
		AddField("shipping_cost", 4.0).
		AddField("emissions", 2.0).
		SetTime(now)
	if ls.bodies[1] != line(p) {
		t.Errorf("unexpected body: %s", ls.bodies[1])
	}
}

func TestInfluxSink_RecordIncumbent(t *testing.T) {
	ls := newLineServer(t)
	now := time.Now()
	if err := ls.sink().RecordIncumbent(coremetrics.IncumbentEvent{RunID: "r2", Objective: 3.14159, Nodes: 4, Elapsed: time.Second, Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("solver_incumbent").
		AddTag("run_id", "r2").
		AddField("objective", 3.142).
		AddField("nodes", 4).
		AddField("elapsed_ms", int64(1000)).
		SetTime(now)
	if len(ls.bodies) != 1 || ls.bodies[0] != line(p) {
		t.Errorf("unexpected body: %#v", ls.bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
