package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/repairsched/config"
	coremetrics "github.com/kilianp07/repairsched/core/metrics"
	"github.com/kilianp07/repairsched/core/params"
	"github.com/kilianp07/repairsched/core/runlog"
	"github.com/kilianp07/repairsched/infra/logger"
	"github.com/kilianp07/repairsched/infra/mqtt"
	"github.com/kilianp07/repairsched/internal/testutil"
)

type recordingSink struct {
	mu        sync.Mutex
	solves    []coremetrics.SolveEvent
	shipments []coremetrics.ShipmentEvent
	failures  []coremetrics.FailureEvent
}

func (r *recordingSink) RecordSolve(ev coremetrics.SolveEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solves = append(r.solves, ev)
	return nil
}

func (r *recordingSink) RecordShipments(evs []coremetrics.ShipmentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shipments = append(r.shipments, evs...)
	return nil
}

func (r *recordingSink) RecordIncumbent(coremetrics.IncumbentEvent) error { return nil }

func (r *recordingSink) RecordFailure(ev coremetrics.FailureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, ev)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, testutil.WriteDataset(filepath.Join(dir, "data"), testutil.SmallDataset))
	cfg := config.Default()
	cfg.Scenario = "small"
	cfg.Model.Tau = 10
	cfg.Solver.Gap = 1e-9
	cfg.Data.Dir = filepath.Join(dir, "data")
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.RunLog.Path = filepath.Join(dir, "runs.jsonl")
	return cfg
}

func newService(t *testing.T, cfg *config.Config, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NopLogger{}), WithGatherer(prometheus.NewRegistry())}, opts...)
	svc, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestRun_SmallDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Publish.AckTimeoutSeconds = 1
	sink := &recordingSink{}
	pub := mqtt.NewMockPublisher()
	svc := newService(t, cfg, WithSink(sink), WithPublisher(pub))

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "optimal", res.Solution.Status.String())
	assert.InDelta(t, 47.3, res.Solution.Objective, 1e-6)

	require.Len(t, res.Schedule.Batches, 1)
	b := res.Schedule.Batches[0]
	assert.Equal(t, 20, b.RepairerID)
	assert.Equal(t, []int{1, 2, 3}, b.Shipments[0].Products)

	assert.Len(t, res.Files, 4)
	for _, f := range res.Files {
		_, err := os.Stat(f)
		assert.NoError(t, err, f)
	}

	assert.Equal(t, 1, res.Published)
	assert.Empty(t, res.Unacked)
	assert.NoError(t, res.PublishErr)
	sent := pub.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, res.RunID, sent[0].RunID)
	assert.Equal(t, 7, sent[0].ReturnDay)

	require.Len(t, sink.solves, 1)
	assert.Equal(t, "small", sink.solves[0].Scenario)
	assert.Equal(t, 3, sink.solves[0].Products)
	require.Len(t, sink.shipments, 1)
	assert.Equal(t, 3, sink.shipments[0].Products)

	recs, err := svc.Store().Query(context.Background(), runlog.Query{RunID: res.RunID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "optimal", recs[0].Status)
	assert.Equal(t, map[string]int{"B": 3}, recs[0].Assignments)
	assert.Equal(t, 2, recs[0].Repairers)
}

func TestRun_PublishFailuresDoNotFailRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Publish.AckTimeoutSeconds = 1
	pub := mqtt.NewMockPublisher()
	pub.NoAck[20] = true
	svc := newService(t, cfg, WithSink(coremetrics.NopSink{}), WithPublisher(pub))

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Unacked, 1)

	pub = mqtt.NewMockPublisher()
	pub.FailRepairers[20] = true
	svc = newService(t, cfg, WithSink(coremetrics.NopSink{}), WithPublisher(pub))
	res, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Error(t, res.PublishErr)
	assert.Zero(t, res.Published)
}

func TestRun_Failures(t *testing.T) {
	cases := []struct {
		name   string
		tune   func(*config.Config)
		status string
	}{
		// no repairer returns within three days
		{"invalid data", func(c *config.Config) { c.Model.Tau = 3 }, StatusInvalidData},
		// only A fits in four days and takes two products on day 0
		{"infeasible", func(c *config.Config) { c.Model.Tau = 4 }, StatusInfeasible},
		{"missing files", func(c *config.Config) { c.Data.Dir = filepath.Join(c.Data.Dir, "nope") }, StatusError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.tune(cfg)
			sink := &recordingSink{}
			svc := newService(t, cfg, WithSink(sink))

			res, err := svc.Run(context.Background())
			require.Error(t, err)
			assert.Nil(t, res)
			recs, qerr := svc.Store().Query(context.Background(), runlog.Query{})
			require.NoError(t, qerr)
			require.Len(t, recs, 1)
			assert.Equal(t, tc.status, recs[0].Status)
			assert.NotEmpty(t, recs[0].Error)
			require.Len(t, sink.failures, 1)
			assert.Equal(t, tc.status, sink.failures[0].Reason)
		})
	}
}

func TestSensitivity(t *testing.T) {
	cfg := testConfig(t)
	svc := newService(t, cfg, WithSink(coremetrics.NopSink{}))
	variants, err := ParseVary(params.DefaultWeights(), "lead_time=0,1")
	require.NoError(t, err)

	res, err := svc.Sensitivity(context.Background(), variants)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "lead_time=0", res[0].Variant.Name)
	assert.InDelta(t, 26.3, res[0].Objective, 1e-6)
	assert.InDelta(t, 47.3, res[1].Objective, 1e-6)
	for _, r := range res {
		assert.Equal(t, "optimal", r.Status)
		assert.NoError(t, r.Err)
	}

	_, err = svc.Sensitivity(context.Background(), nil)
	assert.Error(t, err)
}

func TestSensitivity_InfeasibleVariant(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.Tau = 4
	svc := newService(t, cfg, WithSink(coremetrics.NopSink{}))
	res, err := svc.Sensitivity(context.Background(), []Variant{{Name: "base", Weights: params.DefaultWeights()}})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res[0].Status)
	assert.Error(t, res[0].Err)
}

func TestParseVary(t *testing.T) {
	base := params.DefaultWeights()
	v, err := ParseVary(base, "emissions = 0.5, 2")
	require.NoError(t, err)
	require.Len(t, v, 2)
	assert.Equal(t, 0.5, v[0].Weights.Emissions)
	assert.Equal(t, 2.0, v[1].Weights.Emissions)
	assert.Equal(t, 1.0, v[1].Weights.LeadTime)

	for _, spec := range []string{"lead_time", "lead_time=", "speed=1", "lead_time=x", "lead_time=-1"} {
		_, err := ParseVary(base, spec)
		assert.Error(t, err, spec)
	}
}

func TestServer_Routes(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.Token = "tok"
	reg := prometheus.NewRegistry()
	svc := newService(t, cfg, WithSink(coremetrics.NopSink{}), WithGatherer(reg))
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	ts := httptest.NewServer(newServer(cfg.API, svc.Store(), reg).Handler)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/runs?status=optimal", nil)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.True(t, strings.HasPrefix(resp2.Header.Get("Content-Type"), "text/plain"))
}
