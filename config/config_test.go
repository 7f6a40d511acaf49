package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "config.yaml", `scenario: "baseline"
model:
  tau: 15
  planning_start_day: 2
  max_shipments_per_day: 2
  lead_time_objective: "max"
  weights:
    lead_time: 2
    shipping_cost: 1
    quality_drop: 100
    repair_cost: 1
    emissions: 0.001
solver:
  time_limit_seconds: 30
  gap: 0.01
  skip_heuristic: true
data:
  dir: "fixtures"
runlog:
  backend: "sqlite"
  path: "runs.db"
metrics:
  sinks:
    - type: "prometheus"
    - type: "influx"
      conf:
        url: "http://localhost:8086"
        bucket: "repairs"
publish:
  enabled: true
  broker: "tcp://localhost:1883"
  qos:
    shipment: 1
api:
  token: "secret"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"scenario", cfg.Scenario, "baseline"},
		{"tau", cfg.Model.Tau, 15},
		{"planning_start_day", cfg.Model.PlanningStartDay, 2},
		{"lead_time_objective", cfg.Model.LeadTimeObjective, "max"},
		{"weights.quality_drop", cfg.Model.Weights.QualityDrop, 100.0},
		{"time_limit_seconds", cfg.Solver.TimeLimitSeconds, 30.0},
		{"skip_heuristic", cfg.Solver.SkipHeuristic, true},
		{"data.dir", cfg.Data.Dir, "fixtures"},
		{"data.products default", cfg.Data.Products, "products.csv"},
		{"runlog.backend", cfg.RunLog.Backend, "sqlite"},
		{"metrics.sinks", len(cfg.Metrics.Sinks), 2},
		{"metrics.influx.bucket", cfg.Metrics.Sinks[1].Conf["bucket"], "repairs"},
		{"publish.qos", cfg.Publish.QoS["shipment"], byte(1)},
		{"publish.topic_prefix default", cfg.Publish.TopicPrefix, "repairsched"},
		{"api.address default", cfg.API.Address, ":8080"},
		{"api.token", cfg.API.Token, "secret"},
		{"output.dir default", cfg.Output.Dir, "out"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
}

func TestLoad_JSONWithEnvOverride(t *testing.T) {
	path := write(t, "config.json", `{"model": {"tau": 12}, "solver": {"gap": 0.05}}`)
	t.Setenv("K_SOLVER__TIME_LIMIT_SECONDS", "5")
	t.Setenv("K_MODEL__WEIGHTS__EMISSIONS", "0.5")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Model.Tau)
	assert.Equal(t, 0.05, cfg.Solver.Gap)
	assert.Equal(t, 5.0, cfg.Solver.TimeLimitSeconds)
	assert.Equal(t, 0.5, cfg.Model.Weights.Emissions)
}

func TestLoad_ExplicitZerosOverrideDefaults(t *testing.T) {
	path := write(t, "config.yaml", "model:\n  weights:\n    emissions: 0\n")
	t.Setenv("K_MODEL__TAU", "0")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Model.Tau)
	assert.Equal(t, 0.0, cfg.Model.Weights.Emissions)
	assert.Equal(t, 1.0, cfg.Model.Weights.LeadTime, "unset weight keeps its default")

	cfg, err = Load(write(t, "empty.yaml", "scenario: x\n"))
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Model.Tau)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(write(t, "config.toml", "tau = 1"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(write(t, "bad.yaml", `model:
  lead_time_objective: "median"
solver:
  gap: 2
runlog:
  backend: "postgres"
publish:
  enabled: true
`))
	require.Error(t, err)
	for _, section := range []string{"model:", "solver:", "runlog:", "publish:"} {
		assert.True(t, strings.Contains(err.Error(), section), "missing %s in %v", section, err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := write(t, ".env", "K_SCENARIO=from-dotenv\n")
	t.Setenv("K_SCENARIO", "")
	require.NoError(t, os.Unsetenv("K_SCENARIO"))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("K_SCENARIO"))
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Scenario)
}
