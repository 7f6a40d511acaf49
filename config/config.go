// Package config loads the application configuration from a YAML or JSON
// file with K_ prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/repairsched/core/metrics"
	"github.com/kilianp07/repairsched/core/optimize"
	"github.com/kilianp07/repairsched/core/params"
	"github.com/kilianp07/repairsched/core/runlog"
	"github.com/kilianp07/repairsched/infra/dataset"
	"github.com/kilianp07/repairsched/infra/mqtt"
	"github.com/kilianp07/repairsched/pkg/export"
)

// Config is the root configuration.
type Config struct {
	// Scenario labels runs in the run log and the metrics.
	Scenario string          `json:"scenario"`
	Model    params.Config   `json:"model"`
	Solver   optimize.Config `json:"solver"`
	Data     dataset.Config  `json:"data"`
	Output   export.Config   `json:"output"`
	RunLog   runlog.Config   `json:"runlog"`
	Metrics  metrics.Config  `json:"metrics"`
	Publish  mqtt.Config     `json:"publish"`
	API      APIConfig       `json:"api"`
}

// APIConfig configures the HTTP surface of the serve command.
type APIConfig struct {
	Address string `json:"address"`
	// Token, when set, is required as a Bearer token on /api routes.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Model.SetDefaults()
	c.Solver.SetDefaults()
	c.Data.SetDefaults()
	c.Output.SetDefaults()
	c.RunLog.SetDefaults()
	c.Metrics.SetDefaults()
	c.Publish.SetDefaults()
	c.API.SetDefaults()
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	check := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	check("model", c.Model.Validate())
	check("solver", c.Solver.Validate())
	check("data", c.Data.Validate())
	check("output", c.Output.Validate())
	check("runlog", c.RunLog.Validate())
	check("publish", c.Publish.Validate())
	return errors.Join(errs...)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := Config{Model: params.DefaultConfig()}
	cfg.SetDefaults()
	return &cfg
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration file at path. An empty path starts from the
// defaults. Environment variables prefixed with K_ override file values,
// with __ separating nested keys, e.g. K_SOLVER__TIME_LIMIT_SECONDS=30.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	// keys absent from every source keep the model defaults, explicit zeros win
	cfg := Config{Model: params.DefaultConfig()}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
