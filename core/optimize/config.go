package optimize

import (
	"errors"
	"time"
)

// Config holds the solving engine limits.
type Config struct {
	// TimeLimitSeconds bounds the wall-clock time of a solve. Zero means no limit.
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	// Gap is the relative optimality gap accepted as optimal.
	Gap float64 `json:"gap"`
	// NodeLimit caps the branch and bound nodes. Zero means no limit.
	NodeLimit int `json:"node_limit"`
	// SkipHeuristic disables the greedy starting incumbent.
	SkipHeuristic bool `json:"skip_heuristic"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 60
	}
	if c.Gap == 0 {
		c.Gap = 1e-4
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TimeLimitSeconds < 0 {
		return errors.New("time_limit_seconds must not be negative")
	}
	if c.Gap < 0 || c.Gap >= 1 {
		return errors.New("gap must be in [0, 1)")
	}
	if c.NodeLimit < 0 {
		return errors.New("node_limit must not be negative")
	}
	return nil
}

// TimeLimit returns the time limit as a duration.
func (c Config) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds * float64(time.Second))
}
