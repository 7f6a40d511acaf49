// Package runlog persists one record per optimization run and answers
// history queries. Records can be kept in a plain JSONL file, a rotating
// JSONL file or a SQLite database.
package runlog

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/repairsched/core/optimize"
)

// Record summarizes one run.
type Record struct {
	RunID      string              `json:"run_id"`
	Timestamp  time.Time           `json:"timestamp"`
	Scenario   string              `json:"scenario,omitempty"`
	Status     string              `json:"status"`
	Objective  float64             `json:"objective"`
	// Gap is -1 when the search stopped without a bound.
	Gap        float64             `json:"gap"`
	Nodes      int                 `json:"nodes"`
	DurationMS int64               `json:"duration_ms"`
	Products   int                 `json:"products"`
	Repairers  int                 `json:"repairers"`
	Components optimize.Components `json:"components"`
	// Assignments counts products per repairer name.
	Assignments map[string]int `json:"assignments,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// finite replaces values JSON cannot carry: an unknown objective becomes 0
// and an unknown gap -1.
func (r Record) finite() Record {
	if math.IsNaN(r.Objective) || math.IsInf(r.Objective, 0) {
		r.Objective = 0
	}
	if math.IsNaN(r.Gap) || math.IsInf(r.Gap, 0) {
		r.Gap = -1
	}
	return r
}

// Query filters records. Zero values match everything.
type Query struct {
	Start  time.Time
	End    time.Time
	Status string
	RunID  string
	// Limit keeps only the most recent records when positive.
	Limit int
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	return true
}

func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists run records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and configures a store.
type Config struct {
	// Backend is "jsonl", "rotating" or "sqlite".
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// MaxSizeMB triggers rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "runs.jsonl"
	}
	if c.Backend == "rotating" && c.MaxSizeMB == 0 {
		c.MaxSizeMB = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "jsonl", "rotating", "sqlite":
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// Open creates the store selected by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return NewJSONLStore(cfg.Path)
	}
}
