package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config names the report files of a run. An empty name skips that report.
type Config struct {
	Dir           string `json:"dir"`
	ScheduleCSV   string `json:"schedule_csv"`
	BatchesCSV    string `json:"batches_csv"`
	JSON          string `json:"json"`
	DashboardHTML string `json:"dashboard_html"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "out"
	}
	if c.ScheduleCSV == "" && c.BatchesCSV == "" && c.JSON == "" && c.DashboardHTML == "" {
		c.ScheduleCSV = "scheduling_results.csv"
		c.BatchesCSV = "batches.csv"
		c.JSON = "schedule.json"
		c.DashboardHTML = "scheduling_dashboard.html"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.New("output dir is required")
	}
	return nil
}

// WriteAll writes every configured report into cfg.Dir and returns the paths
// written.
func WriteAll(cfg Config, doc Document) ([]string, error) {
	if doc.Schedule == nil {
		return nil, errors.New("no schedule to export")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	reports := []struct {
		name  string
		write func(io.Writer) error
	}{
		{cfg.ScheduleCSV, func(w io.Writer) error { return WriteScheduleCSV(w, doc.Schedule.Entries) }},
		{cfg.BatchesCSV, func(w io.Writer) error { return WriteBatchCSV(w, doc.Schedule.Batches) }},
		{cfg.JSON, func(w io.Writer) error { return WriteJSON(w, doc) }},
		{cfg.DashboardHTML, func(w io.Writer) error { return WriteDashboard(w, doc) }},
	}
	var paths []string
	for _, r := range reports {
		if r.name == "" {
			continue
		}
		path := filepath.Join(cfg.Dir, r.name)
		if err := writeFile(path, r.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
