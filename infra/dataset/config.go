package dataset

import (
	"errors"
	"path/filepath"
)

// Config locates the CSV files of a dataset. File names are relative to Dir
// unless absolute.
type Config struct {
	Dir         string `json:"dir"`
	Products    string `json:"products"`
	Defects     string `json:"defects"`
	Repairers   string `json:"repairers"`
	RepairCosts string `json:"repair_costs"`
	// Customers is optional; a missing file yields no customers.
	Customers string `json:"customers"`
	Requests  string `json:"repair_requests"`
}

// SetDefaults applies the conventional file names.
func (c *Config) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "data"
	}
	if c.Products == "" {
		c.Products = "products.csv"
	}
	if c.Defects == "" {
		c.Defects = "defects.csv"
	}
	if c.Repairers == "" {
		c.Repairers = "repairers.csv"
	}
	if c.RepairCosts == "" {
		c.RepairCosts = "repair_costs.csv"
	}
	if c.Customers == "" {
		c.Customers = "customers.csv"
	}
	if c.Requests == "" {
		c.Requests = "repair_requests.csv"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.New("data dir is required")
	}
	return nil
}

func (c Config) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}
