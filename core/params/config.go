package params

import (
	"errors"
	"fmt"
)

// Lead time objective modes.
const (
	LeadTimeTotal = "total" // sum of per-product lead times
	LeadTimeMax   = "max"   // longest lead time over all products
)

// Weights are the objective weights alpha1..alpha5. The model applies them as
// given; scaling the components to comparable magnitudes is up to the caller.
type Weights struct {
	LeadTime     float64 `json:"lead_time"`
	ShippingCost float64 `json:"shipping_cost"`
	QualityDrop  float64 `json:"quality_drop"`
	RepairCost   float64 `json:"repair_cost"`
	Emissions    float64 `json:"emissions"`
}

// DefaultTau is the lead time bound applied when none is configured.
const DefaultTau = 15

// DefaultWeights weights every component equally.
func DefaultWeights() Weights {
	return Weights{LeadTime: 1, ShippingCost: 1, QualityDrop: 1, RepairCost: 1, Emissions: 1}
}

// Validate rejects negative weights.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"lead_time":     w.LeadTime,
		"shipping_cost": w.ShippingCost,
		"quality_drop":  w.QualityDrop,
		"repair_cost":   w.RepairCost,
		"emissions":     w.Emissions,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative", name)
		}
	}
	return nil
}

// Config holds the load-time constants of one solve. It is passed by value to
// the builder and the model and never mutated afterwards.
type Config struct {
	// Tau is the maximum admissible lead time, arrival to return, in days.
	Tau int `json:"tau"`
	// PlanningStartDay is the first day a shipment can leave.
	PlanningStartDay int `json:"planning_start_day"`
	// HorizonDays bounds the shipping days to
	// [PlanningStartDay, PlanningStartDay+HorizonDays). Zero derives the
	// horizon from tau and the arrival days.
	HorizonDays int `json:"horizon_days"`
	// MaxShipmentsPerDay caps the number of batches a repairer receives on a
	// single day. One means one shipment event per repairer and day.
	MaxShipmentsPerDay int `json:"max_shipments_per_day"`
	// LeadTimeObjective selects how lead time enters the objective: "total"
	// or "max".
	LeadTimeObjective string  `json:"lead_time_objective"`
	Weights           Weights `json:"weights"`
}

// DefaultConfig returns the model defaults. Tau and the weights are only
// defaulted here: zero is a valid explicit value for both.
func DefaultConfig() Config {
	c := Config{Tau: DefaultTau, Weights: DefaultWeights()}
	c.SetDefaults()
	return c
}

// SetDefaults fills the settings whose zero value is never valid.
func (c *Config) SetDefaults() {
	if c.MaxShipmentsPerDay == 0 {
		c.MaxShipmentsPerDay = 1
	}
	if c.LeadTimeObjective == "" {
		c.LeadTimeObjective = LeadTimeTotal
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Tau < 0 {
		return errors.New("tau must not be negative")
	}
	if c.HorizonDays < 0 {
		return errors.New("horizon_days must not be negative")
	}
	if c.MaxShipmentsPerDay < 1 {
		return errors.New("max_shipments_per_day must be at least 1")
	}
	if c.LeadTimeObjective != LeadTimeTotal && c.LeadTimeObjective != LeadTimeMax {
		return fmt.Errorf("unknown lead_time_objective %q", c.LeadTimeObjective)
	}
	return c.Weights.Validate()
}
