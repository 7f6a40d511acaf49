package metrics

import "github.com/kilianp07/repairsched/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PushgatewayURL, when set, receives the Prometheus registry after each
	// batch run.
	PushgatewayURL string `json:"pushgateway_url"`
	// PushJob is the job label used on the Pushgateway.
	PushJob string `json:"push_job"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PushJob == "" {
		c.PushJob = "repairsched"
	}
}
