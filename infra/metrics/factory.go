package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/repairsched/core/factory"
	coremetrics "github.com/kilianp07/repairsched/core/metrics"
)

// Registry is the Prometheus registry used by sinks created through the
// factory. It is exposed by the serve command and pushed by batch runs.
var Registry = prometheus.NewRegistry()

// PromConfig configures the prometheus sink.
type PromConfig struct {
	// DefaultRegistry registers on the global registry instead of Registry.
	DefaultRegistry bool `json:"default_registry"`
}

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", factory.Typed(func(c PromConfig) (coremetrics.MetricsSink, error) {
		if c.DefaultRegistry {
			return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
		}
		return NewPromSinkWithRegistry(Registry)
	}))

	_ = coremetrics.RegisterMetricsSink("influx", factory.Typed(func(c InfluxConfig) (coremetrics.MetricsSink, error) {
		return NewInfluxSinkWithFallback(c), nil
	}))
}
