// Package metrics defines the events recorded after an optimization run and
// the sink interfaces consuming them. Sinks such as PromSink and InfluxSink
// live in infra/metrics and register themselves in the sink factory;
// NewMetricsSink returns a MultiSink automatically when multiple sinks are
// configured.
package metrics
