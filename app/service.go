// Package app wires the dataset, the optimizer and the outputs of a run.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/repairsched/config"
	coremetrics "github.com/kilianp07/repairsched/core/metrics"
	coremqtt "github.com/kilianp07/repairsched/core/mqtt"
	"github.com/kilianp07/repairsched/core/runlog"
	"github.com/kilianp07/repairsched/infra/logger"
	inframetrics "github.com/kilianp07/repairsched/infra/metrics"
	"github.com/kilianp07/repairsched/infra/mqtt"
)

// Service runs the scheduling pipeline for one configuration.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	store     runlog.Store
	sink      coremetrics.MetricsSink
	publisher coremqtt.Publisher
	gatherer  prometheus.Gatherer
	closers   []func() error
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// WithStore replaces the run log configured in cfg.RunLog.
func WithStore(st runlog.Store) Option { return func(s *Service) { s.store = st } }

// WithSink replaces the metrics sinks configured in cfg.Metrics.
func WithSink(sink coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = sink } }

// WithPublisher publishes shipment orders through p instead of the MQTT
// broker configured in cfg.Publish.
func WithPublisher(p coremqtt.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithGatherer sets the registry pushed to the Pushgateway.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Service) { s.gatherer = g } }

// New creates a Service from the configuration. Components not injected
// through options are built from cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{cfg: cfg}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.New("app")
	}
	if s.gatherer == nil {
		s.gatherer = inframetrics.Registry
	}
	if s.store == nil {
		st, err := runlog.Open(cfg.RunLog)
		if err != nil {
			return nil, fmt.Errorf("run log: %w", err)
		}
		s.store = st
		s.closers = append(s.closers, st.Close)
	}
	if s.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.sink = sink
	}
	if s.publisher == nil && cfg.Publish.Enabled {
		client, err := mqtt.NewPahoClient(cfg.Publish)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.publisher = client
		s.closers = append(s.closers, func() error { client.Disconnect(); return nil })
	}
	return s, nil
}

// Store returns the run log.
func (s *Service) Store() runlog.Store { return s.store }

// Close releases the resources opened by New.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Serve exposes the Prometheus registry on /metrics and the run log on
// /api/runs until ctx is canceled.
func (s *Service) Serve(ctx context.Context) error {
	return inframetrics.Serve(ctx, newServer(s.cfg.API, s.store, s.gatherer))
}
