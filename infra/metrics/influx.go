package metrics

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/repairsched/core/metrics"
	"github.com/kilianp07/repairsched/infra/logger"
)

// InfluxSink writes solve results to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig holds the connection settings of an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// Validate requires the endpoint and the bucket.
func (c *InfluxConfig) Validate() error {
	if c.URL == "" || c.Bucket == "" {
		return errors.New("influx: url and bucket are required")
	}
	return nil
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSolve writes one solve_run point.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c := ev.Components
	p := write.NewPointWithMeasurement("solve_run").
		AddTag("run_id", ev.RunID).
		AddTag("status", ev.Status)
	if ev.Scenario != "" {
		p = p.AddTag("scenario", ev.Scenario)
	}
	p = p.AddField("objective", round3(ev.Objective)).
		AddField("gap", round3(ev.Gap)).
		AddField("nodes", ev.Nodes).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		AddField("products", ev.Products).
		AddField("lead_time", round3(c.LeadTime)).
		AddField("shipping_cost", round3(c.ShippingCost)).
		AddField("quality_drop", round3(c.QualityDrop)).
		AddField("repair_cost", round3(c.RepairCost)).
		AddField("emissions", round3(c.Emissions)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordShipments writes one shipment_batch point per repairer and day.
func (s *InfluxSink) RecordShipments(evs []coremetrics.ShipmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("shipment_batch").
			AddTag("run_id", ev.RunID).
			AddTag("repairer_id", strconv.Itoa(ev.RepairerID)).
			AddTag("repairer", ev.RepairerName).
			AddField("day", ev.Day).
			AddField("products", ev.Products).
			AddField("batches", ev.Batches).
			AddField("shipping_cost", round3(ev.ShippingCost)).
			AddField("emissions", round3(ev.Emissions)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordIncumbent writes search progress.
func (s *InfluxSink) RecordIncumbent(ev coremetrics.IncumbentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("solver_incumbent").
		AddTag("run_id", ev.RunID).
		AddField("objective", round3(ev.Objective)).
		AddField("nodes", ev.Nodes).
		AddField("elapsed_ms", ev.Elapsed.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFailure writes a failed run.
func (s *InfluxSink) RecordFailure(ev coremetrics.FailureEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("run_failed").
		AddTag("run_id", ev.RunID).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*1000) / 1000
}
