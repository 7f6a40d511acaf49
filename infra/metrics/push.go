package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the metrics gathered by g to a Prometheus Pushgateway, grouped
// by run id when one is given.
func Push(ctx context.Context, url, job, runID string, g prometheus.Gatherer) error {
	p := push.New(url, job).Gatherer(g)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
