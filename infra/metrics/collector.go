package metrics

import (
	"context"
	"time"

	coremetrics "github.com/kilianp07/repairsched/core/metrics"
	"github.com/kilianp07/repairsched/core/solver"
	"github.com/kilianp07/repairsched/infra/logger"
	"github.com/kilianp07/repairsched/internal/eventbus"
)

// StartEventCollector subscribes to the solver progress bus and records an
// incumbent event for every improved solution. It stops when the context is
// canceled or the bus is closed; the returned channel is closed on exit.
// Sink errors are logged and do not stop the collector.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[solver.Event], runID string, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.IncumbentRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	log := logger.New("metrics")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if ev.Kind != solver.EventIncumbent {
					continue
				}
				if err := rec.RecordIncumbent(coremetrics.IncumbentEvent{
					RunID:     runID,
					Objective: ev.Objective,
					Nodes:     ev.Nodes,
					Elapsed:   ev.Elapsed,
					Time:      time.Now(),
				}); err != nil {
					log.Warnf("record incumbent for run %s: %v", runID, err)
				}
			}
		}
	}()
	return done
}
