package app

import (
	"errors"
	"fmt"
	"time"

	coremqtt "github.com/kilianp07/repairsched/core/mqtt"
	"github.com/kilianp07/repairsched/core/schedule"
)

// publish sends one order per physical shipment and, when an ack timeout is
// configured, waits for each repairer to acknowledge. It returns the number
// of orders sent and the ids left unacknowledged.
func (s *Service) publish(runID string, sched *schedule.Schedule) (int, []string, error) {
	var (
		ids  []string
		errs []error
	)
	for _, b := range sched.Batches {
		for i, sh := range b.Shipments {
			order := coremqtt.ShipmentOrder{
				RunID:        runID,
				RepairerID:   b.RepairerID,
				RepairerName: b.RepairerName,
				ShippingDay:  b.Day,
				ReturnDay:    b.ReturnDay,
				Shipment:     i + 1,
				Products:     sh.Products,
				Timestamp:    time.Now().Unix(),
			}
			id, err := s.publisher.PublishShipment(order)
			if err != nil {
				errs = append(errs, fmt.Errorf("repairer %d day %d shipment %d: %w", b.RepairerID, b.Day, i+1, err))
				continue
			}
			ids = append(ids, id)
		}
	}

	var unacked []string
	if timeout := s.cfg.Publish.AckTimeout(); timeout > 0 {
		for _, id := range ids {
			ok, err := s.publisher.WaitForAck(id, timeout)
			if !ok {
				s.log.Warnf("order %s not acknowledged: %v", id, err)
				unacked = append(unacked, id)
			}
		}
	}
	return len(ids), unacked, errors.Join(errs...)
}
