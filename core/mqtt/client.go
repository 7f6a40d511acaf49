// Package mqtt defines how planned shipments are announced to repairers.
package mqtt

import "time"

// ShipmentOrder announces one physical shipment: the products leaving for a
// repairer on a shipping day.
type ShipmentOrder struct {
	OrderID      string `json:"order_id"`
	RunID        string `json:"run_id"`
	RepairerID   int    `json:"repairer_id"`
	RepairerName string `json:"repairer_name"`
	ShippingDay  int    `json:"shipping_day"`
	ReturnDay    int    `json:"return_day"`
	// Shipment is the 1-based index of the shipment within the day.
	Shipment  int   `json:"shipment"`
	Products  []int `json:"products"`
	Timestamp int64 `json:"timestamp"`
}

// Publisher sends shipment orders to repairers and waits for their
// acknowledgment.
type Publisher interface {
	// PublishShipment sends the order and returns the identifier used to
	// track the acknowledgment.
	PublishShipment(order ShipmentOrder) (orderID string, err error)

	// WaitForAck waits for an acknowledgment of the order or until the
	// timeout expires.
	WaitForAck(orderID string, timeout time.Duration) (bool, error)
}
