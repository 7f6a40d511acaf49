package mqtt

import (
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/repairsched/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher records orders in memory. Repairers listed in FailRepairers
// reject publication and those in NoAck never acknowledge.
type MockPublisher struct {
	Orders        []coremqtt.ShipmentOrder
	FailRepairers map[int]bool
	NoAck         map[int]bool
	acks          map[string]bool
	mu            sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailRepairers: make(map[int]bool),
		NoAck:         make(map[int]bool),
		acks:          make(map[string]bool),
	}
}

// PublishShipment records the order or returns an error if configured to fail.
func (m *MockPublisher) PublishShipment(order coremqtt.ShipmentOrder) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRepairers[order.RepairerID] {
		return "", fmt.Errorf("publish failed")
	}
	if order.OrderID == "" {
		order.OrderID = fmt.Sprintf("order-%d-%d-%d", order.RepairerID, order.ShippingDay, order.Shipment)
	}
	m.Orders = append(m.Orders, order)
	m.acks[order.OrderID] = !m.NoAck[order.RepairerID]
	return order.OrderID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(orderID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.acks[orderID]
	m.mu.Unlock()
	if !exists {
		return false, coremqtt.ErrUnknownOrder
	}
	if !ok {
		return false, fmt.Errorf("order %s: %w", orderID, coremqtt.ErrAckTimeout)
	}
	return true, nil
}

// Sent returns a copy of the recorded orders.
func (m *MockPublisher) Sent() []coremqtt.ShipmentOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.ShipmentOrder(nil), m.Orders...)
}
