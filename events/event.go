package events

import (
	"time"

	"bakery-orders/models"

	"github.com/google/uuid"
)

// Event types carried in the envelope.
const (
	TypeOrderPlaced    = "order_placed"
	TypeOrderCancelled = "order_cancelled"
)

// AMQP routing keys for the order exchange.
const (
	KeyOrderPlaced    = "order.placed"
	KeyOrderCancelled = "order.cancelled"
)

// OrderPayload is the slice of order state consumers need to build a
// notification without reading the store.
type OrderPayload struct {
	TotalAmount   float64 `json:"total_amount"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"`
	ItemCount     int     `json:"item_count"`
}

// OrderEvent is emitted after an order-mutating write commits. Delivery is
// best-effort; the emitting operation never waits on consumers.
type OrderEvent struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"`
	OrderID    string       `json:"order_id"`
	UserID     string       `json:"user_id"`
	Payload    OrderPayload `json:"payload"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// NewOrderEvent builds an envelope from the committed order state.
func NewOrderEvent(eventType string, order *models.Order) OrderEvent {
	return OrderEvent{
		ID:      uuid.NewString(),
		Type:    eventType,
		OrderID: order.ID.Hex(),
		UserID:  order.UserID.Hex(),
		Payload: OrderPayload{
			TotalAmount:   order.TotalAmount,
			PaymentMethod: string(order.PaymentMethod),
			Status:        string(order.Status),
			ItemCount:     len(order.Items),
		},
		OccurredAt: time.Now().UTC(),
	}
}

// RoutingKey maps the event type to its routing key.
func (e OrderEvent) RoutingKey() string {
	if e.Type == TypeOrderCancelled {
		return KeyOrderCancelled
	}
	return KeyOrderPlaced
}
