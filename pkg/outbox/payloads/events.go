package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cafe-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once a cart has been converted into an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	ItemCount   int               `json:"item_count"`
	Status      enums.OrderStatus `json:"status"`
}

// OrderStatusChangedEvent is emitted whenever staff move an order to a new status.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         uuid.UUID         `json:"user_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	ChangedAt      time.Time         `json:"changed_at"`
}

// MessageAttributes lets subscribers filter without decoding the body.
func (e *OrderCreatedEvent) MessageAttributes() map[string]string {
	return map[string]string{"order_number": e.OrderNumber, "status": string(e.Status)}
}

func (e *OrderStatusChangedEvent) MessageAttributes() map[string]string {
	return map[string]string{"order_number": e.OrderNumber, "status": string(e.Status)}
}
