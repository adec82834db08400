package events

import (
	"strconv"

	"github.com/google/uuid"
)

// Workflow event type constants.
const (
	OrderStatusChangedType = "OrderStatusChanged"
)

// OrderStatusChangedEvent is emitted when an order's derived status changes
// after one or more of its items transitioned.
type OrderStatusChangedEvent struct {
	BaseEvent

	// OrderID is the order whose derived status changed.
	OrderID uint64 `json:"order_id"`

	// FromStatusKey is the previous derived status key (empty for a
	// never-derived order).
	FromStatusKey string `json:"from_status_key,omitempty"`

	// ToStatusKey is the new derived status key.
	ToStatusKey string `json:"to_status_key"`

	// ToStatusLabel is the display label of the new status.
	ToStatusLabel string `json:"to_status_label"`

	// ChangedBy is the actor whose transition caused the recomputation.
	ChangedBy uuid.UUID `json:"changed_by"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent.
func NewOrderStatusChangedEvent(orderID uint64, fromKey, toKey, toLabel string, changedBy uuid.UUID) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseEvent:     NewBaseEvent(OrderStatusChangedType, strconv.FormatUint(orderID, 10)),
		OrderID:       orderID,
		FromStatusKey: fromKey,
		ToStatusKey:   toKey,
		ToStatusLabel: toLabel,
		ChangedBy:     changedBy,
	}
}
