package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Order is the aggregate owning a set of line items. Its derived status
// fields are a display cache recomputed whenever an owned item transitions;
// item statuses remain the system of truth.
type Order struct {
	ID                 uint64     `json:"id" gorm:"primaryKey"`
	OrderNo            string     `json:"order_no" gorm:"uniqueIndex;not null"`
	DerivedStatusKey   *StatusKey `json:"derived_status_key,omitempty"`
	DerivedStatusLabel string     `json:"derived_status_label,omitempty"`
	DerivedStatusColor string     `json:"derived_status_color,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Relations
	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// OrderItem is one fulfillment line item. Its status is mutated only through
// the transition services, never by direct field edits.
type OrderItem struct {
	ID               uint64     `json:"id" gorm:"primaryKey"`
	OrderID          uint64     `json:"order_id" gorm:"not null;index"`
	ProductReference string     `json:"product_reference" gorm:"not null"`
	Quantity         int        `json:"quantity" gorm:"default:1"`
	TrackingNumber   *string    `json:"tracking_number,omitempty"`
	CurrentStatusKey *StatusKey `json:"current_status_key,omitempty" gorm:"index"`
	StatusUpdatedAt  *time.Time `json:"status_updated_at,omitempty"`
	StatusUpdatedBy  *uuid.UUID `json:"status_updated_by,omitempty" gorm:"type:uuid"`
	// ClosedAt mirrors entry into a terminal status for legacy consumers.
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (OrderItem) TableName() string {
	return "order_items"
}

// StatusHistoryEntry is the append-only audit record of one transition.
// Entries are written exactly once per successful transition and never
// updated or deleted; the item's current status is a cache of the latest one.
type StatusHistoryEntry struct {
	ID          uint64 `json:"id" gorm:"primaryKey"`
	OrderItemID uint64 `json:"order_item_id" gorm:"not null;index"`
	// OrderID is denormalized for query locality on per-order forensics.
	OrderID          uint64    `json:"order_id" gorm:"not null;index"`
	FromStatusID     *uint     `json:"from_status_id,omitempty"` // nil on first transition
	ToStatusID       uint      `json:"to_status_id" gorm:"not null"`
	ChangedBy        uuid.UUID `json:"changed_by" gorm:"type:uuid;not null"`
	TrackingSnapshot *string   `json:"tracking_snapshot,omitempty"`
	Note             *string   `json:"note,omitempty"`
	ChangedAt        time.Time `json:"changed_at" gorm:"not null;index"`
}

// TableName returns the database table name.
func (StatusHistoryEntry) TableName() string {
	return "order_item_status_history"
}
