package workflow

import (
	"time"

	"github.com/google/uuid"
)

// TransitionRequest asks to move one item to a target status.
type TransitionRequest struct {
	ToStatus       StatusKey `json:"to_status" binding:"required"`
	TrackingNumber *string   `json:"tracking_number,omitempty"`
	Note           *string   `json:"note,omitempty"`
}

// BulkTransitionRequest asks to move a set of items to one target status.
type BulkTransitionRequest struct {
	ItemIDs        []uint64  `json:"item_ids" binding:"required"`
	ToStatus       StatusKey `json:"to_status" binding:"required"`
	TrackingNumber *string   `json:"tracking_number,omitempty"`
}

// CommonTransitionsRequest asks which transitions apply to every item of a
// heterogeneous selection.
type CommonTransitionsRequest struct {
	ItemIDs []uint64 `json:"item_ids" binding:"required"`
}

// StatusRef is a status key with its display label.
type StatusRef struct {
	Key   StatusKey `json:"key"`
	Label string    `json:"label"`
}

// DerivedStatus is an order's recomputed aggregate status.
type DerivedStatus struct {
	Key   StatusKey `json:"key"`
	Label string    `json:"label"`
	Color string    `json:"color,omitempty"`
}

// AllowedTransition is one legal next move for a role.
type AllowedTransition struct {
	ToStatusKey      StatusKey `json:"to_status_key"`
	ToStatusLabel    string    `json:"to_status_label"`
	RequiresTracking bool      `json:"requires_tracking"`
	IsTerminal       bool      `json:"is_terminal"`
}

// SkippedItem reports one item a bulk transition did not apply to and why.
type SkippedItem struct {
	ItemID  uint64     `json:"item_id"`
	Reason  ReasonKind `json:"reason"`
	Message string     `json:"message"`
}

// TransitionResult is the outcome of a successful single-item transition.
type TransitionResult struct {
	ItemID      uint64         `json:"item_id"`
	OrderID     uint64         `json:"order_id"`
	Status      StatusRef      `json:"status"`
	UpdatedAt   time.Time      `json:"updated_at"`
	OrderStatus *DerivedStatus `json:"order_status,omitempty"`
}

// BulkResult is the outcome of a bulk transition. Partial success is a
// first-class outcome: UpdatedCount > 0 with a non-empty Skipped list means
// some items moved and the rest were rejected individually.
type BulkResult struct {
	UpdatedCount       int                      `json:"updated_count"`
	SkippedCount       int                      `json:"skipped_count"`
	Skipped            []SkippedItem            `json:"skipped"`
	TargetStatus       StatusRef                `json:"target_status"`
	OrderStatusChanges map[uint64]DerivedStatus `json:"order_status_changes"`
}

func (r *BulkResult) skip(itemID uint64, reason ReasonKind) {
	r.Skipped = append(r.Skipped, SkippedItem{ItemID: itemID, Reason: reason, Message: reason.Message()})
}

// FullySucceeded reports whether every requested item was updated.
func (r *BulkResult) FullySucceeded() bool {
	return r.UpdatedCount > 0 && len(r.Skipped) == 0
}

// PartiallySucceeded reports whether some items were updated and others skipped.
func (r *BulkResult) PartiallySucceeded() bool {
	return r.UpdatedCount > 0 && len(r.Skipped) > 0
}

// HistoryEntryResponse is one audit-trail row in API responses.
type HistoryEntryResponse struct {
	ID               uint64     `json:"id"`
	OrderItemID      uint64     `json:"order_item_id"`
	OrderID          uint64     `json:"order_id"`
	FromStatus       *StatusRef `json:"from_status,omitempty"`
	ToStatus         StatusRef  `json:"to_status"`
	ChangedBy        uuid.UUID  `json:"changed_by"`
	TrackingSnapshot *string    `json:"tracking_snapshot,omitempty"`
	Note             *string    `json:"note,omitempty"`
	ChangedAt        time.Time  `json:"changed_at"`
}

// StatusResponse is one catalog entry in API responses.
type StatusResponse struct {
	Key        StatusKey `json:"key"`
	Label      string    `json:"label"`
	Color      string    `json:"color,omitempty"`
	Rank       int       `json:"rank"`
	IsTerminal bool      `json:"is_terminal"`
	IsActive   bool      `json:"is_active"`
}
