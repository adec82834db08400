package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemTransition is one validated transition ready to be persisted.
type ItemTransition struct {
	ItemID       uint64
	OrderID      uint64
	ExpectedFrom *StatusKey // nil when the item has never been transitioned
	FromStatusID *uint
	To           *StatusDefinition

	TrackingNumber   *string // newly supplied, replaces the item's own
	TrackingSnapshot *string // captured into the audit row
	Note             *string

	ChangedBy uuid.UUID
	ChangedAt time.Time
}

// BulkGroup is the set of items sharing one current status within a batch.
type BulkGroup struct {
	ExpectedFrom *StatusKey
	FromStatusID *uint
	ItemIDs      []uint64
}

// BulkTransition is a validated batch ready to be persisted atomically.
type BulkTransition struct {
	Groups         []BulkGroup
	To             *StatusDefinition
	TrackingNumber *string // batch-supplied, fills items without one

	// TrackingByItem holds the audit snapshot per item (existing tracking
	// number, else the batch-supplied one).
	TrackingByItem map[uint64]*string
	// OrderByItem maps each item to its owning order.
	OrderByItem map[uint64]uint64

	ChangedBy uuid.UUID
	ChangedAt time.Time
}

// Repository defines the interface for workflow data access.
type Repository interface {
	GetItem(ctx context.Context, id uint64) (*OrderItem, error)
	GetItems(ctx context.Context, ids []uint64) ([]OrderItem, error)
	GetOrder(ctx context.Context, id uint64) (*Order, error)
	GetOrderItems(ctx context.Context, orderID uint64) ([]OrderItem, error)
	ListItemHistory(ctx context.Context, itemID uint64) ([]StatusHistoryEntry, error)
	ListStatusDefinitions(ctx context.Context) ([]StatusDefinition, error)

	// ApplyTransition persists one transition: a compare-and-swap status
	// update plus exactly one audit row, in one transaction. It returns the
	// owning order's items as read inside that transaction, for derivation.
	ApplyTransition(ctx context.Context, t ItemTransition) ([]OrderItem, error)

	// ApplyBulkTransition persists a batch atomically: one compare-and-swap
	// update per status group and a single batched audit insert covering the
	// rows that actually changed. It returns the ids that were updated;
	// items lost to a concurrent writer are simply absent from the result.
	ApplyBulkTransition(ctx context.Context, t BulkTransition) ([]uint64, error)

	UpdateOrderDerivedStatus(ctx context.Context, orderID uint64, def *StatusDefinition) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new workflow repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetItem(ctx context.Context, id uint64) (*OrderItem, error) {
	var item OrderItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) GetItems(ctx context.Context, ids []uint64) ([]OrderItem, error) {
	var items []OrderItem
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *repository) GetOrder(ctx context.Context, id uint64) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetOrderItems(ctx context.Context, orderID uint64) ([]OrderItem, error) {
	var items []OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error
	return items, err
}

func (r *repository) ListItemHistory(ctx context.Context, itemID uint64) ([]StatusHistoryEntry, error) {
	var entries []StatusHistoryEntry
	err := r.db.WithContext(ctx).
		Where("order_item_id = ?", itemID).
		Order("changed_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListStatusDefinitions(ctx context.Context) ([]StatusDefinition, error) {
	var defs []StatusDefinition
	err := r.db.WithContext(ctx).Order("rank ASC").Find(&defs).Error
	return defs, err
}

func (r *repository) ApplyTransition(ctx context.Context, t ItemTransition) ([]OrderItem, error) {
	var orderItems []OrderItem

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := casScope(tx.Model(&OrderItem{}), t.ExpectedFrom).
			Where("id = ?", t.ItemID).
			Updates(transitionColumns(t.To, t.TrackingNumber, false, t.ChangedBy, t.ChangedAt))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another request moved the item first (or it was deleted with
			// its order); either way this transition no longer applies.
			return ErrConcurrentModification
		}

		entry := StatusHistoryEntry{
			OrderItemID:      t.ItemID,
			OrderID:          t.OrderID,
			FromStatusID:     t.FromStatusID,
			ToStatusID:       t.To.ID,
			ChangedBy:        t.ChangedBy,
			TrackingSnapshot: t.TrackingSnapshot,
			Note:             t.Note,
			ChangedAt:        t.ChangedAt,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		// The derivation input is read inside the transaction so the
		// aggregate is computed against a consistent snapshot.
		return tx.Where("order_id = ?", t.OrderID).Find(&orderItems).Error
	})
	if err != nil {
		return nil, err
	}
	return orderItems, nil
}

func (r *repository) ApplyBulkTransition(ctx context.Context, t BulkTransition) ([]uint64, error) {
	var updatedIDs []uint64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updatedIDs = updatedIDs[:0]
		var entries []StatusHistoryEntry

		for _, group := range t.Groups {
			var updated []OrderItem
			res := casScope(tx.Model(&updated), group.ExpectedFrom).
				Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
				Where("id IN ?", group.ItemIDs).
				Updates(transitionColumns(t.To, t.TrackingNumber, true, t.ChangedBy, t.ChangedAt))
			if res.Error != nil {
				return res.Error
			}

			for _, item := range updated {
				updatedIDs = append(updatedIDs, item.ID)
				entries = append(entries, StatusHistoryEntry{
					OrderItemID:      item.ID,
					OrderID:          t.OrderByItem[item.ID],
					FromStatusID:     group.FromStatusID,
					ToStatusID:       t.To.ID,
					ChangedBy:        t.ChangedBy,
					TrackingSnapshot: t.TrackingByItem[item.ID],
					ChangedAt:        t.ChangedAt,
				})
			}
		}

		if len(entries) == 0 {
			return nil
		}
		// One row per updated item, fanned out in memory, single insert.
		return tx.Create(&entries).Error
	})
	if err != nil {
		return nil, err
	}
	return updatedIDs, nil
}

func (r *repository) UpdateOrderDerivedStatus(ctx context.Context, orderID uint64, def *StatusDefinition) error {
	return r.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"derived_status_key":   def.Key,
			"derived_status_label": def.Label,
			"derived_status_color": def.Color,
		}).Error
}

// casScope narrows an item update to the status the caller read, so a
// concurrent writer makes the update miss instead of being silently
// overwritten.
func casScope(q *gorm.DB, expectedFrom *StatusKey) *gorm.DB {
	if expectedFrom == nil {
		return q.Where("current_status_key IS NULL")
	}
	return q.Where("current_status_key = ?", *expectedFrom)
}

// transitionColumns builds the column set shared by single and bulk updates.
// A number supplied for one item replaces whatever the item carried; the
// batch-level number (fillOnly) only fills items without their own.
func transitionColumns(to *StatusDefinition, tracking *string, fillOnly bool, changedBy uuid.UUID, changedAt time.Time) map[string]any {
	updates := map[string]any{
		"current_status_key": to.Key,
		"status_updated_at":  changedAt,
		"status_updated_by":  changedBy,
		"updated_at":         changedAt,
	}
	if tracking != nil {
		if fillOnly {
			updates["tracking_number"] = gorm.Expr("COALESCE(tracking_number, ?)", *tracking)
		} else {
			updates["tracking_number"] = *tracking
		}
	}
	if to.IsTerminal {
		updates["closed_at"] = changedAt
	}
	return updates
}
