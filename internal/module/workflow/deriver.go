package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const orderStatusCachePrefix = "order_status:"

// Deriver computes an order's aggregate status from its item statuses and
// maintains the cached copy on the order row.
type Deriver struct {
	catalog  *Catalog
	repo     Repository
	cache    redis.UniversalClient // optional
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDeriver creates a new order-status deriver. cache may be nil.
func NewDeriver(catalog *Catalog, repo Repository, cache redis.UniversalClient, cacheTTL time.Duration, logger *zap.Logger) *Deriver {
	return &Deriver{
		catalog:  catalog,
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Derive computes the aggregate status for the given set of items. It is
// pure: no I/O, deterministic for a given item set.
//
// An order is only as advanced as its least-advanced active line item, so
// among non-terminal items the lowest rank wins. When every item is
// terminal, the most recently changed item's status represents the order
// (latest status_updated_at, then highest id). An order with no items sits
// at the pipeline's initial status by convention.
func (d *Deriver) Derive(items []OrderItem) *StatusDefinition {
	if len(items) == 0 {
		return d.catalog.Initial()
	}

	var lowest *StatusDefinition
	var latestTerminal *StatusDefinition
	var latestAt time.Time
	var latestID uint64

	for i := range items {
		item := &items[i]
		def, ok := d.catalog.Resolve(item.CurrentStatusKey)
		if !ok {
			// A status retired from the catalog while items still carry it;
			// treat those items as inactive rather than guessing a rank.
			d.logger.Warn("item carries unknown status key",
				zap.Uint64("item_id", item.ID),
				zap.String("status_key", string(*item.CurrentStatusKey)),
			)
			continue
		}

		if def.IsTerminal {
			changedAt := time.Time{}
			if item.StatusUpdatedAt != nil {
				changedAt = *item.StatusUpdatedAt
			}
			if latestTerminal == nil || changedAt.After(latestAt) ||
				(changedAt.Equal(latestAt) && item.ID > latestID) {
				latestTerminal = def
				latestAt = changedAt
				latestID = item.ID
			}
			continue
		}

		if lowest == nil || def.Rank < lowest.Rank {
			lowest = def
		}
	}

	if lowest != nil {
		return lowest
	}
	if latestTerminal != nil {
		return latestTerminal
	}
	return d.catalog.Initial()
}

// RecomputeFromItems derives the order's status from items already read
// (typically inside the transition transaction), persists it to the order
// row, and refreshes the cache. It returns the new derived status together
// with the previously cached key (nil for a never-derived order) so callers
// can tell whether the aggregate actually moved.
func (d *Deriver) RecomputeFromItems(ctx context.Context, orderID uint64, items []OrderItem) (*DerivedStatus, *StatusKey, error) {
	def := d.Derive(items)

	order, err := d.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	previous := order.DerivedStatusKey

	if err := d.repo.UpdateOrderDerivedStatus(ctx, orderID, def); err != nil {
		return nil, nil, err
	}

	derived := &DerivedStatus{Key: def.Key, Label: def.Label, Color: def.Color}
	d.cacheSet(ctx, orderID, derived)
	return derived, previous, nil
}

// Recompute loads the order's items and recomputes its derived status.
func (d *Deriver) Recompute(ctx context.Context, orderID uint64) (*DerivedStatus, *StatusKey, error) {
	items, err := d.repo.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return d.RecomputeFromItems(ctx, orderID, items)
}

// CachedStatus returns the cached derived status for an order, falling back
// to the order row when the cache misses or is unavailable.
func (d *Deriver) CachedStatus(ctx context.Context, orderID uint64) (*DerivedStatus, error) {
	if d.cache != nil {
		data, err := d.cache.Get(ctx, cacheKey(orderID)).Bytes()
		if err == nil {
			var derived DerivedStatus
			if err := json.Unmarshal(data, &derived); err == nil {
				return &derived, nil
			}
		}
	}

	order, err := d.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.DerivedStatusKey == nil {
		// Never derived; compute on demand.
		derived, _, err := d.Recompute(ctx, orderID)
		return derived, err
	}

	derived := &DerivedStatus{
		Key:   *order.DerivedStatusKey,
		Label: order.DerivedStatusLabel,
		Color: order.DerivedStatusColor,
	}
	d.cacheSet(ctx, orderID, derived)
	return derived, nil
}

func (d *Deriver) cacheSet(ctx context.Context, orderID uint64, derived *DerivedStatus) {
	if d.cache == nil {
		return
	}
	data, err := json.Marshal(derived)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, cacheKey(orderID), data, d.cacheTTL).Err(); err != nil {
		d.logger.Warn("failed to cache derived order status",
			zap.Uint64("order_id", orderID),
			zap.Error(err),
		)
	}
}

func cacheKey(orderID uint64) string {
	return fmt.Sprintf("%s%d", orderStatusCachePrefix, orderID)
}
