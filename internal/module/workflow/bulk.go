package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/brahimakil/chibox-cms-sub000/internal/shared/actor"
	"go.uber.org/zap"
)

// ApplyBulk moves a set of items to one target status with per-item
// partial-failure reporting. Items are grouped by current status so the
// validator runs once per distinct status, all accepted updates and their
// audit rows commit as one transaction, and every distinct affected order
// is re-derived exactly once.
//
// When nothing in the batch is transitionable the returned error wraps
// ErrNoItemsTransitionable and the result still carries the full skip list.
// A selection that matches no items at all fails with ErrNoValidItems.
func (s *Service) ApplyBulk(ctx context.Context, act actor.Context, req BulkTransitionRequest) (*BulkResult, error) {
	role := Role(act.Role)

	if err := s.checkSuperAction(act, req.ToStatus); err != nil {
		return nil, err
	}

	ids := dedupeIDs(req.ItemIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty selection", ErrNoValidItems)
	}
	if len(ids) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d items exceeds limit of %d", ErrBatchTooLarge, len(ids), s.maxBatchSize)
	}

	target, ok := s.catalog.Get(req.ToStatus)
	if !ok || !target.IsActive {
		return nil, ErrUnknownStatus
	}

	if s.metrics != nil {
		s.metrics.BulkBatchSize.Observe(float64(len(ids)))
	}

	items, err := s.repo.GetItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{
		TargetStatus:       StatusRef{Key: target.Key, Label: target.Label},
		OrderStatusChanges: make(map[uint64]DerivedStatus),
	}

	byID := make(map[uint64]*OrderItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			result.skip(id, ReasonItemNotFound)
		}
	}

	// Partition by current status so each distinct status validates once.
	groups := make(map[StatusKey][]*OrderItem)
	var order []StatusKey
	for i := range items {
		from := s.effectiveFrom(&items[i])
		if _, seen := groups[from]; !seen {
			order = append(order, from)
		}
		groups[from] = append(groups[from], &items[i])
	}

	batch := BulkTransition{
		To:             target,
		TrackingNumber: req.TrackingNumber,
		TrackingByItem: make(map[uint64]*string),
		OrderByItem:    make(map[uint64]uint64),
		ChangedBy:      act.ID,
		ChangedAt:      time.Now().UTC(),
	}

	validIDs := make(map[uint64]bool)
	for _, from := range order {
		members := groups[from]
		decision := s.validator.Validate(from, role, req.ToStatus)
		if !decision.Allowed {
			for _, item := range members {
				result.skip(item.ID, decision.Reason)
			}
			continue
		}

		// A never-transitioned item validates from the initial status but its
		// stored key is NULL, so it compare-and-swaps in its own subgroup.
		fromKey := from
		seeded := BulkGroup{
			ExpectedFrom: &fromKey,
			FromStatusID: s.statusID(&fromKey),
		}
		var fresh BulkGroup
		for _, item := range members {
			if decision.RequiresTracking && item.TrackingNumber == nil && req.TrackingNumber == nil {
				result.skip(item.ID, ReasonMissingTracking)
				continue
			}
			if item.CurrentStatusKey == nil {
				fresh.ItemIDs = append(fresh.ItemIDs, item.ID)
			} else {
				seeded.ItemIDs = append(seeded.ItemIDs, item.ID)
			}
			validIDs[item.ID] = true
			batch.OrderByItem[item.ID] = item.OrderID
			if item.TrackingNumber != nil {
				batch.TrackingByItem[item.ID] = item.TrackingNumber
			} else {
				batch.TrackingByItem[item.ID] = req.TrackingNumber
			}
		}
		if len(fresh.ItemIDs) > 0 {
			batch.Groups = append(batch.Groups, fresh)
		}
		if len(seeded.ItemIDs) > 0 {
			batch.Groups = append(batch.Groups, seeded)
		}
	}

	if len(validIDs) == 0 {
		// A selection that matched nothing at all is a bad request, not a
		// batch where every item was refused.
		missingOnly := true
		for _, sk := range result.Skipped {
			if sk.Reason != ReasonItemNotFound {
				missingOnly = false
				break
			}
		}
		if missingOnly {
			return nil, fmt.Errorf("%w: no matching items", ErrNoValidItems)
		}
		result.SkippedCount = len(result.Skipped)
		s.countBulkSkips(result)
		return result, ErrNoItemsTransitionable
	}

	updatedIDs, err := s.repo.ApplyBulkTransition(ctx, batch)
	if err != nil {
		s.countTransition(role, req.ToStatus, "failed")
		return nil, err
	}

	// Items a concurrent writer moved between our read and the update are
	// absent from the returned set.
	updated := make(map[uint64]bool, len(updatedIDs))
	for _, id := range updatedIDs {
		updated[id] = true
	}
	for id := range validIDs {
		if !updated[id] {
			result.skip(id, ReasonConcurrentChange)
		}
	}

	result.UpdatedCount = len(updatedIDs)
	result.SkippedCount = len(result.Skipped)
	sort.Slice(result.Skipped, func(i, j int) bool { return result.Skipped[i].ItemID < result.Skipped[j].ItemID })
	s.countBulkSkips(result)
	s.countTransition(role, req.ToStatus, "applied")

	s.logger.Info("bulk transition applied",
		zap.Int("requested", len(ids)),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.String("to", string(target.Key)),
		zap.String("actor_id", act.ID.String()),
		zap.String("role", string(role)),
	)

	for _, orderID := range distinctOrders(updatedIDs, batch.OrderByItem) {
		if derived := s.recomputeOrder(ctx, orderID, nil, act.ID); derived != nil {
			result.OrderStatusChanges[orderID] = *derived
		}
	}

	return result, nil
}

func (s *Service) countBulkSkips(result *BulkResult) {
	if s.metrics == nil {
		return
	}
	for _, sk := range result.Skipped {
		s.metrics.BulkSkippedTotal.WithLabelValues(string(sk.Reason)).Inc()
	}
}

// distinctOrders returns each affected order id once, in ascending order.
func distinctOrders(itemIDs []uint64, orderByItem map[uint64]uint64) []uint64 {
	seen := make(map[uint64]bool)
	var out []uint64
	for _, id := range itemIDs {
		orderID := orderByItem[id]
		if seen[orderID] {
			continue
		}
		seen[orderID] = true
		out = append(out, orderID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
