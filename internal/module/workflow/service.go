package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/brahimakil/chibox-cms-sub000/internal/shared/actor"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/events"
	"github.com/brahimakil/chibox-cms-sub000/internal/shared/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements the fulfillment workflow operations: single and bulk
// item transitions, transition queries, and the audit trail.
type Service struct {
	repo       Repository
	catalog    *Catalog
	validator  *Validator
	visibility *VisibilityFilter
	deriver    *Deriver
	bus        *events.Bus
	metrics    *metrics.Metrics
	logger     *zap.Logger

	maxBatchSize int
}

// NewService creates a new workflow service.
func NewService(
	repo Repository,
	catalog *Catalog,
	registry Registry,
	deriver *Deriver,
	bus *events.Bus,
	m *metrics.Metrics,
	logger *zap.Logger,
	maxBatchSize int,
) *Service {
	if maxBatchSize <= 0 {
		maxBatchSize = 200
	}
	return &Service{
		repo:         repo,
		catalog:      catalog,
		validator:    NewValidator(catalog, registry),
		visibility:   NewVisibilityFilter(catalog, DefaultVisibilityScopes()),
		deriver:      deriver,
		bus:          bus,
		metrics:      m,
		logger:       logger,
		maxBatchSize: maxBatchSize,
	}
}

// Apply moves one item to the requested status: validates the transition,
// persists the status update and exactly one audit row atomically, then
// recomputes the owning order's derived status.
func (s *Service) Apply(ctx context.Context, act actor.Context, itemID uint64, req TransitionRequest) (*TransitionResult, error) {
	role := Role(act.Role)

	if err := s.checkSuperAction(act, req.ToStatus); err != nil {
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	from := s.effectiveFrom(item)
	decision := s.validator.Validate(from, role, req.ToStatus)
	if !decision.Allowed {
		s.countTransition(role, req.ToStatus, "denied")
		return nil, denialError(decision)
	}

	if decision.RequiresTracking && req.TrackingNumber == nil && item.TrackingNumber == nil {
		s.countTransition(role, req.ToStatus, "denied")
		return nil, ErrMissingTracking
	}

	target, _ := s.catalog.Get(req.ToStatus)
	changedAt := time.Now().UTC()

	snapshot := item.TrackingNumber
	if req.TrackingNumber != nil {
		snapshot = req.TrackingNumber
	}

	orderItems, err := s.repo.ApplyTransition(ctx, ItemTransition{
		ItemID:           item.ID,
		OrderID:          item.OrderID,
		ExpectedFrom:     item.CurrentStatusKey,
		FromStatusID:     s.statusID(item.CurrentStatusKey),
		To:               target,
		TrackingNumber:   req.TrackingNumber,
		TrackingSnapshot: snapshot,
		Note:             req.Note,
		ChangedBy:        act.ID,
		ChangedAt:        changedAt,
	})
	if err != nil {
		s.countTransition(role, req.ToStatus, "failed")
		return nil, err
	}
	s.countTransition(role, req.ToStatus, "applied")

	s.logger.Info("item transitioned",
		zap.Uint64("item_id", item.ID),
		zap.Uint64("order_id", item.OrderID),
		zap.String("from", string(from)),
		zap.String("to", string(target.Key)),
		zap.String("actor_id", act.ID.String()),
		zap.String("role", string(role)),
	)

	result := &TransitionResult{
		ItemID:    item.ID,
		OrderID:   item.OrderID,
		Status:    StatusRef{Key: target.Key, Label: target.Label},
		UpdatedAt: changedAt,
	}

	// The aggregate write is a post-commit follow-up: the display cache may
	// lag briefly, the item statuses never do.
	result.OrderStatus = s.recomputeOrder(ctx, item.OrderID, orderItems, act.ID)

	return result, nil
}

// AllowedTransitions returns the legal next moves for the item's current
// status under the actor's role, with super-action targets removed when the
// actor lacks the corresponding permission.
func (s *Service) AllowedTransitions(ctx context.Context, act actor.Context, itemID uint64) ([]AllowedTransition, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.allowedFor(act, s.effectiveFrom(item)), nil
}

// CommonTransitions returns the transitions applicable to every item of a
// heterogeneous selection: the intersection of each distinct current
// status's allowed set. Used to drive a bulk-action preview.
func (s *Service) CommonTransitions(ctx context.Context, act actor.Context, itemIDs []uint64) ([]AllowedTransition, error) {
	ids := dedupeIDs(itemIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty selection", ErrNoValidItems)
	}
	if len(ids) > s.maxBatchSize {
		return nil, fmt.Errorf("%w: %d items exceeds limit of %d", ErrBatchTooLarge, len(ids), s.maxBatchSize)
	}

	items, err := s.repo.GetItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoValidItems
	}

	seen := make(map[StatusKey]bool)
	var common map[StatusKey]AllowedTransition
	for i := range items {
		from := s.effectiveFrom(&items[i])
		if seen[from] {
			continue
		}
		seen[from] = true

		allowed := s.allowedFor(act, from)
		if common == nil {
			common = make(map[StatusKey]AllowedTransition, len(allowed))
			for _, t := range allowed {
				common[t.ToStatusKey] = t
			}
			continue
		}
		keep := make(map[StatusKey]AllowedTransition, len(common))
		for _, t := range allowed {
			if _, ok := common[t.ToStatusKey]; ok {
				keep[t.ToStatusKey] = t
			}
		}
		common = keep
	}

	out := make([]AllowedTransition, 0, len(common))
	for _, t := range common {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToStatusKey < out[j].ToStatusKey })
	return out, nil
}

// ItemHistory returns the item's audit trail, newest first.
func (s *Service) ItemHistory(ctx context.Context, itemID uint64) ([]HistoryEntryResponse, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListItemHistory(ctx, itemID)
	if err != nil {
		return nil, err
	}

	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		resp := HistoryEntryResponse{
			ID:               e.ID,
			OrderItemID:      e.OrderItemID,
			OrderID:          e.OrderID,
			ChangedBy:        e.ChangedBy,
			TrackingSnapshot: e.TrackingSnapshot,
			Note:             e.Note,
			ChangedAt:        e.ChangedAt,
		}
		if e.FromStatusID != nil {
			if def, ok := s.catalog.GetByID(*e.FromStatusID); ok {
				resp.FromStatus = &StatusRef{Key: def.Key, Label: def.Label}
			}
		}
		if def, ok := s.catalog.GetByID(e.ToStatusID); ok {
			resp.ToStatus = StatusRef{Key: def.Key, Label: def.Label}
		}
		out[i] = resp
	}
	return out, nil
}

// OrderStatus returns an order's derived status, served from cache when
// possible.
func (s *Service) OrderStatus(ctx context.Context, orderID uint64) (*DerivedStatus, error) {
	return s.deriver.CachedStatus(ctx, orderID)
}

// Statuses returns the status catalog.
func (s *Service) Statuses() []StatusResponse {
	defs := s.catalog.All()
	out := make([]StatusResponse, len(defs))
	for i, def := range defs {
		out[i] = StatusResponse{
			Key:        def.Key,
			Label:      def.Label,
			Color:      def.Color,
			Rank:       def.Rank,
			IsTerminal: def.IsTerminal,
			IsActive:   def.IsActive,
		}
	}
	return out
}

// VisibleStatusKeys returns the statuses the actor's role may enumerate,
// or nil when unrestricted. Listing collaborators scope their queries on it.
func (s *Service) VisibleStatusKeys(role Role) []StatusKey {
	return s.visibility.VisibleStatusKeys(role)
}

// --- Helpers shared with the bulk path ---

// checkSuperAction enforces the extra permission gate on cancel/refund
// targets. It applies to the whole request, before any registry lookup.
func (s *Service) checkSuperAction(act actor.Context, to StatusKey) error {
	perm := SuperActionPermission(to)
	if perm == "" {
		return nil
	}
	if !act.HasPermission(perm) {
		return fmt.Errorf("%w: %s", ErrForbidden, perm)
	}
	return nil
}

// effectiveFrom is the status an item validates from: its current status,
// or the pipeline's initial status while it has never been transitioned.
func (s *Service) effectiveFrom(item *OrderItem) StatusKey {
	if item.CurrentStatusKey != nil {
		return *item.CurrentStatusKey
	}
	return s.catalog.Initial().Key
}

func (s *Service) statusID(key *StatusKey) *uint {
	if key == nil {
		return nil
	}
	if def, ok := s.catalog.Get(*key); ok {
		id := def.ID
		return &id
	}
	return nil
}

func (s *Service) allowedFor(act actor.Context, from StatusKey) []AllowedTransition {
	allowed := s.validator.AllowedTransitions(from, Role(act.Role))
	out := allowed[:0]
	for _, t := range allowed {
		if perm := SuperActionPermission(t.ToStatusKey); perm != "" && !act.HasPermission(perm) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// recomputeOrder refreshes one order's derived status and publishes a
// change event when the aggregate moved. Failures are logged, not
// propagated: the transition itself has already committed.
func (s *Service) recomputeOrder(ctx context.Context, orderID uint64, items []OrderItem, changedBy uuid.UUID) *DerivedStatus {
	start := time.Now()
	var (
		derived  *DerivedStatus
		previous *StatusKey
		err      error
	)
	if items != nil {
		derived, previous, err = s.deriver.RecomputeFromItems(ctx, orderID, items)
	} else {
		derived, previous, err = s.deriver.Recompute(ctx, orderID)
	}
	if s.metrics != nil {
		s.metrics.DeriveDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.Error("failed to recompute order status",
			zap.Uint64("order_id", orderID),
			zap.Error(err),
		)
		return nil
	}

	if previous == nil || *previous != derived.Key {
		if s.metrics != nil {
			s.metrics.OrderStatusChanges.Inc()
		}
		if s.bus != nil {
			fromKey := ""
			if previous != nil {
				fromKey = string(*previous)
			}
			s.bus.Publish(events.NewOrderStatusChangedEvent(
				orderID, fromKey, string(derived.Key), derived.Label, changedBy,
			))
		}
	}
	return derived
}

func (s *Service) countTransition(role Role, to StatusKey, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.TransitionsTotal.WithLabelValues(string(role), string(to), outcome).Inc()
}

// denialError maps a validator denial onto the module's error taxonomy.
func denialError(d Decision) error {
	switch d.Reason {
	case ReasonUnknownStatus:
		return fmt.Errorf("%w", ErrUnknownStatus)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidTransition, d.Reason.Message())
	}
}

// dedupeIDs drops duplicates and non-positive ids, preserving order.
func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
