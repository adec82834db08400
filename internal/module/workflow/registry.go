package workflow

// TransitionRule is one permitted move in the registry, annotated with what
// applying it demands.
type TransitionRule struct {
	To               StatusKey
	RequiresTracking bool
	Terminal         bool
}

// Registry answers which transitions a role may apply from a given status.
// It is configuration, not logic: implementations must return an empty set
// (never an error) for unknown combinations, since "no permitted moves" is
// an expected outcome.
type Registry interface {
	RulesFor(from StatusKey, role Role) []TransitionRule
}

// TableRegistry is a Registry backed by an explicit lookup table keyed by
// (role, from-status).
type TableRegistry struct {
	rules map[Role]map[StatusKey][]TransitionRule
}

// NewTableRegistry creates a registry from the given table.
func NewTableRegistry(rules map[Role]map[StatusKey][]TransitionRule) *TableRegistry {
	return &TableRegistry{rules: rules}
}

// RulesFor implements Registry.
func (r *TableRegistry) RulesFor(from StatusKey, role Role) []TransitionRule {
	byStatus, ok := r.rules[role]
	if !ok {
		return nil
	}
	rules := byStatus[from]
	out := make([]TransitionRule, len(rules))
	copy(out, rules)
	return out
}

// DefaultRegistry returns the production transition table. Terminal statuses
// have no outgoing entries by construction.
func DefaultRegistry() *TableRegistry {
	forward := func(to StatusKey) TransitionRule { return TransitionRule{To: to} }
	tracking := func(to StatusKey) TransitionRule { return TransitionRule{To: to, RequiresTracking: true} }
	terminal := func(to StatusKey) TransitionRule { return TransitionRule{To: to, Terminal: true} }

	cancel := terminal(StatusCancelled)
	refund := terminal(StatusRefunded)

	return NewTableRegistry(map[Role]map[StatusKey][]TransitionRule{
		RoleAdmin: {
			StatusProcessing:  {forward(StatusOrdered), cancel},
			StatusOrdered:     {forward(StatusShippedToWH), cancel},
			StatusShippedToWH: {forward(StatusArrived), cancel},
			StatusArrived:     {tracking(StatusShipped), cancel},
			StatusShipped:     {terminal(StatusDelivered), refund},
		},
		RoleProcurement: {
			StatusProcessing: {forward(StatusOrdered), cancel},
			StatusOrdered:    {forward(StatusShippedToWH)},
		},
		RoleWarehouse: {
			StatusShippedToWH: {forward(StatusArrived)},
			StatusArrived:     {tracking(StatusShipped)},
		},
		RoleCourier: {
			StatusShipped: {terminal(StatusDelivered)},
		},
		RoleSupport: {
			StatusProcessing:  {cancel},
			StatusOrdered:     {cancel},
			StatusShippedToWH: {cancel},
			StatusArrived:     {cancel},
			StatusShipped:     {cancel, refund},
		},
	})
}
