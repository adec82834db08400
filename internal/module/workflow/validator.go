package workflow

// ReasonKind classifies why a transition was denied or an item skipped.
// Callers branch on the kind; the human message is for display only.
type ReasonKind string

const (
	ReasonNotPermitted     ReasonKind = "not_permitted"
	ReasonTerminalSource   ReasonKind = "terminal_source"
	ReasonUnknownStatus    ReasonKind = "unknown_status"
	ReasonMissingTracking  ReasonKind = "missing_tracking"
	ReasonItemNotFound     ReasonKind = "item_not_found"
	ReasonConcurrentChange ReasonKind = "concurrent_modification"
)

// reasonMessages are the human-readable denial messages.
var reasonMessages = map[ReasonKind]string{
	ReasonNotPermitted:     "Transition not allowed from current status",
	ReasonTerminalSource:   "Item is in a terminal status",
	ReasonUnknownStatus:    "Target status unknown or inactive",
	ReasonMissingTracking:  "Tracking number required for this transition",
	ReasonItemNotFound:     "Item not found",
	ReasonConcurrentChange: "Item status changed concurrently",
}

// Message returns the display message for a reason kind.
func (k ReasonKind) Message() string {
	if msg, ok := reasonMessages[k]; ok {
		return msg
	}
	return string(k)
}

// Decision is the validator's verdict on one (from, role, to) triple.
type Decision struct {
	Allowed          bool
	RequiresTracking bool
	Terminal         bool
	Reason           ReasonKind // set when denied
}

// Validator decides whether a transition is permitted. It performs no I/O;
// it is a pure function over the catalog and registry snapshots it holds.
type Validator struct {
	catalog  *Catalog
	registry Registry
}

// NewValidator creates a validator over the given catalog and registry.
func NewValidator(catalog *Catalog, registry Registry) *Validator {
	return &Validator{catalog: catalog, registry: registry}
}

// Validate checks whether role may move an item from `from` to `to`.
func (v *Validator) Validate(from StatusKey, role Role, to StatusKey) Decision {
	target, ok := v.catalog.Get(to)
	if !ok || !target.IsActive {
		return Decision{Reason: ReasonUnknownStatus}
	}

	// The registry encodes no outgoing edges from terminal statuses, but a
	// stale or hand-edited table must not corrupt closed items.
	if source, ok := v.catalog.Get(from); ok && source.IsTerminal {
		return Decision{Reason: ReasonTerminalSource}
	}

	for _, rule := range v.registry.RulesFor(from, role) {
		if rule.To == to {
			return Decision{
				Allowed:          true,
				RequiresTracking: rule.RequiresTracking,
				Terminal:         target.IsTerminal,
			}
		}
	}
	return Decision{Reason: ReasonNotPermitted}
}

// AllowedTransitions returns every legal next move for role from the given
// status, restricted to active targets. Used by UI collaborators to present
// only legal moves, and as the basis for intersecting common transitions
// across a bulk selection.
func (v *Validator) AllowedTransitions(from StatusKey, role Role) []AllowedTransition {
	if source, ok := v.catalog.Get(from); ok && source.IsTerminal {
		return nil
	}

	rules := v.registry.RulesFor(from, role)
	out := make([]AllowedTransition, 0, len(rules))
	for _, rule := range rules {
		target, ok := v.catalog.Get(rule.To)
		if !ok || !target.IsActive {
			continue
		}
		out = append(out, AllowedTransition{
			ToStatusKey:      target.Key,
			ToStatusLabel:    target.Label,
			RequiresTracking: rule.RequiresTracking,
			IsTerminal:       target.IsTerminal,
		})
	}
	return out
}
