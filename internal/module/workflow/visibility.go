package workflow

// VisibilityFilter restricts which item statuses a role may enumerate in
// listings. It shares the status catalog with the rest of the engine so that
// visibility and transition permissions never disagree about what a status is.
type VisibilityFilter struct {
	catalog *Catalog
	scopes  map[Role][]StatusKey
}

// NewVisibilityFilter creates a filter with the given per-role scopes.
// Roles absent from the map are unrestricted.
func NewVisibilityFilter(catalog *Catalog, scopes map[Role][]StatusKey) *VisibilityFilter {
	return &VisibilityFilter{catalog: catalog, scopes: scopes}
}

// DefaultVisibilityScopes returns the production listing scopes.
// Admin and support are unrestricted.
func DefaultVisibilityScopes() map[Role][]StatusKey {
	return map[Role][]StatusKey{
		RoleProcurement: {StatusProcessing, StatusOrdered, StatusShippedToWH},
		RoleWarehouse:   {StatusShippedToWH, StatusArrived, StatusShipped},
		RoleCourier:     {StatusShipped, StatusDelivered},
	}
}

// VisibleStatusKeys returns the status keys the role may see, or nil when
// the role is unrestricted. Keys missing from the catalog or inactive are
// dropped so listings never filter on statuses the engine would reject.
func (f *VisibilityFilter) VisibleStatusKeys(role Role) []StatusKey {
	scope, ok := f.scopes[role]
	if !ok {
		return nil // unrestricted
	}
	out := make([]StatusKey, 0, len(scope))
	for _, key := range scope {
		if def, ok := f.catalog.Get(key); ok && def.IsActive {
			out = append(out, key)
		}
	}
	return out
}
