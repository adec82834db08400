package workflow

// Role is an operator role in the back office.
type Role string

// Back-office roles known to the workflow engine.
const (
	RoleAdmin       Role = "admin"
	RoleProcurement Role = "procurement"
	RoleWarehouse   Role = "warehouse"
	RoleCourier     Role = "courier"
	RoleSupport     Role = "support"
)

// Permission strings for super-actions that sit above the ordinary
// transition-registry check.
const (
	PermCancelItems = "orders.items.cancel"
	PermRefundItems = "orders.items.refund"
)

// SuperActionPermission returns the extra permission required to target the
// given status, or "" when the registry check alone decides.
func SuperActionPermission(to StatusKey) string {
	switch to {
	case StatusCancelled:
		return PermCancelItems
	case StatusRefunded:
		return PermRefundItems
	default:
		return ""
	}
}
