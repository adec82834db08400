package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_RulesFor(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name    string
		from    StatusKey
		role    Role
		to      StatusKey
		allowed bool
	}{
		{"admin forward processing", StatusProcessing, RoleAdmin, StatusOrdered, true},
		{"admin forward ordered", StatusOrdered, RoleAdmin, StatusShippedToWH, true},
		{"admin deliver", StatusShipped, RoleAdmin, StatusDelivered, true},
		{"admin refund shipped", StatusShipped, RoleAdmin, StatusRefunded, true},
		{"admin cannot skip stage", StatusProcessing, RoleAdmin, StatusShippedToWH, false},
		{"procurement order", StatusProcessing, RoleProcurement, StatusOrdered, true},
		{"procurement ship to warehouse", StatusOrdered, RoleProcurement, StatusShippedToWH, true},
		{"procurement cannot deliver", StatusShipped, RoleProcurement, StatusDelivered, false},
		{"warehouse receive", StatusShippedToWH, RoleWarehouse, StatusArrived, true},
		{"warehouse ship", StatusArrived, RoleWarehouse, StatusShipped, true},
		{"warehouse cannot order", StatusProcessing, RoleWarehouse, StatusOrdered, false},
		{"courier deliver", StatusShipped, RoleCourier, StatusDelivered, true},
		{"courier cannot ship", StatusArrived, RoleCourier, StatusShipped, false},
		{"support cancel processing", StatusProcessing, RoleSupport, StatusCancelled, true},
		{"support refund shipped", StatusShipped, RoleSupport, StatusRefunded, true},
		{"support cannot cancel delivered", StatusDelivered, RoleSupport, StatusCancelled, false},
		{"unknown role", StatusProcessing, Role("intern"), StatusOrdered, false},
		{"unknown status", StatusKey("ghost"), RoleAdmin, StatusOrdered, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := false
			for _, rule := range reg.RulesFor(tt.from, tt.role) {
				if rule.To == tt.to {
					found = true
				}
			}
			assert.Equal(t, tt.allowed, found)
		})
	}
}

func TestDefaultRegistry_NoOutgoingFromTerminal(t *testing.T) {
	reg := DefaultRegistry()
	roles := []Role{RoleAdmin, RoleProcurement, RoleWarehouse, RoleCourier, RoleSupport}
	terminals := []StatusKey{StatusDelivered, StatusCancelled, StatusRefunded}

	for _, role := range roles {
		for _, from := range terminals {
			assert.Empty(t, reg.RulesFor(from, role), "%s from %s", role, from)
		}
	}
}

func TestDefaultRegistry_TrackingRequirement(t *testing.T) {
	reg := DefaultRegistry()

	for _, role := range []Role{RoleAdmin, RoleWarehouse} {
		rules := reg.RulesFor(StatusArrived, role)
		var shipped *TransitionRule
		for i := range rules {
			if rules[i].To == StatusShipped {
				shipped = &rules[i]
			}
		}
		require.NotNil(t, shipped, string(role))
		assert.True(t, shipped.RequiresTracking, string(role))
	}
}

func TestTableRegistry_ReturnsCopy(t *testing.T) {
	reg := DefaultRegistry()

	rules := reg.RulesFor(StatusProcessing, RoleAdmin)
	require.NotEmpty(t, rules)
	rules[0].To = StatusRefunded

	again := reg.RulesFor(StatusProcessing, RoleAdmin)
	assert.Equal(t, StatusOrdered, again[0].To)
}
