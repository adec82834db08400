package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityFilter_VisibleStatusKeys(t *testing.T) {
	f := NewVisibilityFilter(DefaultCatalog(), DefaultVisibilityScopes())

	tests := []struct {
		role     Role
		expected []StatusKey
	}{
		{RoleProcurement, []StatusKey{StatusProcessing, StatusOrdered, StatusShippedToWH}},
		{RoleWarehouse, []StatusKey{StatusShippedToWH, StatusArrived, StatusShipped}},
		{RoleCourier, []StatusKey{StatusShipped, StatusDelivered}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.expected, f.VisibleStatusKeys(tt.role))
		})
	}
}

func TestVisibilityFilter_UnrestrictedRoles(t *testing.T) {
	f := NewVisibilityFilter(DefaultCatalog(), DefaultVisibilityScopes())

	assert.Nil(t, f.VisibleStatusKeys(RoleAdmin))
	assert.Nil(t, f.VisibleStatusKeys(RoleSupport))
	assert.Nil(t, f.VisibleStatusKeys(Role("unknown")))
}

func TestVisibilityFilter_DropsRetiredStatuses(t *testing.T) {
	defs := DefaultStatusDefinitions()
	for i := range defs {
		if defs[i].Key == StatusOrdered {
			defs[i].IsActive = false
		}
	}
	catalog, err := NewCatalog(defs)
	require.NoError(t, err)

	f := NewVisibilityFilter(catalog, map[Role][]StatusKey{
		RoleProcurement: {StatusProcessing, StatusOrdered, "ghost"},
	})

	assert.Equal(t, []StatusKey{StatusProcessing}, f.VisibleStatusKeys(RoleProcurement))
}
