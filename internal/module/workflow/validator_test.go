package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return NewValidator(DefaultCatalog(), DefaultRegistry())
}

func TestValidator_Validate(t *testing.T) {
	v := newTestValidator(t)

	tests := []struct {
		name    string
		from    StatusKey
		role    Role
		to      StatusKey
		allowed bool
		reason  ReasonKind
	}{
		{"permitted forward move", StatusProcessing, RoleAdmin, StatusOrdered, true, ""},
		{"not in registry", StatusOrdered, RoleCourier, StatusShippedToWH, false, ReasonNotPermitted},
		{"unknown target", StatusProcessing, RoleAdmin, "teleported", false, ReasonUnknownStatus},
		{"terminal source delivered", StatusDelivered, RoleAdmin, StatusRefunded, false, ReasonTerminalSource},
		{"terminal source cancelled", StatusCancelled, RoleSupport, StatusProcessing, false, ReasonTerminalSource},
		{"unknown source is just unpermitted", "ghost", RoleAdmin, StatusOrdered, false, ReasonNotPermitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := v.Validate(tt.from, tt.role, tt.to)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, tt.reason, d.Reason)
			}
		})
	}
}

func TestValidator_Validate_Annotations(t *testing.T) {
	v := newTestValidator(t)

	t.Run("tracking requirement surfaces", func(t *testing.T) {
		d := v.Validate(StatusArrived, RoleWarehouse, StatusShipped)
		require.True(t, d.Allowed)
		assert.True(t, d.RequiresTracking)
		assert.False(t, d.Terminal)
	})

	t.Run("terminal target surfaces", func(t *testing.T) {
		d := v.Validate(StatusShipped, RoleCourier, StatusDelivered)
		require.True(t, d.Allowed)
		assert.False(t, d.RequiresTracking)
		assert.True(t, d.Terminal)
	})
}

func TestValidator_InactiveTarget(t *testing.T) {
	defs := DefaultStatusDefinitions()
	for i := range defs {
		if defs[i].Key == StatusOrdered {
			defs[i].IsActive = false
		}
	}
	catalog, err := NewCatalog(defs)
	require.NoError(t, err)
	v := NewValidator(catalog, DefaultRegistry())

	d := v.Validate(StatusProcessing, RoleAdmin, StatusOrdered)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnknownStatus, d.Reason)
}

func TestValidator_AllowedTransitions(t *testing.T) {
	v := newTestValidator(t)

	t.Run("admin from shipped", func(t *testing.T) {
		got := v.AllowedTransitions(StatusShipped, RoleAdmin)
		keys := make([]StatusKey, 0, len(got))
		for _, tr := range got {
			keys = append(keys, tr.ToStatusKey)
		}
		assert.ElementsMatch(t, []StatusKey{StatusDelivered, StatusRefunded}, keys)
	})

	t.Run("terminal source yields none", func(t *testing.T) {
		assert.Empty(t, v.AllowedTransitions(StatusDelivered, RoleAdmin))
	})

	t.Run("role without rules yields none", func(t *testing.T) {
		assert.Empty(t, v.AllowedTransitions(StatusProcessing, RoleCourier))
	})

	t.Run("labels come from the catalog", func(t *testing.T) {
		got := v.AllowedTransitions(StatusProcessing, RoleProcurement)
		for _, tr := range got {
			if tr.ToStatusKey == StatusOrdered {
				assert.Equal(t, "Ordered", tr.ToStatusLabel)
			}
		}
	})
}

func TestReasonKind_Message(t *testing.T) {
	assert.Equal(t, "Transition not allowed from current status", ReasonNotPermitted.Message())
	assert.Equal(t, "custom_reason", ReasonKind("custom_reason").Message())
}
