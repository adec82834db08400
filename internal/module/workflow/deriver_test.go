package workflow

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/stretchr/testify/assert"
)

func newTestDeriver() *Deriver {
	return NewDeriver(DefaultCatalog(), nil, nil, 0, zap.NewNop())
}

func itemAt(id uint64, key StatusKey, updatedAt time.Time) OrderItem {
	k := key
	at := updatedAt
	return OrderItem{ID: id, OrderID: 1, CurrentStatusKey: &k, StatusUpdatedAt: &at}
}

func TestDeriver_Derive(t *testing.T) {
	d := newTestDeriver()
	now := time.Now().UTC()

	tests := []struct {
		name     string
		items    []OrderItem
		expected StatusKey
	}{
		{
			name:     "no items sits at initial",
			items:    nil,
			expected: StatusProcessing,
		},
		{
			name: "lowest rank non-terminal wins",
			items: []OrderItem{
				itemAt(1, StatusShipped, now),
				itemAt(2, StatusOrdered, now),
				itemAt(3, StatusArrived, now),
			},
			expected: StatusOrdered,
		},
		{
			name: "terminal items are ignored while any item is active",
			items: []OrderItem{
				itemAt(1, StatusCancelled, now),
				itemAt(2, StatusShipped, now),
			},
			expected: StatusShipped,
		},
		{
			name: "never-transitioned item pins the order at initial",
			items: []OrderItem{
				{ID: 1, OrderID: 1},
				itemAt(2, StatusDelivered, now),
			},
			expected: StatusProcessing,
		},
		{
			name: "all terminal takes the most recent change",
			items: []OrderItem{
				itemAt(1, StatusCancelled, now.Add(-time.Hour)),
				itemAt(2, StatusDelivered, now),
				itemAt(3, StatusRefunded, now.Add(-time.Minute)),
			},
			expected: StatusDelivered,
		},
		{
			name: "terminal timestamp tie breaks on higher id",
			items: []OrderItem{
				itemAt(1, StatusCancelled, now),
				itemAt(2, StatusRefunded, now),
			},
			expected: StatusRefunded,
		},
		{
			name: "unknown status keys are skipped",
			items: []OrderItem{
				itemAt(1, "retired_key", now),
				itemAt(2, StatusArrived, now),
			},
			expected: StatusArrived,
		},
		{
			name: "only unknown keys falls back to initial",
			items: []OrderItem{
				itemAt(1, "retired_key", now),
			},
			expected: StatusProcessing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Derive(tt.items)
			assert.Equal(t, tt.expected, got.Key)
		})
	}
}

func TestDeriver_Derive_Deterministic(t *testing.T) {
	d := newTestDeriver()
	now := time.Now().UTC()
	items := []OrderItem{
		itemAt(1, StatusShipped, now),
		itemAt(2, StatusProcessing, now),
		itemAt(3, StatusDelivered, now),
	}

	first := d.Derive(items)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Key, d.Derive(items).Key)
	}
}
