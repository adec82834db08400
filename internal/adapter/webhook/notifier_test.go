package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brahimakil/chibox-cms-sub000/internal/shared/events"
)

func TestNotifier_Handle_Delivers(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewNotifier(Config{URL: server.URL}, nil, zap.NewNop())
	actorID := uuid.New()
	event := events.NewOrderStatusChangedEvent(42, "processing", "ordered", "Ordered", actorID)

	require.NoError(t, n.Handle(event))

	assert.Equal(t, "OrderStatusChanged", received["event"])
	assert.Equal(t, float64(42), received["order_id"])
	assert.Equal(t, "processing", received["from_status_key"])
	assert.Equal(t, "ordered", received["to_status_key"])
	assert.Equal(t, actorID.String(), received["changed_by"])
}

func TestNotifier_Handle_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewNotifier(Config{URL: server.URL}, nil, zap.NewNop())
	err := n.Handle(events.NewOrderStatusChangedEvent(1, "", "ordered", "Ordered", uuid.New()))
	assert.Error(t, err)
}

func TestNotifier_Handle_IgnoresOtherEvents(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	n := NewNotifier(Config{URL: server.URL}, nil, zap.NewNop())
	type otherEvent struct{ events.BaseEvent }
	require.NoError(t, n.Handle(&otherEvent{events.NewBaseEvent("SomethingElse", "1")}))
	assert.Zero(t, calls.Load())
}

func TestNotifier_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewNotifier(Config{URL: server.URL, FailureThreshold: 3}, nil, zap.NewNop())
	event := events.NewOrderStatusChangedEvent(1, "", "ordered", "Ordered", uuid.New())

	for i := 0; i < 6; i++ {
		assert.Error(t, n.Handle(event))
	}

	// After the third consecutive failure the breaker stops calling out.
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotifier_Handles(t *testing.T) {
	n := NewNotifier(Config{URL: "http://localhost"}, nil, zap.NewNop())
	assert.Equal(t, []string{events.OrderStatusChangedType}, n.Handles())
}
