package events

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingHandler struct {
	types    []string
	received []Event
	err      error
}

func (h *recordingHandler) Handles() []string { return h.types }

func (h *recordingHandler) Handle(event Event) error {
	h.received = append(h.received, event)
	return h.err
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus(zap.NewNop())
	h := &recordingHandler{types: []string{OrderStatusChangedType}}
	bus.Register(h)

	event := NewOrderStatusChangedEvent(7, "processing", "ordered", "Ordered", uuid.New())
	bus.Publish(event)

	assert.Len(t, h.received, 1)
	assert.Equal(t, event.EventID(), h.received[0].EventID())
	assert.Equal(t, "7", h.received[0].AggregateID())
}

func TestBus_Publish_NoHandlers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	assert.NotPanics(t, func() {
		bus.Publish(NewOrderStatusChangedEvent(1, "", "ordered", "Ordered", uuid.New()))
	})
}

func TestBus_Publish_FailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	failing := &recordingHandler{types: []string{OrderStatusChangedType}, err: errors.New("boom")}
	healthy := &recordingHandler{types: []string{OrderStatusChangedType}}
	bus.Register(failing)
	bus.Register(healthy)

	bus.Publish(NewOrderStatusChangedEvent(1, "", "ordered", "Ordered", uuid.New()))

	assert.Len(t, failing.received, 1)
	assert.Len(t, healthy.received, 1)
}

func TestBus_PublishAll(t *testing.T) {
	bus := NewBus(zap.NewNop())
	h := &recordingHandler{types: []string{OrderStatusChangedType}}
	bus.Register(h)

	bus.PublishAll([]Event{
		NewOrderStatusChangedEvent(1, "", "ordered", "Ordered", uuid.New()),
		NewOrderStatusChangedEvent(2, "", "shipped", "Shipped", uuid.New()),
	})

	assert.Len(t, h.received, 2)
}
