package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db/models"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	"github.com/angelmondragon/cafe-backend/pkg/outbox"
	"github.com/angelmondragon/cafe-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)
	return r
}

func envelope(t *testing.T, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return raw
}

func TestResolveOrderCreated(t *testing.T) {
	orderID := uuid.New()
	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:     orderID,
		OrderNumber: "ORD-ABC123",
		TotalAmount: decimal.RequireFromString("13.50"),
		ItemCount:   3,
		Status:      enums.OrderStatusPending,
	})
	require.NoError(t, err)

	got, err := testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelope(t, string(data)),
	})
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", got.Route.Topic)
	assert.NotEmpty(t, got.Envelope.EventID)

	payload, ok := got.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "unexpected payload type %T", got.Payload)
	assert.Equal(t, "ORD-ABC123", payload.OrderNumber)
	assert.True(t, payload.TotalAmount.Equal(decimal.RequireFromString("13.5")))
}

func TestResolveStatusChanged(t *testing.T) {
	got, err := testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelope(t, `{"order_number":"ORD-1","previous_status":"pending","status":"confirmed"}`),
	})
	require.NoError(t, err)
	payload := got.Payload.(*payloads.OrderStatusChangedEvent)
	assert.Equal(t, enums.OrderStatusPending, payload.PreviousStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, payload.Status)
}

func TestResolveRejectsUndeliverableRows(t *testing.T) {
	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType: "order_refunded", AggregateType: enums.AggregateOrder,
			AggregateID: uuid.New(), Payload: envelope(t, `{}`),
		},
		"aggregate mismatch": {
			EventType: enums.EventOrderCreated, AggregateType: "cart",
			AggregateID: uuid.New(), Payload: envelope(t, `{}`),
		},
		"missing aggregate id": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder,
			Payload: envelope(t, `{}`),
		},
		"null data": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder,
			AggregateID: uuid.New(), Payload: envelope(t, `null`),
		},
		"wrong data shape": {
			EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder,
			AggregateID: uuid.New(), Payload: envelope(t, `{"item_count":"many"}`),
		},
	}
	reg := testRegistry(t)
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			assert.True(t, IsPermanent(err), "expected permanent error, got %v", err)
		})
	}
}

func TestPermanentSurvivesWrapping(t *testing.T) {
	base := errors.New("no publisher")
	err := fmt.Errorf("send: %w", Permanent(base))
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.NoError(t, Permanent(nil))
}

func TestNewRegistry(t *testing.T) {
	_, err := NewRegistry(config.PubSubConfig{})
	require.Error(t, err)
	assert.Equal(t, []string{"orders-topic"}, testRegistry(t).Topics())
}
