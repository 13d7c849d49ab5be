package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository/memory"
)

func TestEmit_WritesPendingOutboxEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewEventService(store.Outbox())

	require.NoError(t, svc.Emit(ctx, "NOTE_CREATE", map[string]string{"text": "take with food"}))

	events, err := store.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "NOTE_CREATE", events[0].EventType)
	assert.Equal(t, model.OutboxStatusPending, events[0].Status)
	assert.JSONEq(t, `{"text":"take with food"}`, string(events[0].Payload))
}

func TestEmit_UnmarshalablePayload(t *testing.T) {
	svc := NewEventService(memory.NewStore().Outbox())
	err := svc.Emit(context.Background(), "X", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal payload")
}
