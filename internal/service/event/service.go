package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository"
)

// EventService writes domain events to the outbox. Publishing happens later,
// in the outbox processor.
type EventService struct {
	outboxRepo repository.OutboxRepository
	now        func() time.Time
}

func NewEventService(outboxRepo repository.OutboxRepository) *EventService {
	return &EventService{
		outboxRepo: outboxRepo,
		now:        time.Now,
	}
}

func (s *EventService) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := s.now()
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payloadJSON,
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
