package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
)

// EventService records domain events in the outbox. The worker relays them.
type EventService struct {
	outboxRepo repository.OutboxRepository
}

func NewEventService(outboxRepo repository.OutboxRepository) *EventService {
	return &EventService{outboxRepo: outboxRepo}
}

// Emit stores the event. A nil service is a no-op.
func (s *EventService) Emit(ctx context.Context, eventType string, payload interface{}) error {
	if s == nil {
		return nil
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	return nil
}

// Record is Emit for callers that must not fail because of the outbox.
func (s *EventService) Record(ctx context.Context, eventType string, payload interface{}) {
	if err := s.Emit(ctx, eventType, payload); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("event_type", eventType).Msg("failed to record event")
	}
}
