package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinical-api/internal/model"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/pkg/messaging"
	"github.com/jwalitptl/clinical-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.New("batch size must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("poll interval must be greater than 0")
	case c.RetryAttempts <= 0:
		return errors.New("retry attempts must be greater than 0")
	case c.RetryDelay <= 0:
		return errors.New("retry delay must be greater than 0")
	}
	return nil
}

// OutboxProcessor relays recorded domain events to the broker. Each event is
// published to the channel named after its type.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger.With().Str("component", "outbox_processor").Logger(),
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Start polls until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info().Msg("starting outbox processor")

	for {
		if _, err := p.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error().Err(err).Msg("failed to process events")
		}

		select {
		case <-ctx.Done():
			p.logger.Info().Msg("shutting down outbox processor")
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch claims one batch of due events and relays them. It returns
// the number of events published successfully.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	if p.metrics != nil {
		timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
		defer timer.ObserveDuration()
	}

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending events: %w", err)
	}

	published := 0
	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Warn().Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Int("retry_count", event.RetryCount).
				Msg("failed to publish event")
			continue
		}
		published++
	}
	return published, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	publishErr := p.broker.Publish(ctx, event.EventType, event.Payload)
	if publishErr == nil {
		if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
			p.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to update event status")
			return err
		}
		if p.metrics != nil {
			p.metrics.OutboxEventsProcessed.Inc()
		}
		return nil
	}

	msg := publishErr.Error()
	if event.RetryCount+1 >= p.config.RetryAttempts {
		if p.metrics != nil {
			p.metrics.OutboxEventsFailed.Inc()
		}
		if err := p.repo.MarkFailed(ctx, event.ID, msg); err != nil {
			p.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to update event status")
		}
		return publishErr
	}

	if p.metrics != nil {
		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	}
	retryAt := p.now().Add(backoff(p.config.RetryDelay, event.RetryCount))
	if err := p.repo.MarkRetry(ctx, event.ID, msg, retryAt); err != nil {
		p.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to update event status")
	}
	return publishErr
}

// backoff doubles delay for every earlier attempt, capped at 64x.
func backoff(delay time.Duration, attempt int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	return delay << uint(attempt)
}
