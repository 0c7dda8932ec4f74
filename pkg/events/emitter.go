// Package events handles event emission for payer lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/baobab/pkg/kafka"
	"github.com/Ramsey-B/baobab/pkg/models"
	"github.com/Ramsey-B/baobab/pkg/tracing"
)

// Emitter publishes payer lifecycle events. The orchestrator treats
// emission failures as non-fatal; the store stays the source of truth.
type Emitter interface {
	EmitPayerCreated(ctx context.Context, payer *models.Payer, sourceName, runID string) error
	EmitPayerUpdated(ctx context.Context, payer *models.Payer, sourceName, runID string) error
}

// KafkaEmitter emits events through the Kafka producer.
type KafkaEmitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

func NewKafkaEmitter(producer *kafka.Producer, logger ectologger.Logger) *KafkaEmitter {
	return &KafkaEmitter{
		producer: producer,
		logger:   logger,
	}
}

func (e *KafkaEmitter) EmitPayerCreated(ctx context.Context, payer *models.Payer, sourceName, runID string) error {
	return e.emit(ctx, "payer.created", payer, sourceName, runID)
}

func (e *KafkaEmitter) EmitPayerUpdated(ctx context.Context, payer *models.Payer, sourceName, runID string) error {
	return e.emit(ctx, "payer.updated", payer, sourceName, runID)
}

func (e *KafkaEmitter) emit(ctx context.Context, eventType string, payer *models.Payer, sourceName, runID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.KafkaEmitter.emit")
	defer span.End()

	data, err := json.Marshal(payer)
	if err != nil {
		return err
	}

	event := &kafka.PayerEvent{
		EventType:  eventType,
		PayerID:    payer.ID,
		SourceName: sourceName,
		RunID:      runID,
		Data:       data,
	}

	if err := e.producer.PublishPayerEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}
	return nil
}

// NoopEmitter drops every event. Used when the producer is disabled and
// in dry runs.
type NoopEmitter struct{}

func (NoopEmitter) EmitPayerCreated(context.Context, *models.Payer, string, string) error {
	return nil
}

func (NoopEmitter) EmitPayerUpdated(context.Context, *models.Payer, string, string) error {
	return nil
}
