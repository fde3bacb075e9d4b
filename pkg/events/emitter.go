// Package events emits call lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Event types emitted on the call events topic.
const (
	EventTypeCallReceived         = "call.received"
	EventTypeCallProcessed        = "call.processed"
	EventTypeCallProcessingFailed = "call.processing_failed"
)

// Emitter emits call lifecycle events. A nil producer turns every emit
// into a no-op so the pipeline runs without a broker.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitCallReceived emits an event when a webhook delivery creates a new call
func (e *Emitter) EmitCallReceived(ctx context.Context, call *models.Call) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCallReceived")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"has_recording":  call.HasRecording(),
		"received_at":    call.ReceivedAt,
	})

	event := &kafka.CallEvent{
		EventType:  EventTypeCallReceived,
		CallID:     call.ID.String(),
		ExternalID: call.ExternalID,
		Direction:  string(call.Direction),
		Data:       data,
	}

	if err := e.producer.PublishCallEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit call.received event")
		return err
	}

	return nil
}

// EmitCallProcessed emits an event when the processing pipeline completes
func (e *Emitter) EmitCallProcessed(ctx context.Context, call *models.Call, summary *models.CallSummary, actionItemCount int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCallProcessed")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	payload := map[string]any{
		"schema_version":    SchemaVersion,
		"action_item_count": actionItemCount,
	}
	if summary != nil {
		payload["sentiment"] = summary.Sentiment
		payload["urgency_score"] = summary.UrgencyScore
	}
	data, _ := json.Marshal(payload)

	event := &kafka.CallEvent{
		EventType:  EventTypeCallProcessed,
		CallID:     call.ID.String(),
		ExternalID: call.ExternalID,
		Direction:  string(call.Direction),
		Data:       data,
	}

	if err := e.producer.PublishCallEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit call.processed event")
		return err
	}

	return nil
}

// EmitCallProcessingFailed emits an event when a pipeline run fails
func (e *Emitter) EmitCallProcessingFailed(ctx context.Context, call *models.Call, stage string, cause error) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCallProcessingFailed")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"stage":          stage,
		"error":          cause.Error(),
		"failed_at":      time.Now().UTC(),
	})

	event := &kafka.CallEvent{
		EventType:  EventTypeCallProcessingFailed,
		CallID:     call.ID.String(),
		ExternalID: call.ExternalID,
		Direction:  string(call.Direction),
		Data:       data,
	}

	if err := e.producer.PublishCallEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit call.processing_failed event")
		return err
	}

	return nil
}
