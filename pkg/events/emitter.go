// Package events handles event emission for mapping lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/kafka"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/models"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/tracing"
)

// Emitter publishes mapping lifecycle events. A nil Emitter is valid and
// drops all events, for deployments without a broker.
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

// EmitMappingCreated emits a mapping.created event
func (e *Emitter) EmitMappingCreated(ctx context.Context, mapping *models.Mapping) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMappingCreated")
	defer span.End()

	event := &kafka.MappingEvent{
		EventType:       "mapping.created",
		MappingID:       mapping.ID,
		SourceID:        mapping.SourceID,
		TargetID:        mapping.TargetID,
		ConnectionType:  mapping.ConnectionType,
		ConfidenceLevel: mapping.ConfidenceLevel,
		Actor:           mapping.CreatedBy,
	}

	if err := e.producer.PublishMappingEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit mapping.created event")
		return err
	}

	return nil
}

// EmitMappingUpdated emits a mapping.updated event after an approved change
func (e *Emitter) EmitMappingUpdated(ctx context.Context, mapping *models.Mapping, reviewer string, proposalID string) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMappingUpdated")
	defer span.End()

	event := &kafka.MappingEvent{
		EventType:       "mapping.updated",
		MappingID:       mapping.ID,
		SourceID:        mapping.SourceID,
		TargetID:        mapping.TargetID,
		ConnectionType:  mapping.ConnectionType,
		ConfidenceLevel: mapping.ConfidenceLevel,
		Actor:           reviewer,
		ProposalID:      proposalID,
	}

	if err := e.producer.PublishMappingEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit mapping.updated event")
		return err
	}

	return nil
}

// EmitMappingDeleted emits a mapping.deleted event after an approved delete
func (e *Emitter) EmitMappingDeleted(ctx context.Context, mapping *models.Mapping, reviewer string, proposalID string) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMappingDeleted")
	defer span.End()

	event := &kafka.MappingEvent{
		EventType:  "mapping.deleted",
		MappingID:  mapping.ID,
		SourceID:   mapping.SourceID,
		TargetID:   mapping.TargetID,
		Actor:      reviewer,
		ProposalID: proposalID,
	}

	if err := e.producer.PublishMappingEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit mapping.deleted event")
		return err
	}

	return nil
}
