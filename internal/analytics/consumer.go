package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox"
)

const settlementsConsumerName = "settlements-sink"

type settlementWriter interface {
	InsertSettlement(ctx context.Context, row SettlementRow) error
	Flush(ctx context.Context) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer streams completed deliveries into the settlements table. It sits
// strictly downstream of the state machine; a broken sink never blocks runs.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	writer       settlementWriter
	manager      idempotencyChecker
	logg         *logger.Logger
	now          func() time.Time
}

// NewConsumer creates the settlements sink consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, writer settlementWriter, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("analytics subscription is required")
	}
	if writer == nil {
		return nil, errors.New("settlements writer is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		subscription: subscription,
		writer:       writer,
		manager:      manager,
		logg:         logg,
		now:          time.Now,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming messages until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if eventType != enums.EventDeliveryCompleted {
		c.logg.Info(logCtx, "event not handled by settlements sink")
		return processResult{}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	already, err := c.manager.CheckAndMarkProcessed(ctx, settlementsConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := c.ingest(ctx, envelope); err != nil {
		c.logg.Error(logCtx, "settlement ingestion failed", err)
		_ = c.manager.Delete(ctx, settlementsConsumerName, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "settlement ingested")
	return processResult{}
}

func (c *Consumer) ingest(ctx context.Context, envelope outbox.PayloadEnvelope) error {
	row, err := BuildSettlementRow(envelope, c.now())
	if err != nil {
		return err
	}
	if err := c.writer.InsertSettlement(ctx, *row); err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	return c.writer.Flush(ctx)
}
