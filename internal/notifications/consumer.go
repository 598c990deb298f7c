package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox/idempotency"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox/payloads"
)

const deliveryNotificationConsumer = "delivery-notifications"

type consumerRepository interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	ListDispatcherTargets(ctx context.Context) ([]PushTarget, error)
	FindCourierTarget(ctx context.Context, courierID uuid.UUID) (*PushTarget, error)
}

// Consumer watches delivery events and fans them out as in-app notifications
// plus best-effort push messages.
type Consumer struct {
	repo         consumerRepository
	sender       Sender
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a delivery notification consumer.
func NewConsumer(repo consumerRepository, sender Sender, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if sender == nil {
		return nil, fmt.Errorf("push sender required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("delivery subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		sender:       sender,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	handler, ok := c.handlerFor(eventType)
	if !ok {
		c.logg.Info(logCtx, "event type not handled")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, deliveryNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := handler(ctx, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, deliveryNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

type eventHandler func(ctx context.Context, data json.RawMessage, logCtx context.Context) error

func (c *Consumer) handlerFor(eventType enums.OutboxEventType) (eventHandler, bool) {
	switch eventType {
	case enums.EventDeliveryRequested:
		return c.handleRequested, true
	case enums.EventDeliveryAssigned:
		return c.handleAssigned, true
	case enums.EventDeliveryRejected:
		return c.handleRejected, true
	case enums.EventDeliveryCompleted:
		return c.handleCompleted, true
	default:
		return nil, false
	}
}

func (c *Consumer) handleRequested(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.DeliveryRequestedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse requested payload: %w", err)
	}

	message := fmt.Sprintf("New request from pickup %s, %s, awaiting assignment.", payload.PickupAddress, formatBRL(payload.TotalCents))
	return c.notifyDispatchers(ctx, logCtx, enums.NotificationTypeDeliveryPending, "New delivery request", message, nil)
}

func (c *Consumer) handleAssigned(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.DeliveryAssignedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse assigned payload: %w", err)
	}
	if payload.CourierID == nil {
		c.logg.Info(logCtx, "operator fulfilled run, no courier to notify")
		return nil
	}

	target, err := c.repo.FindCourierTarget(ctx, *payload.CourierID)
	if err != nil {
		return fmt.Errorf("load courier target: %w", err)
	}

	deliveryID := payload.DeliveryID
	message := fmt.Sprintf("You have a new run. Payout %s.", formatBRL(payload.CourierPayoutCents))
	notification := models.Notification{
		ProfileID:  target.ProfileID,
		Type:       enums.NotificationTypeDeliveryAssigned,
		Title:      "Delivery assigned to you",
		Message:    message,
		DeliveryID: &deliveryID,
	}
	if err := c.repo.CreateBatch(ctx, []models.Notification{notification}); err != nil {
		return err
	}
	c.sender.Send(ctx, *target, notification.Title, notification.Message)
	c.logg.Info(logCtx, "courier notified of assignment")
	return nil
}

func (c *Consumer) handleRejected(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.DeliveryRejectedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse rejected payload: %w", err)
	}

	message := fmt.Sprintf("A courier declined the run. It is back in the pool after %d rejection(s).", payload.RejectionCount)
	return c.notifyDispatchers(ctx, logCtx, enums.NotificationTypeDeliveryRejected, "Delivery back in pool", message, &payload.DeliveryID)
}

func (c *Consumer) handleCompleted(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.DeliveryCompletedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse completed payload: %w", err)
	}

	message := fmt.Sprintf("Run settled at %s, operator profit %s.", formatBRL(payload.TotalCents), formatBRL(payload.OperatorProfitCents))
	return c.notifyDispatchers(ctx, logCtx, enums.NotificationTypeDeliveryCompleted, "Delivery completed", message, &payload.DeliveryID)
}

func (c *Consumer) notifyDispatchers(ctx context.Context, logCtx context.Context, kind enums.NotificationType, title, message string, deliveryID *uuid.UUID) error {
	targets, err := c.repo.ListDispatcherTargets(ctx)
	if err != nil {
		return fmt.Errorf("load dispatcher targets: %w", err)
	}
	if len(targets) == 0 {
		c.logg.Warn(logCtx, "no active dispatchers to notify")
		return nil
	}

	notifications := make([]models.Notification, 0, len(targets))
	for _, target := range targets {
		notifications = append(notifications, models.Notification{
			ProfileID:  target.ProfileID,
			Type:       kind,
			Title:      title,
			Message:    message,
			DeliveryID: deliveryID,
		})
	}
	if err := c.repo.CreateBatch(ctx, notifications); err != nil {
		return err
	}
	for _, target := range targets {
		c.sender.Send(ctx, target, title, message)
	}
	c.logg.Info(logCtx, "dispatchers notified")
	return nil
}

func formatBRL(cents int) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, cents/100, cents%100)
}
