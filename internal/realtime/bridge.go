package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox"
)

// Topic names map aggregate types to redis pub/sub channels. Clients
// subscribe per table, mirroring the rows they render.
const (
	TopicDeliveries     = "deliveries"
	TopicIntakeRequests = "intake_requests"
)

type channelPublisher interface {
	RealtimeChannel(topic string) string
	Publish(ctx context.Context, channel string, payload any) error
}

// ChangeEvent is the compact row-change message pushed to clients.
type ChangeEvent struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Data          json.RawMessage `json:"data"`
}

// Bridge republishes delivery events from pubsub onto redis channels so
// connected clients see row changes without polling. Delivery toward
// subscribers is at-least-once over a fire-and-forget channel; a lost
// message only delays the next poll-based refresh.
type Bridge struct {
	subscription *pubsub.Subscriber
	publisher    channelPublisher
	logg         *logger.Logger
}

// NewBridge wires the realtime bridge dependencies.
func NewBridge(subscription *pubsub.Subscriber, publisher channelPublisher, logg *logger.Logger) (*Bridge, error) {
	if subscription == nil {
		return nil, fmt.Errorf("realtime subscription required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("redis publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Bridge{
		subscription: subscription,
		publisher:    publisher,
		logg:         logg,
	}, nil
}

// Run pumps messages until the context is canceled. Every message is acked;
// redis publish failures are logged and dropped rather than redelivered,
// clients reconcile on their next full fetch.
func (b *Bridge) Run(ctx context.Context) error {
	return b.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		b.process(ctx, msg)
		msg.Ack()
	})
}

func (b *Bridge) process(ctx context.Context, msg *pubsub.Message) {
	logCtx := b.logg.WithFields(ctx, map[string]any{
		"message_id":     msg.ID,
		"event_type":     msg.Attributes["event_type"],
		"aggregate_type": msg.Attributes["aggregate_type"],
	})

	topic, ok := topicFor(enums.OutboxAggregateType(msg.Attributes["aggregate_type"]))
	if !ok {
		b.logg.Info(logCtx, "aggregate not bridged")
		return
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		b.logg.Error(logCtx, "failed to decode envelope", err)
		return
	}

	change := ChangeEvent{
		EventID:       envelope.EventID,
		EventType:     msg.Attributes["event_type"],
		AggregateType: msg.Attributes["aggregate_type"],
		AggregateID:   msg.Attributes["aggregate_id"],
		OccurredAt:    envelope.OccurredAt,
		Data:          envelope.Data,
	}
	payload, err := json.Marshal(change)
	if err != nil {
		b.logg.Error(logCtx, "failed to encode change event", err)
		return
	}

	channel := b.publisher.RealtimeChannel(topic)
	if err := b.publisher.Publish(ctx, channel, payload); err != nil {
		b.logg.Error(logCtx, "failed to publish change event", err)
		return
	}
	b.logg.Info(b.logg.WithField(logCtx, "channel", channel), "change event bridged")
}

func topicFor(aggregate enums.OutboxAggregateType) (string, bool) {
	switch aggregate {
	case enums.AggregateDelivery:
		return TopicDeliveries, true
	case enums.AggregateIntakeRequest:
		return TopicIntakeRequests, true
	default:
		return "", false
	}
}
