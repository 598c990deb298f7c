package enums

// OutboxEventType identifies the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventDeliveryRequested OutboxEventType = "delivery.requested"
	EventDeliveryAssigned  OutboxEventType = "delivery.assigned"
	EventDeliveryAccepted  OutboxEventType = "delivery.accepted"
	EventDeliveryRejected  OutboxEventType = "delivery.rejected"
	EventDeliveryCollected OutboxEventType = "delivery.collected"
	EventDeliveryCompleted OutboxEventType = "delivery.completed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventDeliveryRequested,
	EventDeliveryAssigned,
	EventDeliveryAccepted,
	EventDeliveryRejected,
	EventDeliveryCollected,
	EventDeliveryCompleted,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// OutboxAggregateType identifies the row an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateDelivery      OutboxAggregateType = "delivery"
	AggregateIntakeRequest OutboxAggregateType = "intake_request"
)

// IsValid reports whether the value is a known OutboxAggregateType.
func (t OutboxAggregateType) IsValid() bool {
	return t == AggregateDelivery || t == AggregateIntakeRequest
}
