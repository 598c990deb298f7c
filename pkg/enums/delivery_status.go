package enums

import "fmt"

// DeliveryStatus tracks the lifecycle of a persisted delivery.
//
// Queued intake requests are not deliveries yet; a delivery row is born either
// `assigned` (promoted straight from the queue) or `awaiting_pool` (returned
// by a courier rejection). Acceptance moves it directly to `en_route`; there
// is no persisted "accepted but not yet moving" state.
type DeliveryStatus string

const (
	DeliveryStatusAssigned     DeliveryStatus = "assigned"
	DeliveryStatusEnRoute      DeliveryStatus = "en_route"
	DeliveryStatusCollected    DeliveryStatus = "collected"
	DeliveryStatusAwaitingPool DeliveryStatus = "awaiting_pool"
	DeliveryStatusCompleted    DeliveryStatus = "completed"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusAssigned,
	DeliveryStatusEnRoute,
	DeliveryStatusCollected,
	DeliveryStatusAwaitingPool,
	DeliveryStatusCompleted,
}

// String implements fmt.Stringer.
func (s DeliveryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusCompleted
}

// IsActiveForCourier reports whether a delivery in this status occupies the
// assigned courier (it counts against their single-active-delivery slot).
func (s DeliveryStatus) IsActiveForCourier() bool {
	switch s {
	case DeliveryStatusAssigned, DeliveryStatusEnRoute, DeliveryStatusCollected:
		return true
	}
	return false
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
