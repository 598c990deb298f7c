package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeDeliveryPending   NotificationType = "delivery_pending"
	NotificationTypeDeliveryAssigned  NotificationType = "delivery_assigned"
	NotificationTypeDeliveryRejected  NotificationType = "delivery_rejected"
	NotificationTypeDeliveryCompleted NotificationType = "delivery_completed"
	NotificationTypeStaleAssignment   NotificationType = "stale_assignment"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeDeliveryPending,
	NotificationTypeDeliveryAssigned,
	NotificationTypeDeliveryRejected,
	NotificationTypeDeliveryCompleted,
	NotificationTypeStaleAssignment,
}

// IsValid reports whether the value is a known NotificationType.
func (t NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
