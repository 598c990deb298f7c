package enums

// IntakeRequestStatus tracks an intake request through the queue.
type IntakeRequestStatus string

const (
	// IntakeRequestStatusPending is a request waiting for dispatcher action.
	IntakeRequestStatusPending IntakeRequestStatus = "pending"
	// IntakeRequestStatusConsumed means the request was turned into a delivery.
	IntakeRequestStatusConsumed IntakeRequestStatus = "consumed"
	// IntakeRequestStatusDismissed means a dispatcher discarded the request.
	IntakeRequestStatusDismissed IntakeRequestStatus = "dismissed"
)

var validIntakeRequestStatuses = []IntakeRequestStatus{
	IntakeRequestStatusPending,
	IntakeRequestStatusConsumed,
	IntakeRequestStatusDismissed,
}

// IsValid reports whether the value is a known IntakeRequestStatus.
func (s IntakeRequestStatus) IsValid() bool {
	for _, candidate := range validIntakeRequestStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}
