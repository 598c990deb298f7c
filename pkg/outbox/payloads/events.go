package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

// DeliveryRequestedEvent signals a new intake request parked in the queue.
type DeliveryRequestedEvent struct {
	IntakeRequestID      uuid.UUID           `json:"intake_request_id"`
	EstablishmentID      uuid.UUID           `json:"establishment_id"`
	PickupAddress        string              `json:"pickup_address"`
	DestinationAddresses []string            `json:"destination_addresses"`
	PaymentMethod        enums.PaymentMethod `json:"payment_method"`
	TotalCents           int                 `json:"total_cents"`
}

// DeliveryAssignedEvent is emitted when a dispatcher pins a delivery on a courier.
type DeliveryAssignedEvent struct {
	DeliveryID          uuid.UUID            `json:"delivery_id"`
	EstablishmentID     uuid.UUID            `json:"establishment_id"`
	CourierID           *uuid.UUID           `json:"courier_id,omitempty"`
	Status              enums.DeliveryStatus `json:"status"`
	TotalCents          int                  `json:"total_cents"`
	CourierPayoutCents  int                  `json:"courier_payout_cents"`
	OperatorProfitCents int                  `json:"operator_profit_cents"`
	OperatorFulfilled   bool                 `json:"operator_fulfilled"`
}

// DeliveryAcceptedEvent is emitted when a courier starts the run.
type DeliveryAcceptedEvent struct {
	DeliveryID      uuid.UUID `json:"delivery_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	CourierID       uuid.UUID `json:"courier_id"`
	AcceptedAt      time.Time `json:"accepted_at"`
}

// DeliveryRejectedEvent reports a courier declining an assignment. The
// delivery is back in the pool with its financials zeroed.
type DeliveryRejectedEvent struct {
	DeliveryID      uuid.UUID `json:"delivery_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	CourierID       uuid.UUID `json:"courier_id"`
	RejectionCount  int       `json:"rejection_count"`
}

// DeliveryCollectedEvent marks the order picked up from the establishment.
type DeliveryCollectedEvent struct {
	DeliveryID      uuid.UUID `json:"delivery_id"`
	EstablishmentID uuid.UUID `json:"establishment_id"`
	CourierID       uuid.UUID `json:"courier_id"`
	CollectedAt     time.Time `json:"collected_at"`
}

// DeliveryCompletedEvent surfaces the settled financial split once the run
// finishes. Ledger entries are derived from this payload downstream.
type DeliveryCompletedEvent struct {
	DeliveryID          uuid.UUID           `json:"delivery_id"`
	EstablishmentID     uuid.UUID           `json:"establishment_id"`
	CourierID           *uuid.UUID          `json:"courier_id,omitempty"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method"`
	TotalCents          int                 `json:"total_cents"`
	CourierPayoutCents  int                 `json:"courier_payout_cents"`
	OperatorProfitCents int                 `json:"operator_profit_cents"`
	OperatorFulfilled   bool                `json:"operator_fulfilled"`
	CompletedAt         time.Time           `json:"completed_at"`
}
