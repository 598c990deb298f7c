package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

// Delivery is the aggregate root for a dispatched delivery run. Financial
// fields are snapshotted at assignment time so later commission changes never
// rewrite history.
type Delivery struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID      uuid.UUID            `gorm:"column:establishment_id;type:uuid;not null"`
	CourierID            *uuid.UUID           `gorm:"column:courier_id;type:uuid"`
	IntakeRequestID      *uuid.UUID           `gorm:"column:intake_request_id;type:uuid"`
	Status               enums.DeliveryStatus `gorm:"column:status;type:delivery_status;not null;default:'assigned'"`
	PickupAddress        string               `gorm:"column:pickup_address;type:text;not null"`
	DestinationAddresses pq.StringArray       `gorm:"column:destination_addresses;type:text[];not null;default:ARRAY[]::text[]"`
	Description          *string              `gorm:"column:description"`
	PaymentMethod        enums.PaymentMethod  `gorm:"column:payment_method;type:payment_method;not null;default:'pix'"`
	TotalCents           int                  `gorm:"column:total_cents;not null"`
	CourierPayoutCents   int                  `gorm:"column:courier_payout_cents;not null;default:0"`
	OperatorProfitCents  int                  `gorm:"column:operator_profit_cents;not null;default:0"`
	CommissionPercent    int                  `gorm:"column:commission_percent;not null;default:0"`
	FixedFeeCents        int                  `gorm:"column:fixed_fee_cents;not null;default:0"`
	OperatorFulfilled    bool                 `gorm:"column:operator_fulfilled;not null;default:false"`
	AssignedByID         *uuid.UUID           `gorm:"column:assigned_by_id;type:uuid"`
	AssignedAt           *time.Time           `gorm:"column:assigned_at"`
	AcceptedAt           *time.Time           `gorm:"column:accepted_at"`
	CollectedAt          *time.Time           `gorm:"column:collected_at"`
	CompletedAt          *time.Time           `gorm:"column:completed_at"`
	RejectionCount       int                  `gorm:"column:rejection_count;not null;default:0"`
	Notes                *string              `gorm:"column:notes"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
