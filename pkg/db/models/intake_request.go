package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

// IntakeRequest is a delivery request parked in the intake queue before a
// dispatcher turns it into a Delivery. The raw payload is kept verbatim for
// auditing malformed submissions.
type IntakeRequest struct {
	ID                   uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID      uuid.UUID                 `gorm:"column:establishment_id;type:uuid;not null"`
	Status               enums.IntakeRequestStatus `gorm:"column:status;type:intake_request_status;not null;default:'pending'"`
	PickupAddress        string                    `gorm:"column:pickup_address;type:text;not null"`
	DestinationAddresses pq.StringArray            `gorm:"column:destination_addresses;type:text[];not null;default:ARRAY[]::text[]"`
	Description          *string                   `gorm:"column:description"`
	PaymentMethod        enums.PaymentMethod       `gorm:"column:payment_method;type:payment_method;not null;default:'pix'"`
	TotalCents           int                       `gorm:"column:total_cents;not null"`
	RawPayload           json.RawMessage           `gorm:"column:raw_payload;type:jsonb"`
	ConsumedAt           *time.Time                `gorm:"column:consumed_at"`
	DismissedAt          *time.Time                `gorm:"column:dismissed_at"`
	CreatedAt            time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
