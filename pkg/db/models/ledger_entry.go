package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

// LedgerEntry is an append-only manual money fact: a receipt collected from
// an establishment or a payment handed to a courier. Entries are never
// updated or deleted; balances are recomputed from completed deliveries and
// the full entry history on every read.
type LedgerEntry struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind            enums.LedgerEntryKind `gorm:"column:kind;type:ledger_entry_kind;not null"`
	EstablishmentID *uuid.UUID            `gorm:"column:establishment_id;type:uuid"`
	CourierID       *uuid.UUID            `gorm:"column:courier_id;type:uuid"`
	AmountCents     int                   `gorm:"column:amount_cents;not null"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method;not null"`
	Note            *string               `gorm:"column:note"`
	RecordedByID    uuid.UUID             `gorm:"column:recorded_by_id;type:uuid;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}
