package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceTable is a per-establishment zone price used to quote delivery totals.
type PriceTable struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EstablishmentID uuid.UUID `gorm:"column:establishment_id;type:uuid;not null"`
	Zone            string    `gorm:"column:zone;type:text;not null"`
	PriceCents      int       `gorm:"column:price_cents;not null"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
