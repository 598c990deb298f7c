package models

import (
	"time"

	"github.com/google/uuid"
)

// Establishment is a partner business that submits delivery requests.
type Establishment struct {
	ID          uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string       `gorm:"column:name;type:text;not null"`
	Address     string       `gorm:"column:address;type:text;not null"`
	Phone       *string      `gorm:"column:phone"`
	ContactName *string      `gorm:"column:contact_name"`
	IntakeToken string       `gorm:"column:intake_token;type:text;not null;uniqueIndex"`
	IsActive    bool         `gorm:"column:is_active;not null;default:true"`
	PriceTables []PriceTable `gorm:"foreignKey:EstablishmentID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
