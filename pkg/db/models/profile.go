package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

// Profile is the canonical identity entity for dispatchers and couriers.
// Commission overrides are per-courier; nil falls back to the platform default.
type Profile struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email             string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash      string          `gorm:"column:password_hash;not null"`
	FullName          string          `gorm:"column:full_name;not null"`
	Phone             *string         `gorm:"column:phone"`
	Role              enums.ActorRole `gorm:"column:role;type:actor_role;not null"`
	IsActive          bool            `gorm:"column:is_active;not null;default:true"`
	Available         bool            `gorm:"column:available;not null;default:false"`
	CommissionPercent *int            `gorm:"column:commission_percent"`
	FixedFeeCents     *int            `gorm:"column:fixed_fee_cents"`
	PushToken         *string         `gorm:"column:push_token"`
	LastLoginAt       *time.Time      `gorm:"column:last_login_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
