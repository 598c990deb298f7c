package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

// LoginRequest carries the credentials posted by dispatchers and couriers.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileDTO is the public shape of an actor profile.
type ProfileDTO struct {
	ID                uuid.UUID       `json:"id"`
	Email             string          `json:"email"`
	FullName          string          `json:"full_name"`
	Phone             *string         `json:"phone,omitempty"`
	Role              enums.ActorRole `json:"role"`
	Available         bool            `json:"available"`
	CommissionPercent *int            `json:"commission_percent,omitempty"`
	FixedFeeCents     *int            `json:"fixed_fee_cents,omitempty"`
	LastLoginAt       *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// LoginResponse returns the token pair plus the authenticated profile.
type LoginResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	Profile      ProfileDTO `json:"profile"`
}

// RefreshRequest exchanges an expired access token for a fresh pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FromModel converts a profile row into its public DTO.
func FromModel(profile *models.Profile) ProfileDTO {
	return ProfileDTO{
		ID:                profile.ID,
		Email:             profile.Email,
		FullName:          profile.FullName,
		Phone:             profile.Phone,
		Role:              profile.Role,
		Available:         profile.Available,
		CommissionPercent: profile.CommissionPercent,
		FixedFeeCents:     profile.FixedFeeCents,
		LastLoginAt:       profile.LastLoginAt,
		CreatedAt:         profile.CreatedAt,
	}
}
