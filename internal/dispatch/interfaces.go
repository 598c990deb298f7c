package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	"github.com/rapidusexpress/rapidus-backend/pkg/pagination"
)

// Repository defines persistence operations for deliveries and the profile
// state the lifecycle touches. Status mutations are conditional updates so
// concurrent dispatchers race safely at the row level.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateDelivery(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error)
	FindDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	UpdateDeliveryIfStatus(ctx context.Context, id uuid.UUID, from []enums.DeliveryStatus, updates map[string]any) (bool, error)
	FindIntakeRequest(ctx context.Context, id uuid.UUID) (*models.IntakeRequest, error)
	ConsumeIntakeRequest(ctx context.Context, id uuid.UUID, consumedAt time.Time) (bool, error)
	FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	SetAvailability(ctx context.Context, profileID uuid.UUID, available bool) error
	ListDeliveries(ctx context.Context, query ListQuery) ([]models.Delivery, *pagination.Cursor, error)
	ListActiveByCourier(ctx context.Context, courierID uuid.UUID) ([]models.Delivery, error)
	FindStaleAssigned(ctx context.Context, cutoff time.Time) ([]models.Delivery, error)
}

// ListQuery filters the delivery history listing. Search matches pickup
// address, destinations and description case-insensitively.
type ListQuery struct {
	EstablishmentID *uuid.UUID
	CourierID       *uuid.UUID
	Statuses        []enums.DeliveryStatus
	Search          string
	Limit           int
	Cursor          *pagination.Cursor
}
