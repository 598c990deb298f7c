package couriers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

// Repository exposes persistence for courier profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	CountActiveDeliveries(ctx context.Context, courierID uuid.UUID) (int64, error)
	SetAvailability(ctx context.Context, courierID uuid.UUID, available bool) error
	ListCouriers(ctx context.Context, onlyAvailable bool) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, courierID uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a couriers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) CountActiveDeliveries(ctx context.Context, courierID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("courier_id = ? AND status IN ?", courierID, []enums.DeliveryStatus{
			enums.DeliveryStatusAssigned,
			enums.DeliveryStatusEnRoute,
			enums.DeliveryStatusCollected,
		}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) SetAvailability(ctx context.Context, courierID uuid.UUID, available bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", courierID).
		UpdateColumn("available", available).Error
}

func (r *repository) ListCouriers(ctx context.Context, onlyAvailable bool) ([]models.Profile, error) {
	query := r.db.WithContext(ctx).
		Where("role = ? AND is_active = true", enums.ActorRoleCourier)
	if onlyAvailable {
		query = query.Where("available = true")
	}

	var profiles []models.Profile
	if err := query.Order("full_name ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repository) UpdateProfile(ctx context.Context, courierID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", courierID).
		Updates(updates).Error
}
