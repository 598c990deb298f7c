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

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dispatch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error) {
	if err := r.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return nil, err
	}
	return delivery, nil
}

func (r *repository) FindDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// UpdateDeliveryIfStatus applies updates only while the row still sits in one
// of the expected statuses. A false return means another actor moved the row
// first and the caller lost the race.
func (r *repository) UpdateDeliveryIfStatus(ctx context.Context, id uuid.UUID, from []enums.DeliveryStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindIntakeRequest(ctx context.Context, id uuid.UUID) (*models.IntakeRequest, error) {
	var request models.IntakeRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ConsumeIntakeRequest claims a pending queue slot. The status predicate makes
// the claim exclusive: only one of two racing dispatchers sees a row update.
func (r *repository) ConsumeIntakeRequest(ctx context.Context, id uuid.UUID, consumedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.IntakeRequest{}).
		Where("id = ? AND status = ?", id, enums.IntakeRequestStatusPending).
		Updates(map[string]any{
			"status":      enums.IntakeRequestStatusConsumed,
			"consumed_at": consumedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
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

func (r *repository) SetAvailability(ctx context.Context, profileID uuid.UUID, available bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profileID).
		UpdateColumn("available", available).Error
}

func (r *repository) ListDeliveries(ctx context.Context, query ListQuery) ([]models.Delivery, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(query.Limit)
	normalized := pagination.NormalizeLimit(query.Limit)

	q := r.db.WithContext(ctx).Model(&models.Delivery{})
	if query.EstablishmentID != nil {
		q = q.Where("establishment_id = ?", *query.EstablishmentID)
	}
	if query.CourierID != nil {
		q = q.Where("courier_id = ?", *query.CourierID)
	}
	if len(query.Statuses) > 0 {
		q = q.Where("status IN ?", query.Statuses)
	}
	if query.Search != "" {
		pattern := "%" + query.Search + "%"
		q = q.Where(
			"pickup_address ILIKE ? OR description ILIKE ? OR array_to_string(destination_addresses, ' ') ILIKE ?",
			pattern, pattern, pattern,
		)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var deliveries []models.Delivery
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&deliveries).Error; err != nil {
		return nil, nil, err
	}

	if len(deliveries) > normalized {
		next := deliveries[normalized]
		deliveries = deliveries[:normalized]
		return deliveries, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return deliveries, nil, nil
}

func (r *repository) ListActiveByCourier(ctx context.Context, courierID uuid.UUID) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).
		Where("courier_id = ? AND status IN ?", courierID, []enums.DeliveryStatus{
			enums.DeliveryStatusAssigned,
			enums.DeliveryStatusEnRoute,
			enums.DeliveryStatusCollected,
		}).
		Order("assigned_at ASC").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *repository) FindStaleAssigned(ctx context.Context, cutoff time.Time) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).
		Where("status = ? AND assigned_at < ?", enums.DeliveryStatusAssigned, cutoff).
		Order("assigned_at ASC").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}
