package intake

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

// Repository exposes persistence for the intake queue and the pooled
// deliveries it merges with.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRequest(ctx context.Context, request *models.IntakeRequest) (*models.IntakeRequest, error)
	FindRequest(ctx context.Context, id uuid.UUID) (*models.IntakeRequest, error)
	ListPending(ctx context.Context, establishmentID *uuid.UUID) ([]models.IntakeRequest, error)
	DismissRequest(ctx context.Context, id uuid.UUID, dismissedAt time.Time) (bool, error)
	ListPoolDeliveries(ctx context.Context, establishmentID *uuid.UUID) ([]models.Delivery, error)
	FindEstablishment(ctx context.Context, id uuid.UUID) (*models.Establishment, error)
	FindEstablishmentByIntakeToken(ctx context.Context, token string) (*models.Establishment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an intake repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRequest(ctx context.Context, request *models.IntakeRequest) (*models.IntakeRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.IntakeRequest, error) {
	var request models.IntakeRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListPending(ctx context.Context, establishmentID *uuid.UUID) ([]models.IntakeRequest, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.IntakeRequestStatusPending)
	if establishmentID != nil {
		query = query.Where("establishment_id = ?", *establishmentID)
	}

	var requests []models.IntakeRequest
	if err := query.Order("created_at ASC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// DismissRequest discards a pending queue slot. The status predicate keeps
// the dismissal from racing a concurrent assignment.
func (r *repository) DismissRequest(ctx context.Context, id uuid.UUID, dismissedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.IntakeRequest{}).
		Where("id = ? AND status = ?", id, enums.IntakeRequestStatusPending).
		Updates(map[string]any{
			"status":       enums.IntakeRequestStatusDismissed,
			"dismissed_at": dismissedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListPoolDeliveries(ctx context.Context, establishmentID *uuid.UUID) ([]models.Delivery, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.DeliveryStatusAwaitingPool)
	if establishmentID != nil {
		query = query.Where("establishment_id = ?", *establishmentID)
	}

	var deliveries []models.Delivery
	if err := query.Order("created_at ASC").Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *repository) FindEstablishment(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	var establishment models.Establishment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&establishment).Error
	if err != nil {
		return nil, err
	}
	return &establishment, nil
}

func (r *repository) FindEstablishmentByIntakeToken(ctx context.Context, token string) (*models.Establishment, error) {
	var establishment models.Establishment
	err := r.db.WithContext(ctx).
		Where("intake_token = ?", token).
		First(&establishment).Error
	if err != nil {
		return nil, err
	}
	return &establishment, nil
}
