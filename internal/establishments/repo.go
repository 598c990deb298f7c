package establishments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
)

// Repository exposes persistence for establishments and their price tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, establishment *models.Establishment) (*models.Establishment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error)
	List(ctx context.Context, onlyActive bool) ([]models.Establishment, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpsertPriceTable(ctx context.Context, entry *models.PriceTable) (*models.PriceTable, error)
	ListPriceTables(ctx context.Context, establishmentID uuid.UUID) ([]models.PriceTable, error)
	FindPriceForZone(ctx context.Context, establishmentID uuid.UUID, zone string) (*models.PriceTable, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an establishments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, establishment *models.Establishment) (*models.Establishment, error) {
	if err := r.db.WithContext(ctx).Create(establishment).Error; err != nil {
		return nil, err
	}
	return establishment, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	var establishment models.Establishment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&establishment).Error
	if err != nil {
		return nil, err
	}
	return &establishment, nil
}

func (r *repository) List(ctx context.Context, onlyActive bool) ([]models.Establishment, error) {
	query := r.db.WithContext(ctx).Model(&models.Establishment{})
	if onlyActive {
		query = query.Where("is_active = true")
	}

	var establishments []models.Establishment
	if err := query.Order("name ASC").Find(&establishments).Error; err != nil {
		return nil, err
	}
	return establishments, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Establishment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpsertPriceTable(ctx context.Context, entry *models.PriceTable) (*models.PriceTable, error) {
	var existing models.PriceTable
	err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND zone = ?", entry.EstablishmentID, entry.Zone).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
			return nil, err
		}
		return entry, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"price_cents": entry.PriceCents,
		"is_active":   entry.IsActive,
	}
	if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	existing.PriceCents = entry.PriceCents
	existing.IsActive = entry.IsActive
	return &existing, nil
}

func (r *repository) ListPriceTables(ctx context.Context, establishmentID uuid.UUID) ([]models.PriceTable, error) {
	var entries []models.PriceTable
	err := r.db.WithContext(ctx).
		Where("establishment_id = ?", establishmentID).
		Order("zone ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindPriceForZone(ctx context.Context, establishmentID uuid.UUID, zone string) (*models.PriceTable, error) {
	var entry models.PriceTable
	err := r.db.WithContext(ctx).
		Where("establishment_id = ? AND zone = ? AND is_active = true", establishmentID, zone).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
