package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

// Range bounds a balance query. Nil ends are open.
type Range struct {
	From *time.Time
	To   *time.Time
}

// OperatorAggregates holds the grouped money columns of completed deliveries
// inside a range.
type OperatorAggregates struct {
	DeliveryCount    int64
	GrossCents       int64
	CourierCostCents int64
}

// Repository persists manual ledger entries and answers the aggregate
// queries balances are derived from. Delivery-side sums read the deliveries
// table directly; entry-side sums read ledger_entries.
type Repository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	ListForEstablishment(ctx context.Context, establishmentID uuid.UUID, rng Range) ([]models.LedgerEntry, error)
	ListForCourier(ctx context.Context, courierID uuid.UUID, rng Range) ([]models.LedgerEntry, error)
	SumEntriesForEstablishment(ctx context.Context, establishmentID uuid.UUID, rng Range) (int64, error)
	SumEntriesForCourier(ctx context.Context, courierID uuid.UUID, rng Range) (int64, error)
	SumCompletedTotalForEstablishment(ctx context.Context, establishmentID uuid.UUID, rng Range) (int64, error)
	SumCompletedPayoutForCourier(ctx context.Context, courierID uuid.UUID, rng Range) (int64, error)
	CompletedAggregates(ctx context.Context, rng Range) (OperatorAggregates, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository wires a gorm-backed ledger repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListForEstablishment(ctx context.Context, establishmentID uuid.UUID, rng Range) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := applyRange(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), "created_at", rng).
		Where("establishment_id = ?", establishmentID).
		Order("created_at DESC")
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListForCourier(ctx context.Context, courierID uuid.UUID, rng Range) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	query := applyRange(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), "created_at", rng).
		Where("courier_id = ?", courierID).
		Order("created_at DESC")
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumEntriesForEstablishment(ctx context.Context, establishmentID uuid.UUID, rng Range) (int64, error) {
	query := applyRange(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), "created_at", rng).
		Where("kind = ? AND establishment_id = ?", enums.LedgerEntryKindReceiptFromEstablishment, establishmentID)
	return sumColumn(query, "amount_cents")
}

func (r *repository) SumEntriesForCourier(ctx context.Context, courierID uuid.UUID, rng Range) (int64, error) {
	query := applyRange(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), "created_at", rng).
		Where("kind = ? AND courier_id = ?", enums.LedgerEntryKindPaymentToCourier, courierID)
	return sumColumn(query, "amount_cents")
}

func (r *repository) SumCompletedTotalForEstablishment(ctx context.Context, establishmentID uuid.UUID, rng Range) (int64, error) {
	query := applyRange(r.db.WithContext(ctx).Model(&models.Delivery{}), "completed_at", rng).
		Where("status = ? AND establishment_id = ?", enums.DeliveryStatusCompleted, establishmentID)
	return sumColumn(query, "total_cents")
}

// SumCompletedPayoutForCourier ignores operator-fulfilled runs: those carry
// no courier payout by construction.
func (r *repository) SumCompletedPayoutForCourier(ctx context.Context, courierID uuid.UUID, rng Range) (int64, error) {
	query := applyRange(r.db.WithContext(ctx).Model(&models.Delivery{}), "completed_at", rng).
		Where("status = ? AND courier_id = ? AND operator_fulfilled = FALSE", enums.DeliveryStatusCompleted, courierID)
	return sumColumn(query, "courier_payout_cents")
}

func (r *repository) CompletedAggregates(ctx context.Context, rng Range) (OperatorAggregates, error) {
	var agg OperatorAggregates
	query := applyRange(r.db.WithContext(ctx).Model(&models.Delivery{}), "completed_at", rng).
		Where("status = ?", enums.DeliveryStatusCompleted).
		Select("COUNT(*) AS delivery_count, COALESCE(SUM(total_cents), 0) AS gross_cents, COALESCE(SUM(courier_payout_cents), 0) AS courier_cost_cents")
	if err := query.Scan(&agg).Error; err != nil {
		return OperatorAggregates{}, err
	}
	return agg, nil
}

func applyRange(query *gorm.DB, column string, rng Range) *gorm.DB {
	if rng.From != nil {
		query = query.Where(column+" >= ?", *rng.From)
	}
	if rng.To != nil {
		query = query.Where(column+" < ?", *rng.To)
	}
	return query
}

func sumColumn(query *gorm.DB, column string) (int64, error) {
	var total int64
	if err := query.Select("COALESCE(SUM(" + column + "), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
