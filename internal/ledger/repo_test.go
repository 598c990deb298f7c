package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	deliveries := `
CREATE TABLE IF NOT EXISTS deliveries (
  id TEXT PRIMARY KEY,
  establishment_id TEXT NOT NULL,
  courier_id TEXT,
  intake_request_id TEXT,
  status TEXT NOT NULL,
  pickup_address TEXT NOT NULL,
  destination_addresses TEXT NOT NULL,
  description TEXT,
  payment_method TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  courier_payout_cents INTEGER NOT NULL DEFAULT 0,
  operator_profit_cents INTEGER NOT NULL DEFAULT 0,
  commission_percent INTEGER NOT NULL DEFAULT 0,
  fixed_fee_cents INTEGER NOT NULL DEFAULT 0,
  operator_fulfilled INTEGER NOT NULL DEFAULT 0,
  assigned_by_id TEXT,
  assigned_at DATETIME,
  accepted_at DATETIME,
  collected_at DATETIME,
  completed_at DATETIME,
  rejection_count INTEGER NOT NULL DEFAULT 0,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	entries := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  establishment_id TEXT,
  courier_id TEXT,
  amount_cents INTEGER NOT NULL,
  payment_method TEXT NOT NULL,
  note TEXT,
  recorded_by_id TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(deliveries).Error)
	require.NoError(t, db.Exec(entries).Error)
	return db
}

func createCompletedDelivery(t *testing.T, db *gorm.DB, establishmentID uuid.UUID, courierID *uuid.UUID, totalCents, payoutCents int, operatorFulfilled bool, completedAt time.Time) *models.Delivery {
	t.Helper()

	delivery := &models.Delivery{
		ID:                   uuid.New(),
		EstablishmentID:      establishmentID,
		CourierID:            courierID,
		Status:               enums.DeliveryStatusCompleted,
		PickupAddress:        "Av. Central 100",
		DestinationAddresses: pq.StringArray{"Rua Sete 123"},
		PaymentMethod:        enums.PaymentMethodCash,
		TotalCents:           totalCents,
		CourierPayoutCents:   payoutCents,
		OperatorProfitCents:  totalCents - payoutCents,
		OperatorFulfilled:    operatorFulfilled,
		CompletedAt:          &completedAt,
	}
	require.NoError(t, db.Create(delivery).Error)
	return delivery
}

func createEntry(t *testing.T, repo Repository, kind enums.LedgerEntryKind, establishmentID, courierID *uuid.UUID, amountCents int, createdAt time.Time) *models.LedgerEntry {
	t.Helper()

	entry := &models.LedgerEntry{
		ID:              uuid.New(),
		Kind:            kind,
		EstablishmentID: establishmentID,
		CourierID:       courierID,
		AmountCents:     amountCents,
		PaymentMethod:   enums.PaymentMethodCash,
		RecordedByID:    uuid.New(),
		CreatedAt:       createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	return entry
}

func TestListForEstablishmentOrdersNewestFirst(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	establishmentID := uuid.New()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	older := createEntry(t, repo, enums.LedgerEntryKindReceiptFromEstablishment, &establishmentID, nil, 5000, base)
	newer := createEntry(t, repo, enums.LedgerEntryKindReceiptFromEstablishment, &establishmentID, nil, 7000, base.Add(48*time.Hour))
	createEntry(t, repo, enums.LedgerEntryKindReceiptFromEstablishment, ptrUUID(uuid.New()), nil, 9000, base)

	entries, err := repo.ListForEstablishment(context.Background(), establishmentID, Range{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, newer.ID, entries[0].ID)
	assert.Equal(t, older.ID, entries[1].ID)
}

func TestSumEntriesForEstablishmentHonorsRange(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	establishmentID := uuid.New()

	july := time.Date(2026, 7, 15, 9, 0, 0, 0, time.UTC)
	august := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	createEntry(t, repo, enums.LedgerEntryKindReceiptFromEstablishment, &establishmentID, nil, 4000, july)
	createEntry(t, repo, enums.LedgerEntryKindReceiptFromEstablishment, &establishmentID, nil, 6000, august)
	courierID := uuid.New()
	createEntry(t, repo, enums.LedgerEntryKindPaymentToCourier, nil, &courierID, 2500, august)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	total, err := repo.SumEntriesForEstablishment(context.Background(), establishmentID, Range{From: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), total)

	total, err = repo.SumEntriesForEstablishment(context.Background(), establishmentID, Range{})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), total)
}

func TestSumCompletedPayoutForCourierSkipsOperatorRuns(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	establishmentID := uuid.New()
	courierID := uuid.New()

	completed := time.Date(2026, 8, 20, 18, 0, 0, 0, time.UTC)
	createCompletedDelivery(t, db, establishmentID, &courierID, 10000, 3000, false, completed)
	createCompletedDelivery(t, db, establishmentID, &courierID, 8000, 2400, true, completed)

	payout, err := repo.SumCompletedPayoutForCourier(context.Background(), courierID, Range{})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), payout)
}

func TestCompletedAggregatesCountsOnlyCompleted(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	establishmentID := uuid.New()
	courierID := uuid.New()

	completed := time.Date(2026, 8, 5, 14, 0, 0, 0, time.UTC)
	createCompletedDelivery(t, db, establishmentID, &courierID, 12000, 4000, false, completed)
	createCompletedDelivery(t, db, establishmentID, &courierID, 9000, 3000, false, completed.Add(72*time.Hour))

	pending := &models.Delivery{
		ID:                   uuid.New(),
		EstablishmentID:      establishmentID,
		CourierID:            &courierID,
		Status:               enums.DeliveryStatusEnRoute,
		PickupAddress:        "Av. Central 100",
		DestinationAddresses: pq.StringArray{"Rua Nove 55"},
		PaymentMethod:        enums.PaymentMethodCash,
		TotalCents:           5000,
	}
	require.NoError(t, db.Create(pending).Error)

	agg, err := repo.CompletedAggregates(context.Background(), Range{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.DeliveryCount)
	assert.Equal(t, int64(21000), agg.GrossCents)
	assert.Equal(t, int64(7000), agg.CourierCostCents)

	to := completed.Add(24 * time.Hour)
	agg, err = repo.CompletedAggregates(context.Background(), Range{To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.DeliveryCount)
	assert.Equal(t, int64(12000), agg.GrossCents)
}

func ptrUUID(id uuid.UUID) *uuid.UUID {
	return &id
}
