package dispatch

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

func setupDispatchTestDB(t *testing.T) *gorm.DB {
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
	intakeRequests := `
CREATE TABLE IF NOT EXISTS intake_requests (
  id TEXT PRIMARY KEY,
  establishment_id TEXT NOT NULL,
  status TEXT NOT NULL,
  pickup_address TEXT NOT NULL,
  destination_addresses TEXT NOT NULL,
  description TEXT,
  payment_method TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  raw_payload TEXT,
  consumed_at DATETIME,
  dismissed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(deliveries).Error)
	require.NoError(t, db.Exec(intakeRequests).Error)
	return db
}

func createAssignedDelivery(t *testing.T, db *gorm.DB, courierID uuid.UUID) *models.Delivery {
	t.Helper()

	assignedAt := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	delivery := &models.Delivery{
		ID:                   uuid.New(),
		EstablishmentID:      uuid.New(),
		CourierID:            &courierID,
		Status:               enums.DeliveryStatusAssigned,
		PickupAddress:        "Av. Central 100",
		DestinationAddresses: pq.StringArray{"Rua Sete 123"},
		PaymentMethod:        enums.PaymentMethodCash,
		TotalCents:           10000,
		CourierPayoutCents:   3000,
		OperatorProfitCents:  7000,
		AssignedAt:           &assignedAt,
	}
	require.NoError(t, db.Create(delivery).Error)
	return delivery
}

func createPendingIntakeRequest(t *testing.T, db *gorm.DB) *models.IntakeRequest {
	t.Helper()

	request := &models.IntakeRequest{
		ID:                   uuid.New(),
		EstablishmentID:      uuid.New(),
		Status:               enums.IntakeRequestStatusPending,
		PickupAddress:        "Av. Central 100",
		DestinationAddresses: pq.StringArray{"Rua Nove 55"},
		PaymentMethod:        enums.PaymentMethodPix,
		TotalCents:           4500,
	}
	require.NoError(t, db.Create(request).Error)
	return request
}

func TestUpdateDeliveryIfStatusSecondWriterLoses(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	courierID := uuid.New()
	delivery := createAssignedDelivery(t, db, courierID)

	acceptedAt := time.Date(2026, 8, 14, 10, 5, 0, 0, time.UTC)
	moved, err := repo.UpdateDeliveryIfStatus(context.Background(), delivery.ID,
		[]enums.DeliveryStatus{enums.DeliveryStatusAssigned},
		map[string]any{
			"status":      enums.DeliveryStatusEnRoute,
			"accepted_at": acceptedAt,
		})
	require.NoError(t, err)
	assert.True(t, moved)

	// The row already left assigned, so the losing writer sees no rows.
	moved, err = repo.UpdateDeliveryIfStatus(context.Background(), delivery.ID,
		[]enums.DeliveryStatus{enums.DeliveryStatusAssigned},
		map[string]any{"status": enums.DeliveryStatusAwaitingPool})
	require.NoError(t, err)
	assert.False(t, moved)

	stored, err := repo.FindDelivery(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusEnRoute, stored.Status)
	require.NotNil(t, stored.AcceptedAt)
}

func TestUpdateDeliveryIfStatusAcceptsAnyListedStatus(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	courierID := uuid.New()
	delivery := createAssignedDelivery(t, db, courierID)

	completedAt := time.Date(2026, 8, 14, 11, 0, 0, 0, time.UTC)
	moved, err := repo.UpdateDeliveryIfStatus(context.Background(), delivery.ID,
		[]enums.DeliveryStatus{
			enums.DeliveryStatusAssigned,
			enums.DeliveryStatusEnRoute,
			enums.DeliveryStatusCollected,
		},
		map[string]any{
			"status":       enums.DeliveryStatusCompleted,
			"completed_at": completedAt,
		})
	require.NoError(t, err)
	assert.True(t, moved)

	stored, err := repo.FindDelivery(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
}

func TestConsumeIntakeRequestIsExclusive(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	request := createPendingIntakeRequest(t, db)

	consumedAt := time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)
	claimed, err := repo.ConsumeIntakeRequest(context.Background(), request.ID, consumedAt)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second dispatcher racing for the same slot finds it already consumed.
	claimed, err = repo.ConsumeIntakeRequest(context.Background(), request.ID, consumedAt.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := repo.FindIntakeRequest(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.IntakeRequestStatusConsumed, stored.Status)
	require.NotNil(t, stored.ConsumedAt)
	assert.Equal(t, consumedAt, stored.ConsumedAt.UTC())
}

func TestConsumeIntakeRequestSkipsDismissed(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	request := createPendingIntakeRequest(t, db)

	dismissedAt := time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&models.IntakeRequest{}).
		Where("id = ?", request.ID).
		Updates(map[string]any{
			"status":       enums.IntakeRequestStatusDismissed,
			"dismissed_at": dismissedAt,
		}).Error)

	claimed, err := repo.ConsumeIntakeRequest(context.Background(), request.ID, dismissedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := repo.FindIntakeRequest(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.IntakeRequestStatusDismissed, stored.Status)
	assert.Nil(t, stored.ConsumedAt)
}
