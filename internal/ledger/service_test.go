package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
)

type stubLedgerRepo struct {
	entries []models.LedgerEntry

	deliveredByEstablishment map[uuid.UUID]int64
	payoutByCourier          map[uuid.UUID]int64
	aggregates               OperatorAggregates

	createErr error
}

func (s *stubLedgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if s.createErr != nil {
		return s.createErr
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubLedgerRepo) ListForEstablishment(ctx context.Context, establishmentID uuid.UUID, rng Range) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if e.EstablishmentID != nil && *e.EstablishmentID == establishmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubLedgerRepo) ListForCourier(ctx context.Context, courierID uuid.UUID, rng Range) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range s.entries {
		if e.CourierID != nil && *e.CourierID == courierID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubLedgerRepo) SumEntriesForEstablishment(ctx context.Context, establishmentID uuid.UUID, rng Range) (int64, error) {
	var total int64
	for _, e := range s.entries {
		if e.Kind == enums.LedgerEntryKindReceiptFromEstablishment && e.EstablishmentID != nil && *e.EstablishmentID == establishmentID {
			total += int64(e.AmountCents)
		}
	}
	return total, nil
}

func (s *stubLedgerRepo) SumEntriesForCourier(ctx context.Context, courierID uuid.UUID, rng Range) (int64, error) {
	var total int64
	for _, e := range s.entries {
		if e.Kind == enums.LedgerEntryKindPaymentToCourier && e.CourierID != nil && *e.CourierID == courierID {
			total += int64(e.AmountCents)
		}
	}
	return total, nil
}

func (s *stubLedgerRepo) SumCompletedTotalForEstablishment(ctx context.Context, establishmentID uuid.UUID, rng Range) (int64, error) {
	return s.deliveredByEstablishment[establishmentID], nil
}

func (s *stubLedgerRepo) SumCompletedPayoutForCourier(ctx context.Context, courierID uuid.UUID, rng Range) (int64, error) {
	return s.payoutByCourier[courierID], nil
}

func (s *stubLedgerRepo) CompletedAggregates(ctx context.Context, rng Range) (OperatorAggregates, error) {
	return s.aggregates, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("expected service, got %v", err)
	}
	return svc
}

func TestRecordTransactionReceipt(t *testing.T) {
	repo := &stubLedgerRepo{}
	svc := newTestService(t, repo)

	establishmentID := uuid.New()
	note := "weekly settlement"
	entry, err := svc.RecordTransaction(context.Background(), TransactionInput{
		Kind:          enums.LedgerEntryKindReceiptFromEstablishment,
		EntityID:      establishmentID,
		AmountCents:   12500,
		PaymentMethod: enums.PaymentMethodPix,
		Note:          &note,
		RecordedByID:  uuid.New(),
		ActorRole:     enums.ActorRoleDispatcher,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if entry.EstablishmentID == nil || *entry.EstablishmentID != establishmentID {
		t.Fatalf("expected establishment target, got %+v", entry)
	}
	if entry.CourierID != nil {
		t.Fatalf("receipt must not target a courier")
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected one persisted entry, got %d", len(repo.entries))
	}
}

func TestRecordTransactionPaymentTargetsCourier(t *testing.T) {
	repo := &stubLedgerRepo{}
	svc := newTestService(t, repo)

	courierID := uuid.New()
	entry, err := svc.RecordTransaction(context.Background(), TransactionInput{
		Kind:          enums.LedgerEntryKindPaymentToCourier,
		EntityID:      courierID,
		AmountCents:   8000,
		PaymentMethod: enums.PaymentMethodCash,
		RecordedByID:  uuid.New(),
		ActorRole:     enums.ActorRoleDispatcher,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if entry.CourierID == nil || *entry.CourierID != courierID {
		t.Fatalf("expected courier target, got %+v", entry)
	}
	if entry.EstablishmentID != nil {
		t.Fatalf("payment must not target an establishment")
	}
}

func TestRecordTransactionRequiresDispatcher(t *testing.T) {
	svc := newTestService(t, &stubLedgerRepo{})

	_, err := svc.RecordTransaction(context.Background(), TransactionInput{
		Kind:          enums.LedgerEntryKindPaymentToCourier,
		EntityID:      uuid.New(),
		AmountCents:   100,
		PaymentMethod: enums.PaymentMethodPix,
		RecordedByID:  uuid.New(),
		ActorRole:     enums.ActorRoleCourier,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRecordTransactionValidation(t *testing.T) {
	svc := newTestService(t, &stubLedgerRepo{})

	cases := []struct {
		name  string
		input TransactionInput
	}{
		{"bad kind", TransactionInput{Kind: "refund", EntityID: uuid.New(), AmountCents: 100, PaymentMethod: enums.PaymentMethodPix, RecordedByID: uuid.New(), ActorRole: enums.ActorRoleDispatcher}},
		{"zero amount", TransactionInput{Kind: enums.LedgerEntryKindPaymentToCourier, EntityID: uuid.New(), AmountCents: 0, PaymentMethod: enums.PaymentMethodPix, RecordedByID: uuid.New(), ActorRole: enums.ActorRoleDispatcher}},
		{"negative amount", TransactionInput{Kind: enums.LedgerEntryKindPaymentToCourier, EntityID: uuid.New(), AmountCents: -50, PaymentMethod: enums.PaymentMethodPix, RecordedByID: uuid.New(), ActorRole: enums.ActorRoleDispatcher}},
		{"missing entity", TransactionInput{Kind: enums.LedgerEntryKindPaymentToCourier, AmountCents: 100, PaymentMethod: enums.PaymentMethodPix, RecordedByID: uuid.New(), ActorRole: enums.ActorRoleDispatcher}},
		{"bad method", TransactionInput{Kind: enums.LedgerEntryKindPaymentToCourier, EntityID: uuid.New(), AmountCents: 100, PaymentMethod: "card", RecordedByID: uuid.New(), ActorRole: enums.ActorRoleDispatcher}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.RecordTransaction(context.Background(), tc.input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestEstablishmentBalanceRecomputes(t *testing.T) {
	establishmentID := uuid.New()
	repo := &stubLedgerRepo{
		deliveredByEstablishment: map[uuid.UUID]int64{establishmentID: 50000},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()

	balance, err := svc.EstablishmentBalance(ctx, establishmentID, Range{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if balance.OutstandingCents != 50000 {
		t.Fatalf("expected 50000 outstanding before receipts, got %d", balance.OutstandingCents)
	}

	for _, amount := range []int{20000, 15000} {
		if _, err := svc.RecordTransaction(ctx, TransactionInput{
			Kind:          enums.LedgerEntryKindReceiptFromEstablishment,
			EntityID:      establishmentID,
			AmountCents:   amount,
			PaymentMethod: enums.PaymentMethodPix,
			RecordedByID:  uuid.New(),
			ActorRole:     enums.ActorRoleDispatcher,
		}); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	}

	balance, err = svc.EstablishmentBalance(ctx, establishmentID, Range{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if balance.DeliveredCents != 50000 || balance.SettledCents != 35000 || balance.OutstandingCents != 15000 {
		t.Fatalf("expected 50000/35000/15000, got %+v", balance)
	}
}

func TestCourierBalanceCanGoNegative(t *testing.T) {
	courierID := uuid.New()
	repo := &stubLedgerRepo{
		payoutByCourier: map[uuid.UUID]int64{courierID: 3000},
	}
	svc := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.RecordTransaction(ctx, TransactionInput{
		Kind:          enums.LedgerEntryKindPaymentToCourier,
		EntityID:      courierID,
		AmountCents:   5000,
		PaymentMethod: enums.PaymentMethodCash,
		RecordedByID:  uuid.New(),
		ActorRole:     enums.ActorRoleDispatcher,
	}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	balance, err := svc.CourierBalance(ctx, courierID, Range{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if balance.OutstandingCents != -2000 {
		t.Fatalf("expected -2000 outstanding after overpayment, got %d", balance.OutstandingCents)
	}
}

func TestOperatorSummaryNet(t *testing.T) {
	repo := &stubLedgerRepo{
		aggregates: OperatorAggregates{DeliveryCount: 12, GrossCents: 120000, CourierCostCents: 78000},
	}
	svc := newTestService(t, repo)

	summary, err := svc.OperatorSummary(context.Background(), Range{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if summary.NetCents != 42000 {
		t.Fatalf("expected net 42000, got %d", summary.NetCents)
	}
	if summary.DeliveryCount != 12 {
		t.Fatalf("expected 12 deliveries, got %d", summary.DeliveryCount)
	}
}

func TestListTransactionsRequiresFilter(t *testing.T) {
	svc := newTestService(t, &stubLedgerRepo{})

	if _, err := svc.ListTransactions(context.Background(), ListTransactionsInput{}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
