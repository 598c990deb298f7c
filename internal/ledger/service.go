package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	"github.com/rapidusexpress/rapidus-backend/pkg/errors"
)

// Service appends manual money facts and answers balance queries. Balances
// are always recomputed from completed deliveries plus the entry history;
// there is no running counter anywhere that could drift.
type Service interface {
	RecordTransaction(ctx context.Context, input TransactionInput) (*models.LedgerEntry, error)
	ListTransactions(ctx context.Context, input ListTransactionsInput) ([]models.LedgerEntry, error)
	EstablishmentBalance(ctx context.Context, establishmentID uuid.UUID, rng Range) (*Balance, error)
	CourierBalance(ctx context.Context, courierID uuid.UUID, rng Range) (*Balance, error)
	OperatorSummary(ctx context.Context, rng Range) (*Summary, error)
}

type service struct {
	repo Repository
}

// TransactionInput is one manual append-only fact: money received from an
// establishment or paid out to a courier. EntityID targets whichever party
// the kind names.
type TransactionInput struct {
	Kind          enums.LedgerEntryKind
	EntityID      uuid.UUID
	AmountCents   int
	PaymentMethod enums.PaymentMethod
	Note          *string
	RecordedByID  uuid.UUID
	ActorRole     enums.ActorRole
}

// ListTransactionsInput scopes the entry history to one party over a range.
type ListTransactionsInput struct {
	EstablishmentID *uuid.UUID
	CourierID       *uuid.UUID
	Range           Range
}

// Balance reports one party's money position over a range. Outstanding is
// the delivery-side sum minus the settled entries, and may go negative when
// a party was overpaid.
type Balance struct {
	DeliveredCents   int64 `json:"delivered_cents"`
	SettledCents     int64 `json:"settled_cents"`
	OutstandingCents int64 `json:"outstanding_cents"`
}

// Summary is the operator dashboard aggregate over completed deliveries.
// Net folds both cases together: split profit on courier runs plus the full
// total of operator-fulfilled runs, which carry no payout.
type Summary struct {
	DeliveryCount    int64 `json:"delivery_count"`
	GrossCents       int64 `json:"gross_cents"`
	CourierCostCents int64 `json:"courier_cost_cents"`
	NetCents         int64 `json:"net_cents"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordTransaction(ctx context.Context, input TransactionInput) (*models.LedgerEntry, error) {
	if input.ActorRole != enums.ActorRoleDispatcher {
		return nil, errors.New(errors.CodeForbidden, "only dispatchers record transactions")
	}
	if !input.Kind.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("invalid transaction kind %q", input.Kind))
	}
	if input.EntityID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "entity id is required")
	}
	if input.AmountCents <= 0 {
		return nil, errors.New(errors.CodeValidation, "amount must be positive")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.RecordedByID == uuid.Nil {
		return nil, errors.New(errors.CodeUnauthorized, "actor identity missing")
	}

	entry := &models.LedgerEntry{
		Kind:          input.Kind,
		AmountCents:   input.AmountCents,
		PaymentMethod: input.PaymentMethod,
		Note:          input.Note,
		RecordedByID:  input.RecordedByID,
	}
	entity := input.EntityID
	switch input.Kind {
	case enums.LedgerEntryKindReceiptFromEstablishment:
		entry.EstablishmentID = &entity
	case enums.LedgerEntryKindPaymentToCourier:
		entry.CourierID = &entity
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "recording ledger entry")
	}
	return entry, nil
}

func (s *service) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]models.LedgerEntry, error) {
	switch {
	case input.EstablishmentID != nil:
		entries, err := s.repo.ListForEstablishment(ctx, *input.EstablishmentID, input.Range)
		if err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "listing establishment entries")
		}
		return entries, nil
	case input.CourierID != nil:
		entries, err := s.repo.ListForCourier(ctx, *input.CourierID, input.Range)
		if err != nil {
			return nil, errors.Wrap(errors.CodeDependency, err, "listing courier entries")
		}
		return entries, nil
	default:
		return nil, errors.New(errors.CodeValidation, "an establishment or courier filter is required")
	}
}

// EstablishmentBalance is what the establishment still owes: completed
// delivery totals in range minus its recorded receipts in range.
func (s *service) EstablishmentBalance(ctx context.Context, establishmentID uuid.UUID, rng Range) (*Balance, error) {
	if establishmentID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "establishment id is required")
	}
	delivered, err := s.repo.SumCompletedTotalForEstablishment(ctx, establishmentID, rng)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "summing completed deliveries")
	}
	settled, err := s.repo.SumEntriesForEstablishment(ctx, establishmentID, rng)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "summing receipt entries")
	}
	return &Balance{
		DeliveredCents:   delivered,
		SettledCents:     settled,
		OutstandingCents: delivered - settled,
	}, nil
}

// CourierBalance is what the operator still owes the courier: completed
// payouts in range minus payments already handed over.
func (s *service) CourierBalance(ctx context.Context, courierID uuid.UUID, rng Range) (*Balance, error) {
	if courierID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "courier id is required")
	}
	delivered, err := s.repo.SumCompletedPayoutForCourier(ctx, courierID, rng)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "summing completed payouts")
	}
	settled, err := s.repo.SumEntriesForCourier(ctx, courierID, rng)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "summing payment entries")
	}
	return &Balance{
		DeliveredCents:   delivered,
		SettledCents:     settled,
		OutstandingCents: delivered - settled,
	}, nil
}

func (s *service) OperatorSummary(ctx context.Context, rng Range) (*Summary, error) {
	agg, err := s.repo.CompletedAggregates(ctx, rng)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "aggregating completed deliveries")
	}
	return &Summary{
		DeliveryCount:    agg.DeliveryCount,
		GrossCents:       agg.GrossCents,
		CourierCostCents: agg.CourierCostCents,
		NetCents:         agg.GrossCents - agg.CourierCostCents,
	}, nil
}
