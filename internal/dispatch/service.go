package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/config"
	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/metrics"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox/payloads"
	"github.com/rapidusexpress/rapidus-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the delivery lifecycle state machine. Every mutation runs in a
// single transaction combining the conditional status update, the financial
// snapshot, the courier availability flip, and the outbox emit. Settlement
// money is never written anywhere at completion; the ledger derives balances
// from the completed rows themselves.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*models.Delivery, error)
	Accept(ctx context.Context, input CommandInput) (*models.Delivery, error)
	Reject(ctx context.Context, input RejectInput) (*models.Delivery, error)
	ConfirmCollection(ctx context.Context, input CommandInput) (*models.Delivery, error)
	ConfirmCompletion(ctx context.Context, input CommandInput) (*models.Delivery, error)
	GetDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	ListActiveForCourier(ctx context.Context, courierID uuid.UUID) ([]models.Delivery, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	cfg     config.DispatchConfig
	metrics *metrics.DispatchMetrics
}

// Candidate references an assignment target in one of the two places it can
// live: still parked in the intake queue, or already persisted as a delivery
// sitting in the pool.
type Candidate struct {
	Source          enums.CandidateSource
	IntakeRequestID uuid.UUID
	DeliveryID      uuid.UUID
}

// AssignInput pins a candidate on a courier. A nil CourierID means the
// dispatcher fulfills the run personally and the operator keeps the full
// amount.
type AssignInput struct {
	Candidate Candidate
	CourierID *uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// CommandInput carries the delivery id plus the acting courier for the
// accept/collect/complete transitions.
type CommandInput struct {
	DeliveryID uuid.UUID
	ActorID    uuid.UUID
	ActorRole  enums.ActorRole
}

// RejectInput returns a delivery to the pool. Couriers may reject their own
// assigned or en_route runs; dispatchers may force an en_route abandon.
type RejectInput struct {
	DeliveryID uuid.UUID
	ActorID    uuid.UUID
	ActorRole  enums.ActorRole
	Reason     *string
}

// ListParams filters the delivery listing for dashboards.
type ListParams struct {
	EstablishmentID *uuid.UUID
	CourierID       *uuid.UUID
	Statuses        []enums.DeliveryStatus
	Search          string
	Limit           int
	Cursor          string
}

// ListResult wraps one page of deliveries and the cursor for the next.
type ListResult struct {
	Items  []models.Delivery `json:"items"`
	Cursor string            `json:"cursor"`
}

// NewService builds the dispatch service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, cfg config.DispatchConfig, dispatchMetrics *metrics.DispatchMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		cfg:     cfg,
		metrics: dispatchMetrics,
	}, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Delivery, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.ActorRole != enums.ActorRoleDispatcher {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only dispatchers assign deliveries")
	}
	if !input.Candidate.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "candidate source required")
	}

	var assigned *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now().UTC()

		var courier *models.Profile
		if input.CourierID != nil {
			profile, err := s.loadAvailableCourier(ctx, repo, *input.CourierID)
			if err != nil {
				return err
			}
			courier = profile
		}

		var delivery *models.Delivery
		var err error
		switch input.Candidate.Source {
		case enums.CandidateSourceQueued:
			delivery, err = s.promoteQueued(ctx, repo, input, courier, now)
		case enums.CandidateSourcePersisted:
			delivery, err = s.claimPooled(ctx, repo, input, courier, now)
		}
		if err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventDeliveryAssigned,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         buildActor(input.ActorID, input.ActorRole),
			Data: payloads.DeliveryAssignedEvent{
				DeliveryID:          delivery.ID,
				EstablishmentID:     delivery.EstablishmentID,
				CourierID:           delivery.CourierID,
				Status:              delivery.Status,
				TotalCents:          delivery.TotalCents,
				CourierPayoutCents:  delivery.CourierPayoutCents,
				OperatorProfitCents: delivery.OperatorProfitCents,
				OperatorFulfilled:   delivery.OperatorFulfilled,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		assigned = delivery
		return nil
	})
	if err != nil {
		return nil, err
	}

	mode := "courier"
	if assigned.OperatorFulfilled {
		mode = "operator"
	}
	s.metrics.IncAssigned(mode)
	return assigned, nil
}

// loadAvailableCourier is a best-effort availability read, not a lock. The
// conditional status update downstream is what actually decides races.
func (s *service) loadAvailableCourier(ctx context.Context, repo Repository, courierID uuid.UUID) (*models.Profile, error) {
	profile, err := repo.FindProfile(ctx, courierID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "courier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier profile")
	}
	if profile.Role != enums.ActorRoleCourier {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment target is not a courier")
	}
	if !profile.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeCourierUnavailable, "courier account is deactivated")
	}
	if !profile.Available {
		return nil, pkgerrors.New(pkgerrors.CodeCourierUnavailable, "courier is not available")
	}
	return profile, nil
}

func (s *service) splitFor(courier *models.Profile, totalCents int) (Split, error) {
	if courier == nil {
		return OperatorSplit(totalCents)
	}
	commission := s.cfg.DefaultCommissionPercent
	if courier.CommissionPercent != nil {
		commission = *courier.CommissionPercent
	}
	fixedFee := s.cfg.DefaultFixedFeeCents
	if courier.FixedFeeCents != nil {
		fixedFee = *courier.FixedFeeCents
	}
	return ComputeSplit(totalCents, commission, fixedFee)
}

// promoteQueued turns an intake request into a fresh delivery row. The claim
// on the queue slot and the insert share the transaction, so the request can
// never exist in both places or vanish from both.
func (s *service) promoteQueued(ctx context.Context, repo Repository, input AssignInput, courier *models.Profile, now time.Time) (*models.Delivery, error) {
	if input.Candidate.IntakeRequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intake request id required")
	}

	request, err := repo.FindIntakeRequest(ctx, input.Candidate.IntakeRequestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeCandidateGone, "intake request no longer available")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load intake request")
	}

	split, err := s.splitFor(courier, request.TotalCents)
	if err != nil {
		return nil, err
	}

	claimed, err := repo.ConsumeIntakeRequest(ctx, request.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume intake request")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeCandidateGone, "intake request already claimed")
	}

	requestID := request.ID
	delivery := &models.Delivery{
		EstablishmentID:      request.EstablishmentID,
		CourierID:            input.CourierID,
		IntakeRequestID:      &requestID,
		Status:               enums.DeliveryStatusAssigned,
		PickupAddress:        request.PickupAddress,
		DestinationAddresses: request.DestinationAddresses,
		Description:          request.Description,
		PaymentMethod:        request.PaymentMethod,
		TotalCents:           split.TotalCents,
		CourierPayoutCents:   split.CourierPayoutCents,
		OperatorProfitCents:  split.OperatorProfitCents,
		CommissionPercent:    split.CommissionPercent,
		FixedFeeCents:        split.FixedFeeCents,
		OperatorFulfilled:    split.OperatorFulfilled,
		AssignedByID:         &input.ActorID,
		AssignedAt:           &now,
	}
	created, err := repo.CreateDelivery(ctx, delivery)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
	}
	return created, nil
}

// claimPooled re-assigns a delivery sitting in awaiting_pool. The split is
// recomputed for the new courier; the rejected courier's numbers are gone.
func (s *service) claimPooled(ctx context.Context, repo Repository, input AssignInput, courier *models.Profile, now time.Time) (*models.Delivery, error) {
	if input.Candidate.DeliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}

	delivery, err := repo.FindDelivery(ctx, input.Candidate.DeliveryID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeCandidateGone, "delivery no longer available")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}

	split, err := s.splitFor(courier, delivery.TotalCents)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"courier_id":            input.CourierID,
		"status":                enums.DeliveryStatusAssigned,
		"total_cents":           split.TotalCents,
		"courier_payout_cents":  split.CourierPayoutCents,
		"operator_profit_cents": split.OperatorProfitCents,
		"commission_percent":    split.CommissionPercent,
		"fixed_fee_cents":       split.FixedFeeCents,
		"operator_fulfilled":    split.OperatorFulfilled,
		"assigned_by_id":        input.ActorID,
		"assigned_at":           now,
		"accepted_at":           nil,
		"collected_at":          nil,
	}
	claimed, err := repo.UpdateDeliveryIfStatus(ctx, delivery.ID, []enums.DeliveryStatus{enums.DeliveryStatusAwaitingPool}, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim pooled delivery")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeCandidateGone, "delivery already claimed")
	}

	refreshed, err := repo.FindDelivery(ctx, delivery.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery")
	}
	return refreshed, nil
}

func (s *service) Accept(ctx context.Context, input CommandInput) (*models.Delivery, error) {
	if input.DeliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var accepted *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := s.loadDelivery(ctx, repo, input.DeliveryID)
		if err != nil {
			return err
		}
		if delivery.CourierID == nil || *delivery.CourierID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery is assigned to another courier")
		}
		if delivery.Status == enums.DeliveryStatusEnRoute {
			// Retried accept by the same courier is a no-op.
			accepted = delivery
			return nil
		}
		if delivery.Status != enums.DeliveryStatusAssigned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot accept delivery in status %s", delivery.Status))
		}

		now := time.Now().UTC()
		moved, err := repo.UpdateDeliveryIfStatus(ctx, delivery.ID, []enums.DeliveryStatus{enums.DeliveryStatusAssigned}, map[string]any{
			"status":      enums.DeliveryStatusEnRoute,
			"accepted_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept delivery")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery changed state before acceptance")
		}

		if err := repo.SetAvailability(ctx, input.ActorID, false); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark courier unavailable")
		}

		delivery.Status = enums.DeliveryStatusEnRoute
		delivery.AcceptedAt = &now
		accepted = delivery

		event := outbox.DomainEvent{
			EventType:     enums.EventDeliveryAccepted,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         buildActor(input.ActorID, enums.ActorRoleCourier),
			Data: payloads.DeliveryAcceptedEvent{
				DeliveryID:      delivery.ID,
				EstablishmentID: delivery.EstablishmentID,
				CourierID:       input.ActorID,
				AcceptedAt:      now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.Delivery, error) {
	if input.DeliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var rejected *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := s.loadDelivery(ctx, repo, input.DeliveryID)
		if err != nil {
			return err
		}
		if delivery.CourierID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery has no courier to reject")
		}
		courierID := *delivery.CourierID

		switch delivery.Status {
		case enums.DeliveryStatusAssigned:
			if courierID != input.ActorID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "delivery is assigned to another courier")
			}
		case enums.DeliveryStatusEnRoute:
			// Abandoning an accepted run needs the courier themselves or a
			// dispatcher override.
			if input.ActorRole != enums.ActorRoleDispatcher && courierID != input.ActorID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "delivery is assigned to another courier")
			}
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot reject delivery in status %s", delivery.Status))
		}

		wasEnRoute := delivery.Status == enums.DeliveryStatusEnRoute
		updates := map[string]any{
			"status":                enums.DeliveryStatusAwaitingPool,
			"courier_id":            nil,
			"courier_payout_cents":  0,
			"operator_profit_cents": 0,
			"commission_percent":    0,
			"fixed_fee_cents":       0,
			"operator_fulfilled":    false,
			"assigned_at":           nil,
			"accepted_at":           nil,
			"rejection_count":       gorm.Expr("rejection_count + 1"),
		}
		if input.Reason != nil {
			updates["notes"] = *input.Reason
		}
		moved, err := repo.UpdateDeliveryIfStatus(ctx, delivery.ID, []enums.DeliveryStatus{
			enums.DeliveryStatusAssigned,
			enums.DeliveryStatusEnRoute,
		}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "return delivery to pool")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery changed state before rejection")
		}

		// Only an accepted run had marked the courier unavailable.
		if wasEnRoute {
			if err := repo.SetAvailability(ctx, courierID, true); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore courier availability")
			}
		}

		refreshed, err := repo.FindDelivery(ctx, delivery.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery")
		}
		rejected = refreshed

		event := outbox.DomainEvent{
			EventType:     enums.EventDeliveryRejected,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         buildActor(input.ActorID, input.ActorRole),
			Data: payloads.DeliveryRejectedEvent{
				DeliveryID:      delivery.ID,
				EstablishmentID: delivery.EstablishmentID,
				CourierID:       courierID,
				RejectionCount:  refreshed.RejectionCount,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRejected()
	return rejected, nil
}

func (s *service) ConfirmCollection(ctx context.Context, input CommandInput) (*models.Delivery, error) {
	if input.DeliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var collected *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := s.loadDelivery(ctx, repo, input.DeliveryID)
		if err != nil {
			return err
		}
		if delivery.CourierID == nil || *delivery.CourierID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery is assigned to another courier")
		}
		if delivery.Status != enums.DeliveryStatusEnRoute {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot confirm collection in status %s", delivery.Status))
		}

		now := time.Now().UTC()
		moved, err := repo.UpdateDeliveryIfStatus(ctx, delivery.ID, []enums.DeliveryStatus{enums.DeliveryStatusEnRoute}, map[string]any{
			"status":       enums.DeliveryStatusCollected,
			"collected_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm collection")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery changed state before collection")
		}

		delivery.Status = enums.DeliveryStatusCollected
		delivery.CollectedAt = &now
		collected = delivery

		event := outbox.DomainEvent{
			EventType:     enums.EventDeliveryCollected,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         buildActor(input.ActorID, enums.ActorRoleCourier),
			Data: payloads.DeliveryCollectedEvent{
				DeliveryID:      delivery.ID,
				EstablishmentID: delivery.EstablishmentID,
				CourierID:       input.ActorID,
				CollectedAt:     now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return collected, nil
}

func (s *service) ConfirmCompletion(ctx context.Context, input CommandInput) (*models.Delivery, error) {
	if input.DeliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var completed *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := s.loadDelivery(ctx, repo, input.DeliveryID)
		if err != nil {
			return err
		}
		isOperatorRun := delivery.OperatorFulfilled && delivery.CourierID == nil
		if isOperatorRun {
			if input.ActorRole != enums.ActorRoleDispatcher {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only dispatchers close self-fulfilled deliveries")
			}
		} else if delivery.CourierID == nil || *delivery.CourierID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery is assigned to another courier")
		}
		if delivery.Status == enums.DeliveryStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery is already completed")
		}

		// Self-fulfilled runs never pass through accept/collect; they close
		// straight from assigned.
		allowedFrom := []enums.DeliveryStatus{enums.DeliveryStatusCollected}
		if isOperatorRun {
			allowedFrom = []enums.DeliveryStatus{enums.DeliveryStatusAssigned, enums.DeliveryStatusEnRoute, enums.DeliveryStatusCollected}
		}
		if !statusIn(delivery.Status, allowedFrom) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot complete delivery in status %s", delivery.Status))
		}

		now := time.Now().UTC()
		moved, err := repo.UpdateDeliveryIfStatus(ctx, delivery.ID, allowedFrom, map[string]any{
			"status":       enums.DeliveryStatusCompleted,
			"completed_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete delivery")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery changed state before completion")
		}

		if delivery.CourierID != nil {
			if err := repo.SetAvailability(ctx, *delivery.CourierID, true); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore courier availability")
			}
		}

		delivery.Status = enums.DeliveryStatusCompleted
		delivery.CompletedAt = &now
		completed = delivery

		event := outbox.DomainEvent{
			EventType:     enums.EventDeliveryCompleted,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor:         buildActor(input.ActorID, input.ActorRole),
			Data: payloads.DeliveryCompletedEvent{
				DeliveryID:          delivery.ID,
				EstablishmentID:     delivery.EstablishmentID,
				CourierID:           delivery.CourierID,
				PaymentMethod:       delivery.PaymentMethod,
				TotalCents:          delivery.TotalCents,
				CourierPayoutCents:  delivery.CourierPayoutCents,
				OperatorProfitCents: delivery.OperatorProfitCents,
				OperatorFulfilled:   delivery.OperatorFulfilled,
				CompletedAt:         now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCompleted(completed.PaymentMethod.String())
	if completed.AssignedAt != nil && completed.CompletedAt != nil {
		s.metrics.ObserveRunDuration(completed.CompletedAt.Sub(*completed.AssignedAt))
	}
	return completed, nil
}

func (s *service) GetDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	return s.loadDelivery(ctx, s.repo, id)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := ListQuery{
		EstablishmentID: params.EstablishmentID,
		CourierID:       params.CourierID,
		Statuses:        params.Statuses,
		Search:          strings.TrimSpace(params.Search),
		Limit:           params.Limit,
	}
	for _, status := range params.Statuses {
		if !status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery status %q", status))
		}
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListDeliveries(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) ListActiveForCourier(ctx context.Context, courierID uuid.UUID) ([]models.Delivery, error) {
	if courierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}
	deliveries, err := s.repo.ListActiveByCourier(ctx, courierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list courier deliveries")
	}
	return deliveries, nil
}

func (s *service) loadDelivery(ctx context.Context, repo Repository, id uuid.UUID) (*models.Delivery, error) {
	delivery, err := repo.FindDelivery(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	return delivery, nil
}

func statusIn(status enums.DeliveryStatus, set []enums.DeliveryStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

func buildActor(actorID uuid.UUID, role enums.ActorRole) *outbox.ActorRef {
	return &outbox.ActorRef{
		ActorID: actorID,
		Role:    role.String(),
	}
}
