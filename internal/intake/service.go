package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service ingests raw delivery requests and projects the unified candidate
// list dispatchers assign from. It never mutates deliveries itself; the
// assignment engine owns those transitions.
type Service interface {
	Ingest(ctx context.Context, input IngestInput) (*models.IntakeRequest, error)
	ListCandidates(ctx context.Context, establishmentID *uuid.UUID) ([]Candidate, error)
	Dismiss(ctx context.Context, input DismissInput) error
	ResolveIntakeToken(ctx context.Context, token string) (*models.Establishment, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// IngestInput carries one raw submission for an establishment's queue.
type IngestInput struct {
	EstablishmentID uuid.UUID
	RawPayload      json.RawMessage
}

// DismissInput discards a queued request without promoting it.
type DismissInput struct {
	IntakeRequestID uuid.UUID
	ActorID         uuid.UUID
	ActorRole       enums.ActorRole
}

// Candidate is one assignable entry in the merged intake listing. Provenance
// decides which assignment sub-path applies.
type Candidate struct {
	Source               enums.CandidateSource `json:"source"`
	IntakeRequestID      *uuid.UUID            `json:"intake_request_id,omitempty"`
	DeliveryID           *uuid.UUID            `json:"delivery_id,omitempty"`
	EstablishmentID      uuid.UUID             `json:"establishment_id"`
	PickupAddress        string                `json:"pickup_address"`
	DestinationAddresses []string              `json:"destination_addresses"`
	Description          *string               `json:"description,omitempty"`
	PaymentMethod        enums.PaymentMethod   `json:"payment_method"`
	TotalCents           int                   `json:"total_cents"`
	RejectionCount       int                   `json:"rejection_count"`
	CreatedAt            time.Time             `json:"created_at"`
}

// NewService builds the intake service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("intake repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) Ingest(ctx context.Context, input IngestInput) (*models.IntakeRequest, error) {
	if input.EstablishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "establishment id required")
	}

	parsed, err := ParseSubmission(input.RawPayload)
	if err != nil {
		return nil, err
	}

	var created *models.IntakeRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		establishment, err := repo.FindEstablishment(ctx, input.EstablishmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "establishment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load establishment")
		}
		if !establishment.IsActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "establishment is deactivated")
		}

		request := &models.IntakeRequest{
			EstablishmentID:      establishment.ID,
			Status:               enums.IntakeRequestStatusPending,
			PickupAddress:        establishment.Address,
			DestinationAddresses: parsed.DestinationAddresses,
			Description:          describeCustomer(parsed),
			PaymentMethod:        parsed.PaymentMethod,
			TotalCents:           parsed.TotalCents,
			RawPayload:           input.RawPayload,
		}
		stored, err := repo.CreateRequest(ctx, request)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create intake request")
		}
		created = stored

		event := outbox.DomainEvent{
			EventType:     enums.EventDeliveryRequested,
			AggregateType: enums.AggregateIntakeRequest,
			AggregateID:   stored.ID,
			Version:       1,
			Data: payloads.DeliveryRequestedEvent{
				IntakeRequestID:      stored.ID,
				EstablishmentID:      establishment.ID,
				PickupAddress:        stored.PickupAddress,
				DestinationAddresses: stored.DestinationAddresses,
				PaymentMethod:        stored.PaymentMethod,
				TotalCents:           stored.TotalCents,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListCandidates merges pending queue entries with pooled deliveries into one
// listing. Queue entries come first; rejected deliveries follow in the order
// they fell back.
func (s *service) ListCandidates(ctx context.Context, establishmentID *uuid.UUID) ([]Candidate, error) {
	requests, err := s.repo.ListPending(ctx, establishmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending intake requests")
	}
	pooled, err := s.repo.ListPoolDeliveries(ctx, establishmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pooled deliveries")
	}

	candidates := make([]Candidate, 0, len(requests)+len(pooled))
	for i := range requests {
		request := requests[i]
		id := request.ID
		candidates = append(candidates, Candidate{
			Source:               enums.CandidateSourceQueued,
			IntakeRequestID:      &id,
			EstablishmentID:      request.EstablishmentID,
			PickupAddress:        request.PickupAddress,
			DestinationAddresses: request.DestinationAddresses,
			Description:          request.Description,
			PaymentMethod:        request.PaymentMethod,
			TotalCents:           request.TotalCents,
			CreatedAt:            request.CreatedAt,
		})
	}
	for i := range pooled {
		delivery := pooled[i]
		id := delivery.ID
		candidates = append(candidates, Candidate{
			Source:               enums.CandidateSourcePersisted,
			DeliveryID:           &id,
			EstablishmentID:      delivery.EstablishmentID,
			PickupAddress:        delivery.PickupAddress,
			DestinationAddresses: delivery.DestinationAddresses,
			Description:          delivery.Description,
			PaymentMethod:        delivery.PaymentMethod,
			TotalCents:           delivery.TotalCents,
			RejectionCount:       delivery.RejectionCount,
			CreatedAt:            delivery.CreatedAt,
		})
	}
	return candidates, nil
}

func (s *service) Dismiss(ctx context.Context, input DismissInput) error {
	if input.IntakeRequestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "intake request id required")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if input.ActorRole != enums.ActorRoleDispatcher {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only dispatchers dismiss intake requests")
	}

	dismissed, err := s.repo.DismissRequest(ctx, input.IntakeRequestID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dismiss intake request")
	}
	if !dismissed {
		return pkgerrors.New(pkgerrors.CodeCandidateGone, "intake request no longer pending")
	}
	return nil
}

func (s *service) ResolveIntakeToken(ctx context.Context, token string) (*models.Establishment, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "intake token required")
	}
	establishment, err := s.repo.FindEstablishmentByIntakeToken(ctx, token)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown intake token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve intake token")
	}
	if !establishment.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "establishment is deactivated")
	}
	return establishment, nil
}

func describeCustomer(parsed *ParsedRequest) *string {
	parts := make([]string, 0, 3)
	if parsed.CustomerName != "" {
		parts = append(parts, parsed.CustomerName)
	}
	if parsed.CustomerPhone != "" {
		parts = append(parts, parsed.CustomerPhone)
	}
	if parsed.Note != "" {
		parts = append(parts, parsed.Note)
	}
	if len(parts) == 0 {
		return nil
	}
	description := strings.Join(parts, " - ")
	return &description
}
