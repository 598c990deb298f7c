package intake

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox"
)

type stubIntakeRepo struct {
	establishment *models.Establishment
	requests      []models.IntakeRequest
	pooled        []models.Delivery
	created       *models.IntakeRequest
	dismissed     map[uuid.UUID]bool
}

func (s *stubIntakeRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubIntakeRepo) CreateRequest(ctx context.Context, request *models.IntakeRequest) (*models.IntakeRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	s.created = request
	return request, nil
}

func (s *stubIntakeRepo) FindRequest(ctx context.Context, id uuid.UUID) (*models.IntakeRequest, error) {
	for i := range s.requests {
		if s.requests[i].ID == id {
			return &s.requests[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubIntakeRepo) ListPending(ctx context.Context, establishmentID *uuid.UUID) ([]models.IntakeRequest, error) {
	var out []models.IntakeRequest
	for _, request := range s.requests {
		if request.Status != enums.IntakeRequestStatusPending {
			continue
		}
		if establishmentID != nil && request.EstablishmentID != *establishmentID {
			continue
		}
		out = append(out, request)
	}
	return out, nil
}

func (s *stubIntakeRepo) DismissRequest(ctx context.Context, id uuid.UUID, dismissedAt time.Time) (bool, error) {
	for i := range s.requests {
		if s.requests[i].ID == id && s.requests[i].Status == enums.IntakeRequestStatusPending {
			s.requests[i].Status = enums.IntakeRequestStatusDismissed
			if s.dismissed == nil {
				s.dismissed = make(map[uuid.UUID]bool)
			}
			s.dismissed[id] = true
			return true, nil
		}
	}
	return false, nil
}

func (s *stubIntakeRepo) ListPoolDeliveries(ctx context.Context, establishmentID *uuid.UUID) ([]models.Delivery, error) {
	var out []models.Delivery
	for _, delivery := range s.pooled {
		if establishmentID != nil && delivery.EstablishmentID != *establishmentID {
			continue
		}
		out = append(out, delivery)
	}
	return out, nil
}

func (s *stubIntakeRepo) FindEstablishment(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	if s.establishment == nil || s.establishment.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.establishment, nil
}

func (s *stubIntakeRepo) FindEstablishmentByIntakeToken(ctx context.Context, token string) (*models.Establishment, error) {
	if s.establishment == nil || s.establishment.IntakeToken != token {
		return nil, gorm.ErrRecordNotFound
	}
	return s.establishment, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestIngestStoresRawPayloadAndEmits(t *testing.T) {
	establishmentID := uuid.New()
	repo := &stubIntakeRepo{
		establishment: &models.Establishment{
			ID:       establishmentID,
			Name:     "Padaria Central",
			Address:  "Rua do Comércio 10",
			IsActive: true,
		},
	}
	outboxStub := &stubOutboxPublisher{}
	svc, err := NewService(repo, stubTxRunner{}, outboxStub)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	raw := json.RawMessage(`{"nome": "João", "endereco_cliente": "Rua A 1", "valor_frete": "15"}`)
	request, err := svc.Ingest(context.Background(), IngestInput{
		EstablishmentID: establishmentID,
		RawPayload:      raw,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if request.Status != enums.IntakeRequestStatusPending {
		t.Fatalf("expected pending got %s", request.Status)
	}
	if request.PickupAddress != "Rua do Comércio 10" {
		t.Fatalf("expected pickup inherited from establishment got %q", request.PickupAddress)
	}
	if request.TotalCents != 1500 {
		t.Fatalf("expected 1500 cents got %d", request.TotalCents)
	}
	if string(request.RawPayload) != string(raw) {
		t.Fatal("raw payload must be stored untouched")
	}
	if len(outboxStub.events) != 1 || outboxStub.events[0].EventType != enums.EventDeliveryRequested {
		t.Fatalf("expected delivery.requested event got %+v", outboxStub.events)
	}
	if outboxStub.events[0].AggregateType != enums.AggregateIntakeRequest {
		t.Fatalf("unexpected aggregate %s", outboxStub.events[0].AggregateType)
	}
}

func TestIngestRejectsUnknownEstablishment(t *testing.T) {
	svc, _ := NewService(&stubIntakeRepo{}, stubTxRunner{}, &stubOutboxPublisher{})
	_, err := svc.Ingest(context.Background(), IngestInput{
		EstablishmentID: uuid.New(),
		RawPayload:      json.RawMessage(`{"endereco_cliente": "Rua A"}`),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestListCandidatesMergesWithProvenance(t *testing.T) {
	establishmentID := uuid.New()
	queuedID := uuid.New()
	pooledID := uuid.New()
	repo := &stubIntakeRepo{
		requests: []models.IntakeRequest{
			{
				ID:              queuedID,
				EstablishmentID: establishmentID,
				Status:          enums.IntakeRequestStatusPending,
				PickupAddress:   "Rua do Comércio 10",
				PaymentMethod:   enums.PaymentMethodPix,
				TotalCents:      1500,
			},
			{
				ID:              uuid.New(),
				EstablishmentID: establishmentID,
				Status:          enums.IntakeRequestStatusConsumed,
			},
		},
		pooled: []models.Delivery{
			{
				ID:              pooledID,
				EstablishmentID: establishmentID,
				Status:          enums.DeliveryStatusAwaitingPool,
				PickupAddress:   "Rua do Comércio 10",
				PaymentMethod:   enums.PaymentMethodCash,
				TotalCents:      2000,
				RejectionCount:  2,
			},
		},
	}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	candidates, err := svc.ListCandidates(context.Background(), &establishmentID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates got %d", len(candidates))
	}
	queued := candidates[0]
	if queued.Source != enums.CandidateSourceQueued {
		t.Fatalf("expected queued first got %s", queued.Source)
	}
	if queued.IntakeRequestID == nil || *queued.IntakeRequestID != queuedID {
		t.Fatal("queued candidate must reference its intake request")
	}
	if queued.DeliveryID != nil {
		t.Fatal("queued candidate must not carry a delivery id")
	}
	persisted := candidates[1]
	if persisted.Source != enums.CandidateSourcePersisted {
		t.Fatalf("expected persisted got %s", persisted.Source)
	}
	if persisted.DeliveryID == nil || *persisted.DeliveryID != pooledID {
		t.Fatal("persisted candidate must reference its delivery")
	}
	if persisted.RejectionCount != 2 {
		t.Fatalf("expected rejection count surfaced got %d", persisted.RejectionCount)
	}
}

func TestDismissOnlyPending(t *testing.T) {
	requestID := uuid.New()
	repo := &stubIntakeRepo{
		requests: []models.IntakeRequest{
			{
				ID:     requestID,
				Status: enums.IntakeRequestStatusPending,
			},
		},
	}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	err := svc.Dismiss(context.Background(), DismissInput{
		IntakeRequestID: requestID,
		ActorID:         uuid.New(),
		ActorRole:       enums.ActorRoleDispatcher,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	err = svc.Dismiss(context.Background(), DismissInput{
		IntakeRequestID: requestID,
		ActorID:         uuid.New(),
		ActorRole:       enums.ActorRoleDispatcher,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeCandidateGone) {
		t.Fatalf("expected candidate gone got %v", err)
	}
}

func TestDismissRequiresDispatcher(t *testing.T) {
	svc, _ := NewService(&stubIntakeRepo{}, stubTxRunner{}, &stubOutboxPublisher{})
	err := svc.Dismiss(context.Background(), DismissInput{
		IntakeRequestID: uuid.New(),
		ActorID:         uuid.New(),
		ActorRole:       enums.ActorRoleCourier,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestResolveIntakeToken(t *testing.T) {
	repo := &stubIntakeRepo{
		establishment: &models.Establishment{
			ID:          uuid.New(),
			IntakeToken: "tok-123",
			IsActive:    true,
		},
	}
	svc, _ := NewService(repo, stubTxRunner{}, &stubOutboxPublisher{})

	establishment, err := svc.ResolveIntakeToken(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if establishment.ID != repo.establishment.ID {
		t.Fatal("unexpected establishment resolved")
	}

	if _, err := svc.ResolveIntakeToken(context.Background(), "nope"); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized got %v", err)
	}
}
