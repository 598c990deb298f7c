package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/internal/intake"
	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
)

type testIntakeService struct {
	ingestFn  func(ctx context.Context, input intake.IngestInput) (*models.IntakeRequest, error)
	listFn    func(ctx context.Context, establishmentID *uuid.UUID) ([]intake.Candidate, error)
	dismissFn func(ctx context.Context, input intake.DismissInput) error
	resolveFn func(ctx context.Context, token string) (*models.Establishment, error)
}

func (s *testIntakeService) Ingest(ctx context.Context, input intake.IngestInput) (*models.IntakeRequest, error) {
	if s.ingestFn != nil {
		return s.ingestFn(ctx, input)
	}
	return &models.IntakeRequest{}, nil
}

func (s *testIntakeService) ListCandidates(ctx context.Context, establishmentID *uuid.UUID) ([]intake.Candidate, error) {
	if s.listFn != nil {
		return s.listFn(ctx, establishmentID)
	}
	return nil, nil
}

func (s *testIntakeService) Dismiss(ctx context.Context, input intake.DismissInput) error {
	if s.dismissFn != nil {
		return s.dismissFn(ctx, input)
	}
	return nil
}

func (s *testIntakeService) ResolveIntakeToken(ctx context.Context, token string) (*models.Establishment, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, token)
	}
	return &models.Establishment{}, nil
}

func TestIntakeIngestRequiresToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/requests", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	IntakeIngest(&testIntakeService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestIntakeIngestRejectsUnknownToken(t *testing.T) {
	svc := &testIntakeService{
		resolveFn: func(ctx context.Context, token string) (*models.Establishment, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown intake token")
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/requests", strings.NewReader(`{}`))
	req.Header.Set(intakeTokenHeader, "stale-token")
	resp := httptest.NewRecorder()
	IntakeIngest(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestIntakeIngestStoresRawPayload(t *testing.T) {
	establishmentID := uuid.New()
	requestID := uuid.New()
	payload := `{"endereco":"Rua Sete 123","pedido":"2 caixas","pagamento":"cash","total":3500}`
	svc := &testIntakeService{
		resolveFn: func(ctx context.Context, token string) (*models.Establishment, error) {
			if token != "good-token" {
				t.Fatalf("unexpected token %q", token)
			}
			return &models.Establishment{ID: establishmentID}, nil
		},
		ingestFn: func(ctx context.Context, input intake.IngestInput) (*models.IntakeRequest, error) {
			if input.EstablishmentID != establishmentID {
				t.Fatalf("unexpected establishment %s", input.EstablishmentID)
			}
			if string(input.RawPayload) != payload {
				t.Fatalf("payload not preserved: %s", input.RawPayload)
			}
			return &models.IntakeRequest{ID: requestID, Status: enums.IntakeRequestStatusPending}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/requests", strings.NewReader(payload))
	req.Header.Set(intakeTokenHeader, "good-token")
	resp := httptest.NewRecorder()
	IntakeIngest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("unexpected status %d body %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data struct {
			IntakeRequestID uuid.UUID `json:"intake_request_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.IntakeRequestID != requestID {
		t.Fatalf("unexpected request id %s", envelope.Data.IntakeRequestID)
	}
}

func TestIntakeIngestRejectsMalformedJSON(t *testing.T) {
	svc := &testIntakeService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/requests", strings.NewReader(`{"broken":`))
	req.Header.Set(intakeTokenHeader, "good-token")
	resp := httptest.NewRecorder()
	IntakeIngest(svc, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDismissCandidateForwardsActor(t *testing.T) {
	dispatcherID := uuid.New()
	intakeRequestID := uuid.New()
	called := false
	svc := &testIntakeService{
		dismissFn: func(ctx context.Context, input intake.DismissInput) error {
			called = true
			if input.IntakeRequestID != intakeRequestID {
				t.Fatalf("unexpected request %s", input.IntakeRequestID)
			}
			if input.ActorID != dispatcherID {
				t.Fatalf("unexpected actor %s", input.ActorID)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/candidates/"+intakeRequestID.String()+"/dismiss", nil)
	req = withActor(req, dispatcherID, enums.ActorRoleDispatcher)
	req = addRouteParam(req, "intakeRequestId", intakeRequestID.String())
	resp := httptest.NewRecorder()
	DismissCandidate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d body %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
}
