package establishments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
)

type stubEstablishmentsRepo struct {
	establishment *models.Establishment
	prices        map[string]*models.PriceTable
	updates       map[string]any
}

func (s *stubEstablishmentsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubEstablishmentsRepo) Create(ctx context.Context, establishment *models.Establishment) (*models.Establishment, error) {
	if establishment.ID == uuid.Nil {
		establishment.ID = uuid.New()
	}
	s.establishment = establishment
	return establishment, nil
}

func (s *stubEstablishmentsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	if s.establishment == nil || s.establishment.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.establishment, nil
}

func (s *stubEstablishmentsRepo) List(ctx context.Context, onlyActive bool) ([]models.Establishment, error) {
	if s.establishment == nil {
		return nil, nil
	}
	return []models.Establishment{*s.establishment}, nil
}

func (s *stubEstablishmentsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	if token, ok := updates["intake_token"].(string); ok && s.establishment != nil {
		s.establishment.IntakeToken = token
	}
	return nil
}

func (s *stubEstablishmentsRepo) UpsertPriceTable(ctx context.Context, entry *models.PriceTable) (*models.PriceTable, error) {
	if s.prices == nil {
		s.prices = make(map[string]*models.PriceTable)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.prices[entry.Zone] = entry
	return entry, nil
}

func (s *stubEstablishmentsRepo) ListPriceTables(ctx context.Context, establishmentID uuid.UUID) ([]models.PriceTable, error) {
	var out []models.PriceTable
	for _, entry := range s.prices {
		out = append(out, *entry)
	}
	return out, nil
}

func (s *stubEstablishmentsRepo) FindPriceForZone(ctx context.Context, establishmentID uuid.UUID, zone string) (*models.PriceTable, error) {
	entry, ok := s.prices[zone]
	if !ok || !entry.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return entry, nil
}

func TestRegisterGeneratesIntakeToken(t *testing.T) {
	repo := &stubEstablishmentsRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	establishment, err := svc.Register(context.Background(), RegisterInput{
		Name:      "Padaria Central",
		Address:   "Rua do Comércio 10",
		ActorRole: enums.ActorRoleDispatcher,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(establishment.IntakeToken) != intakeTokenBytes*2 {
		t.Fatalf("expected %d char token got %d", intakeTokenBytes*2, len(establishment.IntakeToken))
	}
	if !establishment.IsActive {
		t.Fatal("new establishments start active")
	}
}

func TestRegisterRequiresDispatcher(t *testing.T) {
	svc, _ := NewService(&stubEstablishmentsRepo{})
	_, err := svc.Register(context.Background(), RegisterInput{
		Name:      "Padaria",
		Address:   "Rua A",
		ActorRole: enums.ActorRoleCourier,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestRotateIntakeToken(t *testing.T) {
	establishmentID := uuid.New()
	repo := &stubEstablishmentsRepo{
		establishment: &models.Establishment{
			ID:          establishmentID,
			Name:        "Padaria",
			IntakeToken: "old-token",
			IsActive:    true,
		},
	}
	svc, _ := NewService(repo)

	token, err := svc.RotateIntakeToken(context.Background(), establishmentID, enums.ActorRoleDispatcher)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if token == "old-token" || token == "" {
		t.Fatal("expected a fresh token")
	}
	if repo.establishment.IntakeToken != token {
		t.Fatal("expected rotated token persisted")
	}
}

func TestSetPriceAndQuote(t *testing.T) {
	establishmentID := uuid.New()
	repo := &stubEstablishmentsRepo{
		establishment: &models.Establishment{ID: establishmentID, IsActive: true},
	}
	svc, _ := NewService(repo)

	_, err := svc.SetPrice(context.Background(), SetPriceInput{
		EstablishmentID: establishmentID,
		Zone:            "centro",
		PriceCents:      1200,
		IsActive:        true,
		ActorRole:       enums.ActorRoleDispatcher,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	price, err := svc.QuoteZone(context.Background(), establishmentID, "centro")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if price != 1200 {
		t.Fatalf("expected 1200 got %d", price)
	}

	if _, err := svc.QuoteZone(context.Background(), establishmentID, "zona-sul"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestSetPriceValidation(t *testing.T) {
	establishmentID := uuid.New()
	repo := &stubEstablishmentsRepo{
		establishment: &models.Establishment{ID: establishmentID, IsActive: true},
	}
	svc, _ := NewService(repo)

	_, err := svc.SetPrice(context.Background(), SetPriceInput{
		EstablishmentID: establishmentID,
		Zone:            "",
		PriceCents:      100,
		ActorRole:       enums.ActorRoleDispatcher,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation got %v", err)
	}

	_, err = svc.SetPrice(context.Background(), SetPriceInput{
		EstablishmentID: establishmentID,
		Zone:            "centro",
		PriceCents:      0,
		ActorRole:       enums.ActorRoleDispatcher,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation got %v", err)
	}
}
