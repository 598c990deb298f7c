package establishments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
)

const intakeTokenBytes = 24

// Service manages partner establishments, their intake credentials and the
// per-zone price tables dispatchers quote from.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Establishment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Establishment, error)
	List(ctx context.Context, onlyActive bool) ([]models.Establishment, error)
	Update(ctx context.Context, input UpdateInput) (*models.Establishment, error)
	RotateIntakeToken(ctx context.Context, id uuid.UUID, actorRole enums.ActorRole) (string, error)
	SetPrice(ctx context.Context, input SetPriceInput) (*models.PriceTable, error)
	ListPrices(ctx context.Context, establishmentID uuid.UUID) ([]models.PriceTable, error)
	QuoteZone(ctx context.Context, establishmentID uuid.UUID, zone string) (int, error)
}

type service struct {
	repo Repository
}

// RegisterInput creates a new partner establishment.
type RegisterInput struct {
	Name        string
	Address     string
	Phone       *string
	ContactName *string
	ActorRole   enums.ActorRole
}

// UpdateInput patches an establishment's contact data.
type UpdateInput struct {
	EstablishmentID uuid.UUID
	Name            *string
	Address         *string
	Phone           *string
	ContactName     *string
	IsActive        *bool
	ActorRole       enums.ActorRole
}

// SetPriceInput creates or updates one zone price.
type SetPriceInput struct {
	EstablishmentID uuid.UUID
	Zone            string
	PriceCents      int
	IsActive        bool
	ActorRole       enums.ActorRole
}

// NewService wires the establishments service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("establishments repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Establishment, error) {
	if input.ActorRole != enums.ActorRoleDispatcher {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only dispatchers register establishments")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "establishment name required")
	}
	if strings.TrimSpace(input.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection address required")
	}

	token, err := newIntakeToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate intake token")
	}

	establishment := &models.Establishment{
		Name:        strings.TrimSpace(input.Name),
		Address:     strings.TrimSpace(input.Address),
		Phone:       input.Phone,
		ContactName: input.ContactName,
		IntakeToken: token,
		IsActive:    true,
	}
	created, err := s.repo.Create(ctx, establishment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create establishment")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "establishment id required")
	}
	establishment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "establishment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load establishment")
	}
	return establishment, nil
}

func (s *service) List(ctx context.Context, onlyActive bool) ([]models.Establishment, error) {
	establishments, err := s.repo.List(ctx, onlyActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list establishments")
	}
	return establishments, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Establishment, error) {
	if input.ActorRole != enums.ActorRoleDispatcher {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only dispatchers update establishments")
	}
	if _, err := s.Get(ctx, input.EstablishmentID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "establishment name cannot be empty")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Address != nil {
		if strings.TrimSpace(*input.Address) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection address cannot be empty")
		}
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.ContactName != nil {
		updates["contact_name"] = *input.ContactName
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return s.Get(ctx, input.EstablishmentID)
	}

	if err := s.repo.Update(ctx, input.EstablishmentID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update establishment")
	}
	return s.Get(ctx, input.EstablishmentID)
}

// RotateIntakeToken invalidates the previous ingestion credential. Existing
// submitters must be reconfigured with the returned token.
func (s *service) RotateIntakeToken(ctx context.Context, id uuid.UUID, actorRole enums.ActorRole) (string, error) {
	if actorRole != enums.ActorRoleDispatcher {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "only dispatchers rotate intake tokens")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}

	token, err := newIntakeToken()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate intake token")
	}
	if err := s.repo.Update(ctx, id, map[string]any{"intake_token": token}); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store intake token")
	}
	return token, nil
}

func (s *service) SetPrice(ctx context.Context, input SetPriceInput) (*models.PriceTable, error) {
	if input.ActorRole != enums.ActorRoleDispatcher {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only dispatchers manage price tables")
	}
	if strings.TrimSpace(input.Zone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "zone required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if _, err := s.Get(ctx, input.EstablishmentID); err != nil {
		return nil, err
	}

	entry := &models.PriceTable{
		EstablishmentID: input.EstablishmentID,
		Zone:            strings.TrimSpace(input.Zone),
		PriceCents:      input.PriceCents,
		IsActive:        input.IsActive,
	}
	stored, err := s.repo.UpsertPriceTable(ctx, entry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store price table entry")
	}
	return stored, nil
}

func (s *service) ListPrices(ctx context.Context, establishmentID uuid.UUID) ([]models.PriceTable, error) {
	if establishmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "establishment id required")
	}
	entries, err := s.repo.ListPriceTables(ctx, establishmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price tables")
	}
	return entries, nil
}

func (s *service) QuoteZone(ctx context.Context, establishmentID uuid.UUID, zone string) (int, error) {
	if establishmentID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "establishment id required")
	}
	if strings.TrimSpace(zone) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "zone required")
	}

	entry, err := s.repo.FindPriceForZone(ctx, establishmentID, strings.TrimSpace(zone))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "no price configured for zone")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quote zone")
	}
	return entry.PriceCents, nil
}

func newIntakeToken() (string, error) {
	buf := make([]byte, intakeTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
