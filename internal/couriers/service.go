package couriers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/config"
	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/types"
)

// positionStore is the redis surface used for the best-effort position cache.
type positionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	PositionKey(courierID string) string
}

// Service manages courier availability, commission config and live positions.
type Service interface {
	SetAvailability(ctx context.Context, input SetAvailabilityInput) (*models.Profile, error)
	ListCouriers(ctx context.Context, onlyAvailable bool) ([]models.Profile, error)
	UpdateCommission(ctx context.Context, input UpdateCommissionInput) error
	SavePushToken(ctx context.Context, profileID uuid.UUID, token string) error
	UpdatePosition(ctx context.Context, courierID uuid.UUID, point types.GeographyPoint) error
	GetPosition(ctx context.Context, courierID uuid.UUID) (*Position, error)
}

type service struct {
	repo      Repository
	positions positionStore
	cfg       config.PositionsConfig
}

// SetAvailabilityInput flips a courier's availability flag.
type SetAvailabilityInput struct {
	CourierID uuid.UUID
	Available bool
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// UpdateCommissionInput overrides a courier's commission config. Nil fields
// fall back to the platform default at assignment time.
type UpdateCommissionInput struct {
	CourierID         uuid.UUID
	CommissionPercent *int
	FixedFeeCents     *int
	ActorRole         enums.ActorRole
}

// Position is a courier's last known location with its write time.
type Position struct {
	types.GeographyPoint
	RecordedAt time.Time `json:"recorded_at"`
}

// NewService builds the couriers service with the required dependencies.
func NewService(repo Repository, positions positionStore, cfg config.PositionsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("couriers repository required")
	}
	if positions == nil {
		return nil, fmt.Errorf("position store required")
	}
	return &service{repo: repo, positions: positions, cfg: cfg}, nil
}

// SetAvailability lets couriers come online or offline. Going available (or
// unavailable by hand) is blocked while a delivery actively occupies them,
// because the assignment engine owns the flag for the run's duration.
func (s *service) SetAvailability(ctx context.Context, input SetAvailabilityInput) (*models.Profile, error) {
	if input.CourierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}
	if input.ActorRole != enums.ActorRoleDispatcher && input.ActorID != input.CourierID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "couriers manage only their own availability")
	}

	profile, err := s.loadCourier(ctx, input.CourierID)
	if err != nil {
		return nil, err
	}
	if profile.Available == input.Available {
		return profile, nil
	}

	active, err := s.repo.CountActiveDeliveries(ctx, input.CourierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active deliveries")
	}
	if active > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "availability is managed by the active delivery")
	}

	if err := s.repo.SetAvailability(ctx, input.CourierID, input.Available); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update availability")
	}
	profile.Available = input.Available
	return profile, nil
}

func (s *service) ListCouriers(ctx context.Context, onlyAvailable bool) ([]models.Profile, error) {
	profiles, err := s.repo.ListCouriers(ctx, onlyAvailable)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list couriers")
	}
	return profiles, nil
}

func (s *service) UpdateCommission(ctx context.Context, input UpdateCommissionInput) error {
	if input.CourierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}
	if input.ActorRole != enums.ActorRoleDispatcher {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only dispatchers update commission config")
	}
	if input.CommissionPercent != nil && (*input.CommissionPercent < 0 || *input.CommissionPercent > 100) {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission percent out of range")
	}
	if input.FixedFeeCents != nil && *input.FixedFeeCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "fixed fee cannot be negative")
	}

	if _, err := s.loadCourier(ctx, input.CourierID); err != nil {
		return err
	}

	updates := map[string]any{
		"commission_percent": input.CommissionPercent,
		"fixed_fee_cents":    input.FixedFeeCents,
	}
	if err := s.repo.UpdateProfile(ctx, input.CourierID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission config")
	}
	return nil
}

func (s *service) SavePushToken(ctx context.Context, profileID uuid.UUID, token string) error {
	if profileID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "profile id required")
	}
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "push token required")
	}
	if err := s.repo.UpdateProfile(ctx, profileID, map[string]any{"push_token": token}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save push token")
	}
	return nil
}

// UpdatePosition is a high-frequency best-effort write; last write wins and
// stale entries fall out via TTL.
func (s *service) UpdatePosition(ctx context.Context, courierID uuid.UUID, point types.GeographyPoint) error {
	if courierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}
	position := Position{GeographyPoint: point, RecordedAt: time.Now().UTC()}
	payload, err := json.Marshal(position)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode position")
	}
	key := s.positions.PositionKey(courierID.String())
	if err := s.positions.Set(ctx, key, payload, s.cfg.TTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store position")
	}
	return nil
}

func (s *service) GetPosition(ctx context.Context, courierID uuid.UUID) (*Position, error) {
	if courierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "courier id required")
	}
	raw, err := s.positions.Get(ctx, s.positions.PositionKey(courierID.String()))
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load position")
	}
	var position Position
	if err := json.Unmarshal([]byte(raw), &position); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode position")
	}
	return &position, nil
}

func (s *service) loadCourier(ctx context.Context, courierID uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.FindProfile(ctx, courierID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "courier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load courier profile")
	}
	if profile.Role != enums.ActorRoleCourier {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile is not a courier")
	}
	return profile, nil
}
