package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rapidusexpress/rapidus-backend/pkg/config"
	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/security"
)

// RegisterRequest carries the fields needed to provision a new profile.
type RegisterRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	FullName string          `json:"full_name" validate:"required"`
	Phone    *string         `json:"phone,omitempty"`
	Role     enums.ActorRole `json:"role" validate:"required"`
}

// Registrar provisions courier and dispatcher accounts.
type Registrar interface {
	Register(ctx context.Context, actorRole enums.ActorRole, req RegisterRequest) (*ProfileDTO, error)
}

type registrarRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
}

type registrar struct {
	profiles    registrarRepository
	passwordCfg config.PasswordConfig
}

// NewRegistrar constructs the account provisioning service.
func NewRegistrar(profiles registrarRepository, passwordCfg config.PasswordConfig) (Registrar, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	return &registrar{profiles: profiles, passwordCfg: passwordCfg}, nil
}

// Register creates a profile. Only dispatchers can provision accounts.
func (r *registrar) Register(ctx context.Context, actorRole enums.ActorRole, req RegisterRequest) (*ProfileDTO, error) {
	if actorRole != enums.ActorRoleDispatcher {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only dispatchers can register accounts")
	}
	if !req.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}

	if _, err := r.profiles.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup email")
	}

	hash, err := security.HashPassword(req.Password, r.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	profile := &models.Profile{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        req.Phone,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := r.profiles.Create(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
	}

	dto := FromModel(profile)
	return &dto, nil
}
