package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/api/responses"
	"github.com/rapidusexpress/rapidus-backend/api/validators"
	"github.com/rapidusexpress/rapidus-backend/internal/establishments"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
)

type createEstablishmentRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Address     string  `json:"address" validate:"required,max=500"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	ContactName *string `json:"contact_name,omitempty" validate:"omitempty,max=200"`
}

// CreateEstablishment registers a partner establishment and mints its first
// intake token.
func CreateEstablishment(svc establishments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "establishments service unavailable"))
			return
		}

		var body createEstablishmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		_, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Register(r.Context(), establishments.RegisterInput{
			Name:        body.Name,
			Address:     body.Address,
			Phone:       body.Phone,
			ContactName: body.ContactName,
			ActorRole:   actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// ListEstablishments returns all partners, or only active ones with
// ?active=true.
func ListEstablishments(svc establishments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "establishments service unavailable"))
			return
		}

		onlyActive := false
		if raw := r.URL.Query().Get("active"); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid active filter"))
				return
			}
			onlyActive = parsed
		}

		items, err := svc.List(r.Context(), onlyActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// GetEstablishment returns one establishment by id.
func GetEstablishment(svc establishments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "establishments service unavailable"))
			return
		}

		id, err := establishmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		establishment, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, establishment)
	}
}

type updateEstablishmentRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	ContactName *string `json:"contact_name,omitempty" validate:"omitempty,max=200"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// UpdateEstablishment patches contact data or toggles the active flag.
func UpdateEstablishment(svc establishments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "establishments service unavailable"))
			return
		}

		id, err := establishmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateEstablishmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		_, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), establishments.UpdateInput{
			EstablishmentID: id,
			Name:            body.Name,
			Address:         body.Address,
			Phone:           body.Phone,
			ContactName:     body.ContactName,
			IsActive:        body.IsActive,
			ActorRole:       actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// RotateIntakeToken replaces an establishment's ingestion credential. The new
// token is returned exactly once.
func RotateIntakeToken(svc establishments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "establishments service unavailable"))
			return
		}

		id, err := establishmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		_, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token, err := svc.RotateIntakeToken(r.Context(), id, actorRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"intake_token": token})
	}
}

type setPriceRequest struct {
	Zone       string `json:"zone" validate:"required,max=100"`
	PriceCents int    `json:"price_cents" validate:"required,min=1"`
	IsActive   *bool  `json:"is_active,omitempty"`
}

// SetPrice creates or replaces one zone price for an establishment.
func SetPrice(svc establishments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "establishments service unavailable"))
			return
		}

		id, err := establishmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body setPriceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		_, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isActive := true
		if body.IsActive != nil {
			isActive = *body.IsActive
		}

		entry, err := svc.SetPrice(r.Context(), establishments.SetPriceInput{
			EstablishmentID: id,
			Zone:            body.Zone,
			PriceCents:      body.PriceCents,
			IsActive:        isActive,
			ActorRole:       actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// ListPrices returns the full zone price table for an establishment.
func ListPrices(svc establishments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "establishments service unavailable"))
			return
		}

		id, err := establishmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListPrices(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": entries})
	}
}

// QuoteZone returns the configured price for one zone, used by the dashboard
// while a dispatcher drafts an assignment.
func QuoteZone(svc establishments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "establishments service unavailable"))
			return
		}

		id, err := establishmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone := strings.TrimSpace(r.URL.Query().Get("zone"))
		priceCents, err := svc.QuoteZone(r.Context(), id, zone)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"zone": zone, "price_cents": priceCents})
	}
}

func establishmentIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "establishmentId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid establishment id")
	}
	return id, nil
}
