package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/api/responses"
	"github.com/rapidusexpress/rapidus-backend/api/validators"
	"github.com/rapidusexpress/rapidus-backend/internal/couriers"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
	"github.com/rapidusexpress/rapidus-backend/pkg/types"
)

// ListCouriers returns the courier roster for the dispatcher dashboard. Pass
// ?available=true to see only couriers free for assignment.
func ListCouriers(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "couriers service unavailable"))
			return
		}

		onlyAvailable := false
		if raw := r.URL.Query().Get("available"); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid available filter"))
				return
			}
			onlyAvailable = parsed
		}

		profiles, err := svc.ListCouriers(r.Context(), onlyAvailable)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": profiles})
	}
}

type availabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// SetMyAvailability flips the calling courier's availability flag.
func SetMyAvailability(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "couriers service unavailable"))
			return
		}

		var body availabilityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.SetAvailability(r.Context(), couriers.SetAvailabilityInput{
			CourierID: actorID,
			Available: *body.Available,
			ActorID:   actorID,
			ActorRole: actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type commissionRequest struct {
	CommissionPercent *int `json:"commission_percent,omitempty" validate:"omitempty,min=0,max=100"`
	FixedFeeCents     *int `json:"fixed_fee_cents,omitempty" validate:"omitempty,min=0"`
}

// UpdateCourierCommission lets dispatchers override a courier's payout config.
func UpdateCourierCommission(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "couriers service unavailable"))
			return
		}

		courierID, err := uuid.Parse(chi.URLParam(r, "courierId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid courier id"))
			return
		}

		var body commissionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		_, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateCommission(r.Context(), couriers.UpdateCommissionInput{
			CourierID:         courierID,
			CommissionPercent: body.CommissionPercent,
			FixedFeeCents:     body.FixedFeeCents,
			ActorRole:         actorRole,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"updated": true})
	}
}

type pushTokenRequest struct {
	Token string `json:"token" validate:"required,max=512"`
}

// SavePushToken stores the caller's device push token for notification
// delivery.
func SavePushToken(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "couriers service unavailable"))
			return
		}

		var body pushTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SavePushToken(r.Context(), actorID, body.Token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"saved": true})
	}
}

type positionRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

// UpdateMyPosition records the calling courier's live location.
func UpdateMyPosition(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "couriers service unavailable"))
			return
		}

		var body positionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		point := types.GeographyPoint{Lat: body.Lat, Lng: body.Lng}
		if err := svc.UpdatePosition(r.Context(), actorID, point); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"recorded": true})
	}
}

// GetCourierPosition returns a courier's last known position, or null when no
// recent fix exists.
func GetCourierPosition(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "couriers service unavailable"))
			return
		}

		courierID, err := uuid.Parse(chi.URLParam(r, "courierId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid courier id"))
			return
		}

		position, err := svc.GetPosition(r.Context(), courierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"position": position})
	}
}
