package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/api/responses"
	"github.com/rapidusexpress/rapidus-backend/api/validators"
	"github.com/rapidusexpress/rapidus-backend/internal/dispatch"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
)

// ListDeliveries serves the dispatcher dashboard listing with status,
// courier and establishment filters plus cursor pagination.
func ListDeliveries(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		params := dispatch.ListParams{
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		if raw := strings.TrimSpace(r.URL.Query().Get("establishment_id")); raw != "" {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid establishment id"))
				return
			}
			params.EstablishmentID = &id
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("courier_id")); raw != "" {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid courier id"))
				return
			}
			params.CourierID = &id
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				status, parseErr := enums.ParseDeliveryStatus(strings.TrimSpace(part))
				if parseErr != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
					return
				}
				params.Statuses = append(params.Statuses, status)
			}
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetDelivery returns one delivery by id.
func GetDelivery(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		id, err := deliveryIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.GetDelivery(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

// MyDeliveries returns the calling courier's active runs.
func MyDeliveries(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		actorID, _, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deliveries, err := svc.ListActiveForCourier(r.Context(), actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": deliveries})
	}
}

// AcceptDelivery moves an assigned delivery to en_route for the calling
// courier.
func AcceptDelivery(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryCommand(svc, logg, svcAccept)
}

// CollectDelivery confirms package pickup.
func CollectDelivery(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryCommand(svc, logg, svcCollect)
}

// CompleteDelivery closes the run and frees the courier.
func CompleteDelivery(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return deliveryCommand(svc, logg, svcComplete)
}

type rejectRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// RejectDelivery returns a delivery to the pool. Couriers decline their own
// runs; dispatchers may force an en_route abandon.
func RejectDelivery(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		id, err := deliveryIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rejectRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		actorID, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.Reject(r.Context(), dispatch.RejectInput{
			DeliveryID: id,
			ActorID:    actorID,
			ActorRole:  actorRole,
			Reason:     body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

type commandFunc func(svc dispatch.Service, r *http.Request, input dispatch.CommandInput) (any, error)

func svcAccept(svc dispatch.Service, r *http.Request, input dispatch.CommandInput) (any, error) {
	return svc.Accept(r.Context(), input)
}

func svcCollect(svc dispatch.Service, r *http.Request, input dispatch.CommandInput) (any, error) {
	return svc.ConfirmCollection(r.Context(), input)
}

func svcComplete(svc dispatch.Service, r *http.Request, input dispatch.CommandInput) (any, error) {
	return svc.ConfirmCompletion(r.Context(), input)
}

func deliveryCommand(svc dispatch.Service, logg *logger.Logger, run commandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		id, err := deliveryIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := run(svc, r, dispatch.CommandInput{
			DeliveryID: id,
			ActorID:    actorID,
			ActorRole:  actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func deliveryIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "deliveryId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery id")
	}
	return id, nil
}
