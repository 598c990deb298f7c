package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/api/responses"
	"github.com/rapidusexpress/rapidus-backend/api/validators"
	"github.com/rapidusexpress/rapidus-backend/internal/dispatch"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
)

type assignRequest struct {
	Source          string     `json:"source" validate:"required,oneof=queued persisted"`
	IntakeRequestID *uuid.UUID `json:"intake_request_id,omitempty"`
	DeliveryID      *uuid.UUID `json:"delivery_id,omitempty"`
	// CourierID omitted or null means the dispatcher fulfills the run
	// personally.
	CourierID *uuid.UUID `json:"courier_id,omitempty"`
}

// DispatchAssign pins a candidate on a courier, or on the dispatcher
// personally when no courier is given. The race loser gets a conflict.
func DispatchAssign(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		var body assignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		candidate := dispatch.Candidate{Source: enums.CandidateSource(body.Source)}
		switch candidate.Source {
		case enums.CandidateSourceQueued:
			if body.IntakeRequestID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "intake_request_id required for queued candidates"))
				return
			}
			candidate.IntakeRequestID = *body.IntakeRequestID
		case enums.CandidateSourcePersisted:
			if body.DeliveryID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "delivery_id required for pooled candidates"))
				return
			}
			candidate.DeliveryID = *body.DeliveryID
		}

		actorID, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.Assign(r.Context(), dispatch.AssignInput{
			Candidate: candidate,
			CourierID: body.CourierID,
			ActorID:   actorID,
			ActorRole: actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, delivery)
	}
}
