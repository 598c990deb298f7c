package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/api/middleware"
	"github.com/rapidusexpress/rapidus-backend/api/responses"
	"github.com/rapidusexpress/rapidus-backend/internal/intake"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
)

// ListCandidates returns the merged assignment feed: queued intake requests
// plus pooled deliveries, oldest first.
func ListCandidates(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "intake service unavailable"))
			return
		}

		var establishmentID *uuid.UUID
		if raw := strings.TrimSpace(r.URL.Query().Get("establishment_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid establishment id"))
				return
			}
			establishmentID = &id
		}

		candidates, err := svc.ListCandidates(r.Context(), establishmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": candidates})
	}
}

// DismissCandidate drops a queued intake request without promoting it.
func DismissCandidate(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "intake service unavailable"))
			return
		}

		requestID, err := uuid.Parse(chi.URLParam(r, "intakeRequestId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid intake request id"))
			return
		}

		actorID, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Dismiss(r.Context(), intake.DismissInput{
			IntakeRequestID: requestID,
			ActorID:         actorID,
			ActorRole:       actorRole,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "dismissed"})
	}
}

func actorFromContext(r *http.Request) (uuid.UUID, enums.ActorRole, error) {
	actorID, err := uuid.Parse(middleware.ActorIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	role := enums.ActorRole(middleware.RoleFromContext(r.Context()))
	if !role.IsValid() {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	return actorID, role, nil
}
