package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/api/responses"
	"github.com/rapidusexpress/rapidus-backend/internal/intake"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
)

const (
	intakeTokenHeader = "X-Intake-Token"
	maxIntakeBody     = 1 << 20
)

// IntakeIngest accepts a raw delivery request from an establishment's
// submitter. The caller authenticates with the establishment's intake token,
// not a profile session; the payload is stored verbatim and normalized by the
// intake service.
func IntakeIngest(svc intake.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "intake service unavailable"))
			return
		}

		token := strings.TrimSpace(r.Header.Get(intakeTokenHeader))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "intake token required"))
			return
		}

		establishment, err := svc.ResolveIntakeToken(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := chi.URLParam(r, "establishmentId"); raw != "" {
			pathID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid establishment id"))
				return
			}
			if pathID != establishment.ID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "intake token does not match establishment"))
				return
			}
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxIntakeBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		if !json.Valid(raw) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "body must be valid JSON"))
			return
		}

		request, err := svc.Ingest(r.Context(), intake.IngestInput{
			EstablishmentID: establishment.ID,
			RawPayload:      json.RawMessage(raw),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]any{
			"intake_request_id": request.ID,
			"status":            request.Status,
		})
	}
}
