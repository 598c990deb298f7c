package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rapidusexpress/rapidus-backend/api/responses"
	"github.com/rapidusexpress/rapidus-backend/api/validators"
	"github.com/rapidusexpress/rapidus-backend/internal/ledger"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
)

type recordTransactionRequest struct {
	Kind          string  `json:"kind" validate:"required,oneof=receipt_from_establishment payment_to_courier"`
	EntityID      string  `json:"entity_id" validate:"required,uuid4"`
	AmountCents   int     `json:"amount_cents" validate:"required,min=1"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	Note          *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// RecordTransaction appends one manual money fact: cash collected from an
// establishment or a payout handed to a courier.
func RecordTransaction(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var body recordTransactionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseLedgerEntryKind(body.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction kind"))
			return
		}
		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}
		entityID, err := uuid.Parse(body.EntityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entity id"))
			return
		}

		actorID, actorRole, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.RecordTransaction(r.Context(), ledger.TransactionInput{
			Kind:          kind,
			EntityID:      entityID,
			AmountCents:   body.AmountCents,
			PaymentMethod: method,
			Note:          body.Note,
			RecordedByID:  actorID,
			ActorRole:     actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// ListTransactions returns the entry history for one party over an optional
// date range.
func ListTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		input := ledger.ListTransactionsInput{}
		if raw := strings.TrimSpace(r.URL.Query().Get("establishment_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid establishment id"))
				return
			}
			input.EstablishmentID = &id
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("courier_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid courier id"))
				return
			}
			input.CourierID = &id
		}

		rng, err := rangeFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Range = rng

		entries, err := svc.ListTransactions(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": entries})
	}
}

// EstablishmentBalance reports what an establishment still owes the operator
// over the requested range.
func EstablishmentBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := establishmentIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rng, err := rangeFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.EstablishmentBalance(r.Context(), id, rng)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// CourierBalance reports what the operator still owes a courier over the
// requested range.
func CourierBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "courierId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid courier id"))
			return
		}
		rng, err := rangeFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.CourierBalance(r.Context(), id, rng)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// FinanceSummary returns the operator's gross, courier cost and net over the
// requested range.
func FinanceSummary(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		rng, err := rangeFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.OperatorSummary(r.Context(), rng)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// rangeFromQuery parses optional from/to query params. Dates are accepted as
// RFC 3339 timestamps or bare YYYY-MM-DD days; a bare "to" day is exclusive
// of the following midnight.
func rangeFromQuery(r *http.Request) (ledger.Range, error) {
	rng := ledger.Range{}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := parseRangeBound(raw, false)
		if err != nil {
			return rng, err
		}
		rng.From = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		parsed, err := parseRangeBound(raw, true)
		if err != nil {
			return rng, err
		}
		rng.To = parsed
	}
	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		return rng, pkgerrors.New(pkgerrors.CodeValidation, "range end precedes range start")
	}
	return rng, nil
}

func parseRangeBound(raw string, endOfDay bool) (*time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date bound")
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1)
	}
	day = day.UTC()
	return &day, nil
}
