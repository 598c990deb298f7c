package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/rapidusexpress/rapidus-backend/pkg/outbox"
	"github.com/rapidusexpress/rapidus-backend/pkg/outbox/payloads"
)

// SettlementRow is the BigQuery shape of a settled delivery.
type SettlementRow struct {
	EventID             string             `bigquery:"event_id"`
	DeliveryID          string             `bigquery:"delivery_id"`
	EstablishmentID     string             `bigquery:"establishment_id"`
	CourierID           *string            `bigquery:"courier_id"`
	PaymentMethod       string             `bigquery:"payment_method"`
	TotalCents          int64              `bigquery:"total_cents"`
	CourierPayoutCents  int64              `bigquery:"courier_payout_cents"`
	OperatorProfitCents int64              `bigquery:"operator_profit_cents"`
	OperatorFulfilled   bool               `bigquery:"operator_fulfilled"`
	CompletedAt         time.Time          `bigquery:"completed_at"`
	IngestedAt          time.Time          `bigquery:"ingested_at"`
	Payload             cbigquery.NullJSON `bigquery:"payload"`
}

// BuildSettlementRow flattens a delivery.completed envelope into a fact row.
func BuildSettlementRow(envelope outbox.PayloadEnvelope, now time.Time) (*SettlementRow, error) {
	var payload payloads.DeliveryCompletedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return nil, fmt.Errorf("parse completed payload: %w", err)
	}

	encoded, err := EncodeJSON(envelope.Data)
	if err != nil {
		return nil, err
	}

	row := &SettlementRow{
		EventID:             envelope.EventID,
		DeliveryID:          payload.DeliveryID.String(),
		EstablishmentID:     payload.EstablishmentID.String(),
		PaymentMethod:       string(payload.PaymentMethod),
		TotalCents:          int64(payload.TotalCents),
		CourierPayoutCents:  int64(payload.CourierPayoutCents),
		OperatorProfitCents: int64(payload.OperatorProfitCents),
		OperatorFulfilled:   payload.OperatorFulfilled,
		CompletedAt:         payload.CompletedAt.UTC(),
		IngestedAt:          now.UTC(),
		Payload:             encoded,
	}
	if payload.CourierID != nil {
		courierID := payload.CourierID.String()
		row.CourierID = &courierID
	}
	return row, nil
}

// EncodeJSON serializes the provided payload so it can be stored in BigQuery JSON columns.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	case []byte:
		if len(value) == 0 {
			return cbigquery.NullJSON{}, nil
		}
		return cbigquery.NullJSON{Valid: true, JSONVal: string(value)}, nil
	}

	marshaled, err := json.Marshal(payload)
	if err != nil {
		return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
	}
	if len(marshaled) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(marshaled)}, nil
}
