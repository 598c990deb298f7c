package intake

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
)

// noteExtractionPrefix marks notes produced by the WhatsApp scraper. When the
// structured fields are missing, the customer name hides behind this prefix.
const noteExtractionPrefix = "Extraída do WhatsApp: "

const fallbackCustomerName = "Cliente"

// ParsedRequest is the normalized view of a raw intake submission.
type ParsedRequest struct {
	CustomerName         string
	CustomerPhone        string
	DestinationAddresses []string
	TotalCents           int
	PaymentMethod        enums.PaymentMethod
	Note                 string
}

// rawSubmission mirrors the loose shape the ingestion channel produces. Every
// field is optional and several have historical aliases.
type rawSubmission struct {
	Name          string          `json:"nome"`
	CustomerName  string          `json:"nome_cliente"`
	Phone         string          `json:"telefone"`
	CustomerPhone string          `json:"telefone_cliente"`
	Address       *rawAddress     `json:"endereco"`
	AddressLines  flexibleStrings `json:"endereco_cliente"`
	FreightValue  flexibleAmount  `json:"valor_frete"`
	PaymentMethod string          `json:"forma_pagamento"`
	Note          string          `json:"observacao"`
}

type rawAddress struct {
	Street       string `json:"rua"`
	Number       string `json:"numero"`
	Neighborhood string `json:"bairro"`
	City         string `json:"cidade"`
}

// flexibleStrings accepts either a JSON array of strings or a single string.
type flexibleStrings []string

func (f *flexibleStrings) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*f = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one != "" {
			*f = []string{one}
		}
		return nil
	}
	// Unrecognized shapes are dropped, not fatal.
	*f = nil
	return nil
}

// flexibleAmount accepts a monetary value as a JSON number or a numeric
// string ("12.50").
type flexibleAmount struct {
	value decimal.Decimal
	set   bool
}

func (f *flexibleAmount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return nil
	}
	// Brazilian submissions occasionally use a comma decimal separator.
	raw = strings.ReplaceAll(raw, ",", ".")
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	f.value = value
	f.set = true
	return nil
}

// ParseSubmission normalizes an untrusted intake payload. Missing structured
// fields fall back to note-derived values; an unusable payload (no address at
// all, or a negative value) is rejected.
func ParseSubmission(raw json.RawMessage) (*ParsedRequest, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty intake payload")
	}

	var submission rawSubmission
	if err := json.Unmarshal(raw, &submission); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed intake payload")
	}

	noteName := strings.TrimSpace(strings.TrimPrefix(submission.Note, noteExtractionPrefix))

	name := firstNonEmpty(submission.Name, submission.CustomerName, noteName, fallbackCustomerName)
	phone := firstNonEmpty(submission.CustomerPhone, submission.Phone)

	addresses := make([]string, 0, 4)
	if submission.Address != nil {
		for _, part := range []string{
			submission.Address.Street,
			submission.Address.Number,
			submission.Address.Neighborhood,
			submission.Address.City,
		} {
			if strings.TrimSpace(part) != "" {
				addresses = append(addresses, strings.TrimSpace(part))
			}
		}
	}
	if len(addresses) == 0 {
		for _, line := range submission.AddressLines {
			if strings.TrimSpace(line) != "" {
				addresses = append(addresses, strings.TrimSpace(line))
			}
		}
	}
	if len(addresses) == 0 && noteName != "" {
		addresses = append(addresses, noteName)
	}
	if len(addresses) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intake payload has no destination address")
	}

	totalCents := 0
	if submission.FreightValue.set {
		cents := submission.FreightValue.value.Mul(decimal.NewFromInt(100)).Round(0)
		if cents.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "freight value cannot be negative")
		}
		totalCents = int(cents.IntPart())
	}

	method := enums.PaymentMethodPix
	if submission.PaymentMethod != "" {
		parsed, err := enums.ParsePaymentMethod(submission.PaymentMethod)
		if err == nil {
			method = parsed
		}
	}

	return &ParsedRequest{
		CustomerName:         name,
		CustomerPhone:        phone,
		DestinationAddresses: addresses,
		TotalCents:           totalCents,
		PaymentMethod:        method,
		Note:                 strings.TrimSpace(submission.Note),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
