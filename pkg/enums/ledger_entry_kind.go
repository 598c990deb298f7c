package enums

import "fmt"

// LedgerEntryKind maps to the ledger_entry_kind_enum enum in Postgres.
type LedgerEntryKind string

const (
	LedgerEntryKindReceiptFromEstablishment LedgerEntryKind = "receipt_from_establishment"
	LedgerEntryKindPaymentToCourier         LedgerEntryKind = "payment_to_courier"
)

var validLedgerEntryKinds = []LedgerEntryKind{
	LedgerEntryKindReceiptFromEstablishment,
	LedgerEntryKindPaymentToCourier,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (k LedgerEntryKind) IsValid() bool {
	for _, candidate := range validLedgerEntryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseLedgerEntryKind converts raw input into LedgerEntryKind.
func ParseLedgerEntryKind(value string) (LedgerEntryKind, error) {
	for _, candidate := range validLedgerEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry kind %q", value)
}
