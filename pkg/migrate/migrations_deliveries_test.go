package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDeliveriesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_deliveries.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no deliveries migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS deliveries",
		"FOREIGN KEY (establishment_id) REFERENCES establishments(id) ON DELETE RESTRICT",
		"CHECK (total_cents >= 0)",
		"CHECK (courier_payout_cents + operator_profit_cents = total_cents OR status = 'awaiting_pool')",
		"DROP TABLE IF EXISTS deliveries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLedgerMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_ledger_entries.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no ledger migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	// Entries record money against exactly one party, never zero amounts,
	// and always name the dispatcher who recorded them.
	checks := []string{
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"CHECK (amount_cents > 0)",
		"(kind = 'receipt_from_establishment' AND establishment_id IS NOT NULL AND courier_id IS NULL)",
		"(kind = 'payment_to_courier' AND courier_id IS NOT NULL AND establishment_id IS NULL)",
		"FOREIGN KEY (recorded_by_id) REFERENCES profiles(id) ON DELETE RESTRICT",
		"DROP TABLE IF EXISTS ledger_entries",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
