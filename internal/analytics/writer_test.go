package analytics

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

type fakeInserter struct {
	calls   int
	rows    [][]any
	errs    []error
	lastTab string
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls++
	f.lastTab = table
	f.rows = append(f.rows, rows)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return nil
}

func newTestWriter(inserter *fakeInserter, batchSize int) *Writer {
	return &Writer{
		client:    inserter,
		table:     "delivery_settlements",
		batchSize: batchSize,
		retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaximumBackoff: 2 * time.Millisecond,
		},
	}
}

func TestWriterFlushesAtBatchSize(t *testing.T) {
	inserter := &fakeInserter{}
	writer := newTestWriter(inserter, 2)

	if err := writer.InsertSettlement(context.Background(), SettlementRow{EventID: "a"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inserter.calls != 0 {
		t.Fatal("expected buffering below batch size")
	}
	if err := writer.InsertSettlement(context.Background(), SettlementRow{EventID: "b"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inserter.calls != 1 {
		t.Fatalf("expected one flush, got %d", inserter.calls)
	}
	if len(inserter.rows[0]) != 2 {
		t.Fatalf("expected two rows flushed, got %d", len(inserter.rows[0]))
	}
	if inserter.lastTab != "delivery_settlements" {
		t.Fatalf("unexpected table %s", inserter.lastTab)
	}
}

func TestWriterRetriesTransientErrors(t *testing.T) {
	inserter := &fakeInserter{errs: []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
	}}
	writer := newTestWriter(inserter, 1)

	if err := writer.InsertSettlement(context.Background(), SettlementRow{EventID: "a"}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if inserter.calls != 2 {
		t.Fatalf("expected two attempts, got %d", inserter.calls)
	}
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	inserter := &fakeInserter{errs: []error{errors.New("schema mismatch")}}
	writer := newTestWriter(inserter, 1)

	if err := writer.InsertSettlement(context.Background(), SettlementRow{EventID: "a"}); err == nil {
		t.Fatal("expected error")
	}
	if inserter.calls != 1 {
		t.Fatalf("expected single attempt for permanent error, got %d", inserter.calls)
	}
}
