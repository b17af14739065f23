package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"options-screener/internal/models"
	"options-screener/pkg/utils"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	ledger, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func ist(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, utils.IndiaLocation)
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func TestLedgerAppendAndQueryByDate(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	rec := &models.AlertRecord{
		Symbol:      "NIFTY",
		Time:        ist(2026, 9, 1, 11, 20),
		Move:        "UP",
		Spot:        fptr(25012.5),
		MovePct:     fptr(1.42),
		DeltaCE:     fptr(4.2),
		DeltaPE:     fptr(-1.1),
		Skew:        fptr(0.021),
		DOIPut:      iptr(34000),
		VolumeRatio: fptr(1.8),
		Trend:       "Bullish",
		Flag:        "Flat PE",
		IVDeltaCE:   fptr(0.034),
		IVDeltaPE:   fptr(0.001),
		IVFlag:      "IV Pump",
		Signal:      "Bullish IV Pump",
		CallResult:  "24900✅ 25000✅ 25100❌",
		PutResult:   "24900❌ 25000❌ 25100❌",
	}

	if err := ledger.Append(ctx, rec); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if rec.ID == 0 {
		t.Error("Append() should assign the record ID")
	}

	got, err := ledger.QueryByDate(ctx, ist(2026, 9, 1, 0, 0))
	if err != nil {
		t.Fatalf("QueryByDate() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}

	r := got[0]
	if r.Symbol != "NIFTY" || r.Move != "UP" {
		t.Errorf("identity mismatch: %+v", r)
	}
	if r.Spot == nil || *r.Spot != 25012.5 {
		t.Errorf("spot = %v, want 25012.5", r.Spot)
	}
	if r.DOIPut == nil || *r.DOIPut != 34000 {
		t.Errorf("doi_put = %v, want 34000", r.DOIPut)
	}
	if r.Signal != "Bullish IV Pump" {
		t.Errorf("signal = %q", r.Signal)
	}
	if r.CallResult != "24900✅ 25000✅ 25100❌" {
		t.Errorf("call_result = %q", r.CallResult)
	}

	// A different date must not see the record.
	other, err := ledger.QueryByDate(ctx, ist(2026, 9, 2, 0, 0))
	if err != nil {
		t.Fatalf("QueryByDate() error: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no records on 2026-09-02, got %d", len(other))
	}
}

func TestLedgerPartialRecord(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	rec := &models.AlertRecord{
		Symbol:    "BANKNIFTY",
		Time:      ist(2026, 9, 1, 10, 5),
		ErrorNote: "instrument catalog unavailable",
	}
	if err := ledger.Append(ctx, rec); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	got, err := ledger.QueryByDate(ctx, ist(2026, 9, 1, 0, 0))
	if err != nil {
		t.Fatalf("QueryByDate() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}

	r := got[0]
	if r.Spot != nil || r.MovePct != nil || r.DeltaCE != nil || r.DOIPut != nil {
		t.Errorf("unknown metrics must come back nil, got %+v", r)
	}
	if !r.Partial() {
		t.Error("record with an error note must report partial")
	}
}

func TestLedgerInsertionOrder(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	symbols := []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "NIFTY"}
	for i, sym := range symbols {
		rec := &models.AlertRecord{Symbol: sym, Time: ist(2026, 9, 1, 10, 10+i)}
		if err := ledger.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	got, err := ledger.QueryByDate(ctx, ist(2026, 9, 1, 0, 0))
	if err != nil {
		t.Fatalf("QueryByDate() error: %v", err)
	}
	if len(got) != len(symbols) {
		t.Fatalf("expected %d records, got %d", len(symbols), len(got))
	}
	for i, sym := range symbols {
		if got[i].Symbol != sym {
			t.Errorf("record %d symbol = %q, want %q", i, got[i].Symbol, sym)
		}
		if i > 0 && got[i].ID <= got[i-1].ID {
			t.Errorf("IDs must be strictly increasing: %d then %d", got[i-1].ID, got[i].ID)
		}
	}
}

func TestLedgerTodayView(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	day1 := &models.AlertRecord{Symbol: "NIFTY", Time: ist(2026, 9, 1, 14, 0)}
	if err := ledger.Append(ctx, day1); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if len(ledger.Today()) != 1 {
		t.Fatalf("expected 1 record in the today view")
	}

	// Date rollover drops the prior day's working view.
	day2 := &models.AlertRecord{Symbol: "NIFTY", Time: ist(2026, 9, 2, 9, 30)}
	if err := ledger.Append(ctx, day2); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	today := ledger.Today()
	if len(today) != 1 {
		t.Fatalf("expected the rolled-over view to hold 1 record, got %d", len(today))
	}
	if !utils.SameTradingDate(today[0].Time, day2.Time) {
		t.Error("today view should only hold the latest trading date")
	}
}
