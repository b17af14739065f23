package models

import "time"

// AlertRecord is one processed event's derived metrics. Every metric field is
// independently optional: a nil pointer means the metric could not be
// computed, which downstream readers must treat as unknown, never as zero.
type AlertRecord struct {
	ID     int64
	Symbol string
	Time   time.Time
	Move   string

	Spot    *float64 // underlying LTP at event time
	MovePct *float64 // nil when previous close is zero

	DeltaCE *float64 // Σ (last - open) across call legs of the window
	DeltaPE *float64 // Σ (last - open) across put legs
	Skew    *float64 // IV(CE) - IV(PE) at ATM
	DOIPut  *int64   // live ATM put OI minus morning baseline

	VolumeRatio *float64 // latest 5-min ATM call volume over session mean

	Trend string // Bullish / Bearish / Flat
	Flag  string // Flat PE / Strong CE / ""

	IVDeltaCE *float64 // today's ATM CE IV minus 09:15 baseline
	IVDeltaPE *float64
	IVFlag    string // IV Pump / IV Crush / ""

	Signal string // trimmed "<trend> <iv_flag>"

	CallResult string // per-strike classifier marks, e.g. "25000✅ 25100❌"
	PutResult  string

	ErrorNote string // free text; non-empty marks a partial record
}

// Partial reports whether the record carries a degradation note.
func (r *AlertRecord) Partial() bool {
	return r.ErrorNote != ""
}

// BaselineEntry is one (symbol, kind) slot of the opening-bell snapshot.
// Captured at most once per trading day, immutable until the next capture.
type BaselineEntry struct {
	IV         float64   `json:"iv"`
	OI         int64     `json:"oi"`
	CapturedAt time.Time `json:"captured_at"`
}

// BaselineKey builds the "SYM_CE" / "SYM_PE" key the baseline file is
// keyed by.
func BaselineKey(symbol string, kind OptionKind) string {
	return symbol + "_" + string(kind)
}
