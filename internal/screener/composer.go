package screener

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"options-screener/internal/models"
)

// Trend labels.
const (
	TrendBullish = "Bullish"
	TrendBearish = "Bearish"
	TrendFlat    = "Flat"
)

// Flag labels.
const (
	FlagFlatPE   = "Flat PE"
	FlagStrongCE = "Strong CE"
	FlagIVPump   = "IV Pump"
	FlagIVCrush  = "IV Crush"
)

// StrongCEThreshold is the aggregate call premium change above which the
// window is flagged as strong call buying.
const StrongCEThreshold = 3.0

// LegMetrics carries one strike's raw inputs into composition. Nil quote
// pointers mean the leg's quote was missing from the aggregator result
// (unknown, never zero). Pattern results default to NO_MATCH.
type LegMetrics struct {
	Strike      float64
	Call        *models.Quote
	Put         *models.Quote
	CallPattern models.PatternResult
	PutPattern  models.PatternResult
}

// ComposeInput is everything the composer derives a record from. Every
// field is independently optional; nil means the upstream lookup failed and
// the derived metrics degrade rather than block each other.
type ComposeInput struct {
	Symbol    string
	EventTime time.Time
	Move      string

	Spot      *float64
	PrevClose *float64

	Legs []LegMetrics

	IVCE *float64 // ATM call implied volatility
	IVPE *float64

	ATMPutOI    *int64 // live ATM put open interest
	VolumeRatio *float64

	Baseline map[string]models.BaselineEntry

	Notes []string // accumulated degradation notes from the pipeline
}

// Composer combines derived metrics into the categorical labels and the
// final composite signal.
type Composer struct {
	// IVThreshold is the pump/crush cutoff on the IV delta versus the
	// opening baseline.
	IVThreshold float64
}

// NewComposer creates a composer with the given IV pump/crush threshold.
func NewComposer(ivThreshold float64) *Composer {
	return &Composer{IVThreshold: ivThreshold}
}

// Compose builds the alert record. A failure computing one metric never
// blocks the others: partial records with an error note are valid, expected
// output.
func (c *Composer) Compose(in ComposeInput) *models.AlertRecord {
	rec := &models.AlertRecord{
		Symbol: in.Symbol,
		Time:   in.EventTime,
		Move:   in.Move,
		Spot:   in.Spot,
	}
	notes := append([]string{}, in.Notes...)

	// move_pct, guarded against a zero previous close
	if in.Spot != nil && in.PrevClose != nil {
		if *in.PrevClose == 0 {
			notes = append(notes, "previous close is zero, move_pct undefined")
		} else {
			pct := (*in.Spot - *in.PrevClose) / *in.PrevClose * 100
			rec.MovePct = &pct
		}
	}

	legs := sortedLegs(in.Legs)

	rec.DeltaCE = premiumDelta(legs, func(l LegMetrics) *models.Quote { return l.Call })
	rec.DeltaPE = premiumDelta(legs, func(l LegMetrics) *models.Quote { return l.Put })

	if in.IVCE != nil && in.IVPE != nil {
		skew := *in.IVCE - *in.IVPE
		rec.Skew = &skew
	}

	if rec.DeltaCE != nil && rec.DeltaPE != nil {
		rec.Trend = trendLabel(*rec.DeltaCE, *rec.DeltaPE)
		rec.Flag = flagLabel(*rec.DeltaCE, *rec.DeltaPE)
	} else if rec.DeltaCE == nil || rec.DeltaPE == nil {
		notes = append(notes, "premium deltas incomplete, trend unavailable")
	}

	rec.IVDeltaCE = ivDelta(in.IVCE, in.Baseline, models.BaselineKey(in.Symbol, models.KindCall))
	rec.IVDeltaPE = ivDelta(in.IVPE, in.Baseline, models.BaselineKey(in.Symbol, models.KindPut))
	rec.IVFlag = c.ivFlagLabel(rec.IVDeltaCE, rec.IVDeltaPE)

	rec.Signal = strings.TrimSpace(rec.Trend + " " + rec.IVFlag)

	if in.ATMPutOI != nil && in.Baseline != nil {
		if base, ok := in.Baseline[models.BaselineKey(in.Symbol, models.KindPut)]; ok {
			doi := *in.ATMPutOI - base.OI
			rec.DOIPut = &doi
		}
	}
	rec.VolumeRatio = in.VolumeRatio

	rec.CallResult = patternMarks(legs, func(l LegMetrics) models.PatternResult { return l.CallPattern })
	rec.PutResult = patternMarks(legs, func(l LegMetrics) models.PatternResult { return l.PutPattern })

	rec.ErrorNote = strings.Join(notes, "; ")
	return rec
}

func sortedLegs(legs []LegMetrics) []LegMetrics {
	out := make([]LegMetrics, len(legs))
	copy(out, legs)
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}

// premiumDelta sums (last - open) across the side's legs with a known
// quote. Nil when no leg on that side had a quote.
func premiumDelta(legs []LegMetrics, side func(LegMetrics) *models.Quote) *float64 {
	var sum float64
	var present bool
	for _, l := range legs {
		if q := side(l); q != nil {
			sum += q.LTP - q.Open
			present = true
		}
	}
	if !present {
		return nil
	}
	return &sum
}

func trendLabel(dce, dpe float64) string {
	switch {
	case dce > math.Abs(dpe):
		return TrendBullish
	case dpe > math.Abs(dce):
		return TrendBearish
	default:
		return TrendFlat
	}
}

func flagLabel(dce, dpe float64) string {
	switch {
	case dpe < 0:
		return FlagFlatPE
	case dce > StrongCEThreshold:
		return FlagStrongCE
	default:
		return ""
	}
}

// ivDelta computes iv minus its baseline. A missing baseline entry defaults
// to the live value itself, a zero delta.
func ivDelta(iv *float64, baseline map[string]models.BaselineEntry, key string) *float64 {
	if iv == nil {
		return nil
	}
	base := *iv
	if baseline != nil {
		if entry, ok := baseline[key]; ok {
			base = entry.IV
		}
	}
	delta := *iv - base
	return &delta
}

func (c *Composer) ivFlagLabel(dce, dpe *float64) string {
	if dce == nil && dpe == nil {
		return ""
	}

	max := math.Inf(-1)
	min := math.Inf(1)
	for _, d := range []*float64{dce, dpe} {
		if d == nil {
			continue
		}
		if *d > max {
			max = *d
		}
		if *d < min {
			min = *d
		}
	}

	switch {
	case max >= c.IVThreshold:
		return FlagIVPump
	case min <= -c.IVThreshold:
		return FlagIVCrush
	default:
		return ""
	}
}

// patternMarks renders "{strike}{mark}" pairs joined in strike order.
func patternMarks(legs []LegMetrics, side func(LegMetrics) models.PatternResult) string {
	parts := make([]string, 0, len(legs))
	for _, l := range legs {
		r := side(l)
		if r == "" {
			r = models.PatternNoMatch
		}
		parts = append(parts, fmt.Sprintf("%s%s", formatStrike(l.Strike), r.Mark()))
	}
	return strings.Join(parts, " ")
}

// formatStrike drops the trailing .00 most index strikes carry.
func formatStrike(strike float64) string {
	if strike == math.Trunc(strike) {
		return fmt.Sprintf("%.0f", strike)
	}
	return fmt.Sprintf("%.2f", strike)
}
