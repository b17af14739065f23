// Package models provides domain models for the options screener.
package models

import (
	"time"
)

// Exchange represents a stock exchange segment.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // F&O
)

// OptionKind represents the contract kind of an option instrument.
type OptionKind string

const (
	KindCall OptionKind = "CE"
	KindPut  OptionKind = "PE"
)

// Sign returns the pricing-model sign convention: +1 for calls, -1 for puts.
func (k OptionKind) Sign() float64 {
	if k == KindPut {
		return -1
	}
	return 1
}

// IsPut reports whether the kind is a put.
func (k OptionKind) IsPut() bool {
	return k == KindPut
}

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen    MarketStatus = "OPEN"
	MarketPreOpen MarketStatus = "PRE_OPEN"
	MarketClosed  MarketStatus = "CLOSED"
)

// Instrument represents a listed option contract (or underlying) from the
// daily catalog dump. Immutable once fetched; a catalog refresh replaces the
// whole set rather than updating entries in place.
type Instrument struct {
	Token    uint32
	Symbol   string // exchange-qualified trading symbol, e.g. NIFTY24SEP25000CE
	Name     string // underlying name, e.g. NIFTY
	Exchange Exchange
	Segment  string
	Expiry   time.Time
	Strike   float64
	Kind     string // CE, PE, FUT, EQ
	LotSize  int
	TickSize float64
}

// ID returns the exchange-qualified identifier used for quote lookups.
func (i Instrument) ID() string {
	return string(i.Exchange) + ":" + i.Symbol
}

// Quote represents a point-in-time market snapshot for one instrument.
// Fetched fresh per request, never cached: volume and OI move continuously.
type Quote struct {
	Symbol       string
	LTP          float64
	Open         float64
	High         float64
	Low          float64
	PrevClose    float64
	Volume       int64
	OpenInterest int64
	Timestamp    time.Time
}

// Candle represents OHLCV data for one intraday bar.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Event is an inbound market-event notification, the sole trigger for one
// engine run.
type Event struct {
	Symbol      string `json:"symbol"`
	TriggerTime int64  `json:"trigger_time,omitempty"` // epoch seconds, optional
	Move        string `json:"move,omitempty"`
}

// Time returns the event's trigger time, falling back to now when absent.
func (e Event) Time() time.Time {
	if e.TriggerTime > 0 {
		return time.Unix(e.TriggerTime, 0)
	}
	return time.Now()
}

// PatternResult is the outcome of the volume-spike candle classifier.
type PatternResult string

const (
	PatternMatch   PatternResult = "MATCH"
	PatternNoMatch PatternResult = "NO_MATCH"
)

// Mark renders the classifier outcome the way the alert ledger stores it.
func (r PatternResult) Mark() string {
	if r == PatternMatch {
		return "✅"
	}
	return "❌"
}
