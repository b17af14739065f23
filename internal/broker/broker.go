// Package broker provides market-data provider interfaces and implementations.
package broker

import (
	"context"
	"time"

	"options-screener/internal/models"
)

// MarketDataProvider defines the boundary to the brokerage market-data API.
// Implementations must honor the context deadline on every call.
type MarketDataProvider interface {
	// Authentication
	IsAuthenticated() bool
	LoginURL() string
	CompleteLogin(ctx context.Context, requestToken string) error
	Logout(ctx context.Context) error

	// Market data
	GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error)
	GetQuotes(ctx context.Context, ids []string) (map[string]models.Quote, error)
	GetCandles(ctx context.Context, req CandleRequest) ([]models.Candle, error)
}

// CandleRequest represents a request for historical intraday bars.
type CandleRequest struct {
	Token    uint32
	Interval string // e.g. "5minute"
	From     time.Time
	To       time.Time
}
