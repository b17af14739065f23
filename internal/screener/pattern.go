// Package screener contains the signal engine: candle pattern classification,
// metric composition and the per-event pipeline.
package screener

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"options-screener/internal/broker"
	"options-screener/internal/catalog"
	"options-screener/internal/models"
	"options-screener/pkg/utils"
)

// Classifier evaluates a contract's intraday 5-minute candles for the
// volume-spike + directional-color pattern.
//
// The rule: a volume spike on the most recent bar, colored the way that
// option type trades on the move (puts rally on down-moves so their spike
// bar is green; calls fall so theirs is red), is a cheap proxy for unusual
// participation aligned with the contract's thesis.
type Classifier struct {
	provider broker.MarketDataProvider
	cache    *catalog.Cache
	logger   zerolog.Logger

	now func() time.Time
}

// NewClassifier creates a candle pattern classifier.
func NewClassifier(provider broker.MarketDataProvider, cache *catalog.Cache, logger zerolog.Logger) *Classifier {
	return &Classifier{
		provider: provider,
		cache:    cache,
		logger:   logger.With().Str("component", "classifier").Logger(),
		now:      time.Now,
	}
}

// Classify fetches the instrument's candles from session open to now and
// applies the pattern rule. Every failure mode degrades to NO_MATCH: an
// unresolvable lookup token, no candles, or a latest bar that is not the
// session's volume maximum.
func (c *Classifier) Classify(ctx context.Context, instrumentID string, isPut bool) models.PatternResult {
	inst, ok := c.cache.Lookup(ctx, instrumentID)
	if !ok {
		c.logger.Debug().Str("id", instrumentID).Msg("No lookup token, NO_MATCH")
		return models.PatternNoMatch
	}

	candles, err := c.SessionCandles(ctx, inst.Token)
	if err != nil {
		c.logger.Debug().Err(err).Str("id", instrumentID).Msg("Candle fetch failed, NO_MATCH")
		return models.PatternNoMatch
	}

	return ClassifyCandles(candles, isPut)
}

// SessionCandles fetches the 5-minute bars from session open (09:15 IST) to
// the current time.
func (c *Classifier) SessionCandles(ctx context.Context, token uint32) ([]models.Candle, error) {
	now := c.now()
	return c.provider.GetCandles(ctx, broker.CandleRequest{
		Token:    token,
		Interval: "5minute",
		From:     utils.SessionOpen(now),
		To:       now,
	})
}

// ClassifyCandles applies the pattern rule to an already-fetched bar series.
// Pure; the I/O-free core of Classify.
func ClassifyCandles(candles []models.Candle, isPut bool) models.PatternResult {
	if len(candles) == 0 {
		return models.PatternNoMatch
	}

	latest := candles[len(candles)-1]
	for _, c := range candles {
		if c.Volume > latest.Volume {
			// Latest bar is not the session's volume spike
			return models.PatternNoMatch
		}
	}

	isGreen := latest.Close > latest.Open
	isRed := latest.Close < latest.Open

	if (isPut && isGreen) || (!isPut && isRed) {
		return models.PatternMatch
	}
	return models.PatternNoMatch
}

// VolumeRatio returns the latest bar's volume over the session mean volume.
// The boolean is false when the series is empty or has zero total volume.
func VolumeRatio(candles []models.Candle) (float64, bool) {
	if len(candles) == 0 {
		return 0, false
	}

	var total int64
	for _, c := range candles {
		total += c.Volume
	}
	if total == 0 {
		return 0, false
	}

	mean := float64(total) / float64(len(candles))
	return float64(candles[len(candles)-1].Volume) / mean, true
}
