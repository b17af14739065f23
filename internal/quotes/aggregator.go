// Package quotes batches quote lookups against the provider's request-size
// limit, tolerating partial failures.
package quotes

import (
	"context"

	"github.com/rs/zerolog"

	"options-screener/internal/broker"
	"options-screener/internal/models"
)

// DefaultBatchSize is the provider's per-request instrument limit.
const DefaultBatchSize = 25

// Aggregator fetches quotes for instrument id sets in fixed-size batches.
type Aggregator struct {
	provider  broker.MarketDataProvider
	batchSize int
	logger    zerolog.Logger
}

// NewAggregator creates a quote aggregator. A non-positive batchSize falls
// back to DefaultBatchSize.
func NewAggregator(provider broker.MarketDataProvider, batchSize int, logger zerolog.Logger) *Aggregator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Aggregator{
		provider:  provider,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "quotes").Logger(),
	}
}

// Fetch returns a quote per requested id. A failed batch is logged and its
// ids omitted rather than failing the whole call, so the result may be a
// strict subset of the request. Consumers must treat a missing id as
// unknown, never as zero.
func (a *Aggregator) Fetch(ctx context.Context, ids []string) map[string]models.Quote {
	result := make(map[string]models.Quote, len(ids))

	for start := 0; start < len(ids); start += a.batchSize {
		end := start + a.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		quotes, err := a.provider.GetQuotes(ctx, batch)
		if err != nil {
			a.logger.Warn().
				Err(err).
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Msg("Quote batch failed, omitting ids")
			continue
		}

		for id, q := range quotes {
			result[id] = q
		}
	}

	return result
}
