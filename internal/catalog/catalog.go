// Package catalog maintains the daily instrument catalog snapshot and the
// chain-resolution helpers built on it.
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"options-screener/internal/broker"
	apperrors "options-screener/internal/errors"
	"options-screener/internal/models"
	"options-screener/pkg/utils"
)

// Cache is a read-mostly snapshot of all listed contracts for one exchange
// segment, keyed by the IST trading date of its fetch. The whole set is
// replaced wholesale on refresh; entries are never updated individually.
type Cache struct {
	provider broker.MarketDataProvider
	exchange models.Exchange
	logger   zerolog.Logger

	mu          sync.Mutex
	instruments []models.Instrument
	fetchedOn   time.Time // IST midnight of the fetch date; zero when empty

	now func() time.Time // injectable clock for tests
}

// NewCache creates a catalog cache for the given exchange segment.
func NewCache(provider broker.MarketDataProvider, exchange models.Exchange, logger zerolog.Logger) *Cache {
	return &Cache{
		provider: provider,
		exchange: exchange,
		logger:   logging(logger),
		now:      time.Now,
	}
}

func logging(logger zerolog.Logger) zerolog.Logger {
	return logger.With().Str("component", "catalog").Logger()
}

// Instruments returns the current day's instrument snapshot, refreshing from
// the provider when no snapshot exists or the cached one is from a prior
// trading date. Concurrent first-use refreshes are serialized: at most one
// provider fetch happens per day.
//
// A refresh failure with no prior snapshot is ErrCatalogUnavailable. With a
// prior snapshot the stale set is returned and the failure logged — stale
// data beats no data for a best-effort screener, and the fallback is never
// silent.
func (c *Cache) Instruments(ctx context.Context) ([]models.Instrument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	today := utils.TradingDate(c.now())
	if len(c.instruments) > 0 && c.fetchedOn.Equal(today) {
		return c.instruments, nil
	}

	// The daily dump is a large download; transient failures here would
	// otherwise cost the whole trading day.
	fresh, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() ([]models.Instrument, error) {
		return c.provider.GetInstruments(ctx, c.exchange)
	})
	if err != nil {
		if len(c.instruments) == 0 {
			c.logger.Error().Err(err).Msg("Catalog refresh failed with no prior snapshot")
			return nil, apperrors.Wrap(apperrors.ErrCatalogUnavailable, err.Error())
		}
		c.logger.Warn().
			Err(err).
			Time("stale_date", c.fetchedOn).
			Msg("Catalog refresh failed, serving stale snapshot")
		return c.instruments, nil
	}
	if len(fresh) == 0 {
		if len(c.instruments) == 0 {
			c.logger.Error().Msg("Catalog refresh returned no instruments")
			return nil, apperrors.ErrCatalogUnavailable
		}
		// An empty dump is failure-class: keep the stale snapshot rather
		// than wiping every chain for the day.
		c.logger.Warn().
			Time("stale_date", c.fetchedOn).
			Msg("Catalog refresh returned no instruments, serving stale snapshot")
		return c.instruments, nil
	}

	c.instruments = fresh
	c.fetchedOn = today
	c.logger.Info().
		Int("instruments", len(fresh)).
		Str("exchange", string(c.exchange)).
		Msg("Catalog refreshed")

	return c.instruments, nil
}

// Lookup resolves an exchange-qualified identifier to its catalog entry.
// The boolean is false when the id is not listed in the current snapshot.
func (c *Cache) Lookup(ctx context.Context, id string) (models.Instrument, bool) {
	instruments, err := c.Instruments(ctx)
	if err != nil {
		return models.Instrument{}, false
	}
	for _, inst := range instruments {
		if inst.ID() == id {
			return inst, true
		}
	}
	return models.Instrument{}, false
}

// isOption reports whether an instrument is a CE or PE contract.
func isOption(inst models.Instrument) bool {
	return inst.Kind == string(models.KindCall) || inst.Kind == string(models.KindPut)
}

// matchesUnderlying applies the two accepted matching rules in order: exact
// underlying-name match first, trading-symbol prefix second.
func matchesUnderlying(inst models.Instrument, underlying string) bool {
	if inst.Name == underlying {
		return true
	}
	return len(inst.Symbol) >= len(underlying) && inst.Symbol[:len(underlying)] == underlying
}

// filterChain returns the option contracts for an underlying, trying the
// exact-name rule before falling back to the prefix rule.
func filterChain(instruments []models.Instrument, underlying string) []models.Instrument {
	var exact []models.Instrument
	for _, inst := range instruments {
		if isOption(inst) && inst.Name == underlying {
			exact = append(exact, inst)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	var prefixed []models.Instrument
	for _, inst := range instruments {
		if isOption(inst) && matchesUnderlying(inst, underlying) {
			prefixed = append(prefixed, inst)
		}
	}
	return prefixed
}
