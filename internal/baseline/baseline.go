// Package baseline captures and serves the opening-bell snapshot of ATM
// implied volatility and open interest per watched symbol, the reference
// point for intraday IV and OI deltas.
package baseline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"options-screener/internal/catalog"
	apperrors "options-screener/internal/errors"
	"options-screener/internal/logging"
	"options-screener/internal/models"
	"options-screener/internal/pricing"
	"options-screener/internal/quotes"
	"options-screener/pkg/utils"
)

// Store persists the baseline mapping as a whole-file JSON document.
// The daily capture is the single writer; event processing only reads. The
// write goes to a temp file renamed into place so a concurrent reader never
// observes a partially written mapping.
type Store struct {
	path   string
	logger zerolog.Logger
}

// NewStore creates a baseline store backed by the given file path.
func NewStore(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With().Str("component", "baseline").Logger(),
	}
}

// Load returns the persisted baseline mapping. A missing file is an empty
// mapping, never an error: downstream deltas degrade to zero.
func (s *Store) Load() (map[string]models.BaselineEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]models.BaselineEntry{}, nil
		}
		return nil, apperrors.Wrap(err, "reading baseline file")
	}

	var entries map[string]models.BaselineEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, apperrors.Wrap(err, "decoding baseline file")
	}
	if entries == nil {
		entries = map[string]models.BaselineEntry{}
	}
	return entries, nil
}

// Save atomically replaces the baseline file with the given mapping.
// Overwrite semantics, not merge: a re-triggered capture is idempotent.
func (s *Store) Save(entries map[string]models.BaselineEntry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return apperrors.Wrap(err, "creating baseline directory")
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "encoding baseline")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return apperrors.Wrap(err, "writing baseline temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperrors.Wrap(err, "replacing baseline file")
	}
	return nil
}

// Capturer resolves each watched symbol's ATM call and put at the nearest
// expiry, solves their implied volatility, and persists the mapping.
type Capturer struct {
	store      *Store
	resolver   *catalog.Resolver
	selector   *catalog.Selector
	aggregator *quotes.Aggregator

	rate   float64
	div    float64
	logger zerolog.Logger

	now func() time.Time
}

// NewCapturer creates a baseline capturer.
func NewCapturer(store *Store, resolver *catalog.Resolver, selector *catalog.Selector, aggregator *quotes.Aggregator, rate, div float64, logger zerolog.Logger) *Capturer {
	return &Capturer{
		store:      store,
		resolver:   resolver,
		selector:   selector,
		aggregator: aggregator,
		rate:       rate,
		div:        div,
		logger:     logger.With().Str("component", "baseline").Logger(),
		now:        time.Now,
	}
}

// Capture builds and persists the full baseline mapping for the watchlist.
// Per-symbol failures are logged and skipped; the capture persists whatever
// it could resolve so a single dead symbol never loses the whole snapshot.
func (c *Capturer) Capture(ctx context.Context, watchlist []string) error {
	started := c.now()
	entries := make(map[string]models.BaselineEntry)

	for _, symbol := range watchlist {
		if err := c.captureSymbol(ctx, symbol, entries); err != nil {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Baseline capture skipped symbol")
		}
	}

	if err := c.store.Save(entries); err != nil {
		return err
	}

	logging.LogBaselineCapture(c.logger, len(watchlist), len(entries), c.now().Sub(started))
	return nil
}

func (c *Capturer) captureSymbol(ctx context.Context, symbol string, entries map[string]models.BaselineEntry) error {
	expiry, err := c.resolver.ResolveExpiry(ctx, symbol)
	if err != nil {
		return err
	}

	spotQuotes := c.aggregator.Fetch(ctx, []string{catalog.UnderlyingQuoteID(symbol)})
	spotQuote, ok := spotQuotes[catalog.UnderlyingQuoteID(symbol)]
	if !ok {
		return apperrors.NewDataError("baseline", symbol, "spot quote unavailable", apperrors.ErrQuoteMissing)
	}
	spot := spotQuote.LTP

	window, err := c.selector.SelectStrikes(ctx, symbol, expiry, spot, 0)
	if err != nil {
		return err
	}
	if len(window) == 0 {
		return apperrors.NewDataError("baseline", symbol, "no strikes at expiry", apperrors.ErrNoChain)
	}
	atm := window[0]

	chain, err := c.selector.Contracts(ctx, symbol, expiry)
	if err != nil {
		return err
	}

	now := c.now()
	tYears := utils.YearsUntil(expiry, now)

	for _, kind := range []models.OptionKind{models.KindCall, models.KindPut} {
		inst, ok := catalog.FindContract(chain, atm, kind)
		if !ok {
			c.logger.Warn().
				Str("symbol", symbol).
				Str("kind", string(kind)).
				Float64("strike", atm).
				Msg("ATM leg not listed")
			continue
		}

		legQuotes := c.aggregator.Fetch(ctx, []string{inst.ID()})
		q, ok := legQuotes[inst.ID()]
		if !ok {
			c.logger.Warn().Str("id", inst.ID()).Msg("ATM leg quote unavailable")
			continue
		}

		iv := pricing.ImpliedVol(q.LTP, spot, atm, tYears, c.rate, c.div, kind.Sign())
		entries[models.BaselineKey(symbol, kind)] = models.BaselineEntry{
			IV:         iv,
			OI:         q.OpenInterest,
			CapturedAt: now,
		}
	}

	return nil
}
