package screener

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"options-screener/internal/baseline"
	"options-screener/internal/catalog"
	apperrors "options-screener/internal/errors"
	"options-screener/internal/logging"
	"options-screener/internal/models"
	"options-screener/internal/notify"
	"options-screener/internal/pricing"
	"options-screener/internal/quotes"
	"options-screener/internal/store"
	"options-screener/pkg/utils"
)

// Pipeline states. Any step's failure transitions directly to PERSISTED with
// a partial record and an error note; there is no retry state.
type State string

const (
	StateReceived        State = "RECEIVED"
	StateChainResolved   State = "CHAIN_RESOLVED"
	StateQuotesFetched   State = "QUOTES_FETCHED"
	StateMetricsComposed State = "METRICS_COMPOSED"
	StatePersisted       State = "PERSISTED"
)

// Options carries the engine tunables out of config.
type Options struct {
	StrikeWidth   int
	RiskFreeRate  float64
	DividendYield float64
}

// Engine runs the per-event pipeline: resolve the chain, aggregate quotes,
// classify candles, solve IV, compose the signal, persist the record.
type Engine struct {
	resolver   *catalog.Resolver
	selector   *catalog.Selector
	aggregator *quotes.Aggregator
	classifier *Classifier
	composer   *Composer
	baseline   *baseline.Store
	ledger     store.AlertLedger
	notifier   notify.Notifier
	opts       Options
	logger     zerolog.Logger

	now func() time.Time
}

// NewEngine creates a signal engine.
func NewEngine(
	resolver *catalog.Resolver,
	selector *catalog.Selector,
	aggregator *quotes.Aggregator,
	classifier *Classifier,
	composer *Composer,
	baselineStore *baseline.Store,
	ledger store.AlertLedger,
	notifier notify.Notifier,
	opts Options,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		resolver:   resolver,
		selector:   selector,
		aggregator: aggregator,
		classifier: classifier,
		composer:   composer,
		baseline:   baselineStore,
		ledger:     ledger,
		notifier:   notifier,
		opts:       opts,
		logger:     logging.WithComponent(logger, "engine"),
		now:        time.Now,
	}
}

// Process runs one event through the pipeline, always ending in a persisted
// record. Degraded metrics surface as nil fields plus an error note on the
// record; only a ledger write failure is returned as an error.
func (e *Engine) Process(ctx context.Context, evt models.Event) (*models.AlertRecord, error) {
	logger := logging.WithSymbol(e.logger, evt.Symbol)
	logger.Info().Str("state", string(StateReceived)).Str("move", evt.Move).Msg("Event received")

	in := ComposeInput{
		Symbol:    evt.Symbol,
		EventTime: evt.Time(),
		Move:      evt.Move,
	}

	// Baseline absence degrades every delta to zero, never fails the event.
	base, err := e.baseline.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("Baseline load failed")
		in.Notes = append(in.Notes, "baseline unavailable")
		base = map[string]models.BaselineEntry{}
	}
	in.Baseline = base

	e.gatherMetrics(ctx, evt, &in, logger)

	rec := e.composer.Compose(in)
	logger.Debug().Str("state", string(StateMetricsComposed)).Msg("Metrics composed")
	logging.LogSignal(e.logger, rec.Symbol, rec.Signal, rec.Trend, rec.IVFlag, rec.Partial())

	if err := e.ledger.Append(ctx, rec); err != nil {
		logger.Error().Err(err).Msg("Ledger append failed")
		return rec, apperrors.Wrap(err, "persisting alert record")
	}
	logger.Info().Str("state", string(StatePersisted)).Int64("id", rec.ID).Msg("Record persisted")

	// Fire-and-forget: delivery failure never reaches the caller.
	go func(rec *models.AlertRecord) {
		nctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.notifier.SendAlert(nctx, rec); err != nil {
			e.logger.Warn().Err(err).Str("symbol", rec.Symbol).Msg("Notification delivery failed")
		}
	}(rec)

	return rec, nil
}

// gatherMetrics fills the compose input with everything it can resolve,
// noting each degradation. It returns early only when the chain itself
// cannot be resolved; every later failure is leg-local.
func (e *Engine) gatherMetrics(ctx context.Context, evt models.Event, in *ComposeInput, logger zerolog.Logger) {
	// Spot snapshot for the underlying
	spotID := catalog.UnderlyingQuoteID(evt.Symbol)
	spotQuotes := e.aggregator.Fetch(ctx, []string{spotID})
	if q, ok := spotQuotes[spotID]; ok {
		spot := q.LTP
		prev := q.PrevClose
		in.Spot = &spot
		in.PrevClose = &prev
	} else {
		in.Notes = append(in.Notes, "spot quote unavailable")
	}

	expiry, err := e.resolver.ResolveExpiry(ctx, evt.Symbol)
	if err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrCatalogUnavailable):
			logger.Error().Err(err).Msg("Catalog unavailable, aborting metrics")
			in.Notes = append(in.Notes, fmt.Sprintf("catalog unavailable: %v", err))
		case apperrors.Is(err, apperrors.ErrNoChain):
			logger.Info().Msg("No option chain")
			in.Notes = append(in.Notes, "no option chain")
		default:
			logger.Warn().Err(err).Msg("Expiry resolution failed")
			in.Notes = append(in.Notes, fmt.Sprintf("expiry resolution: %v", err))
		}
		return
	}

	if in.Spot == nil {
		// No spot means no ATM; the chain is resolved but unusable
		return
	}
	spot := *in.Spot

	window, err := e.selector.SelectStrikes(ctx, evt.Symbol, expiry, spot, e.opts.StrikeWidth)
	if err != nil {
		in.Notes = append(in.Notes, fmt.Sprintf("strike selection: %v", err))
		return
	}
	if len(window) == 0 {
		in.Notes = append(in.Notes, "no option chain")
		return
	}
	logger.Info().Str("state", string(StateChainResolved)).
		Time("expiry", expiry).
		Int("strikes", len(window)).
		Msg("Chain resolved")

	chain, err := e.selector.Contracts(ctx, evt.Symbol, expiry)
	if err != nil {
		in.Notes = append(in.Notes, fmt.Sprintf("chain contracts: %v", err))
		return
	}

	legs, ids := buildLegs(chain, window)

	quoteMap := e.aggregator.Fetch(ctx, ids)
	missing := attachQuotes(chain, legs, quoteMap)
	if missing > 0 {
		in.Notes = append(in.Notes, fmt.Sprintf("%d leg quotes missing", missing))
	}
	logger.Info().Str("state", string(StateQuotesFetched)).
		Int("requested", len(ids)).
		Int("received", len(quoteMap)).
		Msg("Quotes fetched")

	atm := window[catalog.ATMIndex(window, spot)]
	tYears := utils.YearsUntil(expiry, e.now())

	for i := range legs {
		if legs[i].Strike != atm {
			continue
		}
		if q := legs[i].Call; q != nil {
			iv := pricing.ImpliedVol(q.LTP, spot, atm, tYears, e.opts.RiskFreeRate, e.opts.DividendYield, pricing.SignCall)
			in.IVCE = &iv
		}
		if q := legs[i].Put; q != nil {
			iv := pricing.ImpliedVol(q.LTP, spot, atm, tYears, e.opts.RiskFreeRate, e.opts.DividendYield, pricing.SignPut)
			in.IVPE = &iv
			oi := q.OpenInterest
			in.ATMPutOI = &oi
		}
	}
	if in.IVCE == nil || in.IVPE == nil {
		in.Notes = append(in.Notes, "ATM IV incomplete")
	}

	e.classifyLegs(ctx, chain, legs)

	if inst, ok := catalog.FindContract(chain, atm, models.KindCall); ok {
		if candles, err := e.classifier.SessionCandles(ctx, inst.Token); err == nil {
			if ratio, ok := VolumeRatio(candles); ok {
				in.VolumeRatio = &ratio
			}
		}
	}

	in.Legs = legs
}

// buildLegs pairs each window strike with its CE and PE contracts and
// collects the quote ids to fetch.
func buildLegs(chain []models.Instrument, window []float64) ([]LegMetrics, []string) {
	legs := make([]LegMetrics, len(window))
	var ids []string
	for i, strike := range window {
		legs[i] = LegMetrics{
			Strike:      strike,
			CallPattern: models.PatternNoMatch,
			PutPattern:  models.PatternNoMatch,
		}
		if inst, ok := catalog.FindContract(chain, strike, models.KindCall); ok {
			ids = append(ids, inst.ID())
		}
		if inst, ok := catalog.FindContract(chain, strike, models.KindPut); ok {
			ids = append(ids, inst.ID())
		}
	}
	return legs, ids
}

// attachQuotes fills leg quotes from the aggregator result, returning how
// many legs stayed unknown.
func attachQuotes(chain []models.Instrument, legs []LegMetrics, quoteMap map[string]models.Quote) int {
	missing := 0
	for i := range legs {
		for _, kind := range []models.OptionKind{models.KindCall, models.KindPut} {
			inst, ok := catalog.FindContract(chain, legs[i].Strike, kind)
			if !ok {
				missing++
				continue
			}
			q, ok := quoteMap[inst.ID()]
			if !ok {
				missing++
				continue
			}
			if kind == models.KindCall {
				legs[i].Call = &q
			} else {
				legs[i].Put = &q
			}
		}
	}
	return missing
}

// classifyLegs runs the pattern classifier over every listed leg of the
// window. The calls are read-only and side-effect-free, so they run
// concurrently; each leg's failure is isolated to that leg.
func (e *Engine) classifyLegs(ctx context.Context, chain []models.Instrument, legs []LegMetrics) {
	var wg sync.WaitGroup
	for i := range legs {
		for _, kind := range []models.OptionKind{models.KindCall, models.KindPut} {
			inst, ok := catalog.FindContract(chain, legs[i].Strike, kind)
			if !ok {
				continue
			}
			wg.Add(1)
			go func(i int, kind models.OptionKind, id string) {
				defer wg.Done()
				result := e.classifier.Classify(ctx, id, kind.IsPut())
				if kind == models.KindCall {
					legs[i].CallPattern = result
				} else {
					legs[i].PutPattern = result
				}
			}(i, kind, inst.ID())
		}
	}
	wg.Wait()
}
