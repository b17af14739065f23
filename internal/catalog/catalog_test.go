package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"options-screener/internal/broker"
	apperrors "options-screener/internal/errors"
	"options-screener/internal/models"
	"options-screener/pkg/utils"
)

// fakeProvider serves a canned instrument dump and counts fetches.
type fakeProvider struct {
	instruments []models.Instrument
	err         error
	calls       int
}

func (f *fakeProvider) IsAuthenticated() bool { return true }
func (f *fakeProvider) LoginURL() string      { return "" }
func (f *fakeProvider) CompleteLogin(ctx context.Context, requestToken string) error {
	return nil
}
func (f *fakeProvider) Logout(ctx context.Context) error { return nil }

func (f *fakeProvider) GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.instruments, nil
}

func (f *fakeProvider) GetQuotes(ctx context.Context, ids []string) (map[string]models.Quote, error) {
	return map[string]models.Quote{}, nil
}

func (f *fakeProvider) GetCandles(ctx context.Context, req broker.CandleRequest) ([]models.Candle, error) {
	return nil, nil
}

var _ broker.MarketDataProvider = (*fakeProvider)(nil)

func option(name string, expiry time.Time, strike float64, kind models.OptionKind) models.Instrument {
	return models.Instrument{
		Symbol:   name + expiry.Format("06Jan") + string(kind),
		Name:     name,
		Exchange: models.NFO,
		Expiry:   expiry,
		Strike:   strike,
		Kind:     string(kind),
	}
}

func istDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 30, 0, 0, utils.IndiaLocation)
}

func TestCacheRefreshOncePerDay(t *testing.T) {
	provider := &fakeProvider{instruments: []models.Instrument{
		option("NIFTY", istDate(2026, 9, 3), 25000, models.KindCall),
	}}
	cache := NewCache(provider, models.NFO, zerolog.Nop())

	day := time.Date(2026, 9, 1, 10, 0, 0, 0, utils.IndiaLocation)
	cache.now = func() time.Time { return day }

	for i := 0; i < 3; i++ {
		got, err := cache.Instruments(context.Background())
		if err != nil {
			t.Fatalf("Instruments() error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 instrument, got %d", len(got))
		}
	}
	if provider.calls != 1 {
		t.Errorf("expected a single provider fetch per day, got %d", provider.calls)
	}

	// Next trading date forces a refetch.
	day = day.Add(24 * time.Hour)
	if _, err := cache.Instruments(context.Background()); err != nil {
		t.Fatalf("Instruments() error: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("expected a refetch on date rollover, got %d calls", provider.calls)
	}
}

func TestCacheUnavailableWithoutSnapshot(t *testing.T) {
	provider := &fakeProvider{err: errors.New("gateway timeout")}
	cache := NewCache(provider, models.NFO, zerolog.Nop())

	_, err := cache.Instruments(context.Background())
	if !errors.Is(err, apperrors.ErrCatalogUnavailable) {
		t.Errorf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestCacheServesStaleOnRefreshFailure(t *testing.T) {
	provider := &fakeProvider{instruments: []models.Instrument{
		option("NIFTY", istDate(2026, 9, 3), 25000, models.KindCall),
	}}
	cache := NewCache(provider, models.NFO, zerolog.Nop())

	day := time.Date(2026, 9, 1, 10, 0, 0, 0, utils.IndiaLocation)
	cache.now = func() time.Time { return day }

	if _, err := cache.Instruments(context.Background()); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}

	// Next day's refresh fails: the stale snapshot is served, not an error.
	day = day.Add(24 * time.Hour)
	provider.err = errors.New("gateway timeout")

	got, err := cache.Instruments(context.Background())
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected the stale snapshot, got %d instruments", len(got))
	}
}

func TestCacheServesStaleOnEmptyRefresh(t *testing.T) {
	provider := &fakeProvider{instruments: []models.Instrument{
		option("NIFTY", istDate(2026, 9, 3), 25000, models.KindCall),
	}}
	cache := NewCache(provider, models.NFO, zerolog.Nop())

	day := time.Date(2026, 9, 1, 10, 0, 0, 0, utils.IndiaLocation)
	cache.now = func() time.Time { return day }

	if _, err := cache.Instruments(context.Background()); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}

	// Next day's dump comes back empty without an error. The prior snapshot
	// must survive: an empty catalog would turn every event into a false
	// no-chain record.
	day = day.Add(24 * time.Hour)
	provider.instruments = nil

	got, err := cache.Instruments(context.Background())
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the stale snapshot, got %d instruments", len(got))
	}

	// The empty result is not stamped as today's snapshot; a later good dump
	// replaces it.
	provider.instruments = []models.Instrument{
		option("NIFTY", istDate(2026, 9, 3), 25000, models.KindCall),
		option("NIFTY", istDate(2026, 9, 3), 25100, models.KindCall),
	}
	got, err = cache.Instruments(context.Background())
	if err != nil {
		t.Fatalf("Instruments() error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected the recovered dump, got %d instruments", len(got))
	}
}

func TestResolveExpiry(t *testing.T) {
	now := time.Date(2026, 9, 1, 11, 0, 0, 0, utils.IndiaLocation)

	past := istDate(2026, 8, 27)
	near := istDate(2026, 9, 3)
	far := istDate(2026, 9, 10)

	tests := []struct {
		name          string
		instruments   []models.Instrument
		allowFallback bool
		want          time.Time
		wantErr       error
	}{
		{
			name: "nearest future expiry wins",
			instruments: []models.Instrument{
				option("NIFTY", far, 25000, models.KindCall),
				option("NIFTY", past, 25000, models.KindCall),
				option("NIFTY", near, 25000, models.KindPut),
			},
			want: near,
		},
		{
			name: "expiry today still counts",
			instruments: []models.Instrument{
				option("NIFTY", istDate(2026, 9, 1), 25000, models.KindCall),
			},
			want: istDate(2026, 9, 1),
		},
		{
			name:        "no contracts at all",
			instruments: []models.Instrument{option("BANKNIFTY", near, 52000, models.KindCall)},
			wantErr:     apperrors.ErrNoChain,
		},
		{
			name: "all expired with fallback enabled returns latest",
			instruments: []models.Instrument{
				option("NIFTY", istDate(2026, 8, 20), 25000, models.KindCall),
				option("NIFTY", past, 25000, models.KindCall),
			},
			allowFallback: true,
			want:          past,
		},
		{
			name: "all expired with fallback disabled",
			instruments: []models.Instrument{
				option("NIFTY", past, 25000, models.KindCall),
			},
			wantErr: apperrors.ErrNoChain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCache(&fakeProvider{instruments: tt.instruments}, models.NFO, zerolog.Nop())
			cache.now = func() time.Time { return now }

			resolver := NewResolver(cache, tt.allowFallback)
			resolver.now = func() time.Time { return now }

			got, err := resolver.ResolveExpiry(context.Background(), "NIFTY")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveExpiry() error: %v", err)
			}
			if !utils.SameTradingDate(got, tt.want) {
				t.Errorf("ResolveExpiry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveExpiryPrefixFallback(t *testing.T) {
	now := time.Date(2026, 9, 1, 11, 0, 0, 0, utils.IndiaLocation)
	near := istDate(2026, 9, 3)

	// Catalog entries whose Name column is empty match by symbol prefix.
	inst := option("NIFTY", near, 25000, models.KindCall)
	inst.Name = ""
	inst.Symbol = "NIFTY26SEP25000CE"

	cache := NewCache(&fakeProvider{instruments: []models.Instrument{inst}}, models.NFO, zerolog.Nop())
	cache.now = func() time.Time { return now }

	resolver := NewResolver(cache, false)
	resolver.now = func() time.Time { return now }

	got, err := resolver.ResolveExpiry(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("ResolveExpiry() error: %v", err)
	}
	if !utils.SameTradingDate(got, near) {
		t.Errorf("ResolveExpiry() = %v, want %v", got, near)
	}
}

func TestUnderlyingQuoteID(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"NIFTY", "NSE:NIFTY 50"},
		{"BANKNIFTY", "NSE:NIFTY BANK"},
		{"RELIANCE", "NSE:RELIANCE"},
	}
	for _, tt := range tests {
		if got := UnderlyingQuoteID(tt.symbol); got != tt.want {
			t.Errorf("UnderlyingQuoteID(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}
