package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "options-screener/internal/errors"
	"options-screener/internal/models"
	"options-screener/pkg/utils"
)

// ZerodhaProvider implements MarketDataProvider for Zerodha Kite Connect.
type ZerodhaProvider struct {
	client        *kiteconnect.Client
	apiKey        string
	apiSecret     string
	userID        string
	accessToken   string
	tokenPath     string
	authenticated bool
	mu            sync.RWMutex
}

// ZerodhaConfig holds configuration for the Zerodha provider.
type ZerodhaConfig struct {
	APIKey    string
	APISecret string
	UserID    string
	TokenPath string
	Timeout   time.Duration
}

// NewZerodhaProvider creates a new Zerodha provider instance.
// It automatically loads any saved session from disk.
func NewZerodhaProvider(cfg ZerodhaConfig) *ZerodhaProvider {
	client := kiteconnect.New(cfg.APIKey)

	// Every outbound call is bounded; on timeout the caller degrades to the
	// documented missing/empty outcome instead of hanging the pipeline.
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	client.SetTimeout(timeout)

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		tokenPath = filepath.Join(homeDir, ".config", "options-screener", "session.json")
	}

	p := &ZerodhaProvider{
		client:    client,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		userID:    cfg.UserID,
		tokenPath: tokenPath,
	}

	_ = p.loadSession()

	return p
}

// sessionData represents persisted session data.
type sessionData struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginURL returns the Kite Connect login URL for the OAuth flow.
func (p *ZerodhaProvider) LoginURL() string {
	return p.client.GetLoginURL()
}

// CompleteLogin exchanges the request token delivered on the OAuth callback
// for an access token and persists the session.
func (p *ZerodhaProvider) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := p.client.GenerateSession(requestToken, p.apiSecret)
	if err != nil {
		return fmt.Errorf("failed to generate session: %w", err)
	}

	p.mu.Lock()
	p.accessToken = session.AccessToken
	p.authenticated = true
	p.client.SetAccessToken(session.AccessToken)
	p.mu.Unlock()

	if err := p.saveSession(session.AccessToken); err != nil {
		// Session is valid even if persistence fails
		fmt.Printf("warning: failed to persist session: %v\n", err)
	}

	return nil
}

// Logout invalidates the session and clears stored credentials.
func (p *ZerodhaProvider) Logout(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.authenticated {
		if _, err := p.client.InvalidateAccessToken(); err != nil {
			fmt.Printf("warning: failed to invalidate token: %v\n", err)
		}
	}

	p.accessToken = ""
	p.authenticated = false

	if err := os.Remove(p.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// IsAuthenticated returns whether the provider is authenticated.
func (p *ZerodhaProvider) IsAuthenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.authenticated
}

func (p *ZerodhaProvider) loadSession() error {
	data, err := os.ReadFile(p.tokenPath)
	if err != nil {
		return err
	}

	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}

	// Kite tokens expire at 6 AM IST the next day
	if time.Now().After(session.ExpiresAt) {
		return apperrors.ErrSessionExpired
	}

	p.mu.Lock()
	p.accessToken = session.AccessToken
	p.authenticated = true
	p.client.SetAccessToken(session.AccessToken)
	p.mu.Unlock()

	return nil
}

func (p *ZerodhaProvider) saveSession(accessToken string) error {
	dir := filepath.Dir(p.tokenPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	now := time.Now().In(utils.IndiaLocation)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, utils.IndiaLocation)

	session := sessionData{
		AccessToken: accessToken,
		UserID:      p.userID,
		ExpiresAt:   expiresAt,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	// Restricted permissions: the token grants full account access
	return os.WriteFile(p.tokenPath, data, 0600)
}

// GetInstruments fetches the full instrument catalog for an exchange segment.
func (p *ZerodhaProvider) GetInstruments(ctx context.Context, exchange models.Exchange) ([]models.Instrument, error) {
	if !p.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	instruments, err := p.client.GetInstruments()
	if err != nil {
		return nil, apperrors.NewProviderError("instruments", "fetching catalog", err)
	}

	var result []models.Instrument
	for _, inst := range instruments {
		if inst.Exchange != string(exchange) {
			continue
		}
		result = append(result, models.Instrument{
			Token:    uint32(inst.InstrumentToken),
			Symbol:   inst.Tradingsymbol,
			Name:     inst.Name,
			Exchange: models.Exchange(inst.Exchange),
			Segment:  inst.Segment,
			Expiry:   inst.Expiry.Time,
			Strike:   inst.StrikePrice,
			Kind:     inst.InstrumentType,
			LotSize:  int(inst.LotSize),
			TickSize: inst.TickSize,
		})
	}

	return result, nil
}

// GetQuotes fetches quotes for a set of exchange-qualified identifiers in a
// single provider request. The caller is responsible for batching.
func (p *ZerodhaProvider) GetQuotes(ctx context.Context, ids []string) (map[string]models.Quote, error) {
	if !p.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}
	if len(ids) == 0 {
		return map[string]models.Quote{}, nil
	}

	quotes, err := p.client.GetQuote(ids...)
	if err != nil {
		return nil, apperrors.NewProviderError("quotes", "fetching quote batch", err)
	}

	result := make(map[string]models.Quote, len(quotes))
	for id, q := range quotes {
		result[id] = models.Quote{
			Symbol:       id,
			LTP:          q.LastPrice,
			Open:         q.OHLC.Open,
			High:         q.OHLC.High,
			Low:          q.OHLC.Low,
			PrevClose:    q.OHLC.Close,
			Volume:       int64(q.Volume),
			OpenInterest: int64(q.OI),
			Timestamp:    q.Timestamp.Time,
		}
	}

	return result, nil
}

// GetCandles fetches historical OHLCV bars for an instrument token.
func (p *ZerodhaProvider) GetCandles(ctx context.Context, req CandleRequest) ([]models.Candle, error) {
	if !p.IsAuthenticated() {
		return nil, apperrors.ErrNotAuthenticated
	}

	interval := req.Interval
	if interval == "" {
		interval = "5minute"
	}

	data, err := p.client.GetHistoricalData(int(req.Token), interval, req.From, req.To, false, false)
	if err != nil {
		return nil, apperrors.NewProviderError("candles", "fetching historical data", err)
	}

	candles := make([]models.Candle, len(data))
	for i, d := range data {
		candles[i] = models.Candle{
			Timestamp: d.Date.Time,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    int64(d.Volume),
		}
	}

	return candles, nil
}

// Ensure ZerodhaProvider implements MarketDataProvider
var _ MarketDataProvider = (*ZerodhaProvider)(nil)
