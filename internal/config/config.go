// Package config provides configuration management for the screener.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig       `mapstructure:"server"`
	Screener      ScreenerConfig     `mapstructure:"screener"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// ServerConfig holds ingress HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ScreenerConfig holds signal-engine tunables.
type ScreenerConfig struct {
	Exchange           string        `mapstructure:"exchange"`             // catalog segment, default NFO
	StrikeWidth        int           `mapstructure:"strike_width"`         // strikes either side of ATM
	QuoteBatchSize     int           `mapstructure:"quote_batch_size"`     // provider request-size limit
	IVThreshold        float64       `mapstructure:"iv_threshold"`         // pump/crush cutoff on IV delta
	RiskFreeRate       float64       `mapstructure:"risk_free_rate"`       // annualized, for the IV solver
	DividendYield      float64       `mapstructure:"dividend_yield"`       // annualized
	ProviderTimeout    time.Duration `mapstructure:"provider_timeout"`     // per outbound call
	AllowExpiredExpiry bool          `mapstructure:"allow_expired_expiry"` // fall back to latest expired series
	Watchlist          []string      `mapstructure:"watchlist"`            // symbols for the baseline capture
	BaselineTime       string        `mapstructure:"baseline_time"`        // cron spec, session open IST
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Credentials holds API credentials.
type Credentials struct {
	Kite KiteCredentials `mapstructure:"kite"`
}

// KiteCredentials holds Kite Connect API credentials.
type KiteCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	UserID    string `mapstructure:"user_id"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/options-screener"
	}
	return filepath.Join(home, ".config", "options-screener")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Credentials.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_API_SECRET"); v != "" {
		cfg.Credentials.Kite.APISecret = v
	}
	if v := os.Getenv("KITE_USER_ID"); v != "" {
		cfg.Credentials.Kite.UserID = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Screener.Exchange == "" {
		cfg.Screener.Exchange = "NFO"
	}
	if cfg.Screener.StrikeWidth == 0 {
		cfg.Screener.StrikeWidth = 2
	}
	if cfg.Screener.QuoteBatchSize == 0 {
		cfg.Screener.QuoteBatchSize = 25
	}
	if cfg.Screener.IVThreshold == 0 {
		cfg.Screener.IVThreshold = 0.03
	}
	if cfg.Screener.RiskFreeRate == 0 {
		cfg.Screener.RiskFreeRate = 0.07
	}
	if cfg.Screener.ProviderTimeout == 0 {
		cfg.Screener.ProviderTimeout = 5 * time.Second
	}
	if cfg.Screener.BaselineTime == "" {
		cfg.Screener.BaselineTime = "15 9 * * 1-5" // 09:15 IST session open
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Screener.StrikeWidth < 0 {
		return fmt.Errorf("strike_width must be non-negative")
	}
	if c.Screener.QuoteBatchSize < 1 {
		return fmt.Errorf("quote_batch_size must be positive")
	}
	if c.Screener.IVThreshold < 0 {
		return fmt.Errorf("iv_threshold must be non-negative")
	}
	if c.Screener.RiskFreeRate < 0 || c.Screener.RiskFreeRate > 1 {
		return fmt.Errorf("risk_free_rate must be a fraction between 0 and 1")
	}
	return nil
}
