package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Options Screener Configuration

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "10s"
write_timeout = "30s"
shutdown_timeout = "10s"

[screener]
# Exchange segment for the instrument catalog
exchange = "NFO"
# Strikes either side of ATM in the analysis window
strike_width = 2
# Quote request batch size (provider limit)
quote_batch_size = 25
# IV delta threshold for Pump/Crush labels
iv_threshold = 0.03
# Annualized risk-free rate for the IV solver
risk_free_rate = 0.07
# Annualized dividend yield
dividend_yield = 0.0
# Timeout per outbound provider call
provider_timeout = "5s"
# Fall back to the latest expired series when all expiries have passed
allow_expired_expiry = true
# Symbols captured by the opening-bell baseline snapshot
watchlist = ["NIFTY", "BANKNIFTY"]
# Cron spec (IST) for the baseline capture at session open
baseline_time = "15 9 * * 1-5"

[notifications]
enabled = false

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""
`

const credentialsTemplate = `# Options Screener Credentials
# Keep this file private (chmod 600).

[kite]
api_key = ""
api_secret = ""
user_id = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	fmt.Printf("Created template config at %s\n", path)
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Restricted permissions: this file holds API secrets
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	fmt.Printf("Created template credentials at %s\n", path)
	return nil
}
