package config

import (
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"options-screener/pkg/utils"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Screener.Exchange != "NFO" {
		t.Errorf("default exchange = %q, want NFO", cfg.Screener.Exchange)
	}
	if cfg.Screener.QuoteBatchSize != 25 {
		t.Errorf("default quote_batch_size = %d, want 25", cfg.Screener.QuoteBatchSize)
	}
	if cfg.Screener.IVThreshold != 0.03 {
		t.Errorf("default iv_threshold = %v, want 0.03", cfg.Screener.IVThreshold)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Screener.StrikeWidth = 4
	cfg.Screener.BaselineTime = "30 9 * * 1-5"
	applyDefaults(cfg)

	if cfg.Screener.StrikeWidth != 4 {
		t.Errorf("explicit strike_width overwritten: %d", cfg.Screener.StrikeWidth)
	}
	if cfg.Screener.BaselineTime != "30 9 * * 1-5" {
		t.Errorf("explicit baseline_time overwritten: %q", cfg.Screener.BaselineTime)
	}
}

func TestDefaultBaselineTimeIsSessionOpen(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	sched, err := cron.ParseStandard(cfg.Screener.BaselineTime)
	if err != nil {
		t.Fatalf("default baseline_time does not parse: %v", err)
	}

	// From Monday midnight IST the next trigger must be that day's 09:15.
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, utils.IndiaLocation)
	next := sched.Next(monday)
	open := utils.SessionOpen(monday)
	if !next.Equal(open) {
		t.Errorf("default baseline capture fires at %v, want session open %v", next, open)
	}

	// Saturday midnight rolls over to Monday: no weekend captures.
	saturday := time.Date(2026, 9, 5, 0, 0, 0, 0, utils.IndiaLocation)
	if got := sched.Next(saturday); got.Weekday() != time.Monday {
		t.Errorf("weekend trigger at %v, want next Monday", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(cfg *Config) {}, false},
		{"negative strike width", func(cfg *Config) { cfg.Screener.StrikeWidth = -1 }, true},
		{"zero batch size", func(cfg *Config) { cfg.Screener.QuoteBatchSize = 0 }, true},
		{"port out of range", func(cfg *Config) { cfg.Server.Port = 70000 }, true},
		{"rate above one", func(cfg *Config) { cfg.Screener.RiskFreeRate = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
